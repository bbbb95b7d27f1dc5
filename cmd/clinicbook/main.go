package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/calendar"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/database"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "clinicbook",
		Short:         "Clinic appointment scheduling API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(remindCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if migrate {
				if err := database.Migrate(a.db, a.log); err != nil {
					return fmt.Errorf("migrating: %w", err)
				}
			}

			if err := a.wire(ctx); err != nil {
				a.log.Error("wiring dependencies failed", zap.Error(err))
				return err
			}

			a.log.Info("starting clinicbook",
				zap.String("version", a.cfg.App.Version),
				zap.String("timezone", a.cfg.App.Timezone),
				zap.String("notify_driver", a.cfg.Notification.Driver),
				zap.Bool("redis_lock", a.cfg.Redis.Enabled),
				zap.Bool("reminders", a.cfg.Reminder.Enabled),
			)
			return a.serve(ctx)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply schema migrations before serving")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			if err := database.Migrate(a.db, a.log); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Println("Schema is up to date.")
			return nil
		},
	}
}

func remindCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Send reminders for one day's appointments and print the report",
		Long: "Runs a single reminder sweep. Without --date the sweep covers today " +
			"in APP_TIMEZONE; appointments already reminded are skipped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.wire(ctx); err != nil {
				return err
			}

			day := a.reminderSvc.Today()
			if date != "" {
				day, err = calendar.ParseDate(date)
				if err != nil {
					return err
				}
			}

			report, err := a.reminderSvc.Run(ctx, day)
			if err != nil {
				return fmt.Errorf("reminder sweep: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Day to sweep, YYYY-MM-DD (default: today)")
	return cmd
}
