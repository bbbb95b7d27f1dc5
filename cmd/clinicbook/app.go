package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/config"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/handler"
	v1 "github.com/dmehra2102/prod-golang-projects/clinicbook/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/lock"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/notify"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/repository"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/service"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/cache"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/tracer"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app holds every long-lived dependency of the process. Commands build the
// parts they need and call close on the way out.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Collector
	tp       *sdktrace.TracerProvider
	db       *gorm.DB
	redis    *redis.Client
	jwt      *auth.JWTManager

	auditSvc    *service.AuditService
	reminderSvc *service.ReminderService
	handlers    v1.Handlers
	closers     []func()
}

// newApp loads configuration, sets up logging and tracing and opens the
// database. Services are wired separately by wire.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	log = log.With(zap.String("service", cfg.App.Name), zap.String("env", cfg.App.Environment))

	a := &app{cfg: cfg, log: log}

	tp, err := tracer.Init(ctx, cfg.Tracing, cfg.App.Version)
	if err != nil {
		return nil, fmt.Errorf("initialising tracer: %w", err)
	}
	a.tp = tp

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.NewCollector("clinicbook", a.registry)

	db, err := database.Connect(cfg.Database, log, a.metrics.ObserveQuery)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	a.db = db

	return a, nil
}

// wire builds the lock, notifier, repositories, services and handlers.
func (a *app) wire(ctx context.Context) error {
	locker, err := a.newLocker(ctx)
	if err != nil {
		return err
	}
	notifier := a.newNotifier()

	users := repository.NewUserRepository(a.db)
	doctors := repository.NewDoctorRepository(a.db)
	patients := repository.NewPatientRepository(a.db)
	appointments := repository.NewAppointmentRepository(a.db)
	records := repository.NewMedicalRecordRepository(a.db)
	audits := repository.NewAuditRepository(a.db)

	a.jwt = auth.NewJWTManager(a.cfg.JWT)

	a.auditSvc = service.NewAuditService(audits, a.metrics, a.log)
	authSvc := service.NewAuthService(users, doctors, a.jwt, a.auditSvc, a.log)
	doctorSvc := service.NewDoctorService(doctors, users, a.auditSvc, a.log)
	patientSvc := service.NewPatientService(patients, a.auditSvc, a.metrics, a.log)
	appointmentSvc := service.NewAppointmentService(
		appointments, doctors, patients, locker, notifier, a.auditSvc, a.metrics, a.log,
		service.WithNotifyTimeout(a.cfg.Notification.Timeout),
	)
	recordSvc := service.NewMedicalRecordService(records, appointments, doctors, patients, a.auditSvc, a.log)
	a.reminderSvc = service.NewReminderService(
		appointments, doctors, patients, notifier, a.metrics, a.log,
		a.cfg.App.Location(), a.cfg.Notification.Timeout,
	)

	v := validator.New()
	a.handlers = v1.Handlers{
		Auth:           v1.NewAuthHandler(authSvc, v),
		Doctors:        v1.NewDoctorHandler(doctorSvc, v),
		Patients:       v1.NewPatientHandler(patientSvc, recordSvc, v),
		Appointments:   v1.NewAppointmentHandler(appointmentSvc, a.reminderSvc, v),
		MedicalRecords: v1.NewMedicalRecordHandler(recordSvc, v),
	}
	return nil
}

func (a *app) newLocker(ctx context.Context) (lock.Locker, error) {
	if !a.cfg.Redis.Enabled {
		a.log.Info("booking lock is in-process; run a single replica")
		return lock.NewLocal(), nil
	}

	client, err := cache.NewRedisClient(ctx, a.cfg.Redis, a.log)
	if err != nil {
		return nil, err
	}
	a.redis = client
	a.closers = append(a.closers, func() {
		if err := client.Close(); err != nil {
			a.log.Warn("closing redis client", zap.Error(err))
		}
	})
	return lock.NewRedis(client, a.cfg.Redis.LockTTL, a.cfg.Redis.LockRetry, a.log), nil
}

func (a *app) newNotifier() notify.Notifier {
	nc := a.cfg.Notification

	var next notify.Notifier
	switch nc.Driver {
	case "smtp":
		next = notify.NewSMTP(nc.SMTPHost, nc.SMTPPort, nc.SMTPUsername, nc.SMTPPassword, nc.EmailFrom)
	case "kafka":
		k := notify.NewKafka(nc.KafkaBrokers, nc.KafkaTopic)
		a.closers = append(a.closers, func() {
			if err := k.Close(); err != nil {
				a.log.Warn("closing kafka writer", zap.Error(err))
			}
		})
		next = k
	default:
		return notify.NewLog(a.log)
	}

	a.log.Info("notifications enabled", zap.String("driver", nc.Driver))
	return notify.NewBreaker(next, nc.BreakerMaxFailures, nc.BreakerOpenTimeout, a.log)
}

func (a *app) ready(c *gin.Context) error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (a *app) server() *http.Server {
	router := handler.NewRouter(handler.RouterDeps{
		Config:   a.cfg,
		Log:      a.log,
		Metrics:  a.metrics,
		Gatherer: a.registry,
		JWT:      a.jwt,
		Handlers: a.handlers,
		Ready:    a.ready,
	})

	sc := a.cfg.Server
	return &http.Server{
		Addr:              sc.Address(),
		Handler:           router,
		ReadTimeout:       sc.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      sc.WriteTimeout,
		IdleTimeout:       sc.IdleTimeout,
	}
}

// serve runs the HTTP server and, when enabled, the reminder schedule until
// ctx is cancelled, then drains in-flight requests.
func (a *app) serve(ctx context.Context) error {
	srv := a.server()

	if a.cfg.Reminder.Enabled {
		go a.reminderSvc.Schedule(ctx, a.cfg.Reminder.Interval)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down", zap.Duration("timeout", a.cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		// Handlers still running after this may log audit entries; the
		// audit service drops them once it has shut down.
		_ = srv.Close()
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	a.log.Info("http server stopped")
	return nil
}

// close releases resources in reverse order of acquisition. The audit
// writer is drained before the database goes away.
func (a *app) close() {
	if a.auditSvc != nil {
		a.auditSvc.Shutdown()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.tp != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tp.Shutdown(ctx); err != nil {
			a.log.Warn("flushing traces", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}
