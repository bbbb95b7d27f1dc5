package database

import (
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/config"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/doctor"
	mr "github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/domain/patient"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg config.DatabaseConfig, log *zap.Logger, observe QueryObserver) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         NewGormLogger(log, cfg.SlowQueryThreshold, observe),
		PrepareStmt:    true,
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: cfg.DSN(),
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

// Models lists every persisted entity in dependency order.
func Models() []any {
	return []any{
		&domain.User{},
		&domain.AuditLog{},
		&doctor.Doctor{},
		&patient.Patient{},
		&appointment.Appointment{},
		&mr.MedicalRecord{},
		&mr.Addendum{},
	}
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	if err := createIndexes(db, log); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

type index struct {
	name     string
	query    string
	postgres bool // needs postgres-only syntax or extensions
}

var indexes = []index{
	{
		// Booked-interval lookups only ever read occupying appointments.
		name:  "idx_appointments_booked",
		query: `CREATE INDEX IF NOT EXISTS idx_appointments_booked ON appointments (doctor_id, appointment_date, start_time) WHERE status <> 'cancelled'`,
	},
	{
		name:  "idx_appointments_due_reminders",
		query: `CREATE INDEX IF NOT EXISTS idx_appointments_due_reminders ON appointments (appointment_date) WHERE status = 'confirmed' AND reminder_sent = false`,
	},
	{
		name:     "idx_patients_name_trgm",
		query:    `CREATE INDEX IF NOT EXISTS idx_patients_name_trgm ON patients USING gin ((first_name || ' ' || last_name) gin_trgm_ops) WHERE deleted_at IS NULL`,
		postgres: true,
	},
}

func createIndexes(db *gorm.DB, log *zap.Logger) error {
	isPostgres := db.Dialector.Name() == "postgres"
	if isPostgres {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS pg_trgm").Error; err != nil {
			log.Warn("pg_trgm unavailable, name search will scan", zap.Error(err))
		}
	}

	for _, idx := range indexes {
		if idx.postgres && !isPostgres {
			continue
		}
		if err := db.Exec(idx.query).Error; err != nil {
			// Missing optional indexes slow queries down but do not break them.
			log.Warn("failed to create index", zap.String("index", idx.name), zap.Error(err))
		}
	}

	return nil
}
