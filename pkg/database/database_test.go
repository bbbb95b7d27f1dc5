package database

import (
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMigrate_SQLite(t *testing.T) {
	var ops []string
	observe := func(op string, _ time.Duration) { ops = append(ops, op) }

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         NewGormLogger(zap.NewNop(), time.Second, observe),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}

	if err := Migrate(db, zap.NewNop()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, table := range []string{"users", "doctors", "patients", "appointments", "medical_records", "audit_logs"} {
		if !db.Migrator().HasTable(table) {
			t.Errorf("expected table %s", table)
		}
	}
	if !db.Migrator().HasIndex("appointments", "idx_appointments_booked") {
		t.Error("expected the booked-interval partial index")
	}
	if len(ops) == 0 {
		t.Error("expected the query observer to be called")
	}
}

func TestOperation(t *testing.T) {
	tests := map[string]string{
		`SELECT * FROM "appointments"`: "select",
		"  INSERT INTO x":              "insert",
		"":                             "",
	}
	for in, want := range tests {
		if got := operation(in); got != want {
			t.Errorf("operation(%q) = %q, want %q", in, got, want)
		}
	}
}
