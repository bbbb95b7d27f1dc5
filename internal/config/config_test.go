package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Address() != "0.0.0.0:8080" {
		t.Errorf("expected 0.0.0.0:8080, got %s", cfg.Server.Address())
	}
	if cfg.Notification.Driver != "log" {
		t.Errorf("expected log driver, got %s", cfg.Notification.Driver)
	}
	if cfg.Redis.Enabled {
		t.Error("redis lock should be off by default")
	}
	if cfg.App.Location() != time.UTC {
		t.Errorf("expected UTC location, got %v", cfg.App.Location())
	}
	if len(cfg.CORS.AllowedMethods) != 6 {
		t.Errorf("expected 6 CORS methods, got %v", cfg.CORS.AllowedMethods)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_LOCK_TTL", "3s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("NOTIFY_DRIVER", "KAFKA")
	t.Setenv("APP_TIMEZONE", "America/Sao_Paulo")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.Redis.Enabled || cfg.Redis.LockTTL != 3*time.Second {
		t.Errorf("unexpected redis config: %+v", cfg.Redis)
	}
	if cfg.Notification.Driver != "kafka" {
		t.Errorf("expected kafka driver, got %s", cfg.Notification.Driver)
	}
	if len(cfg.Notification.KafkaBrokers) != 2 || cfg.Notification.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("unexpected brokers: %v", cfg.Notification.KafkaBrokers)
	}
	if cfg.App.Location().String() != "America/Sao_Paulo" {
		t.Errorf("unexpected location: %v", cfg.App.Location())
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("NOTIFY_DRIVER", "pigeon")
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")

	_, err := Load()
	if err == nil {
		t.Fatal("expected configuration error")
	}
	for _, want := range []string{"JWT_SECRET is required", "NOTIFY_DRIVER", "APP_TIMEZONE"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %q, got: %v", want, err)
		}
	}
}

func TestLoad_ProductionRules(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "short")
	t.Setenv("DB_SSLMODE", "disable")

	_, err := Load()
	if err == nil {
		t.Fatal("expected configuration error")
	}
	for _, want := range []string{"at least 32 characters", "DB_PASSWORD is required", "DB_SSLMODE=disable"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %q, got: %v", want, err)
		}
	}
}
