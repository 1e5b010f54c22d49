package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want %q", cfg.Server.Port, "8080")
	}
	if cfg.Store.Backend != BackendMemory {
		t.Errorf("Store.Backend = %q, want %q", cfg.Store.Backend, BackendMemory)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, 5432)
	}
	if cfg.Points.LockTimeout != 5*time.Second {
		t.Errorf("Points.LockTimeout = %v, want 5s", cfg.Points.LockTimeout)
	}
	if cfg.Points.MaterializeOnRead {
		t.Error("Points.MaterializeOnRead should default to false")
	}
	if cfg.Store.BreakerFailures != 5 {
		t.Errorf("Store.BreakerFailures = %d, want 5", cfg.Store.BreakerFailures)
	}
}

func TestLoad_InvalidDBPort(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-number")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for invalid DB_PORT, got nil")
	}
}

func TestLoad_StoreBackend(t *testing.T) {
	tests := []struct {
		value   string
		want    string
		wantErr bool
	}{
		{"memory", BackendMemory, false},
		{"POSTGRES", BackendPostgres, false},
		{"redis", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("STORE_BACKEND", tt.value)

			cfg, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error for STORE_BACKEND=%q, got nil", tt.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() failed: %v", err)
			}
			if cfg.Store.Backend != tt.want {
				t.Errorf("Store.Backend = %q, want %q", cfg.Store.Backend, tt.want)
			}
		})
	}
}

func TestLoad_PointsConfig(t *testing.T) {
	t.Setenv("POINTS_LOCK_TIMEOUT", "250ms")
	t.Setenv("POINTS_MATERIALIZE_ON_READ", "yes")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Points.LockTimeout != 250*time.Millisecond {
		t.Errorf("Points.LockTimeout = %v, want 250ms", cfg.Points.LockTimeout)
	}
	if !cfg.Points.MaterializeOnRead {
		t.Error("Points.MaterializeOnRead should be true")
	}
}

func TestLoad_LockTimeoutDisabled(t *testing.T) {
	t.Setenv("POINTS_LOCK_TIMEOUT", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Points.LockTimeout != 0 {
		t.Errorf("Points.LockTimeout = %v, want 0", cfg.Points.LockTimeout)
	}
}

func TestLoad_InvalidLockTimeout(t *testing.T) {
	for _, value := range []string{"soon", "-1s"} {
		t.Run(value, func(t *testing.T) {
			t.Setenv("POINTS_LOCK_TIMEOUT", value)

			if _, err := Load(); err == nil {
				t.Errorf("Load() expected error for POINTS_LOCK_TIMEOUT=%q, got nil", value)
			}
		})
	}
}

func TestLoad_BreakerConfig(t *testing.T) {
	t.Setenv("STORE_BREAKER_FAILURES", "0")
	t.Setenv("STORE_BREAKER_OPEN_TIMEOUT", "10s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Store.BreakerFailures != 0 {
		t.Errorf("Store.BreakerFailures = %d, want 0", cfg.Store.BreakerFailures)
	}
	if cfg.Store.BreakerOpenTimeout != 10*time.Second {
		t.Errorf("Store.BreakerOpenTimeout = %v, want 10s", cfg.Store.BreakerOpenTimeout)
	}

	t.Setenv("STORE_BREAKER_FAILURES", "-1")
	if _, err := Load(); err == nil {
		t.Error("Load() expected error for negative STORE_BREAKER_FAILURES, got nil")
	}
}

func TestLoad_TelemetryConfig(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_SERVICE_NAME", "points-test")
	t.Setenv("METRICS_PORT", "9999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if !cfg.Telemetry.Enabled {
		t.Error("Telemetry.Enabled should be true")
	}
	if cfg.Telemetry.ServiceName != "points-test" {
		t.Errorf("Telemetry.ServiceName = %q, want %q", cfg.Telemetry.ServiceName, "points-test")
	}
	if cfg.Telemetry.MetricsPort != "9999" {
		t.Errorf("Telemetry.MetricsPort = %q, want %q", cfg.Telemetry.MetricsPort, "9999")
	}
}

func TestGetBoolEnv(t *testing.T) {
	tests := []struct {
		value    string
		defVal   bool
		expected bool
	}{
		{"true", false, true},
		{"TRUE", false, true},
		{"1", false, true},
		{"yes", false, true},
		{"false", true, false},
		{"0", true, false},
		{"no", true, false},
		{"invalid", true, true},   // returns default
		{"invalid", false, false}, // returns default
		{"", true, true},          // empty returns default
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			key := "TEST_BOOL_ENV"
			if tt.value == "" {
				os.Unsetenv(key)
			} else {
				t.Setenv(key, tt.value)
			}

			got := getBoolEnv(key, tt.defVal)
			if got != tt.expected {
				t.Errorf("getBoolEnv(%q, %v) = %v, want %v", tt.value, tt.defVal, got, tt.expected)
			}
		})
	}
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
		SSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	got := cfg.ConnectionString()
	if got != expected {
		t.Errorf("ConnectionString() = %q, want %q", got, expected)
	}
}
