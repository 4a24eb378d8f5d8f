package config

import (
	"os"
	"testing"
)

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{"returns default when not set", "TEST_KEY_UNSET", "default", "", "default"},
		{"returns env value when set", "TEST_KEY_SET", "default", "custom", "custom"},
		{"returns empty string env over default", "TEST_KEY_EMPTY", "default", "", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv(%q, %q) = %q, want %q", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue int
		envValue     string
		want         int
	}{
		{"returns default when not set", "TEST_INT_UNSET", 100, "", 100},
		{"parses valid int", "TEST_INT_VALID", 100, "42", 42},
		{"returns default on invalid int", "TEST_INT_INVALID", 100, "not-a-number", 100},
		{"parses negative int", "TEST_INT_NEG", 100, "-5", -5},
		{"parses zero", "TEST_INT_ZERO", 100, "0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			got := getEnvInt(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvInt(%q, %d) = %d, want %d", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue bool
		envValue     string
		want         bool
	}{
		{"returns default when not set", "TEST_BOOL_UNSET", true, "", true},
		{"parses true", "TEST_BOOL_TRUE", false, "true", true},
		{"parses false", "TEST_BOOL_FALSE", true, "false", false},
		{"parses 1 as true", "TEST_BOOL_ONE", false, "1", true},
		{"parses 0 as false", "TEST_BOOL_ZERO", true, "0", false},
		{"returns default on invalid bool", "TEST_BOOL_INVALID", true, "yes", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			got := getEnvBool(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvBool(%q, %v) = %v, want %v", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PRIMER_PORT", "9000")
	t.Setenv("PRIMER_BIND", "0.0.0.0")
	t.Setenv("PRIMER_LOG_LEVEL", "debug")
	t.Setenv("PRIMER_CONTENT_PATH", "/srv/lessons")
	t.Setenv("PRIMER_STORAGE_DRIVER", "postgres")
	t.Setenv("PRIMER_DATABASE_URL", "postgres://primer@db/primer")
	t.Setenv("PRIMER_EVENTS_ENABLED", "true")
	t.Setenv("PRIMER_AMQP_URL", "amqp://mq:5672/")

	cfg := DefaultLocalConfig()
	applyEnv(cfg)

	if cfg.Daemon.Port != 9000 || cfg.Daemon.Bind != "0.0.0.0" || cfg.Daemon.LogLevel != "debug" {
		t.Errorf("Daemon = %+v", cfg.Daemon)
	}
	if cfg.Content.Path != "/srv/lessons" {
		t.Errorf("Content.Path = %q", cfg.Content.Path)
	}
	if cfg.Storage.Driver != DriverPostgres || cfg.Storage.DatabaseURL != "postgres://primer@db/primer" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if !cfg.Events.Enabled || cfg.Events.AMQPURL != "amqp://mq:5672/" {
		t.Errorf("Events = %+v", cfg.Events)
	}
}

func TestApplyEnv_KeepsFileValues(t *testing.T) {
	cfg := DefaultLocalConfig()
	cfg.Daemon.Port = 8000
	cfg.Storage.Path = "/var/lib/primer.db"

	applyEnv(cfg)

	if cfg.Daemon.Port != 8000 || cfg.Storage.Path != "/var/lib/primer.db" {
		t.Errorf("applyEnv() should not touch unset keys: %+v", cfg)
	}
}
