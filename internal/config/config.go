package config

import (
	"os"
	"strconv"
)

// applyEnv overrides file settings with PRIMER_* environment variables
func applyEnv(cfg *LocalConfig) {
	cfg.Daemon.Port = getEnvInt("PRIMER_PORT", cfg.Daemon.Port)
	cfg.Daemon.Bind = getEnv("PRIMER_BIND", cfg.Daemon.Bind)
	cfg.Daemon.LogLevel = getEnv("PRIMER_LOG_LEVEL", cfg.Daemon.LogLevel)
	cfg.Content.Path = getEnv("PRIMER_CONTENT_PATH", cfg.Content.Path)
	cfg.Storage.Driver = getEnv("PRIMER_STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.Path = getEnv("PRIMER_STORAGE_PATH", cfg.Storage.Path)
	cfg.Storage.DatabaseURL = getEnv("PRIMER_DATABASE_URL", cfg.Storage.DatabaseURL)
	cfg.Events.Enabled = getEnvBool("PRIMER_EVENTS_ENABLED", cfg.Events.Enabled)
	cfg.Events.AMQPURL = getEnv("PRIMER_AMQP_URL", cfg.Events.AMQPURL)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
