package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/primer/content"
	"github.com/felixgeelhaar/primer/internal/config"
	"github.com/felixgeelhaar/primer/internal/lesson"
)

// cmdInit creates ~/.primer and a default configuration
func cmdInit() error {
	fmt.Println("Primer - First-Time Setup")
	fmt.Println("=========================")
	fmt.Println()

	fmt.Print("Creating ~/.primer directory structure... ")
	primerDir, err := config.EnsurePrimerDir()
	if err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	fmt.Println("✓")

	configPath := filepath.Join(primerDir, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Print("Creating default configuration... ")
		if err := config.SaveLocalConfig(config.DefaultLocalConfig()); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Println("✓")
	} else {
		fmt.Println("Configuration already exists ✓")
	}

	fmt.Print("Checking bundled lessons... ")
	catalog, err := lesson.Build(content.FS)
	if err != nil {
		fmt.Println("✗")
		return fmt.Errorf("bundled lessons: %w", err)
	}
	stats := catalog.Stats()
	fmt.Printf("✓ (%d chapters, %d lessons)\n", stats.ChapterCount, stats.LessonCount)

	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. primer start           # Start the daemon")
	fmt.Println("  2. primer lessons         # See available lessons")
	fmt.Println("  3. primer progress <you>  # Track your progress")
	fmt.Println()
	fmt.Println("For editor integration configure MCP with the 'primer mcp' command.")

	return nil
}

// cmdConfig prints the effective configuration
func cmdConfig() error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	primerDir, err := config.PrimerDir()
	if err != nil {
		return err
	}

	fmt.Println("Primer Configuration")

	fmt.Println("\nDaemon:")
	fmt.Printf("  bind: %s\n", cfg.Addr())
	fmt.Printf("  log_level: %s\n", cfg.Daemon.LogLevel)
	fmt.Printf("  rate_limit: %d/s\n", cfg.Daemon.RateLimit)

	fmt.Println("\nContent:")
	if cfg.Content.Path == "" {
		fmt.Println("  path: (embedded lessons)")
	} else {
		fmt.Printf("  path: %s\n", cfg.Content.Path)
	}

	fmt.Println("\nStorage:")
	fmt.Printf("  driver: %s\n", cfg.Storage.Driver)
	if cfg.Storage.Driver == config.DriverPostgres {
		fmt.Printf("  database_url: %s\n", secretStatus(cfg.Storage.DatabaseURL))
	} else {
		fmt.Printf("  path: %s\n", cfg.StoragePath(primerDir))
	}

	fmt.Println("\nEvents:")
	fmt.Printf("  enabled: %t\n", cfg.Events.Enabled)
	if cfg.Events.Enabled {
		fmt.Printf("  amqp_url: %s\n", secretStatus(cfg.Events.AMQPURL))
	}

	fmt.Printf("\nConfig path: %s\n", filepath.Join(primerDir, "config.yaml"))
	return nil
}

// secretStatus reports whether a URL that may embed credentials is set
func secretStatus(v string) string {
	if v == "" {
		return "✗ not set"
	}
	return "✓ set"
}
