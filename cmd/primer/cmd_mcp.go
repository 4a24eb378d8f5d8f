package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/felixgeelhaar/primer/internal/config"
	mcpserver "github.com/felixgeelhaar/primer/internal/mcp"
	"github.com/felixgeelhaar/primer/internal/progress"
	"github.com/felixgeelhaar/primer/internal/storage"
)

// cmdMCP starts the MCP server on stdio, or on HTTP with --http <addr>. It
// opens the attempt store directly, so attempts recorded here show up in the
// daemon as well.
func cmdMCP(args []string) error {
	httpAddr, err := parseMCPArgs(args)
	if err != nil {
		return err
	}

	// stdout carries the protocol
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	primerDir, err := config.EnsurePrimerDir()
	if err != nil {
		return fmt.Errorf("ensure primer dir: %w", err)
	}

	catalog, err := loadCatalog()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := storage.Open(ctx, cfg, primerDir)
	if err != nil {
		return fmt.Errorf("open attempt store: %w", err)
	}
	defer store.Close()

	mcpSrv := mcpserver.NewServer(mcpserver.Config{
		Catalog:  catalog,
		Progress: progress.NewService(store, catalog),
		Version:  Version,
	})

	if httpAddr != "" {
		fmt.Fprintf(os.Stderr, "MCP server listening on %s\n", httpAddr)
		return mcpSrv.ServeHTTP(ctx, httpAddr)
	}
	return mcpSrv.ServeStdio(ctx)
}

// parseMCPArgs returns the HTTP listen address, empty for stdio
func parseMCPArgs(args []string) (string, error) {
	var addr string
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; {
		case arg == "--http":
			if i+1 >= len(args) || args[i+1] == "" {
				return "", fmt.Errorf("--http requires an address")
			}
			i++
			addr = args[i]
		case strings.HasPrefix(arg, "--http="):
			addr = strings.TrimPrefix(arg, "--http=")
			if addr == "" {
				return "", fmt.Errorf("--http requires an address")
			}
		default:
			return "", fmt.Errorf("usage: primer mcp [--http <addr>]")
		}
	}
	return addr, nil
}
