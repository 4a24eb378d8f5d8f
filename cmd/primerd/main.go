package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/felixgeelhaar/primer/content"
	"github.com/felixgeelhaar/primer/internal/config"
	"github.com/felixgeelhaar/primer/internal/daemon"
	"github.com/felixgeelhaar/primer/internal/domain"
	"github.com/felixgeelhaar/primer/internal/events"
	"github.com/felixgeelhaar/primer/internal/lesson"
	"github.com/felixgeelhaar/primer/internal/progress"
	"github.com/felixgeelhaar/primer/internal/storage"
)

// Version is set at build time via ldflags
var Version = "dev"

const (
	pidFileName = "primerd.pid"
)

func main() {
	if err := run(); err != nil {
		slog.Error("daemon error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Ensure ~/.primer directory exists
	primerDir, err := config.EnsurePrimerDir()
	if err != nil {
		return fmt.Errorf("ensure primer dir: %w", err)
	}

	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logFile, err := setupLogging(primerDir, parseLogLevel(cfg.Daemon.LogLevel))
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	pidPath := filepath.Join(primerDir, pidFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	// The daemon refuses to start on invalid content
	catalog, err := lesson.Build(content.Open(cfg.Content.Path))
	if err != nil {
		return fmt.Errorf("load lessons: %w", err)
	}
	stats := catalog.Stats()
	slog.Info("lessons loaded",
		"path", cfg.Content.Path,
		"chapters", stats.ChapterCount,
		"lessons", stats.LessonCount,
		"max_score", stats.MaxScore,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.Open(ctx, cfg, primerDir)
	if err != nil {
		return fmt.Errorf("open attempt store: %w", err)
	}
	defer store.Close()

	dispatcher := domain.NewEventDispatcher()
	traceEvents(dispatcher, slog.Default())
	progressService := progress.NewService(store, catalog)
	progressService.SetDispatcher(dispatcher)

	stopEvents, err := startEvents(ctx, cfg, dispatcher)
	if err != nil {
		return err
	}
	defer stopEvents()

	server, err := daemon.NewServer(daemon.ServerConfig{
		Config:   cfg,
		Catalog:  catalog,
		Progress: progressService,
		Version:  Version,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		slog.Info("received signal, shutting down", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		close(done)
	}()

	if err := server.Start(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	slog.Info("daemon stopped")
	return nil
}

// startEvents connects to RabbitMQ and forwards AttemptScored events when
// enabled. The returned function drains the publisher and closes the
// connection.
func startEvents(ctx context.Context, cfg *config.LocalConfig, dispatcher *domain.EventDispatcher) (func(), error) {
	if !cfg.Events.Enabled {
		return func() {}, nil
	}

	conn, err := events.NewConnection(cfg.Events.AMQPURL)
	if err != nil {
		return nil, fmt.Errorf("connect events: %w", err)
	}

	publisher := events.NewPublisher(conn, events.DefaultPublisherConfig())
	publisher.Subscribe(dispatcher)

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		publisher.Run(ctx)
	}()

	return func() {
		publisher.Close()
		select {
		case <-runDone:
		case <-time.After(10 * time.Second):
			slog.Warn("timed out draining attempt events")
		}
		if dropped := publisher.Dropped(); dropped > 0 {
			slog.Warn("attempt events dropped", "count", dropped)
		}
		if err := conn.Close(); err != nil {
			slog.Error("close events connection", "error", err)
		}
	}, nil
}

// traceEvents logs every domain event at debug level
func traceEvents(dispatcher *domain.EventDispatcher, logger *slog.Logger) {
	dispatcher.SubscribeAll(func(e domain.Event) {
		logger.Debug("domain event",
			"type", e.EventType(),
			"aggregate", e.AggregateType(),
			"aggregate_id", e.AggregateID().String(),
			"event_id", e.EventID().String(),
		)
	})
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setupLogging(primerDir string, level slog.Level) (*os.File, error) {
	logPath := filepath.Join(primerDir, "logs", "primerd.log")

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	// JSON to the log file, text to stderr for foreground mode
	slog.SetDefault(slog.New(&multiHandler{
		handlers: []slog.Handler{
			slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: level}),
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
		},
	}))

	return logFile, nil
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}

// multiHandler logs to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
