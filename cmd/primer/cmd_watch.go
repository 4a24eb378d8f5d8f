package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/primer/internal/config"
	"github.com/felixgeelhaar/primer/internal/events"
)

// cmdWatch prints scored attempts as the daemon publishes them. Messages
// are acknowledged, so only one watcher sees each attempt.
func cmdWatch() error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.Events.Enabled {
		fmt.Fprintln(os.Stderr, "Note: events are disabled in the config; the daemon will not publish attempts")
	}

	conn, err := events.NewConnection(cfg.Events.AMQPURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("Watching %s (Ctrl+C to stop)\n\n", events.QueueName)

	consumer := events.NewConsumer(conn, func(_ context.Context, msg *events.AttemptMessage) error {
		fmt.Printf("%s %s\n",
			msg.OccurredAt.Local().Format("15:04:05"),
			scoreLine(msg.LearnerID, msg.LessonKey, msg.Total, msg.Max, msg.Complete))
		return nil
	})

	return consumer.Run(ctx)
}
