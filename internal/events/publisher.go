package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/primer/internal/domain"
)

// Sender publishes JSON payloads to a named queue
type Sender interface {
	PublishJSON(ctx context.Context, queue string, data any) error
}

// PublisherConfig holds publisher configuration
type PublisherConfig struct {
	// Buffer is how many messages may wait for the publish loop
	Buffer int

	// Timeout bounds a single publish including retries
	Timeout time.Duration

	// MaxAttempts for the retrier (default: 3)
	MaxAttempts int

	// InitialDelay between retries (default: 200ms)
	InitialDelay time.Duration
}

// DefaultPublisherConfig returns sensible defaults
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		Buffer:       256,
		Timeout:      10 * time.Second,
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
	}
}

// Publisher forwards AttemptScored events to RabbitMQ. Events are queued
// in memory and published by Run so that scoring never waits on the broker.
type Publisher struct {
	sender         Sender
	queue          chan *AttemptMessage
	timeout        time.Duration
	circuitBreaker circuitbreaker.CircuitBreaker[struct{}]
	retrier        retry.Retry[struct{}]

	mu      sync.Mutex
	closed  bool
	dropped int
}

// NewPublisher wraps a sender with retry and a circuit breaker
func NewPublisher(sender Sender, cfg PublisherConfig) *Publisher {
	def := DefaultPublisherConfig()
	if cfg.Buffer <= 0 {
		cfg.Buffer = def.Buffer
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = def.InitialDelay
	}

	p := &Publisher{
		sender:  sender,
		queue:   make(chan *AttemptMessage, cfg.Buffer),
		timeout: cfg.Timeout,
	}

	p.circuitBreaker = circuitbreaker.New[struct{}](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			slog.Warn("event publisher circuit breaker state change",
				"queue", QueueName,
				"from", from.String(),
				"to", to.String())
		},
	})

	p.retrier = retry.New[struct{}](retry.Config{
		MaxAttempts:   cfg.MaxAttempts,
		InitialDelay:  cfg.InitialDelay,
		MaxDelay:      5 * time.Second,
		Multiplier:    2.0,
		BackoffPolicy: retry.BackoffExponential,
		Jitter:        true,
		IsRetryable: func(err error) bool {
			return !errors.Is(err, context.Canceled)
		},
	})

	return p
}

// Subscribe registers the publisher for AttemptScored events
func (p *Publisher) Subscribe(d *domain.EventDispatcher) {
	d.Subscribe(domain.EventAttemptScored, func(e domain.Event) {
		scored, ok := e.(domain.AttemptScoredEvent)
		if !ok {
			return
		}
		p.Enqueue(NewAttemptMessage(scored))
	})
}

// Enqueue hands a message to the publish loop. It never blocks; when the
// buffer is full or the publisher is closed the message is dropped.
func (p *Publisher) Enqueue(msg *AttemptMessage) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		p.dropped++
		return false
	}

	select {
	case p.queue <- msg:
		return true
	default:
		p.dropped++
		slog.Warn("event buffer full, dropping attempt message",
			"attempt_id", msg.AttemptID,
			"dropped", p.dropped)
		return false
	}
}

// Publish sends one message through the circuit breaker and retrier
func (p *Publisher) Publish(ctx context.Context, msg *AttemptMessage) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	operation := func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.sender.PublishJSON(ctx, QueueName, msg)
	}

	_, err := p.circuitBreaker.Execute(ctx, func(ctx context.Context) (struct{}, error) {
		return p.retrier.Do(ctx, operation)
	})
	if err != nil {
		return fmt.Errorf("publish attempt %s: %w", msg.AttemptID, err)
	}

	slog.Debug("published attempt message",
		"attempt_id", msg.AttemptID,
		"learner", msg.LearnerID,
		"lesson", msg.LessonKey)
	return nil
}

// Run publishes queued messages until ctx is done or Close drains the
// buffer
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-p.queue:
			if !ok {
				return
			}
			if err := p.Publish(ctx, msg); err != nil {
				slog.Error("failed to publish attempt message", "error", err)
			}
		}
	}
}

// Close stops accepting messages. Messages already buffered are still
// published by a running Run loop.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
}

// Dropped returns how many messages were discarded
func (p *Publisher) Dropped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}
