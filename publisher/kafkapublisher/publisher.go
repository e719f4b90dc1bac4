// Package kafkapublisher publishes committed loan events to a Kafka topic with segmentio/kafka-go.
package kafkapublisher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"

	"github.com/AntonStoeckl/library-loans/core"
	"github.com/AntonStoeckl/library-loans/loanstore"
)

const (
	defaultMaxAttempts  = 3
	defaultBatchTimeout = 10 * time.Millisecond
	defaultWriteTimeout = 5 * time.Second
)

var (
	// ErrNoBrokers is returned when the publisher is configured without any broker address.
	ErrNoBrokers = errors.New("at least one kafka broker is required")

	// ErrEmptyTopic is returned when the publisher is configured without a topic.
	ErrEmptyTopic = errors.New("kafka topic cannot be empty")

	// ErrPublisherClosed is returned by Publish after Close.
	ErrPublisherClosed = errors.New("publisher is closed")
)

// MessageWriter is the part of *kafka.Writer the Publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config holds the connection settings.
type Config struct {
	Brokers      []string
	Topic        string
	MaxAttempts  int
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// Publisher implements core.LoanEventPublisher.
type Publisher struct {
	writer MessageWriter
	logger loanstore.Logger

	mu     sync.RWMutex
	closed bool
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger routes the writer's error log to the logger.
func WithLogger(logger loanstore.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher creates a publisher with a synchronous kafka.Writer.
// Hash balancing on the copy ID keeps the events of a copy in order.
func NewPublisher(cfg Config, opts ...Option) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}

	if cfg.Topic == "" {
		return nil, ErrEmptyTopic
	}

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}

	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaultBatchTimeout
	}

	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}

	p := &Publisher{}
	for _, opt := range opts {
		opt(p)
	}

	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  compress.Snappy,
		MaxAttempts:  cfg.MaxAttempts,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorLogger:  kafka.LoggerFunc(p.logError),
	}

	return p, nil
}

// NewPublisherWithWriter uses the given writer, e.g. a preconfigured *kafka.Writer.
func NewPublisherWithWriter(writer MessageWriter, opts ...Option) *Publisher {
	p := &Publisher{writer: writer}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Publish writes all events in one batch. Nothing is written if any event fails to encode.
func (p *Publisher) Publish(ctx context.Context, events ...core.LoanEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPublisherClosed
	}

	if len(events) == 0 {
		return nil
	}

	messages := make([]kafka.Message, 0, len(events))

	for _, event := range events {
		message, err := MessageFrom(event)
		if err != nil {
			return err
		}

		messages = append(messages, message)
	}

	return p.writer.WriteMessages(ctx, messages...)
}

// Close flushes and closes the writer. It is safe to call more than once.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true

	return p.writer.Close()
}

func (p *Publisher) logError(msg string, args ...any) {
	if p.logger == nil {
		return
	}

	p.logger.Error("kafka writer: "+msg, "args", args)
}

var _ core.LoanEventPublisher = (*Publisher)(nil)
