package sinks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/glimte/weave-go/internal/broker"
)

// Publisher is the subset of *amqp.Channel used by AMQPSink
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSinkOption configures the AMQP sink
type AMQPSinkOption func(*AMQPSink)

// WithRoutingKey sets the routing key of published lines
func WithRoutingKey(key string) AMQPSinkOption {
	return func(s *AMQPSink) {
		s.routingKey = key
	}
}

// WithPublishTimeout bounds each publish
func WithPublishTimeout(timeout time.Duration) AMQPSinkOption {
	return func(s *AMQPSink) {
		s.timeout = timeout
	}
}

// WithSinkLogger sets the logger used to report publish failures
func WithSinkLogger(logger *slog.Logger) AMQPSinkOption {
	return func(s *AMQPSink) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// AMQPSink publishes every line as a text/plain message to an exchange. Publish failures are
// logged and never surface to the advice that wrote the line.
type AMQPSink struct {
	publisher  Publisher
	exchange   string
	routingKey string
	timeout    time.Duration
	logger     *slog.Logger
	closers    []func() error
}

// NewAMQPSink creates a sink publishing through publisher, typically an *amqp.Channel
func NewAMQPSink(publisher Publisher, exchange string, opts ...AMQPSinkOption) *AMQPSink {
	s := &AMQPSink{
		publisher:  publisher,
		exchange:   exchange,
		routingKey: "weave.log",
		timeout:    5 * time.Second,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DialAMQPSink connects to url, declares a durable topic exchange and returns a sink
// publishing to it. The connection is re-established in the background if the broker drops
// it; lines written meanwhile are logged as failed. Close releases the connection.
func DialAMQPSink(url, exchange string, opts ...AMQPSinkOption) (*AMQPSink, error) {
	s := NewAMQPSink(nil, exchange, opts...)

	conn, err := broker.Dial(context.Background(), url,
		broker.WithLogger(s.logger),
		broker.WithTopology(broker.ExchangeTopology(exchange, "topic")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	s.publisher = conn
	s.closers = append(s.closers, conn.Close)
	return s, nil
}

// Write implements contracts.Sink
func (s *AMQPSink) Write(line string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err := s.publisher.PublishWithContext(ctx, s.exchange, s.routingKey, false, false, amqp.Publishing{
		ContentType: "text/plain",
		MessageId:   uuid.New().String(),
		Timestamp:   time.Now().UTC(),
		Body:        []byte(line),
	})
	if err != nil {
		s.logger.Error("failed to publish log line",
			"exchange", s.exchange,
			"routingKey", s.routingKey,
			"error", err,
		)
	}
}

// Close releases the connection opened by DialAMQPSink
func (s *AMQPSink) Close() error {
	var errs []error
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
