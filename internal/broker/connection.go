package broker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/glimte/weave-go/internal/reliability"
)

// StateListener receives connection state change notifications
type StateListener interface {
	OnConnected()
	OnDisconnected(err error)
	OnReconnecting(attempt int)
}

// Connection is a self-healing AMQP connection with a single channel
type Connection struct {
	url         string
	dialTimeout time.Duration
	policy      reliability.RetryPolicy
	logger      *slog.Logger
	topology    []func(ch *amqp.Channel) error
	listeners   []StateListener

	mu          sync.RWMutex
	conn        *amqp.Connection
	ch          *amqp.Channel
	notifyClose chan *amqp.Error
	connected   bool
	closed      bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Connection
type Option func(*Connection)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Connection) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithReconnectPolicy sets the policy pacing reconnection attempts. MaxRetries bounds the
// attempts after each disconnect.
func WithReconnectPolicy(policy reliability.RetryPolicy) Option {
	return func(c *Connection) {
		if policy != nil {
			c.policy = policy
		}
	}
}

// WithDialTimeout bounds each connection attempt
func WithDialTimeout(timeout time.Duration) Option {
	return func(c *Connection) {
		c.dialTimeout = timeout
	}
}

// WithTopology registers a declaration run on every new channel
func WithTopology(declare func(ch *amqp.Channel) error) Option {
	return func(c *Connection) {
		c.topology = append(c.topology, declare)
	}
}

// WithStateListener registers a listener for connection state changes
func WithStateListener(listener StateListener) Option {
	return func(c *Connection) {
		c.listeners = append(c.listeners, listener)
	}
}

// ExchangeTopology declares a durable exchange of the given kind
func ExchangeTopology(name, kind string) func(ch *amqp.Channel) error {
	return func(ch *amqp.Channel) error {
		return ch.ExchangeDeclare(name, kind, true, false, false, false, nil)
	}
}

func newConnection(url string, options ...Option) *Connection {
	c := &Connection{
		url:         url,
		dialTimeout: 30 * time.Second,
		policy:      reliability.NewExponentialBackoff(time.Second, time.Minute, 2.0, 10),
		logger:      slog.Default(),
	}
	for _, opt := range options {
		opt(c)
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

// Dial connects to url and keeps the connection alive until Close
func Dial(ctx context.Context, url string, options ...Option) (*Connection, error) {
	c := newConnection(url, options...)

	if err := c.connect(ctx); err != nil {
		c.cancel()
		return nil, &ConnectionError{
			Op:        "connect",
			URL:       SanitizeURL(url),
			Err:       err,
			Timestamp: time.Now(),
			Attempts:  1,
		}
	}

	c.logger.Info("connected to broker", "url", SanitizeURL(url))
	c.notify(func(l StateListener) { l.OnConnected() })

	c.wg.Add(1)
	go c.watch()
	return c, nil
}

// connect dials, opens the channel and declares the topology
func (c *Connection) connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	conn, err := amqp.DialConfig(c.url, amqp.Config{Dial: amqp.DefaultDial(c.dialTimeout)})
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	for _, declare := range c.topology {
		if err := declare(ch); err != nil {
			conn.Close()
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		conn.Close()
		return ErrClosed
	}
	c.conn, c.ch, c.connected = conn, ch, true
	c.notifyClose = conn.NotifyClose(make(chan *amqp.Error, 1))
	return nil
}

// watch reconnects whenever the broker closes the connection
func (c *Connection) watch() {
	defer c.wg.Done()

	for {
		c.mu.RLock()
		notifyClose := c.notifyClose
		c.mu.RUnlock()

		select {
		case <-c.ctx.Done():
			return
		case amqpErr, ok := <-notifyClose:
			var err error
			if ok && amqpErr != nil {
				err = amqpErr
			}
			c.mu.Lock()
			c.connected = false
			c.conn, c.ch = nil, nil
			c.mu.Unlock()

			if c.ctx.Err() != nil {
				return
			}

			c.logger.Error("connection to broker lost", "error", err)
			c.notify(func(l StateListener) { l.OnDisconnected(err) })

			if err := c.reconnect(); err != nil {
				c.logger.Error("giving up reconnecting to broker", "error", err)
				c.notify(func(l StateListener) { l.OnDisconnected(err) })
				return
			}
		}
	}
}

func (c *Connection) reconnect() error {
	start := time.Now()
	attempt := 0

	err := reliability.Retry(c.ctx, c.policy, func(ctx context.Context) error {
		attempt++
		c.logger.Info("attempting to reconnect", "attempt", attempt, "maxRetries", c.policy.MaxRetries())
		c.notify(func(l StateListener) { l.OnReconnecting(attempt) })

		err := c.connect(ctx)
		if err != nil {
			c.logger.Warn("reconnection failed", "attempt", attempt, "error", err)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return &ConnectionError{
			Op:        "reconnect",
			URL:       SanitizeURL(c.url),
			Err:       errors.Join(ErrMaxRetriesExceeded, err),
			Timestamp: time.Now(),
			Attempts:  attempt,
		}
	}

	c.logger.Info("reconnected to broker", "attempts", attempt, "duration", time.Since(start))
	c.notify(func(l StateListener) { l.OnConnected() })
	return nil
}

func (c *Connection) notify(fn func(l StateListener)) {
	for _, l := range c.listeners {
		fn(l)
	}
}

// IsConnected returns the connection status
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// PublishWithContext publishes on the current channel; it fails with ErrNotConnected while
// a reconnect is in progress
func (c *Connection) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.mu.RLock()
	ch, connected, closed := c.ch, c.connected, c.closed
	c.mu.RUnlock()

	switch {
	case closed:
		return ErrClosed
	case !connected || ch == nil:
		return ErrNotConnected
	}
	return ch.PublishWithContext(ctx, exchange, key, mandatory, immediate, msg)
}

// Close stops reconnecting and closes the connection
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	conn := c.conn
	c.conn, c.ch = nil, nil
	c.mu.Unlock()

	c.cancel()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	c.wg.Wait()
	return err
}
