// Package config loads advice chain configuration from YAML files.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/glimte/weave-go/contracts"
	"github.com/glimte/weave-go/interceptors"
	"github.com/glimte/weave-go/internal/reliability"
)

// DefaultMaxAttempts is used when retry is enabled without an attempt count
const DefaultMaxAttempts = 5

// Config describes the advice chain wrapped around an operation. Advice are added in the
// order logging, retry, circuit breaker, deadline, so logging sees the final outcome and the
// deadline bounds each attempt.
type Config struct {
	Logging        LoggingConfig        `yaml:"logging"`
	Retry          RetryConfig          `yaml:"retry"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	Deadline       string               `yaml:"deadline"`
	Sink           SinkConfig           `yaml:"sink"`
}

// LoggingConfig configures the logging advice
type LoggingConfig struct {
	Enabled bool `yaml:"enabled"`
	// Quote renders argument and result values as quoted strings
	Quote bool `yaml:"quote"`
}

// RetryConfig configures the retry advice
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     BackoffConfig `yaml:"backoff"`
}

// BackoffConfig selects the delay between retry attempts
type BackoffConfig struct {
	Kind       string  `yaml:"kind"` // immediate, fixed, linear, exponential
	Initial    string  `yaml:"initial"`
	Max        string  `yaml:"max"`
	Step       string  `yaml:"step"`
	Multiplier float64 `yaml:"multiplier"`
}

// CircuitBreakerConfig configures the circuit breaker advice
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold int    `yaml:"failure_threshold"`
	SuccessThreshold int    `yaml:"success_threshold"`
	Timeout          string `yaml:"timeout"`
	HalfOpenRequests int    `yaml:"half_open_requests"`
}

// SinkConfig selects where logging and retry advice write their lines
type SinkConfig struct {
	Kind       string `yaml:"kind"` // stdout, stderr, slog, zap, amqp
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
}

var (
	ErrInvalidBackoff = errors.New("config: unknown backoff kind")
	ErrInvalidSink    = errors.New("config: unknown sink kind")
)

// DefaultConfig returns the default configuration: logging to stdout, no resilience advice
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{Enabled: true},
		Retry: RetryConfig{
			MaxAttempts: DefaultMaxAttempts,
			Backoff: BackoffConfig{
				Kind:       "immediate",
				Initial:    "100ms",
				Max:        "10s",
				Step:       "100ms",
				Multiplier: 2.0,
			},
		},
		CircuitBreaker: CircuitBreakerConfig{
			FailureThreshold: 5,
			SuccessThreshold: 3,
			Timeout:          "30s",
			HalfOpenRequests: 3,
		},
		Sink: SinkConfig{
			Kind:     "stdout",
			Exchange: "weave.logs",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return Parse(data)
}

// Parse parses YAML configuration over the defaults
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = DefaultMaxAttempts
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides lets the environment override the broker settings and retry bound
func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("WEAVE_AMQP_URL"); url != "" {
		c.Sink.URL = url
	}
	if v := os.Getenv("WEAVE_RETRY_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Retry.MaxAttempts = n
		}
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}

	switch c.Retry.Backoff.Kind {
	case "", "immediate", "fixed", "linear", "exponential":
	default:
		return fmt.Errorf("%w: %s", ErrInvalidBackoff, c.Retry.Backoff.Kind)
	}

	switch c.Sink.Kind {
	case "", "stdout", "stderr", "slog", "zap", "amqp":
	default:
		return fmt.Errorf("%w: %s", ErrInvalidSink, c.Sink.Kind)
	}

	if c.Sink.Kind == "amqp" && c.Sink.URL == "" {
		return errors.New("sink.url is required for the amqp sink")
	}

	for name, value := range map[string]string{
		"deadline":                c.Deadline,
		"retry.backoff.initial":   c.Retry.Backoff.Initial,
		"retry.backoff.max":       c.Retry.Backoff.Max,
		"retry.backoff.step":      c.Retry.Backoff.Step,
		"circuit_breaker.timeout": c.CircuitBreaker.Timeout,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// GetDeadline returns the per-attempt deadline, zero when none is configured
func (c *Config) GetDeadline() time.Duration {
	return parseDuration(c.Deadline, 0)
}

// GetCircuitBreakerTimeout returns how long the circuit stays open
func (c *Config) GetCircuitBreakerTimeout() time.Duration {
	return parseDuration(c.CircuitBreaker.Timeout, 30*time.Second)
}

// RetryPolicy returns the retry policy described by the backoff configuration
func (c *Config) RetryPolicy() reliability.RetryPolicy {
	b := c.Retry.Backoff
	retries := c.Retry.MaxAttempts - 1
	initial := parseDuration(b.Initial, 100*time.Millisecond)

	switch b.Kind {
	case "fixed":
		return reliability.NewFixedDelay(initial, retries)
	case "linear":
		return reliability.NewLinearBackoff(initial, parseDuration(b.Step, initial), retries)
	case "exponential":
		multiplier := b.Multiplier
		if multiplier <= 1 {
			multiplier = 2.0
		}
		return reliability.NewExponentialBackoff(initial, parseDuration(b.Max, 10*time.Second), multiplier, retries)
	default:
		return reliability.Immediate(retries)
	}
}

// ChainBuilder returns a builder holding the configured advice, writing to sink. Callers can
// keep adding advice before building.
func (c *Config) ChainBuilder(sink contracts.Sink, logger *slog.Logger) *interceptors.ChainBuilder {
	return c.Apply(interceptors.NewChainBuilder(logger).UseSink(sink))
}

// Apply adds the configured advice to builder
func (c *Config) Apply(builder *interceptors.ChainBuilder) *interceptors.ChainBuilder {
	if c.Logging.Enabled {
		var opts []interceptors.LoggingOption
		if c.Logging.Quote {
			opts = append(opts, interceptors.WithFormatter(func(v interface{}) string {
				return strconv.Quote(fmt.Sprint(v))
			}))
		}
		builder.WithLogging(opts...)
	}

	if c.Retry.Enabled {
		builder.WithRetry(c.Retry.MaxAttempts, interceptors.WithRetryPolicy(c.RetryPolicy()))
	}

	if c.CircuitBreaker.Enabled {
		builder.WithCircuitBreaker(reliability.NewCircuitBreaker(
			reliability.WithFailureThreshold(c.CircuitBreaker.FailureThreshold),
			reliability.WithSuccessThreshold(c.CircuitBreaker.SuccessThreshold),
			reliability.WithTimeout(c.GetCircuitBreakerTimeout()),
			reliability.WithHalfOpenRequests(c.CircuitBreaker.HalfOpenRequests),
		))
	}

	if d := c.GetDeadline(); d > 0 {
		builder.WithDeadline(d)
	}

	return builder
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
