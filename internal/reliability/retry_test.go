package reliability

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glimte/weave-go/contracts"
	"github.com/stretchr/testify/assert"
)

func TestExponentialBackoff(t *testing.T) {
	t.Run("creates with correct defaults", func(t *testing.T) {
		eb := NewExponentialBackoff(100*time.Millisecond, 5*time.Second, 2.0, 3)

		assert.Equal(t, 100*time.Millisecond, eb.InitialInterval)
		assert.Equal(t, 5*time.Second, eb.MaxInterval)
		assert.Equal(t, 2.0, eb.Multiplier)
		assert.Equal(t, 3, eb.MaxRetries())
		assert.True(t, eb.Jitter)
	})

	t.Run("ShouldRetry respects max retries", func(t *testing.T) {
		eb := NewExponentialBackoff(100*time.Millisecond, 1*time.Second, 2.0, 3)

		for i := 0; i < 3; i++ {
			shouldRetry, delay := eb.ShouldRetry(i, errors.New("test"))
			assert.True(t, shouldRetry)
			assert.Greater(t, delay, time.Duration(0))
		}

		shouldRetry, delay := eb.ShouldRetry(3, errors.New("test"))
		assert.False(t, shouldRetry)
		assert.Equal(t, time.Duration(0), delay)
	})

	t.Run("NextDelay calculates exponential backoff", func(t *testing.T) {
		eb := NewExponentialBackoff(100*time.Millisecond, 10*time.Second, 2.0, 5)
		eb.Jitter = false

		tests := []struct {
			attempt  int
			expected time.Duration
		}{
			{0, 100 * time.Millisecond},
			{1, 200 * time.Millisecond},
			{2, 400 * time.Millisecond},
			{3, 800 * time.Millisecond},
			{10, 10 * time.Second},
		}

		for _, tt := range tests {
			t.Run(fmt.Sprintf("attempt %d", tt.attempt), func(t *testing.T) {
				assert.Equal(t, tt.expected, eb.NextDelay(tt.attempt))
			})
		}
	})

	t.Run("NextDelay with jitter stays within 15 percent", func(t *testing.T) {
		eb := NewExponentialBackoff(1*time.Second, 10*time.Second, 2.0, 5)

		for i := 0; i < 10; i++ {
			delay := eb.NextDelay(0)
			assert.GreaterOrEqual(t, delay, 850*time.Millisecond)
			assert.LessOrEqual(t, delay, 1150*time.Millisecond)
		}
	})

	t.Run("respects non-retryable errors", func(t *testing.T) {
		eb := NewExponentialBackoff(100*time.Millisecond, 1*time.Second, 2.0, 3)

		shouldRetry, _ := eb.ShouldRetry(0, Permanent(errors.New("non-retryable")))
		assert.False(t, shouldRetry)
	})
}

func TestLinearBackoff(t *testing.T) {
	t.Run("NextDelay grows by step", func(t *testing.T) {
		lb := NewLinearBackoff(100*time.Millisecond, 50*time.Millisecond, 5)
		lb.Jitter = false

		assert.Equal(t, 100*time.Millisecond, lb.NextDelay(0))
		assert.Equal(t, 150*time.Millisecond, lb.NextDelay(1))
		assert.Equal(t, 300*time.Millisecond, lb.NextDelay(4))
	})

	t.Run("ShouldRetry respects max retries", func(t *testing.T) {
		lb := NewLinearBackoff(time.Millisecond, 0, 2)

		shouldRetry, _ := lb.ShouldRetry(1, errors.New("test"))
		assert.True(t, shouldRetry)

		shouldRetry, _ = lb.ShouldRetry(2, errors.New("test"))
		assert.False(t, shouldRetry)
	})
}

func TestFixedDelay(t *testing.T) {
	fd := NewFixedDelay(750*time.Millisecond, 10)
	for i := 0; i < 10; i++ {
		assert.Equal(t, 750*time.Millisecond, fd.NextDelay(i))
	}

	immediate := Immediate(2)
	shouldRetry, delay := immediate.ShouldRetry(0, errors.New("test"))
	assert.True(t, shouldRetry)
	assert.Zero(t, delay)
}

func TestRetry(t *testing.T) {
	t.Run("succeeds on first attempt", func(t *testing.T) {
		attempts := 0

		err := Retry(context.Background(), Immediate(3), func(ctx context.Context) error {
			attempts++
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("retries on failure", func(t *testing.T) {
		attempts := 0

		err := Retry(context.Background(), NewFixedDelay(time.Millisecond, 3), func(ctx context.Context) error {
			attempts++
			if attempts < 3 {
				return errors.New("temporary error")
			}
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("returns last error unchanged after max retries", func(t *testing.T) {
		attempts := 0
		last := errors.New("persistent error 3")

		err := Retry(context.Background(), Immediate(2), func(ctx context.Context) error {
			attempts++
			if attempts == 3 {
				return last
			}
			return fmt.Errorf("persistent error %d", attempts)
		})

		assert.Same(t, last, err)
		assert.Equal(t, 3, attempts) // Initial + 2 retries
	})

	t.Run("respects context deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		attempts := 0
		err := Retry(ctx, NewFixedDelay(20*time.Millisecond, 100), func(ctx context.Context) error {
			attempts++
			return errors.New("error")
		})

		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, attempts, 100)
	})

	t.Run("stops on non-retryable error", func(t *testing.T) {
		attempts := 0

		err := Retry(context.Background(), Immediate(5), func(ctx context.Context) error {
			attempts++
			if attempts == 2 {
				return Permanent(errors.New("fatal error"))
			}
			return errors.New("retryable error")
		})

		assert.EqualError(t, err, "fatal error")
		assert.Equal(t, 2, attempts)
	})
}

func TestRetryWithBackoff(t *testing.T) {
	attempts := 0

	err := RetryWithBackoff(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 2 {
			return errors.New("error")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestWait(t *testing.T) {
	assert.NoError(t, Wait(context.Background(), 0))
	assert.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"unknown error", errors.New("unknown"), true},
		{"retryable wrapper", RetryableError{Err: errors.New("x"), Retryable: true}, true},
		{"permanent wrapper", Permanent(errors.New("x")), false},
		{"wrapped permanent", fmt.Errorf("op: %w", Permanent(errors.New("x"))), false},
		{"sentinel non-retryable", fmt.Errorf("op: %w", ErrNonRetryable), false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", fmt.Errorf("op: %w", context.DeadlineExceeded), false},
		{"contract violation", &contracts.AdviceContractError{Operation: "Foo.Bar", Reason: "x"}, false},
		{"open circuit", &CircuitBreakerError{State: StateOpen, NextRetry: time.Now().Add(time.Hour)}, false},
		{"expired open circuit", &CircuitBreakerError{State: StateOpen, NextRetry: time.Now().Add(-time.Second)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryableError(tt.err))
		})
	}
}
