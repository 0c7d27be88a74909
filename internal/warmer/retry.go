package warmer

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/tiercache/tiercache/pkg/errors"
)

// RetryConfig defines backoff behavior for retrying loaders.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int `yaml:"max_attempts"`
	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration `yaml:"initial_delay"`
	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration `yaml:"max_delay"`
	// Multiplier grows the delay after each retry.
	Multiplier float64 `yaml:"multiplier"`
	// Jitter randomizes each delay by up to 20% to prevent thundering herd.
	Jitter bool `yaml:"jitter"`
}

// DefaultRetryConfig returns the backoff settings used when a field is zero.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	def := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = def.InitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = def.MaxDelay
	}
	if c.Multiplier <= 0 {
		c.Multiplier = def.Multiplier
	}
	return c
}

func (c RetryConfig) delay(attempt int) time.Duration {
	d := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt-1))
	if d > float64(c.MaxDelay) {
		d = float64(c.MaxDelay)
	}
	if c.Jitter {
		d += d * 0.2 * (rand.Float64()*2 - 1)
	}
	return time.Duration(d)
}

// WithRetry wraps load with exponential backoff. Only LOAD_FAILED errors
// are retried; anything else fails the key immediately. The wrapped loader
// stops early when ctx is canceled.
func WithRetry[V any](load Loader[V], cfg RetryConfig) Loader[V] {
	cfg = cfg.withDefaults()

	return func(ctx context.Context, key string) (V, error) {
		var zero V
		var lastErr error

		for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
			if err := ctx.Err(); err != nil {
				return zero, err
			}

			value, err := load(ctx, key)
			if err == nil {
				return value, nil
			}
			lastErr = err

			if !errors.HasCode(err, errors.ErrCodeLoadFailed) {
				return zero, err
			}
			if attempt == cfg.MaxAttempts {
				break
			}

			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(cfg.delay(attempt)):
			}
		}

		return zero, errors.Wrap(errors.ErrCodeLoadFailed, "retries exhausted for key "+key, lastErr)
	}
}
