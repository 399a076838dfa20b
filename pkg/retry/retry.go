package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// Config holds retry configuration
type Config struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	MaxTotalTimeout time.Duration
}

// DefaultConfig returns the configuration used for startup connections
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     10,
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        10 * time.Second,
		MaxTotalTimeout: 60 * time.Second,
	}
}

func (c Config) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.InitialDelay
	exp.MaxInterval = c.MaxDelay
	exp.MaxElapsedTime = c.MaxTotalTimeout

	var b backoff.BackOff = exp
	if c.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(c.MaxAttempts-1))
	}
	return backoff.WithContext(b, ctx)
}

// Do runs fn with exponential backoff until it succeeds, the attempts run
// out or ctx is done. Failed attempts are logged with the given name.
func Do(ctx context.Context, cfg Config, name string, fn func(ctx context.Context) error) error {
	attempt := 0
	op := func() error {
		attempt++
		return fn(ctx)
	}
	notify := func(err error, next time.Duration) {
		log.Warn().
			Err(err).
			Str("target", name).
			Int("attempt", attempt).
			Dur("retry_in", next).
			Msg("connection attempt failed")
	}

	if err := backoff.RetryNotify(op, cfg.backOff(ctx), notify); err != nil {
		return fmt.Errorf("%s unavailable after %d attempts: %w", name, attempt, err)
	}
	return nil
}
