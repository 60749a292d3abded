package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// RetryConfig bounds Retry. Zero values select 3 attempts, a 100ms base
// delay doubling up to 10s, and 10% jitter.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Jitter spreads each delay by up to this fraction in either direction.
	Jitter float64
	// Retryable reports whether err is worth another attempt. Nil retries
	// everything except errors wrapped with Permanent.
	Retryable func(err error) bool
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	if c.Jitter <= 0 {
		c.Jitter = 0.1
	}
	return c
}

// delay is the pause after the given 1-based failed attempt.
func (c RetryConfig) delay(attempt int) time.Duration {
	d := c.BaseDelay << min(attempt-1, 30)
	if d <= 0 || d > c.MaxDelay {
		d = c.MaxDelay
	}
	spread := float64(d) * c.Jitter * (2*rand.Float64() - 1)
	return min(max(d+time.Duration(spread), c.BaseDelay), c.MaxDelay)
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err so that Retry returns it without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Retry calls fn until it succeeds or returns an error that is permanent or
// not retryable, for at most MaxAttempts calls. Between attempts it sleeps
// with doubling, jittered backoff, giving up early when ctx is done.
func Retry(ctx context.Context, name string, cfg RetryConfig, fn func() error) error {
	cfg = cfg.withDefaults()
	logger := slog.Default().With("component", "retry", "operation", name)
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			if attempt > 1 {
				logger.Info("succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if IsPermanent(err) || (cfg.Retryable != nil && !cfg.Retryable(err)) {
			logger.Warn("giving up on non-retryable error", "attempt", attempt, "error", err)
			return err
		}
		if attempt >= cfg.MaxAttempts {
			return fmt.Errorf("%s failed after %d attempts: %w", name, attempt, err)
		}
		wait := cfg.delay(attempt)
		logger.Warn("attempt failed, backing off", "attempt", attempt, "max_attempts", cfg.MaxAttempts, "next_delay", wait, "error", err)
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s aborted after %d attempts: %w", name, attempt, ctx.Err())
		}
	}
}
