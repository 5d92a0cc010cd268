// Package retry wraps outbound calls with jittered exponential backoff.
// Only errors classified as transient are retried.
package retry

import (
	"context"
	"log/slog"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// Policy configures backoff between attempts
type Policy struct {
	MaxRetries uint64
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultPolicy retries three times starting at one second
var DefaultPolicy = Policy{
	MaxRetries: 3,
	BaseDelay:  1 * time.Second,
	MaxDelay:   30 * time.Second,
}

// None performs a single attempt
var None = Policy{}

func (p Policy) backoff() goretry.Backoff {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Millisecond
	}
	b := goretry.NewExponential(base)
	b = goretry.WithJitterPercent(25, b)
	if p.MaxDelay > 0 {
		b = goretry.WithCappedDuration(p.MaxDelay, b)
	}
	return goretry.WithMaxRetries(p.MaxRetries, b)
}

// Do runs fn until it succeeds, returns a non-transient error, or the
// policy is exhausted. The last error is returned unwrapped.
func Do(ctx context.Context, p Policy, logger *slog.Logger, op string, isTransient func(error) bool, fn func(ctx context.Context) error) error {
	if logger == nil {
		logger = slog.Default()
	}

	attempt := 0
	return goretry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !isTransient(err) {
			return err
		}
		if uint64(attempt) <= p.MaxRetries {
			logger.Warn("retrying after transient error",
				slog.String("op", op),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
		}
		return goretry.RetryableError(err)
	})
}
