// Package resilience retries calls to remote services with exponential
// backoff. An error is retried only when it looks transient: either its type
// classifies itself through a Transient() method, or it matches a known
// network failure mode.
package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

const (
	defaultAttempts  = 3
	defaultBaseDelay = 1 * time.Second
	defaultMaxDelay  = 30 * time.Second

	// jitterFraction spreads synchronized callers by ±25% of each delay.
	jitterFraction = 0.25
)

// Policy controls how a call is retried. The zero value makes three attempts
// starting one second apart.
type Policy struct {
	// Attempts is the total number of tries, the first included.
	Attempts int

	// BaseDelay is the wait before the second attempt. Each further wait
	// doubles, capped at MaxDelay.
	BaseDelay time.Duration

	// MaxDelay caps the backoff.
	MaxDelay time.Duration

	// ShouldRetry replaces IsTransient as the retry predicate.
	ShouldRetry func(error) bool

	// OnRetry is invoked before each backoff sleep.
	OnRetry func(attempt int, delay time.Duration, err error)
}

func (p Policy) withDefaults() Policy {
	if p.Attempts <= 0 {
		p.Attempts = defaultAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = defaultMaxDelay
	}
	if p.ShouldRetry == nil {
		p.ShouldRetry = IsTransient
	}
	return p
}

// Retry runs fn until it succeeds, fails permanently, or exhausts the
// policy's attempts, and returns the last result. The zero T is returned on
// failure. Context cancellation stops the loop without a further attempt.
func Retry[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !p.ShouldRetry(err) || attempt == p.Attempts {
			break
		}

		delay := backoff(attempt, p)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}

// Do is Retry for calls with no result.
func Do(ctx context.Context, p Policy, fn func(context.Context) error) error {
	_, err := Retry(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// backoff returns the jittered delay after the given attempt (1-based).
func backoff(attempt int, p Policy) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			delay = p.MaxDelay
			break
		}
	}

	jitter := 1 + jitterFraction*(2*rand.Float64()-1)
	return time.Duration(float64(delay) * jitter)
}

// LogRetries returns an OnRetry hook that records each retry of the named
// remote operation.
func LogRetries(service, op string) func(int, time.Duration, error) {
	return func(attempt int, delay time.Duration, err error) {
		zap.L().Warn("transient failure, retrying",
			zap.String("service", service),
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
	}
}
