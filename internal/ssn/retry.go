package ssn

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMaxAttempts bounds retries when no policy is configured.
const DefaultMaxAttempts = 3

// RetryPolicy bounds the attempts of a state-changing call.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Logger      *slog.Logger
}

// RetryState records what a retried call went through.
type RetryState struct {
	// Attempts is the number of calls made.
	Attempts int

	// Failures holds the error of every failed attempt, in order.
	Failures []error
}

// LastErr returns the error of the last failed attempt.
func (s RetryState) LastErr() error {
	if len(s.Failures) == 0 {
		return nil
	}
	return s.Failures[len(s.Failures)-1]
}

// Retry calls fn until it succeeds, fails with a non-retryable error, or
// MaxAttempts calls have failed. Attempts are spaced by Delay.
func Retry(ctx context.Context, policy RetryPolicy, op string, fn func(context.Context) error) (RetryState, error) {
	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	logger := policy.Logger
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if policy.Delay > 0 {
		limit = rate.Every(policy.Delay)
	}
	pacer := rate.NewLimiter(limit, 1)

	var state RetryState
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := pacer.Wait(ctx); err != nil {
			return state, fmt.Errorf("%s: %w", op, err)
		}

		state.Attempts = attempt
		err := fn(ctx)
		if err == nil {
			return state, nil
		}
		state.Failures = append(state.Failures, err)

		if !IsRetryable(err) || attempt >= maxAttempts {
			return state, err
		}

		logger.WarnContext(ctx, "retry",
			slog.String("op", op),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", maxAttempts),
			slog.String("error", err.Error()))
	}
	return state, state.LastErr()
}
