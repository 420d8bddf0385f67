package synthesis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"server/internal/domain"
	"server/internal/infra"
)

// RetryPolicy bounds how the decorator re-attempts a generation. Backoff
// holds the wait applied before each attempt, so its length is the total
// attempt budget. Only errors the classifier accepts are retried; anything
// else fails fast.
type RetryPolicy struct {
	Backoff        []time.Duration
	AttemptTimeout time.Duration
	Retryable      func(error) bool
}

// DefaultRetryPolicy retries rate-limit errors twice with growing backoff.
// The exact waits are a tuning knob; the shape (immediate first attempt,
// growing waits, bounded count, rate-limit only) is the contract.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Backoff:        []time.Duration{0, 1800 * time.Millisecond, 3500 * time.Millisecond},
		AttemptTimeout: 90 * time.Second,
		Retryable: func(err error) bool {
			return errors.Is(err, domain.ErrRateLimited)
		},
	}
}

// RetryingGenerator decorates a Generator with the bounded retry policy.
type RetryingGenerator struct {
	next   Generator
	policy RetryPolicy
	logger infra.Logger
}

// NewRetryingGenerator wraps next with policy.
func NewRetryingGenerator(next Generator, policy RetryPolicy, logger infra.Logger) *RetryingGenerator {
	if len(policy.Backoff) == 0 {
		policy.Backoff = []time.Duration{0}
	}
	if policy.Retryable == nil {
		policy.Retryable = func(err error) bool { return errors.Is(err, domain.ErrRateLimited) }
	}
	return &RetryingGenerator{next: next, policy: policy, logger: logger}
}

// Generate runs attempts until one succeeds, a non-retryable error occurs,
// or the attempt budget is exhausted. Exhausted rate limits are reclassified
// as a generation failure; the caller never sees the transient error class.
func (g *RetryingGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	attempts := len(g.policy.Backoff)
	var lastErr error
	for i := 0; i < attempts; i++ {
		if wait := g.policy.Backoff[i]; wait > 0 {
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
		}

		result, err := g.attempt(ctx, req)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !g.policy.Retryable(err) {
			return nil, err
		}
		g.logger.Warn().
			Err(err).
			Str("request_id", req.RequestID).
			Int("attempt", i+1).
			Int("max_attempts", attempts).
			Msg("synthesis: rate limited, will retry")
	}
	return nil, fmt.Errorf("synthesis: %d attempts exhausted (%v): %w", attempts, lastErr, domain.ErrGenerationFailed)
}

func (g *RetryingGenerator) attempt(ctx context.Context, req Request) (*Result, error) {
	if g.policy.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.policy.AttemptTimeout)
		defer cancel()
	}
	return g.next.Generate(ctx, req)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ Generator = (*RetryingGenerator)(nil)
