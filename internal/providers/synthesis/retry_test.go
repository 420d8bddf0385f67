package synthesis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
)

type stubGenerator struct {
	calls   int
	results []stubResult
	lastReq Request
}

type stubResult struct {
	result *Result
	err    error
}

func (s *stubGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	s.lastReq = req
	idx := s.calls
	s.calls++
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	next := s.results[idx]
	return next.result, next.err
}

func testLogger() infra.Logger {
	return infra.Logger(zerolog.New(io.Discard))
}

func immediatePolicy(attempts int) RetryPolicy {
	backoff := make([]time.Duration, attempts)
	return RetryPolicy{Backoff: backoff}
}

func TestRetryExhaustsOnPersistentRateLimit(t *testing.T) {
	rateLimited := fmt.Errorf("synthesis: status 429: %w", domain.ErrRateLimited)
	stub := &stubGenerator{results: []stubResult{{err: rateLimited}}}

	gen := NewRetryingGenerator(stub, immediatePolicy(3), testLogger())
	_, err := gen.Generate(context.Background(), Request{Prompt: "x"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if stub.calls != 3 {
		t.Fatalf("calls = %d, want exactly 3 (1 initial + 2 retries)", stub.calls)
	}
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("exhausted retries should classify as generation failure, got %v", err)
	}
	if errors.Is(err, domain.ErrRateLimited) {
		// The transient class must not leak to the orchestrator.
		t.Fatalf("rate limit class leaked through exhaustion: %v", err)
	}
}

func TestNoRetryOnHardError(t *testing.T) {
	hard := errors.New("synthesis: content policy block (blocked)")
	stub := &stubGenerator{results: []stubResult{{err: hard}}}

	gen := NewRetryingGenerator(stub, immediatePolicy(3), testLogger())
	_, err := gen.Generate(context.Background(), Request{Prompt: "x"})
	if !errors.Is(err, hard) {
		t.Fatalf("err = %v, want the hard error unchanged", err)
	}
	if stub.calls != 1 {
		t.Fatalf("calls = %d, want exactly 1", stub.calls)
	}
}

func TestRetrySucceedsAfterRateLimit(t *testing.T) {
	rateLimited := fmt.Errorf("synthesis: status 429: %w", domain.ErrRateLimited)
	want := &Result{Data: []byte{1}, MIME: "image/png"}
	stub := &stubGenerator{results: []stubResult{
		{err: rateLimited},
		{result: want},
	}}

	gen := NewRetryingGenerator(stub, immediatePolicy(3), testLogger())
	got, err := gen.Generate(context.Background(), Request{Prompt: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Fatalf("unexpected result: %#v", got)
	}
	if stub.calls != 2 {
		t.Fatalf("calls = %d, want 2", stub.calls)
	}
}

func TestRetryStopsWhenContextCancelledDuringBackoff(t *testing.T) {
	rateLimited := fmt.Errorf("synthesis: status 429: %w", domain.ErrRateLimited)
	stub := &stubGenerator{results: []stubResult{{err: rateLimited}}}

	policy := RetryPolicy{Backoff: []time.Duration{0, time.Hour}}
	gen := NewRetryingGenerator(stub, policy, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := gen.Generate(ctx, Request{Prompt: "x"})
		done <- err
	}()
	// Give the first attempt time to fail, then cancel mid-backoff.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("generate did not return after cancellation")
	}
	if stub.calls != 1 {
		t.Fatalf("calls = %d, want 1", stub.calls)
	}
}

// blockingGenerator never answers; it only returns once its context is cut.
type blockingGenerator struct {
	calls int
}

func (b *blockingGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	b.calls++
	<-ctx.Done()
	return nil, fmt.Errorf("synthesis: wait for response: %w", ctx.Err())
}

func TestAttemptTimeoutCutsOffBlockedCalls(t *testing.T) {
	stub := &blockingGenerator{}
	policy := RetryPolicy{
		Backoff:        []time.Duration{0, 0},
		AttemptTimeout: 30 * time.Millisecond,
		Retryable: func(err error) bool {
			return errors.Is(err, context.DeadlineExceeded)
		},
	}
	gen := NewRetryingGenerator(stub, policy, testLogger())

	start := time.Now()
	_, err := gen.Generate(context.Background(), Request{Prompt: "x"})
	elapsed := time.Since(start)

	if err == nil {
		t.Fatalf("expected error")
	}
	if stub.calls != 2 {
		t.Fatalf("calls = %d, want 2 (each attempt cut off, then retried)", stub.calls)
	}
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("exhausted attempts should classify as generation failure, got %v", err)
	}
	// Without the per-attempt deadline the blocked calls would never return.
	if elapsed > 2*time.Second {
		t.Fatalf("attempts ran %v, per-attempt timeout not applied", elapsed)
	}
}

func TestAttemptTimeoutErrorNotRetriedByDefault(t *testing.T) {
	stub := &blockingGenerator{}
	policy := RetryPolicy{
		Backoff:        []time.Duration{0},
		AttemptTimeout: 30 * time.Millisecond,
	}
	gen := NewRetryingGenerator(stub, policy, testLogger())

	_, err := gen.Generate(context.Background(), Request{Prompt: "x"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded surfaced from the single attempt", err)
	}
	if stub.calls != 1 {
		t.Fatalf("calls = %d, want 1 (deadline errors are not retryable by default)", stub.calls)
	}
}

func TestDefaultRetryPolicyShape(t *testing.T) {
	p := DefaultRetryPolicy()
	if len(p.Backoff) != 3 {
		t.Fatalf("attempt budget = %d, want 3", len(p.Backoff))
	}
	if p.Backoff[0] != 0 {
		t.Fatalf("first attempt must be immediate, got %v", p.Backoff[0])
	}
	if p.Backoff[1] >= p.Backoff[2] {
		t.Fatalf("backoff must grow: %v then %v", p.Backoff[1], p.Backoff[2])
	}
	if !p.Retryable(fmt.Errorf("wrap: %w", domain.ErrRateLimited)) {
		t.Fatalf("rate limit should be retryable")
	}
	if p.Retryable(errors.New("boom")) {
		t.Fatalf("hard errors must not be retryable")
	}
}
