package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SarathiAI/sarathi-engine/pkg/fn"
)

var errBoom = errors.New("boom")

func failing(context.Context) error { return errBoom }
func succeeding(context.Context) error { return nil }

func TestBreakerTripsAfterThreshold(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 3, Timeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := b.Call(ctx, failing); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}
	if err := b.Call(ctx, succeeding); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("open breaker must reject, got %v", err)
	}
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 2, Timeout: time.Minute})
	ctx := context.Background()

	b.Call(ctx, failing)
	b.Call(ctx, succeeding)
	b.Call(ctx, failing)
	if b.State() != StateClosed {
		t.Errorf("state = %v, interleaved success must reset the count", b.State())
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	now := time.Now()
	b := NewBreaker(BreakerOpts{FailThreshold: 1, Timeout: 10 * time.Second})
	b.now = func() time.Time { return now }
	ctx := context.Background()

	b.Call(ctx, failing)
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	now = now.Add(11 * time.Second)
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open after timeout", b.State())
	}
	if err := b.Call(ctx, succeeding); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed after successful probe", b.State())
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(BreakerOpts{FailThreshold: 5, Timeout: 10 * time.Second})
	b.now = func() time.Time { return now }
	ctx := context.Background()

	// Trip via threshold.
	for i := 0; i < 5; i++ {
		b.Call(ctx, failing)
	}
	now = now.Add(11 * time.Second)
	if err := b.Call(ctx, failing); !errors.Is(err, errBoom) {
		t.Fatalf("probe: %v", err)
	}
	if b.State() != StateOpen {
		t.Errorf("state = %v, failed probe must reopen immediately", b.State())
	}
}

func TestCallResult(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 1, Timeout: time.Minute})
	ctx := context.Background()

	r := CallResult(b, ctx, func(context.Context) fn.Result[int] { return fn.Err[int](errBoom) })
	if r.IsOk() {
		t.Fatal("expected error result")
	}
	r = CallResult(b, ctx, func(context.Context) fn.Result[int] { return fn.Ok(7) })
	if _, err := r.Unwrap(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestBreakerStage(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 5, Timeout: time.Minute})
	stage := BreakerStage(b, func(_ context.Context, n int) fn.Result[int] {
		return fn.Ok(n * 2)
	})
	v, err := stage(context.Background(), 21).Unwrap()
	if err != nil || v != 42 {
		t.Errorf("stage = (%v, %v), want 42", v, err)
	}
}
