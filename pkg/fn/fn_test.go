package fn

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

var errFailed = errors.New("failed")

func TestResult(t *testing.T) {
	r := Ok(42)
	if !r.IsOk() || r.IsErr() {
		t.Error("Ok must be ok")
	}
	if v, err := r.Unwrap(); v != 42 || err != nil {
		t.Errorf("Unwrap = (%v, %v)", v, err)
	}

	e := Err[int](errFailed)
	if e.IsOk() {
		t.Error("Err must not be ok")
	}
	if got := e.UnwrapOr(7); got != 7 {
		t.Errorf("UnwrapOr = %d, want fallback", got)
	}
	if got := Ok(3).UnwrapOr(7); got != 3 {
		t.Errorf("UnwrapOr = %d, want value", got)
	}

	if _, err := Errf[int]("wrap: %w", errFailed).Unwrap(); !errors.Is(err, errFailed) {
		t.Errorf("Errf must wrap, got %v", err)
	}
}

func TestFromPair(t *testing.T) {
	if r := FromPair(5, nil); !r.IsOk() {
		t.Error("nil error must be ok")
	}
	if r := FromPair(5, errFailed); !r.IsErr() {
		t.Error("non-nil error must not be ok")
	}
}

func TestMapResult(t *testing.T) {
	r := MapResult(Ok(21), func(n int) string { return strconv.Itoa(n * 2) })
	if v, _ := r.Unwrap(); v != "42" {
		t.Errorf("MapResult = %q", v)
	}
	if r := MapResult(Err[int](errFailed), strconv.Itoa); !r.IsErr() {
		t.Error("error must propagate")
	}
}

func TestCollect(t *testing.T) {
	vals, err := Collect([]Result[int]{Ok(1), Ok(2), Ok(3)}).Unwrap()
	if err != nil || len(vals) != 3 || vals[2] != 3 {
		t.Errorf("Collect = (%v, %v)", vals, err)
	}
	if _, err := Collect([]Result[int]{Ok(1), Err[int](errFailed)}).Unwrap(); !errors.Is(err, errFailed) {
		t.Errorf("Collect error = %v", err)
	}
}

func TestFanOutResultOrder(t *testing.T) {
	vals, err := FanOutResult(
		func() Result[int] { time.Sleep(10 * time.Millisecond); return Ok(1) },
		func() Result[int] { return Ok(2) },
		func() Result[int] { return Ok(3) },
	).Unwrap()
	if err != nil {
		t.Fatalf("FanOutResult: %v", err)
	}
	if vals[0] != 1 || vals[1] != 2 || vals[2] != 3 {
		t.Errorf("order must match argument order, got %v", vals)
	}
}

func TestFanOutResultFirstError(t *testing.T) {
	r := FanOutResult(
		func() Result[int] { return Ok(1) },
		func() Result[int] { return Err[int](errFailed) },
	)
	if _, err := r.Unwrap(); !errors.Is(err, errFailed) {
		t.Errorf("err = %v", err)
	}
}

func TestThen(t *testing.T) {
	double := func(_ context.Context, n int) Result[int] { return Ok(n * 2) }
	toStr := func(_ context.Context, n int) Result[string] { return Ok(strconv.Itoa(n)) }

	v, err := Then(double, toStr)(context.Background(), 21).Unwrap()
	if err != nil || v != "42" {
		t.Errorf("Then = (%q, %v)", v, err)
	}

	var called bool
	boom := func(_ context.Context, n int) Result[int] { return Err[int](errFailed) }
	spy := func(_ context.Context, n int) Result[string] { called = true; return Ok("") }
	if _, err := Then(boom, spy)(context.Background(), 1).Unwrap(); !errors.Is(err, errFailed) {
		t.Errorf("err = %v", err)
	}
	if called {
		t.Error("second stage must not run after an error")
	}
}

func TestPipeline(t *testing.T) {
	inc := func(_ context.Context, n int) Result[int] { return Ok(n + 1) }
	v, err := Pipeline(inc, inc, inc)(context.Background(), 0).Unwrap()
	if err != nil || v != 3 {
		t.Errorf("Pipeline = (%d, %v)", v, err)
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	var attempts atomic.Int32
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond},
		func(context.Context) Result[int] {
			if attempts.Add(1) < 3 {
				return Err[int](errFailed)
			}
			return Ok(9)
		})
	if v, err := r.Unwrap(); err != nil || v != 9 {
		t.Errorf("Retry = (%d, %v)", v, err)
	}
	if attempts.Load() != 3 {
		t.Errorf("attempts = %d", attempts.Load())
	}
}

func TestRetryExhausted(t *testing.T) {
	var attempts atomic.Int32
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond},
		func(context.Context) Result[int] { attempts.Add(1); return Err[int](errFailed) })
	if _, err := r.Unwrap(); !errors.Is(err, errFailed) {
		t.Errorf("err = %v", err)
	}
	if attempts.Load() != 2 {
		t.Errorf("attempts = %d, want 2", attempts.Load())
	}
}

func TestRetryRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := Retry(ctx, RetryOpts{MaxAttempts: 5, InitialWait: time.Minute},
		func(context.Context) Result[int] { return Err[int](errFailed) })
	if _, err := r.Unwrap(); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSliceHelpers(t *testing.T) {
	nums := []int{1, 2, 3, 4}

	doubled := Map(nums, func(n int) int { return n * 2 })
	if doubled[3] != 8 {
		t.Errorf("Map = %v", doubled)
	}

	even := Filter(nums, func(n int) bool { return n%2 == 0 })
	if len(even) != 2 || even[0] != 2 {
		t.Errorf("Filter = %v", even)
	}

	sum := Reduce(nums, 0, func(acc, n int) int { return acc + n })
	if sum != 10 {
		t.Errorf("Reduce = %d", sum)
	}

	if got := Take(nums, 2); len(got) != 2 {
		t.Errorf("Take(2) = %v", got)
	}
	if got := Take(nums, 10); len(got) != 4 {
		t.Errorf("Take(10) = %v", got)
	}
	if got := Take(nums, -1); len(got) != 0 {
		t.Errorf("Take(-1) = %v", got)
	}
}
