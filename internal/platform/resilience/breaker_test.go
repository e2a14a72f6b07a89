package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestBreaker_Transitions(t *testing.T) {
	b := NewBreaker(BreakerConfig{Enabled: true, FailureThreshold: 2, OpenTimeout: 5 * time.Second, HalfOpenMaxReq: 1})

	now := time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	if err := b.Allow(); err != nil {
		t.Fatalf("expected allow in closed state: %v", err)
	}

	b.RecordFailure()
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed after first failure, got %s", state)
	}

	b.RecordFailure()
	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("expected open after threshold failures, got %s", state)
	}
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected circuit open error, got %v", err)
	}

	now = now.Add(6 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected half-open trial to pass, got %v", err)
	}
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected second trial to be rejected, got %v", err)
	}

	b.RecordSuccess()
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed after successful trial, got %s", state)
	}
}

func TestBreaker_ExecuteCountsOnlyUpstreamFailures(t *testing.T) {
	b := NewBreaker(BreakerConfig{Enabled: true, FailureThreshold: 1, OpenTimeout: time.Minute, HalfOpenMaxReq: 1})
	errUpstream := errors.New("upstream 503")
	errCaller := errors.New("bad request")
	isUpstream := func(err error) bool { return errors.Is(err, errUpstream) }

	if err := b.Execute(func() error { return errCaller }, isUpstream); !errors.Is(err, errCaller) {
		t.Fatalf("expected caller error, got %v", err)
	}
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("caller errors must not trip the breaker, got %s", state)
	}

	if err := b.Execute(func() error { return errUpstream }, isUpstream); !errors.Is(err, errUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	called := false
	err := b.Execute(func() error { called = true; return nil }, isUpstream)
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Fatalf("expected short-circuit, err=%v called=%v", err, called)
	}
}

func TestBreaker_DisabledPassesThrough(t *testing.T) {
	b := NewBreaker(BreakerConfig{Enabled: false, FailureThreshold: 1})
	failure := errors.New("boom")
	for i := 0; i < 3; i++ {
		if err := b.Execute(func() error { return failure }, nil); !errors.Is(err, failure) {
			t.Fatalf("expected pass-through error, got %v", err)
		}
	}
}

func TestBreakerConfig_Normalize(t *testing.T) {
	got := BreakerConfig{}.Normalize()
	want := DefaultBreakerConfig()
	if got.FailureThreshold != want.FailureThreshold || got.OpenTimeout != want.OpenTimeout || got.HalfOpenMaxReq != want.HalfOpenMaxReq {
		t.Fatalf("unexpected normalized config: %+v", got)
	}
}
