package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func newTestBreaker(now *time.Time) *CircuitBreaker {
	cb := NewCircuitBreaker(Config{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Minute, HalfOpenMaxRequests: 1})
	cb.now = func() time.Time { return *now }
	cb.lastStateTime = *now
	return cb
}

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&now)

	fail := func() error { return errBoom }
	if err := cb.Execute(fail); !errors.Is(err, errBoom) {
		t.Fatalf("first failure should pass through, got %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("one failure must not open the breaker")
	}
	_ = cb.Execute(fail)
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %v, want open", cb.GetState())
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitBreakerOpen) || called {
		t.Fatalf("open breaker must reject without calling fn")
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&now)
	_ = cb.Execute(func() error { return errBoom })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return errBoom })
	if cb.GetState() != StateClosed {
		t.Fatalf("non-consecutive failures opened the breaker")
	}
}

func TestHalfOpenRecovery(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&now)
	_ = cb.Execute(func() error { return errBoom })
	_ = cb.Execute(func() error { return errBoom })

	now = now.Add(2 * time.Minute)
	if cb.GetState() != StateHalfOpen {
		t.Fatalf("state = %v, want half_open", cb.GetState())
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("trial call: %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("successful trial should close the breaker")
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&now)
	_ = cb.Execute(func() error { return errBoom })
	_ = cb.Execute(func() error { return errBoom })
	now = now.Add(2 * time.Minute)
	_ = cb.Execute(func() error { return errBoom })
	if cb.GetState() != StateOpen {
		t.Fatalf("failed trial should reopen")
	}
	cb.Reset()
	if cb.GetState() != StateClosed {
		t.Fatalf("Reset should close")
	}
}
