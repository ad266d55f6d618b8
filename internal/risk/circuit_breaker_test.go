package risk

import (
	"errors"
	"testing"
)

func TestCircuitBreakerTripsAfterConsecutiveErrors(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxConsecutiveErrors: 2})

	cb.OnError(errors.New("timeout"))
	if err := cb.AllowTrading(); err != nil {
		t.Fatalf("tripped too early: %v", err)
	}
	cb.OnSuccess()
	cb.OnError(errors.New("timeout"))
	if err := cb.AllowTrading(); err != nil {
		t.Fatalf("success should reset the count: %v", err)
	}
	cb.OnError(errors.New("timeout"))
	err := cb.AllowTrading()
	if !errors.Is(err, ErrCircuitBreakerOpen) {
		t.Fatalf("expected open breaker, got %v", err)
	}

	cb.Resume()
	if err := cb.AllowTrading(); err != nil {
		t.Fatalf("resume should close the breaker: %v", err)
	}
}

func TestCircuitBreakerDisabledAndNil(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})
	for i := 0; i < 100; i++ {
		cb.OnError(errors.New("x"))
	}
	if err := cb.AllowTrading(); err != nil {
		t.Fatalf("disabled breaker tripped: %v", err)
	}

	var nilBreaker *CircuitBreaker
	nilBreaker.OnError(errors.New("x"))
	if err := nilBreaker.AllowTrading(); err != nil {
		t.Fatalf("nil breaker: %v", err)
	}
}
