package common

import (
	"testing"
	"time"
)

func TestDebouncerPerKey(t *testing.T) {
	d := NewDebouncer(time.Minute)
	now := time.Now()
	if !d.Allow("a", now) {
		t.Fatalf("first call must fire")
	}
	if d.Allow("a", now.Add(30*time.Second)) {
		t.Fatalf("second call inside interval must not fire")
	}
	if !d.Allow("b", now) {
		t.Fatalf("keys are independent")
	}
	if !d.Allow("a", now.Add(61*time.Second)) {
		t.Fatalf("call after interval must fire")
	}
	d.Reset("a")
	if !d.Allow("a", now.Add(62*time.Second)) {
		t.Fatalf("reset key must fire")
	}

	var off *Debouncer
	if !off.Allow("x", now) {
		t.Fatalf("nil debouncer always fires")
	}
}
