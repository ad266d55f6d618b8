package sigchan

import "testing"

func TestEmitCoalesces(t *testing.T) {
	c := New(1)
	c.Emit()
	c.Emit()
	c.Emit()

	select {
	case <-c.C():
	default:
		t.Fatalf("expected a pending signal")
	}
	select {
	case <-c.C():
		t.Fatalf("signals should coalesce into one")
	default:
	}
}

func TestDrain(t *testing.T) {
	c := New(0)
	if c.Drain() {
		t.Fatalf("empty chan drained a signal")
	}
	c.Emit()
	if !c.Drain() {
		t.Fatalf("pending signal not drained")
	}
	if c.Drain() {
		t.Fatalf("second drain should be empty")
	}
}

func TestNilChanIsInert(t *testing.T) {
	var c *Chan
	c.Emit()
	if c.Drain() {
		t.Fatalf("nil chan drained a signal")
	}
	if c.C() != nil {
		t.Fatalf("nil chan should expose a nil channel")
	}
}
