package syncgroup

import (
	"errors"
	"strings"
	"testing"
)

func TestWaitCollectsFirstError(t *testing.T) {
	g := NewSyncGroup()
	release := make(chan struct{})
	g.Go("ok", func() error { <-release; return nil })
	g.Go("bad", func() error { return errors.New("boom") })

	if n := g.Running()["ok"]; n != 1 {
		t.Fatalf("running[ok] = %d", n)
	}
	close(release)

	err := g.Wait()
	if err == nil || !strings.Contains(err.Error(), "bad: boom") {
		t.Fatalf("err = %v", err)
	}
	if len(g.Running()) != 0 {
		t.Fatalf("running not empty: %v", g.Running())
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("errors should be cleared, got %v", err)
	}
}

func TestPanicIsRecovered(t *testing.T) {
	g := NewSyncGroup()
	g.Go("panicky", func() error { panic("oops") })
	err := g.Wait()
	if err == nil || !strings.Contains(err.Error(), "panic: oops") {
		t.Fatalf("err = %v", err)
	}
}
