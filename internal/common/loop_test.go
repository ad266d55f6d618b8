package common

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStartLoopOnceRunsOnce(t *testing.T) {
	var once sync.Once
	var runs atomic.Int32
	var cancel context.CancelFunc
	done := make(chan struct{})

	for i := 0; i < 3; i++ {
		StartLoopOnce(context.Background(), &once, func(c context.CancelFunc) { cancel = c }, 0, func(ctx context.Context, tickC <-chan time.Time) {
			runs.Add(1)
			<-ctx.Done()
			close(done)
		})
	}
	cancel()
	<-done
	if runs.Load() != 1 {
		t.Fatalf("runs=%d", runs.Load())
	}
}

func TestSleepWakes(t *testing.T) {
	wake := make(chan struct{}, 1)
	wake <- struct{}{}
	if !Sleep(context.Background(), time.Minute, nil, wake) {
		t.Fatalf("expected early wake")
	}
	if Sleep(context.Background(), time.Millisecond, nil, nil) {
		t.Fatalf("expected full sleep")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if !Sleep(ctx, time.Minute, nil, nil) {
		t.Fatalf("expected ctx wake")
	}
}

func TestSleepStops(t *testing.T) {
	stop := make(chan struct{})
	close(stop)
	if !Sleep(context.Background(), time.Minute, stop, nil) {
		t.Fatalf("expected stop to end the sleep")
	}
}
