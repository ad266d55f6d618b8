package common

import (
	"context"
	"sync"
	"time"
)

// StartLoopOnce starts a single goroutine loop once.
//
// tick:
// - if tick > 0, a ticker is created and its channel is passed to run
// - if tick <= 0, tickC is nil (never fires)
func StartLoopOnce(
	parent context.Context,
	once *sync.Once,
	setCancel func(context.CancelFunc),
	tick time.Duration,
	run func(loopCtx context.Context, tickC <-chan time.Time),
) {
	start := func() {
		loopCtx, cancel := context.WithCancel(parent)
		if setCancel != nil {
			setCancel(cancel)
		}
		go startLoop(loopCtx, tick, run)
	}
	if once == nil {
		start()
		return
	}
	once.Do(start)
}

func startLoop(loopCtx context.Context, tick time.Duration, run func(context.Context, <-chan time.Time)) {
	var tickC <-chan time.Time
	if tick > 0 {
		ticker := time.NewTicker(tick)
		tickC = ticker.C
		defer ticker.Stop()
	}
	run(loopCtx, tickC)
}

// Sleep waits for d, or until ctx is done, stop is closed or wake fires.
// It reports whether it returned before d elapsed. Either channel may be nil.
func Sleep(ctx context.Context, d time.Duration, stop, wake <-chan struct{}) bool {
	if d <= 0 {
		return false
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return false
	case <-ctx.Done():
		return true
	case <-stop:
		return true
	case <-wake:
		return true
	}
}
