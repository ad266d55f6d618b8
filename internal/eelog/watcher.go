// Package eelog tails the game client's EE.log and turns interesting lines
// into conversation and trade events.
package eelog

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/betbot/wfmtrader/internal/apperr"
	"github.com/betbot/wfmtrader/internal/common"
	"github.com/betbot/wfmtrader/internal/events"
	"github.com/betbot/wfmtrader/internal/ports"
	"github.com/betbot/wfmtrader/pkg/logger"
)

var log = logrus.WithField("module", "eelog")

const DefaultPollInterval = time.Second

// LineDetector inspects one log line. Returning true claims the line and stops
// lower-priority detectors from seeing it.
type LineDetector interface {
	Name() string
	Detect(ctx context.Context, index int64, line string) (bool, error)
}

type WatcherConfig struct {
	Path         string
	PollInterval time.Duration
	Events       ports.EventPublisher
}

// Watcher polls a growing log file and feeds complete new lines to its
// detectors in registration order.
type Watcher struct {
	path      string
	poll      time.Duration
	detectors []LineDetector
	events    ports.EventPublisher
	errLog    *logrus.Entry

	mu      sync.Mutex
	current *watchRun

	// pollMu serializes read cycles so detectors see lines in order
	pollMu sync.Mutex

	// poll state
	stateMu   sync.Mutex
	offset    int64
	lineIndex int64
	cold      bool
}

type watchRun struct {
	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewWatcher(cfg WatcherConfig, detectors ...LineDetector) *Watcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Watcher{
		path:      cfg.Path,
		poll:      cfg.PollInterval,
		detectors: detectors,
		events:    cfg.Events,
		errLog:    logger.NewFileLogger("eelog"),
		cold:      true,
	}
}

func (w *Watcher) Path() string { return w.path }

func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current != nil && w.current.running.Load()
}

// Start begins polling in the background and returns immediately. A start
// after Stop is a cold start: lines written while stopped are not replayed.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current != nil && w.current.running.Load() {
		return
	}
	w.stateMu.Lock()
	w.cold = true
	w.stateMu.Unlock()

	r := &watchRun{done: make(chan struct{})}
	r.running.Store(true)
	w.current = r
	var once sync.Once
	common.StartLoopOnce(ctx, &once, func(c context.CancelFunc) { r.cancel = c }, w.poll,
		func(loopCtx context.Context, tickC <-chan time.Time) {
			defer close(r.done)
			defer r.running.Store(false)
			w.loop(loopCtx, r, tickC)
		})
	log.Infof("watching %s", w.path)
	w.publishState(true)
}

// Stop clears the running flag. A poll already dispatching lines finishes
// its detector calls; only the wait for the next tick is cancelled.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	r := w.current
	if r == nil || !r.running.Swap(false) {
		return
	}
	r.cancel()
	log.Infof("stopped watching %s", w.path)
	w.publishState(false)
}

// Done is closed when the current poll loop has exited; nil before Start.
func (w *Watcher) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return nil
	}
	return w.current.done
}

func (w *Watcher) loop(ctx context.Context, r *watchRun, tickC <-chan time.Time) {
	for r.running.Load() {
		if err := w.Poll(ctx); err != nil {
			// unreadable file: skip this tick and retry on the next
			w.errLog.WithField("kind", apperr.KindOf(err)).Warnf("%v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-tickC:
		}
	}
}

type logLine struct {
	index int64
	text  string
}

// Poll runs one read cycle. Detectors run after the position lock is released
// and on a context detached from cancellation, so a Stop never aborts a
// withdrawal or notification halfway.
func (w *Watcher) Poll(ctx context.Context) error {
	w.pollMu.Lock()
	defer w.pollMu.Unlock()

	lines, err := w.readNew()
	detached := context.WithoutCancel(ctx)
	for _, l := range lines {
		w.dispatch(detached, l.index, l.text)
	}
	return err
}

// readNew advances the read position past every complete new line and
// returns those lines.
func (w *Watcher) readNew() ([]logLine, error) {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()

	f, err := os.Open(w.path)
	if err != nil {
		return nil, apperr.IO("eelog.Poll", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, apperr.IO("eelog.Poll", err)
	}
	size := info.Size()

	if w.cold {
		w.offset = size
		w.cold = false
		return nil, nil
	}
	if size < w.offset {
		log.Infof("%s shrank from %d to %d bytes, reading from the start", w.path, w.offset, size)
		w.offset = 0
		w.lineIndex = 0
	}
	if size == w.offset {
		return nil, nil
	}
	if _, err := f.Seek(w.offset, io.SeekStart); err != nil {
		return nil, apperr.IO("eelog.Poll", err)
	}

	var lines []logLine
	r := bufio.NewReader(io.LimitReader(f, size-w.offset))
	for {
		line, err := r.ReadString('\n')
		if err == io.EOF {
			// an unterminated tail is re-read once the writer finishes it
			return lines, nil
		}
		if err != nil {
			return lines, apperr.IO("eelog.Poll", err)
		}
		w.offset += int64(len(line))
		w.lineIndex++
		lines = append(lines, logLine{index: w.lineIndex, text: strings.TrimRight(line, "\r\n")})
	}
}

func (w *Watcher) dispatch(ctx context.Context, index int64, line string) {
	for _, d := range w.detectors {
		claimed, err := d.Detect(ctx, index, line)
		if err != nil {
			w.errLog.WithField("detector", d.Name()).Warnf("line %d: %v", index, err)
		}
		if claimed {
			return
		}
	}
}

// Position returns the byte offset and line counter (for tests and status).
func (w *Watcher) Position() (offset, lineIndex int64) {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	return w.offset, w.lineIndex
}

func (w *Watcher) publishState(running bool) {
	if w.events == nil {
		return
	}
	w.events.Publish(events.KindEELogState, events.WatcherStateEvent{Running: running, Path: w.path})
}
