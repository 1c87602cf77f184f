package scene

import (
	"context"
	"sync"
	"time"
)

// Frame rates.
const (
	DefaultFPS  = 30
	LowPowerFPS = 15
)

// Governor skips frames that arrive sooner than its interval after the last
// drawn frame.
type Governor struct {
	Interval time.Duration
	last     time.Time
}

// NewGovernor creates a governor for a target frame rate. Non-positive
// rates use DefaultFPS.
func NewGovernor(fps int) *Governor {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &Governor{Interval: time.Second / time.Duration(fps)}
}

// Ready reports whether a frame may be drawn at now and, if so, records it.
func (g *Governor) Ready(now time.Time) bool {
	if !g.last.IsZero() && now.Sub(g.last) < g.Interval {
		return false
	}
	g.last = now
	return true
}

// Reset forgets the last frame so the next call to Ready succeeds.
func (g *Governor) Reset() {
	g.last = time.Time{}
}

// Ticker calls fn on a fixed interval from its own goroutine until stopped.
// It drives headless animation; the terminal UI uses bubbletea ticks.
type Ticker struct {
	interval time.Duration
	fn       func(time.Time)
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTicker creates a stopped ticker.
func NewTicker(interval time.Duration, fn func(time.Time)) *Ticker {
	return &Ticker{interval: interval, fn: fn, now: time.Now}
}

// Start begins ticking. It is a no-op if already running.
func (t *Ticker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	go t.loop(ctx, t.done)
}

func (t *Ticker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	tk := time.NewTicker(t.interval)
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			t.fn(t.now())
		}
	}
}

// Stop halts the ticker and waits for the loop to exit. It is safe to call
// more than once.
func (t *Ticker) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the ticker is started.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}
