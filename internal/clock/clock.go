// Package clock provides the once-per-second callback that drives a session.
package clock

import (
	"sync"
	"time"
)

// Ticker calls a function every period on its own goroutine until stopped.
// Starting an armed Ticker replaces the previous callback.
type Ticker struct {
	period time.Duration

	mu   sync.Mutex
	done chan struct{}
}

// NewTicker returns a stopped Ticker. A non-positive period defaults to one second.
func NewTicker(period time.Duration) *Ticker {
	if period <= 0 {
		period = time.Second
	}
	return &Ticker{period: period}
}

// Start arms the ticker. The first call to fn happens one period from now.
func (t *Ticker) Start(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()

	done := make(chan struct{})
	t.done = done
	go func() {
		tk := time.NewTicker(t.period)
		defer tk.Stop()
		for {
			select {
			case <-done:
				return
			case <-tk.C:
				select {
				case <-done:
					return
				default:
				}
				fn()
			}
		}
	}()
}

// Stop disarms the ticker. It does not wait for an in-flight callback and is
// safe to call from inside one.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// Armed reports whether a callback is scheduled.
func (t *Ticker) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done != nil
}

func (t *Ticker) stopLocked() {
	if t.done != nil {
		close(t.done)
		t.done = nil
	}
}

// Fake is a manually driven clock for tests.
type Fake struct {
	mu     sync.Mutex
	fn     func()
	starts int
	stops  int
}

// NewFake returns a disarmed Fake.
func NewFake() *Fake { return &Fake{} }

func (f *Fake) Start(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fn = fn
	f.starts++
}

func (f *Fake) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fn = nil
	f.stops++
}

// Fire delivers n ticks synchronously. It stops early once the clock is
// disarmed; the callback may re-arm it between ticks.
func (f *Fake) Fire(n int) {
	for range n {
		f.mu.Lock()
		fn := f.fn
		f.mu.Unlock()
		if fn == nil {
			return
		}
		fn()
	}
}

// Armed reports whether a callback is scheduled.
func (f *Fake) Armed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fn != nil
}

// Starts returns how many times the clock has been armed.
func (f *Fake) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}
