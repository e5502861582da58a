package resilience

import (
	"sync"
	"time"
)

// SlidingWindow bounds call volume over a trailing time window. Admit
// reports whether a new call is currently allowed and has no side
// effects; Record registers a call that was actually made. Keeping the
// two separate means a caller that backs out (cache hit, provider
// unconfigured) never consumes a slot.
type SlidingWindow struct {
	mu       sync.Mutex
	maxCalls int
	window   time.Duration
	calls    []time.Time
	now      func() time.Time
}

func NewSlidingWindow(maxCalls int, window time.Duration) *SlidingWindow {
	if maxCalls <= 0 {
		maxCalls = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &SlidingWindow{
		maxCalls: maxCalls,
		window:   window,
		now:      time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (w *SlidingWindow) SetClock(now func() time.Time) {
	if now == nil {
		return
	}
	w.mu.Lock()
	w.now = now
	w.mu.Unlock()
}

// Admit prunes records older than the window and reports whether the
// remaining count leaves room for one more call.
func (w *SlidingWindow) Admit() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(w.now())
	return len(w.calls) < w.maxCalls
}

// Record registers a call that was made.
func (w *SlidingWindow) Record() {
	w.mu.Lock()
	w.calls = append(w.calls, w.now())
	w.mu.Unlock()
}

// TimeUntilNextSlot reports how long until the oldest retained call ages
// out. Zero when a call is already admissible. Used for logging only.
func (w *SlidingWindow) TimeUntilNextSlot() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.now()
	w.prune(now)
	if len(w.calls) < w.maxCalls {
		return 0
	}
	oldest := w.calls[0]
	remaining := w.window - now.Sub(oldest)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// InFlight returns the number of calls currently inside the window.
func (w *SlidingWindow) InFlight() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(w.now())
	return len(w.calls)
}

// MaxCalls returns the configured quota.
func (w *SlidingWindow) MaxCalls() int { return w.maxCalls }

// Window returns the configured trailing window.
func (w *SlidingWindow) Window() time.Duration { return w.window }

// prune drops timestamps older than the window. Caller holds the lock.
// Records are appended in time order, so the retained suffix is found by
// scanning from the front.
func (w *SlidingWindow) prune(now time.Time) {
	cut := 0
	for cut < len(w.calls) && now.Sub(w.calls[cut]) >= w.window {
		cut++
	}
	if cut > 0 {
		w.calls = append(w.calls[:0], w.calls[cut:]...)
	}
}
