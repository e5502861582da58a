// Package conversation tracks the bounded per-conversation emotional
// state used to adapt agent behavior and decide when to proactively
// check in.
package conversation

import (
	"sync"
	"time"

	"github.com/kairosvoice/attune/pkg/emotion"
)

const (
	// historyBound caps retained entries; the oldest is evicted first.
	historyBound = 10
	// dominantWindow is how many recent entries vote for the dominant
	// emotion.
	dominantWindow = 5
	// escalateStreak is how many consecutive negative entries trigger
	// the escalation flag.
	escalateStreak = 3
)

// Entry is one recorded classification.
type Entry struct {
	Label      emotion.Label
	Confidence float64
	At         time.Time
}

// State holds one conversation's emotion history. Utterances within a
// conversation are processed sequentially, but mutation is still
// serialized here so a retried turn cannot interleave with a live one.
type State struct {
	mu      sync.Mutex
	current emotion.Label
	history []Entry
}

func NewState() *State {
	return &State{current: emotion.Neutral}
}

// Record appends a result to the history, evicting the oldest entry past
// the bound, and updates the current emotion.
func (s *State) Record(res emotion.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = res.Label
	s.history = append(s.history, Entry{
		Label:      res.Label,
		Confidence: res.Confidence,
		At:         res.DetectedAt,
	})
	if len(s.history) > historyBound {
		s.history = s.history[len(s.history)-historyBound:]
	}
}

// Current returns the most recently recorded emotion.
func (s *State) Current() emotion.Label {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Dominant returns the majority emotion over the most recent five
// entries. Ties are broken in favor of the tied label that appears
// first when scanning the window oldest to newest, so the result is
// reproducible regardless of map iteration order. With no history it
// returns neutral.
func (s *State) Dominant() emotion.Label {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return emotion.Neutral
	}
	window := s.history
	if len(window) > dominantWindow {
		window = window[len(window)-dominantWindow:]
	}
	counts := make(map[emotion.Label]int, len(window))
	order := make([]emotion.Label, 0, len(window))
	for _, e := range window {
		if _, seen := counts[e.Label]; !seen {
			order = append(order, e.Label)
		}
		counts[e.Label]++
	}
	best := order[0]
	for _, l := range order[1:] {
		if counts[l] > counts[best] {
			best = l
		}
	}
	return best
}

// ShouldEscalate reports sustained negative affect: at least three
// entries recorded and the three most recent all negative. The caller
// decides what a proactive check-in looks like; this only raises the
// flag.
func (s *State) ShouldEscalate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) < escalateStreak {
		return false
	}
	for _, e := range s.history[len(s.history)-escalateStreak:] {
		if !emotion.Negative(e.Label) {
			return false
		}
	}
	return true
}

// History returns a copy of the retained entries, oldest first.
func (s *State) History() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.history))
	copy(out, s.history)
	return out
}

// Len returns the number of retained entries.
func (s *State) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}
