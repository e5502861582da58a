package conversation

import (
	"testing"
	"time"

	"github.com/kairosvoice/attune/pkg/emotion"
)

func record(s *State, labels ...emotion.Label) {
	for _, l := range labels {
		s.Record(emotion.New(l, 0.9, 0.5, time.Now()))
	}
}

func TestDominantEmptyHistoryIsNeutral(t *testing.T) {
	s := NewState()
	if got := s.Dominant(); got != emotion.Neutral {
		t.Fatalf("expected neutral, got %s", got)
	}
}

func TestDominantMajorityVote(t *testing.T) {
	s := NewState()
	record(s, emotion.Sad, emotion.Happy, emotion.Happy, emotion.Sad, emotion.Happy)
	if got := s.Dominant(); got != emotion.Happy {
		t.Fatalf("expected happy, got %s", got)
	}
}

func TestDominantTieBreakFirstSeen(t *testing.T) {
	s := NewState()
	record(s, emotion.Happy, emotion.Sad, emotion.Happy, emotion.Sad)
	for i := 0; i < 20; i++ {
		if got := s.Dominant(); got != emotion.Happy {
			t.Fatalf("tie must resolve to first-seen label, got %s (run %d)", got, i)
		}
	}
}

func TestDominantOnlyConsidersRecentFive(t *testing.T) {
	s := NewState()
	record(s, emotion.Angry, emotion.Angry, emotion.Angry)
	record(s, emotion.Happy, emotion.Happy, emotion.Happy, emotion.Happy, emotion.Happy)
	if got := s.Dominant(); got != emotion.Happy {
		t.Fatalf("older entries outside the window must not vote, got %s", got)
	}
}

func TestHistoryBoundedFIFO(t *testing.T) {
	s := NewState()
	record(s, emotion.Angry)
	for i := 0; i < 10; i++ {
		record(s, emotion.Happy)
	}
	if s.Len() != 10 {
		t.Fatalf("expected history capped at 10, got %d", s.Len())
	}
	for _, e := range s.History() {
		if e.Label != emotion.Happy {
			t.Fatalf("oldest entry should have been evicted, found %s", e.Label)
		}
	}
}

func TestShouldEscalate(t *testing.T) {
	s := NewState()
	record(s, emotion.Sad, emotion.Angry, emotion.Anxious)
	if !s.ShouldEscalate() {
		t.Fatalf("three consecutive negatives should escalate")
	}

	s2 := NewState()
	record(s2, emotion.Sad, emotion.Angry, emotion.Happy)
	if s2.ShouldEscalate() {
		t.Fatalf("positive entry in the last three should not escalate")
	}

	s3 := NewState()
	record(s3, emotion.Sad, emotion.Angry)
	if s3.ShouldEscalate() {
		t.Fatalf("fewer than three entries should not escalate")
	}
}

func TestCurrentTracksLastRecord(t *testing.T) {
	s := NewState()
	if s.Current() != emotion.Neutral {
		t.Fatalf("new state should start neutral")
	}
	record(s, emotion.Frustrated)
	if s.Current() != emotion.Frustrated {
		t.Fatalf("expected frustrated, got %s", s.Current())
	}
}

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()
	a := r.Get("conv-a")
	if a == nil {
		t.Fatalf("expected state")
	}
	if r.Get("conv-a") != a {
		t.Fatalf("expected same state for same id")
	}
	if r.Count() != 1 {
		t.Fatalf("expected 1 live conversation, got %d", r.Count())
	}
	r.End("conv-a")
	if r.Count() != 0 {
		t.Fatalf("expected 0 after end, got %d", r.Count())
	}
	if r.Get("conv-a") == a {
		t.Fatalf("ended conversation must get fresh state")
	}
}
