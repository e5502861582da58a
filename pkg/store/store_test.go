package store

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kairosvoice/attune/pkg/emotion"
)

func newTestStore(t *testing.T) *EventStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	s, err := NewEventStore(db)
	if err != nil {
		t.Fatalf("new event store: %v", err)
	}
	return s
}

func TestRecordAndQueryEvents(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

	for i, label := range []emotion.Label{emotion.Sad, emotion.Sad, emotion.Happy} {
		err := s.RecordEvent(Event{
			ConversationID: "conv-1",
			PersonaID:      "teacher",
			Result:         emotion.New(label, 0.9, 0.5, base.Add(time.Duration(i)*time.Minute)),
			UtteranceHash:  "abc123",
		})
		if err != nil {
			t.Fatalf("record event: %v", err)
		}
	}

	events, err := s.RecentEvents("conv-1", 10)
	if err != nil {
		t.Fatalf("recent events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Result.Label != emotion.Happy {
		t.Fatalf("expected newest first, got %s", events[0].Result.Label)
	}
	if events[0].ID == "" {
		t.Fatalf("expected assigned id")
	}
}

func TestRecentEventsScopedToConversation(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	_ = s.RecordEvent(Event{ConversationID: "a", Result: emotion.New(emotion.Angry, 0.9, 0.5, now)})
	_ = s.RecordEvent(Event{ConversationID: "b", Result: emotion.New(emotion.Happy, 0.9, 0.5, now)})

	events, err := s.RecentEvents("a", 10)
	if err != nil {
		t.Fatalf("recent events: %v", err)
	}
	if len(events) != 1 || events[0].Result.Label != emotion.Angry {
		t.Fatalf("expected only conversation a's event, got %+v", events)
	}
}

func TestLabelCounts(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	for _, label := range []emotion.Label{emotion.Sad, emotion.Sad, emotion.Happy} {
		_ = s.RecordEvent(Event{ConversationID: "c", Result: emotion.New(label, 0.9, 0.5, now)})
	}
	counts, err := s.LabelCounts("c")
	if err != nil {
		t.Fatalf("label counts: %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("expected 2 labels, got %d", len(counts))
	}
	if counts[0].Label != emotion.Sad || counts[0].Count != 2 {
		t.Fatalf("expected sad x2 first, got %+v", counts[0])
	}
}
