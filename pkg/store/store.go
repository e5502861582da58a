// Package store persists finalized emotion events. The engine treats it
// as an optional sink: a write failure is logged by the caller, never
// surfaced to the classification path.
package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/kairosvoice/attune/pkg/emotion"
	"github.com/kairosvoice/attune/pkg/errorsx"
)

const eventsSchema = `
CREATE TABLE IF NOT EXISTS emotion_events (
    id              TEXT PRIMARY KEY,
    conversation_id TEXT NOT NULL,
    persona_id      TEXT NOT NULL DEFAULT '',
    emotion         TEXT NOT NULL,
    confidence      REAL NOT NULL,
    intensity       REAL NOT NULL,
    valence         REAL NOT NULL,
    arousal         REAL NOT NULL,
    utterance_hash  TEXT NOT NULL,
    detected_at     TEXT NOT NULL
);
`

const eventsIndex = `
CREATE INDEX IF NOT EXISTS idx_emotion_events_conversation
ON emotion_events(conversation_id, detected_at);
`

// Event is one finalized classification tied to a conversation.
type Event struct {
	ID             string
	ConversationID string
	PersonaID      string
	Result         emotion.Result
	UtteranceHash  string
}

// LabelCount pairs a label with how often it was recorded.
type LabelCount struct {
	Label emotion.Label
	Count int
}

// EventStore records emotion events in SQLite.
type EventStore struct {
	db *sql.DB
}

// NewEventStore initializes the emotion_events table and returns a store.
func NewEventStore(db *sql.DB) (*EventStore, error) {
	if _, err := db.Exec(eventsSchema); err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonStoreOpen)
	}
	if _, err := db.Exec(eventsIndex); err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonStoreOpen)
	}
	return &EventStore{db: db}, nil
}

// RecordEvent persists one event. A zero ID is assigned a fresh UUID.
func (s *EventStore) RecordEvent(ev Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	_, err := s.db.Exec(`
		INSERT INTO emotion_events
		(id, conversation_id, persona_id, emotion, confidence, intensity,
		 valence, arousal, utterance_hash, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID,
		ev.ConversationID,
		ev.PersonaID,
		string(ev.Result.Label),
		ev.Result.Confidence,
		ev.Result.Intensity,
		ev.Result.Valence,
		ev.Result.Arousal,
		ev.UtteranceHash,
		ev.Result.DetectedAt.UTC().Format(time.RFC3339Nano),
	)
	return errorsx.Wrap(err, errorsx.ReasonStoreWrite)
}

// RecentEvents returns up to limit events for a conversation, newest
// first.
func (s *EventStore) RecentEvents(conversationID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, conversation_id, persona_id, emotion, confidence,
		       intensity, valence, arousal, utterance_hash, detected_at
		FROM emotion_events
		WHERE conversation_id = ?
		ORDER BY detected_at DESC
		LIMIT ?`, conversationID, limit)
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonStoreQuery)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		var label, detectedAt string
		if err := rows.Scan(
			&ev.ID, &ev.ConversationID, &ev.PersonaID, &label,
			&ev.Result.Confidence, &ev.Result.Intensity,
			&ev.Result.Valence, &ev.Result.Arousal,
			&ev.UtteranceHash, &detectedAt,
		); err != nil {
			return nil, errorsx.Wrap(err, errorsx.ReasonStoreQuery)
		}
		ev.Result.Label = emotion.Normalize(label)
		if at, err := time.Parse(time.RFC3339Nano, detectedAt); err == nil {
			ev.Result.DetectedAt = at
		}
		out = append(out, ev)
	}
	return out, errorsx.Wrap(rows.Err(), errorsx.ReasonStoreQuery)
}

// LabelCounts aggregates how often each label was recorded for a
// conversation, most frequent first.
func (s *EventStore) LabelCounts(conversationID string) ([]LabelCount, error) {
	rows, err := s.db.Query(`
		SELECT emotion, COUNT(*) AS n
		FROM emotion_events
		WHERE conversation_id = ?
		GROUP BY emotion
		ORDER BY n DESC, emotion ASC`, conversationID)
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonStoreQuery)
	}
	defer rows.Close()

	var out []LabelCount
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, errorsx.Wrap(err, errorsx.ReasonStoreQuery)
		}
		out = append(out, LabelCount{Label: emotion.Normalize(label), Count: n})
	}
	return out, errorsx.Wrap(rows.Err(), errorsx.ReasonStoreQuery)
}
