// Package attune composes the detection gateway, the per-conversation
// emotion state and the persona adapter into the engine a session layer
// calls once per user utterance.
package attune

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/kairosvoice/attune/pkg/cache"
	"github.com/kairosvoice/attune/pkg/classify"
	"github.com/kairosvoice/attune/pkg/conversation"
	"github.com/kairosvoice/attune/pkg/detect"
	"github.com/kairosvoice/attune/pkg/emotion"
	"github.com/kairosvoice/attune/pkg/feed"
	"github.com/kairosvoice/attune/pkg/metrics"
	"github.com/kairosvoice/attune/pkg/persona"
	"github.com/kairosvoice/attune/pkg/redact"
	"github.com/kairosvoice/attune/pkg/store"
)

// EventSink records finalized emotion events. Satisfied by
// store.EventStore; nil disables persistence.
type EventSink interface {
	RecordEvent(ev store.Event) error
}

type EngineOptions struct {
	Config     Config
	Classifier classify.Classifier
	Sink       EventSink
	Hub        *feed.Hub
	Observer   metrics.Observer
	Logger     *slog.Logger
}

// Engine is the per-process entry point. One logical task processes each
// utterance; utterances within a conversation are serialized so history
// ordering stays deterministic even if a caller retries concurrently.
type Engine struct {
	cfg           Config
	detector      *detect.Detector
	conversations *conversation.Registry
	personas      *persona.Adapter
	sink          EventSink
	hub           *feed.Hub
	obs           metrics.Observer
	log           *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewEngine(opts EngineOptions) (*Engine, error) {
	cfg := opts.Config
	redact.SetEnabled(cfg.Privacy.RedactPII)

	detector, err := detect.New(cfg.Detection.DetectorConfig(), opts.Classifier)
	if err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	obs := opts.Observer
	if obs == nil {
		obs = metrics.NoopObserver{}
	}
	detector.SetLogger(log)
	detector.SetObserver(obs)

	adapter := persona.NewAdapter()
	if len(cfg.Personas.Overrides) > 0 {
		overrides := make(persona.Templates, len(cfg.Personas.Overrides))
		for personaID, byLabel := range cfg.Personas.Overrides {
			entry := make(map[emotion.Label]string, len(byLabel))
			for label, text := range byLabel {
				entry[emotion.Normalize(label)] = text
			}
			overrides[personaID] = entry
		}
		adapter = persona.NewAdapterWithTemplates(overrides)
	}

	return &Engine{
		cfg:           cfg,
		detector:      detector,
		conversations: conversation.NewRegistry(),
		personas:      adapter,
		sink:          opts.Sink,
		hub:           opts.Hub,
		obs:           obs,
		log:           log,
		locks:         make(map[string]*sync.Mutex),
	}, nil
}

// Turn is the outcome of processing one utterance.
type Turn struct {
	Result       emotion.Result
	Instructions string
	Dominant     emotion.Label
	Escalate     bool
	Skipped      bool
}

// ProcessUtterance classifies one utterance, folds the result into the
// conversation state and returns persona-adapted instructions. It never
// fails: degraded paths still yield a well-formed result and, at worst,
// the base instructions unchanged. Utterances shorter than the minimum
// length are skipped without touching any state.
func (e *Engine) ProcessUtterance(ctx context.Context, conversationID, personaID, baseInstructions, text string, force bool) Turn {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < e.minUtteranceLen() {
		return Turn{
			Instructions: baseInstructions,
			Dominant:     e.conversations.Get(conversationID).Dominant(),
			Skipped:      true,
		}
	}

	lock := e.conversationLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	result := e.detector.Detect(ctx, conversationID, text, force)

	state := e.conversations.Get(conversationID)
	state.Record(result)
	dominant := state.Dominant()
	escalate := state.ShouldEscalate()

	instructions := e.personas.Select(personaID, baseInstructions, result, e.threshold())

	if e.sink != nil && result.Outcome == emotion.OutcomeRemote && result.Label != emotion.Neutral {
		if err := e.sink.RecordEvent(store.Event{
			ConversationID: conversationID,
			PersonaID:      personaID,
			Result:         result,
			UtteranceHash:  cache.Key(text),
		}); err != nil {
			e.log.Error("emotion_event_store_failed",
				"conversation_id", conversationID,
				"error", err,
			)
		}
	}

	if e.hub != nil {
		e.hub.Publish(feed.Update{
			ConversationID: conversationID,
			PersonaID:      personaID,
			Result:         result,
			Dominant:       dominant,
			Escalate:       escalate,
		})
	}

	if escalate {
		e.log.Info("emotion_escalation",
			"conversation_id", conversationID,
			"dominant", string(dominant),
			"text", redact.Snippet(text, 80),
		)
	}

	e.obs.RecordEvent(metrics.MetricsEvent{
		Name: "utterance_processed",
		Time: time.Now(),
		Tags: map[string]string{
			"conversation_id": conversationID,
			"persona_id":      personaID,
			"component":       "engine",
		},
		Fields: map[string]any{
			"emotion":  string(result.Label),
			"outcome":  string(result.Outcome),
			"dominant": string(dominant),
			"escalate": escalate,
		},
	})

	return Turn{
		Result:       result,
		Instructions: instructions,
		Dominant:     dominant,
		Escalate:     escalate,
	}
}

// Select re-runs adaptation for an already-obtained result. Pure; used
// when a caller wants to re-adapt without re-classifying.
func (e *Engine) Select(personaID, baseInstructions string, result emotion.Result) string {
	return e.personas.Select(personaID, baseInstructions, result, e.threshold())
}

// EndConversation drops all state for a conversation.
func (e *Engine) EndConversation(conversationID string) {
	e.detector.EndConversation(conversationID)
	e.conversations.End(conversationID)
	e.mu.Lock()
	delete(e.locks, conversationID)
	e.mu.Unlock()
}

// Stats is a read-only snapshot with no mutation side effects.
type Stats struct {
	Detector      detect.Stats
	Conversations int
}

func (e *Engine) Stats() Stats {
	return Stats{
		Detector:      e.detector.Stats(),
		Conversations: e.conversations.Count(),
	}
}

// ConversationStats summarizes one conversation's current state.
type ConversationStats struct {
	Current  emotion.Label
	Dominant emotion.Label
	Escalate bool
	History  int
}

func (e *Engine) ConversationStats(conversationID string) ConversationStats {
	state := e.conversations.Get(conversationID)
	return ConversationStats{
		Current:  state.Current(),
		Dominant: state.Dominant(),
		Escalate: state.ShouldEscalate(),
		History:  state.Len(),
	}
}

// Sweep clears expired cache entries.
func (e *Engine) Sweep() int { return e.detector.Sweep() }

func (e *Engine) threshold() float64 {
	if e.cfg.ConfidenceThreshold == 0 {
		return 0.6
	}
	return e.cfg.ConfidenceThreshold
}

func (e *Engine) minUtteranceLen() int {
	if e.cfg.MinUtteranceLen <= 0 {
		return 3
	}
	return e.cfg.MinUtteranceLen
}

func (e *Engine) conversationLock(conversationID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[conversationID] = l
	}
	return l
}
