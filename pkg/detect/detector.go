// Package detect implements the classification gateway. It decides, per
// utterance, whether the remote classifier is invoked at all, serves
// cached results, degrades under rate pressure, and never fails outward:
// every error path resolves to the conversation's last known result or
// the neutral fallback.
package detect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kairosvoice/attune/pkg/cache"
	"github.com/kairosvoice/attune/pkg/classify"
	"github.com/kairosvoice/attune/pkg/emotion"
	"github.com/kairosvoice/attune/pkg/errorsx"
	"github.com/kairosvoice/attune/pkg/metrics"
	"github.com/kairosvoice/attune/pkg/redact"
	"github.com/kairosvoice/attune/pkg/resilience"
)

type Config struct {
	MaxCalls            int
	Window              time.Duration
	CacheTTL            time.Duration
	MinAnalysisInterval time.Duration
	RemoteTimeout       time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxCalls == 0 {
		c.MaxCalls = 10
	}
	if c.Window == 0 {
		c.Window = 60 * time.Second
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 30 * time.Second
	}
	if c.MinAnalysisInterval == 0 {
		c.MinAnalysisInterval = 5 * time.Second
	}
	if c.RemoteTimeout == 0 {
		c.RemoteTimeout = 10 * time.Second
	}
	return c
}

// validate rejects invariant violations. Per-call failures are never
// fatal, but a nonsensical configuration is.
func (c Config) validate() error {
	if c.MaxCalls < 0 {
		return fmt.Errorf("max_calls must not be negative: %d", c.MaxCalls)
	}
	if c.Window < 0 || c.CacheTTL < 0 || c.MinAnalysisInterval < 0 || c.RemoteTimeout < 0 {
		return errors.New("durations must not be negative")
	}
	return nil
}

type session struct {
	last         emotion.Result
	hasLast      bool
	lastAnalysis time.Time
}

// Detector composes the sliding-window limiter, the result cache and the
// remote classifier behind a single Detect call.
type Detector struct {
	cfg        Config
	classifier classify.Classifier
	limiter    *resilience.SlidingWindow
	cache      *cache.ResultCache

	mu       sync.Mutex
	sessions map[string]*session
	admitted int64
	denied   int64

	obs metrics.Observer
	log *slog.Logger
	now func() time.Time
}

// New builds a Detector. classifier may be nil; detection then always
// degrades to the fallback path.
func New(cfg Config, classifier classify.Classifier) (*Detector, error) {
	if err := cfg.validate(); err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonConfigInvalid)
	}
	cfg = cfg.withDefaults()
	return &Detector{
		cfg:        cfg,
		classifier: classifier,
		limiter:    resilience.NewSlidingWindow(cfg.MaxCalls, cfg.Window),
		cache:      cache.New(cfg.CacheTTL),
		sessions:   make(map[string]*session),
		obs:        metrics.NoopObserver{},
		log:        slog.Default(),
		now:        time.Now,
	}, nil
}

func (d *Detector) SetObserver(obs metrics.Observer) {
	if obs != nil {
		d.obs = obs
	}
}

func (d *Detector) SetLogger(log *slog.Logger) {
	if log != nil {
		d.log = log
	}
}

// SetClock overrides the time source for the detector, its limiter and
// its cache. Test hook.
func (d *Detector) SetClock(now func() time.Time) {
	if now == nil {
		return
	}
	d.mu.Lock()
	d.now = now
	d.mu.Unlock()
	d.limiter.SetClock(now)
	d.cache.SetClock(now)
}

// Detect classifies one utterance. It never returns an error: the result
// carries an Outcome tag describing how it was produced. Unless force is
// set, a call inside the conversation's minimum analysis interval reuses
// the last result without touching cache, limiter or network.
func (d *Detector) Detect(ctx context.Context, conversationID, text string, force bool) emotion.Result {
	d.mu.Lock()
	now := d.now()
	sess := d.session(conversationID)
	if !force && !sess.lastAnalysis.IsZero() && now.Sub(sess.lastAnalysis) < d.cfg.MinAnalysisInterval {
		res := d.lastKnown(sess, now)
		d.mu.Unlock()
		res.Outcome = emotion.OutcomeDebounced
		d.record("emotion_debounced", conversationID, res)
		return res
	}
	fallback := d.lastKnown(sess, now)
	d.mu.Unlock()

	key := cache.Key(text)
	if cached, ok := d.cache.Get(key); ok {
		cached.Outcome = emotion.OutcomeCacheHit
		d.record("emotion_cache_hit", conversationID, cached)
		return cached
	}

	if !d.limiter.Admit() {
		d.mu.Lock()
		d.denied++
		d.mu.Unlock()
		d.log.Warn("emotion_rate_limited",
			"conversation_id", conversationID,
			"next_slot", d.limiter.TimeUntilNextSlot().String(),
		)
		fallback.Outcome = emotion.OutcomeRateLimited
		d.record("emotion_rate_limited", conversationID, fallback)
		return fallback
	}

	if d.classifier == nil {
		fallback.Outcome = emotion.OutcomeFallback
		d.record("emotion_fallback", conversationID, fallback)
		return fallback
	}

	result, err := d.classifyRemote(ctx, text)
	if err != nil {
		d.log.Error("emotion_detect_failed",
			"conversation_id", conversationID,
			"reason", string(errorsx.Reason(err)),
			"text", redact.Snippet(text, 80),
			"error", err,
		)
		fallback.Outcome = emotion.OutcomeFallback
		d.record("emotion_fallback", conversationID, fallback)
		return fallback
	}

	d.limiter.Record()
	d.cache.Put(key, result)
	d.mu.Lock()
	d.admitted++
	now = d.now()
	sess = d.session(conversationID)
	sess.last = result
	sess.hasLast = true
	sess.lastAnalysis = now
	d.mu.Unlock()

	result.Outcome = emotion.OutcomeRemote
	d.log.Info("emotion_detected",
		"conversation_id", conversationID,
		"emotion", string(result.Label),
		"confidence", result.Confidence,
	)
	d.record("emotion_detected", conversationID, result)
	return result
}

// EndConversation drops per-conversation state.
func (d *Detector) EndConversation(conversationID string) {
	d.mu.Lock()
	delete(d.sessions, conversationID)
	d.mu.Unlock()
}

// Sweep clears expired cache entries; safe to call periodically.
func (d *Detector) Sweep() int {
	return d.cache.Sweep()
}

// Stats is a read-only snapshot of gateway counters.
type Stats struct {
	Admitted      int64
	Denied        int64
	CacheSize     int
	CallsInWindow int
	MaxCalls      int
	Window        time.Duration
	NextSlot      time.Duration
}

func (d *Detector) Stats() Stats {
	d.mu.Lock()
	admitted, denied := d.admitted, d.denied
	d.mu.Unlock()
	return Stats{
		Admitted:      admitted,
		Denied:        denied,
		CacheSize:     d.cache.Len(),
		CallsInWindow: d.limiter.InFlight(),
		MaxCalls:      d.limiter.MaxCalls(),
		Window:        d.limiter.Window(),
		NextSlot:      d.limiter.TimeUntilNextSlot(),
	}
}

func (d *Detector) classifyRemote(ctx context.Context, text string) (emotion.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.RemoteTimeout)
	defer cancel()
	raw, err := d.classifier.Classify(ctx, classify.BuildPrompt(text))
	if err != nil {
		return emotion.Result{}, errorsx.Wrap(err, errorsx.ReasonClassifierGenerate)
	}
	result, err := parseResponse(raw, d.now())
	if err != nil {
		return emotion.Result{}, errorsx.Wrap(err, errorsx.ReasonClassifierParse)
	}
	return result, nil
}

// session returns the conversation state, creating it on first use.
// Caller holds the lock.
func (d *Detector) session(conversationID string) *session {
	s, ok := d.sessions[conversationID]
	if !ok {
		s = &session{}
		d.sessions[conversationID] = s
	}
	return s
}

// lastKnown returns the conversation's last successful result, or the
// canonical neutral default when none exists yet. Caller holds the lock.
func (d *Detector) lastKnown(sess *session, now time.Time) emotion.Result {
	if sess.hasLast {
		return sess.last
	}
	return emotion.NeutralResult(now)
}

func (d *Detector) record(name, conversationID string, res emotion.Result) {
	d.obs.RecordEvent(metrics.MetricsEvent{
		Name: name,
		Time: res.DetectedAt,
		Tags: map[string]string{
			"conversation_id": conversationID,
			"component":       "detector",
		},
		Fields: map[string]any{
			"emotion":    string(res.Label),
			"confidence": res.Confidence,
			"outcome":    string(res.Outcome),
		},
	})
}
