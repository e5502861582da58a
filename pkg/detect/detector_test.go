package detect

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kairosvoice/attune/pkg/emotion"
	"github.com/kairosvoice/attune/pkg/providers/mock"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newDetector(t *testing.T, cfg Config, m *mock.Classifier) (*Detector, *clock) {
	t.Helper()
	d, err := New(cfg, m)
	if err != nil {
		t.Fatalf("new detector: %v", err)
	}
	clk := &clock{t: time.Unix(1000, 0)}
	d.SetClock(clk.Now)
	return d, clk
}

func TestDetectAlwaysReturnsValidLabel(t *testing.T) {
	m := mock.NewClassifier(mock.Config{Responses: []string{`this is not json at all`}})
	d, _ := newDetector(t, Config{}, m)

	res := d.Detect(context.Background(), "c1", "whatever", true)
	if !emotion.Valid(res.Label) {
		t.Fatalf("invalid label %q", res.Label)
	}
	if res.Outcome != emotion.OutcomeFallback {
		t.Fatalf("expected fallback outcome, got %s", res.Outcome)
	}
}

func TestDebounceReturnsLastResultUnchanged(t *testing.T) {
	m := mock.NewClassifier(mock.Config{Responses: []string{
		`{"emotion": "happy", "confidence": 0.9, "intensity": 0.7}`,
	}})
	d, clk := newDetector(t, Config{MinAnalysisInterval: 5 * time.Second}, m)

	first := d.Detect(context.Background(), "c1", "this is great", true)
	if first.Label != emotion.Happy {
		t.Fatalf("expected happy, got %s", first.Label)
	}

	clk.Advance(2 * time.Second)
	second := d.Detect(context.Background(), "c1", "completely different text", false)
	if second.Outcome != emotion.OutcomeDebounced {
		t.Fatalf("expected debounced outcome, got %s", second.Outcome)
	}
	second.Outcome = first.Outcome
	if second != first {
		t.Fatalf("debounced result differs: %+v vs %+v", second, first)
	}
	if m.Calls() != 1 {
		t.Fatalf("debounced call must not reach remote, calls=%d", m.Calls())
	}
}

func TestCacheHitSkipsLimiterSlot(t *testing.T) {
	m := mock.NewClassifier(mock.Config{Responses: []string{
		`{"emotion": "excited", "confidence": 0.8, "intensity": 0.9}`,
	}})
	d, _ := newDetector(t, Config{MaxCalls: 10}, m)

	first := d.Detect(context.Background(), "conv-a", "Hello", true)
	if first.Outcome != emotion.OutcomeRemote {
		t.Fatalf("expected remote outcome, got %s", first.Outcome)
	}
	second := d.Detect(context.Background(), "conv-b", "  HELLO  ", true)
	if second.Outcome != emotion.OutcomeCacheHit {
		t.Fatalf("expected cache hit, got %s", second.Outcome)
	}
	if m.Calls() != 1 {
		t.Fatalf("expected 1 remote call, got %d", m.Calls())
	}
	if got := d.Stats().CallsInWindow; got != 1 {
		t.Fatalf("cache hit must not consume a limiter slot, calls in window=%d", got)
	}
}

func TestRateLimitDegradesToLastKnown(t *testing.T) {
	m := mock.NewClassifier(mock.Config{Responses: []string{
		`{"emotion": "sad", "confidence": 0.9, "intensity": 0.6}`,
	}})
	d, _ := newDetector(t, Config{MaxCalls: 2, Window: 60 * time.Second}, m)

	d.Detect(context.Background(), "c1", "first utterance", true)
	d.Detect(context.Background(), "c1", "second utterance", true)
	third := d.Detect(context.Background(), "c1", "third utterance", true)

	if m.Calls() != 2 {
		t.Fatalf("expected exactly 2 remote invocations, got %d", m.Calls())
	}
	if third.Outcome != emotion.OutcomeRateLimited {
		t.Fatalf("expected rate limited outcome, got %s", third.Outcome)
	}
	if third.Label != emotion.Sad {
		t.Fatalf("degraded result should be last known, got %s", third.Label)
	}
	stats := d.Stats()
	if stats.Admitted != 2 || stats.Denied != 1 {
		t.Fatalf("unexpected counters: admitted=%d denied=%d", stats.Admitted, stats.Denied)
	}
}

func TestRateLimitWithoutHistoryFallsBackToNeutral(t *testing.T) {
	m := mock.NewClassifier(mock.Config{Responses: []string{
		`{"emotion": "angry", "confidence": 0.9, "intensity": 0.9}`,
	}})
	d, _ := newDetector(t, Config{MaxCalls: 1, Window: 60 * time.Second}, m)

	d.Detect(context.Background(), "c1", "one", true)
	res := d.Detect(context.Background(), "c2", "two", true)
	if res.Label != emotion.Neutral || res.Confidence != 1.0 {
		t.Fatalf("fresh conversation should fall back to neutral, got %+v", res)
	}
}

func TestRemoteFailureFallsBack(t *testing.T) {
	m := mock.NewClassifier(mock.Config{Err: errors.New("connection refused")})
	d, _ := newDetector(t, Config{}, m)

	res := d.Detect(context.Background(), "c1", "hello there", true)
	if res.Label != emotion.Neutral {
		t.Fatalf("expected neutral fallback, got %s", res.Label)
	}
	if res.Outcome != emotion.OutcomeFallback {
		t.Fatalf("expected fallback outcome, got %s", res.Outcome)
	}
	if d.Stats().CallsInWindow != 0 {
		t.Fatalf("failed call must not consume a slot")
	}
}

func TestNilClassifierDegradesToNeutral(t *testing.T) {
	d, err := New(Config{}, nil)
	if err != nil {
		t.Fatalf("new detector: %v", err)
	}
	res := d.Detect(context.Background(), "c1", "hello", true)
	if res.Label != emotion.Neutral {
		t.Fatalf("expected neutral, got %s", res.Label)
	}
}

func TestCacheEntryExpiresAfterTTL(t *testing.T) {
	m := mock.NewClassifier(mock.Config{Responses: []string{
		`{"emotion": "happy", "confidence": 0.9, "intensity": 0.7}`,
	}})
	d, clk := newDetector(t, Config{CacheTTL: 30 * time.Second}, m)

	d.Detect(context.Background(), "c1", "hello", true)
	clk.Advance(31 * time.Second)
	res := d.Detect(context.Background(), "c2", "hello", true)
	if res.Outcome == emotion.OutcomeCacheHit {
		t.Fatalf("entry past TTL must not be served")
	}
	if m.Calls() != 2 {
		t.Fatalf("expected re-classification after TTL, calls=%d", m.Calls())
	}
}

func TestMarkdownFencedResponseParses(t *testing.T) {
	m := mock.NewClassifier(mock.Config{Responses: []string{
		"```json\n{\"emotion\": \"confused\", \"confidence\": 0.7, \"intensity\": 0.5}\n```",
	}})
	d, _ := newDetector(t, Config{}, m)

	res := d.Detect(context.Background(), "c1", "wait what", true)
	if res.Label != emotion.Confused {
		t.Fatalf("expected confused, got %s", res.Label)
	}
}

func TestOutOfRangeNumbersAreClamped(t *testing.T) {
	m := mock.NewClassifier(mock.Config{Responses: []string{
		`{"emotion": "angry", "confidence": 1.8, "intensity": -0.4}`,
	}})
	d, _ := newDetector(t, Config{}, m)

	res := d.Detect(context.Background(), "c1", "this is broken", true)
	if res.Confidence != 1.0 || res.Intensity != 0.0 {
		t.Fatalf("expected clamped values, got confidence=%v intensity=%v", res.Confidence, res.Intensity)
	}
}

func TestUnknownLabelNormalizesToNeutral(t *testing.T) {
	m := mock.NewClassifier(mock.Config{Responses: []string{
		`{"emotion": "euphoric", "confidence": 0.9, "intensity": 0.9}`,
	}})
	d, _ := newDetector(t, Config{}, m)

	res := d.Detect(context.Background(), "c1", "amazing", true)
	if res.Label != emotion.Neutral {
		t.Fatalf("expected neutral for out-of-taxonomy label, got %s", res.Label)
	}
	if res.Outcome != emotion.OutcomeRemote {
		t.Fatalf("normalized label still counts as remote success, got %s", res.Outcome)
	}
}

func TestNegativeConfigIsFatal(t *testing.T) {
	if _, err := New(Config{CacheTTL: -time.Second}, nil); err == nil {
		t.Fatalf("negative TTL must be rejected at construction")
	}
	if _, err := New(Config{MaxCalls: -1}, nil); err == nil {
		t.Fatalf("negative max calls must be rejected at construction")
	}
}
