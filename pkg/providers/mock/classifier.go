package mock

import (
	"context"
	"sync"

	"github.com/kairosvoice/attune/pkg/classify"
)

// Classifier is a scripted classifier for tests and offline runs.
// Responses are consumed in order; the last one repeats once the script
// is exhausted.
type Classifier struct {
	cfg   Config
	mu    sync.Mutex
	calls int
}

type Config struct {
	Responses []string
	Err       error
}

func NewClassifier(cfg Config) *Classifier {
	if len(cfg.Responses) == 0 && cfg.Err == nil {
		cfg.Responses = []string{`{"emotion": "neutral", "confidence": 1.0, "intensity": 0.5}`}
	}
	return &Classifier{cfg: cfg}
}

func (c *Classifier) Name() string { return "mock_classifier" }

func (c *Classifier) Classify(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.cfg.Err != nil {
		return "", c.cfg.Err
	}
	idx := c.calls - 1
	if idx >= len(c.cfg.Responses) {
		idx = len(c.cfg.Responses) - 1
	}
	return c.cfg.Responses[idx], nil
}

// Calls returns how many times Classify ran.
func (c *Classifier) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

var _ classify.Classifier = (*Classifier)(nil)
