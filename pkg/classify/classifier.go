// Package classify defines the remote text-classification capability the
// detection gateway consumes. Providers return the raw model payload;
// parsing and validation stay with the caller so every provider can be
// treated identically.
package classify

import (
	"context"
	"fmt"

	"github.com/kairosvoice/attune/pkg/emotion"
)

// Classifier produces a raw response for an analysis prompt.
type Classifier interface {
	Classify(ctx context.Context, prompt string) (string, error)
	Name() string
}

const promptTemplate = `Analyze the emotional tone of this text and classify it into ONE category: %s.

Text: "%s"

Respond with ONLY a JSON object:
{
    "emotion": "category",
    "confidence": 0.0-1.0,
    "intensity": 0.0-1.0
}

Be concise and accurate.`

// BuildPrompt renders the emotion analysis prompt for an utterance.
func BuildPrompt(text string) string {
	return fmt.Sprintf(promptTemplate, emotion.CategoriesString(), text)
}
