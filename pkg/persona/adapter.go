// Package persona turns a classification result into a behavior
// directive for a given agent persona. Selection is a pure function of
// its inputs plus the template table.
package persona

import (
	"fmt"
	"strings"

	"github.com/kairosvoice/attune/pkg/emotion"
)

// Adapter selects persona- and emotion-specific instruction blocks.
type Adapter struct {
	templates Templates
}

// NewAdapter returns an adapter with the built-in persona tables.
func NewAdapter() *Adapter {
	return &Adapter{templates: defaultTemplates()}
}

// NewAdapterWithTemplates merges overrides on top of the built-in
// tables. An override replaces a persona's entry per label; unknown
// personas are added wholesale.
func NewAdapterWithTemplates(overrides Templates) *Adapter {
	base := defaultTemplates()
	for personaID, byLabel := range overrides {
		if base[personaID] == nil {
			base[personaID] = make(map[emotion.Label]string, len(byLabel))
		}
		for label, text := range byLabel {
			base[personaID][label] = text
		}
	}
	return &Adapter{templates: base}
}

// Select appends a delimited directive block to baseInstructions when
// the result clears the confidence threshold and a template exists for
// the persona and label. Low-confidence signals never perturb behavior:
// below the threshold, or without a matching template, the base
// instructions come back unchanged. Identical inputs always produce
// identical output.
func (a *Adapter) Select(personaID, baseInstructions string, result emotion.Result, confidenceThreshold float64) string {
	if result.Confidence < confidenceThreshold {
		return baseInstructions
	}
	byLabel, ok := a.templates[personaID]
	if !ok {
		return baseInstructions
	}
	template, ok := byLabel[result.Label]
	if !ok {
		return baseInstructions
	}
	return fmt.Sprintf(`%s

CURRENT USER EMOTIONAL STATE: %s (confidence: %.0f%%)

ADAPT YOUR RESPONSE ACCORDINGLY:
%s

Remember to maintain your core personality while being sensitive to the user's emotional state.
`, baseInstructions, strings.ToUpper(string(result.Label)), result.Confidence*100, template)
}

// Personas lists the configured persona identifiers.
func (a *Adapter) Personas() []string {
	out := make([]string, 0, len(a.templates))
	for id := range a.templates {
		out = append(out, id)
	}
	return out
}
