package persona

import (
	"strings"
	"testing"
	"time"

	"github.com/kairosvoice/attune/pkg/emotion"
)

const base = "You are a patient teacher."

func TestLowConfidenceLeavesBaseUnchanged(t *testing.T) {
	a := NewAdapter()
	res := emotion.New(emotion.Frustrated, 0.4, 0.6, time.Now())
	if got := a.Select("teacher", base, res, 0.6); got != base {
		t.Fatalf("low confidence must not perturb instructions")
	}
}

func TestHighConfidenceAppendsDirective(t *testing.T) {
	a := NewAdapter()
	res := emotion.New(emotion.Frustrated, 0.8, 0.6, time.Now())
	got := a.Select("teacher", base, res, 0.6)
	if got == base {
		t.Fatalf("expected adapted instructions")
	}
	if !strings.HasPrefix(got, base) {
		t.Fatalf("base instructions must be preserved")
	}
	if !strings.Contains(got, "FRUSTRATED") {
		t.Fatalf("directive should name the label")
	}
	if !strings.Contains(got, "confidence: 80%") {
		t.Fatalf("directive should carry the confidence percentage, got:\n%s", got)
	}
	if !strings.Contains(got, "Acknowledge that this is challenging") {
		t.Fatalf("directive should contain the template text")
	}
}

func TestUnknownPersonaPassesThrough(t *testing.T) {
	a := NewAdapter()
	res := emotion.New(emotion.Happy, 0.9, 0.6, time.Now())
	if got := a.Select("barista", base, res, 0.6); got != base {
		t.Fatalf("unknown persona must pass base through")
	}
}

func TestMissingTemplatePassesThrough(t *testing.T) {
	a := NewAdapterWithTemplates(Templates{
		"terse": {emotion.Sad: "Be gentle."},
	})
	res := emotion.New(emotion.Happy, 0.9, 0.6, time.Now())
	if got := a.Select("terse", base, res, 0.6); got != base {
		t.Fatalf("persona without a template for the label must pass through")
	}
}

func TestSelectIsIdempotent(t *testing.T) {
	a := NewAdapter()
	res := emotion.New(emotion.Anxious, 0.75, 0.6, time.Now())
	first := a.Select("coach", base, res, 0.6)
	second := a.Select("coach", base, res, 0.6)
	if first != second {
		t.Fatalf("identical inputs must yield identical output")
	}
}

func TestTemplateOverridesMerge(t *testing.T) {
	a := NewAdapterWithTemplates(Templates{
		"friend": {emotion.Happy: "Custom happy line."},
	})
	res := emotion.New(emotion.Happy, 0.9, 0.6, time.Now())
	got := a.Select("friend", base, res, 0.6)
	if !strings.Contains(got, "Custom happy line.") {
		t.Fatalf("override should replace the built-in template")
	}
	res2 := emotion.New(emotion.Sad, 0.9, 0.6, time.Now())
	if got := a.Select("friend", base, res2, 0.6); !strings.Contains(got, "Be there for them") {
		t.Fatalf("non-overridden labels should keep built-in templates")
	}
}
