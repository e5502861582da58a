package detect

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/kairosvoice/attune/pkg/emotion"
)

// parseResponse turns a raw classifier payload into a Result. Models
// often wrap the JSON in markdown fences; those are stripped first.
// Out-of-taxonomy labels collapse to neutral and numeric fields are
// coerced and clamped, so a parse success always yields a valid result.
func parseResponse(raw string, at time.Time) (emotion.Result, error) {
	raw = stripFences(raw)
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return emotion.Result{}, err
	}
	labelRaw, ok := payload["emotion"].(string)
	if !ok {
		return emotion.Result{}, errors.New("missing emotion field")
	}
	label := emotion.Normalize(labelRaw)
	confidence := coerceFloat(payload["confidence"], 0.5)
	intensity := coerceFloat(payload["intensity"], 0.5)
	return emotion.New(label, confidence, intensity, at), nil
}

func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	lines := strings.Split(raw, "\n")
	if len(lines) < 3 {
		return raw
	}
	return strings.Join(lines[1:len(lines)-1], "\n")
}

func coerceFloat(v any, fallback float64) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return f
		}
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
	}
	return fallback
}
