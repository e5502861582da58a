package emotion

import "time"

// Affect holds circumplex-model coordinates for a label. Valence runs
// -1 (negative) to 1 (positive), arousal 0 (low energy) to 1 (high).
type Affect struct {
	Valence float64
	Arousal float64
}

var affectByLabel = map[Label]Affect{
	Happy:      {Valence: 0.8, Arousal: 0.6},
	Excited:    {Valence: 0.9, Arousal: 0.9},
	Sad:        {Valence: -0.7, Arousal: 0.3},
	Anxious:    {Valence: -0.5, Arousal: 0.8},
	Angry:      {Valence: -0.8, Arousal: 0.9},
	Frustrated: {Valence: -0.6, Arousal: 0.7},
	Confused:   {Valence: -0.3, Arousal: 0.5},
	Neutral:    {Valence: 0.0, Arousal: 0.5},
}

// AffectOf returns the valence/arousal coordinates for a label. Unknown
// labels map to neutral coordinates.
func AffectOf(l Label) Affect {
	if a, ok := affectByLabel[l]; ok {
		return a
	}
	return affectByLabel[Neutral]
}

// Outcome tags how a detection result was produced. It exists for
// observability and tests; callers never branch on it.
type Outcome string

const (
	OutcomeRemote      Outcome = "remote"
	OutcomeDebounced   Outcome = "debounced"
	OutcomeCacheHit    Outcome = "cache_hit"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeFallback    Outcome = "fallback"
)

// Result is a single emotion classification. Valence and arousal are
// always derived from the label, never supplied independently.
type Result struct {
	Label      Label     `json:"emotion"`
	Confidence float64   `json:"confidence"`
	Intensity  float64   `json:"intensity"`
	Valence    float64   `json:"valence"`
	Arousal    float64   `json:"arousal"`
	DetectedAt time.Time `json:"detected_at"`
	Outcome    Outcome   `json:"outcome,omitempty"`
}

// NeutralResult returns the canonical fallback result.
func NeutralResult(at time.Time) Result {
	a := AffectOf(Neutral)
	return Result{
		Label:      Neutral,
		Confidence: 1.0,
		Intensity:  0.5,
		Valence:    a.Valence,
		Arousal:    a.Arousal,
		DetectedAt: at,
	}
}

// New builds a Result from a label plus clamped confidence/intensity,
// filling valence/arousal from the affect table.
func New(l Label, confidence, intensity float64, at time.Time) Result {
	if !Valid(l) {
		l = Neutral
	}
	a := AffectOf(l)
	return Result{
		Label:      l,
		Confidence: Clamp(confidence, 0, 1),
		Intensity:  Clamp(intensity, 0, 1),
		Valence:    a.Valence,
		Arousal:    a.Arousal,
		DetectedAt: at,
	}
}

// Clamp bounds v into [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
