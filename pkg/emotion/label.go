package emotion

import "strings"

// Label is one of the fixed emotion categories.
type Label string

const (
	Happy      Label = "happy"
	Sad        Label = "sad"
	Angry      Label = "angry"
	Anxious    Label = "anxious"
	Neutral    Label = "neutral"
	Excited    Label = "excited"
	Confused   Label = "confused"
	Frustrated Label = "frustrated"
)

// Labels returns the closed category set in canonical order.
func Labels() []Label {
	return []Label{Happy, Sad, Angry, Anxious, Neutral, Excited, Confused, Frustrated}
}

// Valid reports whether l is one of the known categories.
func Valid(l Label) bool {
	switch l {
	case Happy, Sad, Angry, Anxious, Neutral, Excited, Confused, Frustrated:
		return true
	}
	return false
}

// Normalize lowercases and trims a raw label string; anything outside the
// category set collapses to neutral.
func Normalize(raw string) Label {
	l := Label(strings.ToLower(strings.TrimSpace(raw)))
	if !Valid(l) {
		return Neutral
	}
	return l
}

// Negative reports whether l belongs to the sustained-negative set used
// for escalation.
func Negative(l Label) bool {
	switch l {
	case Sad, Frustrated, Angry, Anxious:
		return true
	}
	return false
}

// CategoriesString returns the category names joined for prompt building.
func CategoriesString() string {
	out := make([]string, 0, len(Labels()))
	for _, l := range Labels() {
		out = append(out, string(l))
	}
	return strings.Join(out, ", ")
}
