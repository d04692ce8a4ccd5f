// Package anatomy maps entered symptoms to the fill colors of the body diagram.
//
// The mapping is a cosmetic keyword heuristic. It has no bearing on the ranked
// conditions returned by the analysis service and must not be shown as a
// diagnostic signal.
package anatomy

import "strings"

// Fill is a CSS color applied to one region of the diagram.
type Fill string

const (
	Neutral  Fill = "#e9ecef"
	Warning  Fill = "#ffc107"
	Critical Fill = "#dc3545"
)

// State is the fill of every highlighted region.
type State struct {
	Head  Fill `json:"head"`
	Torso Fill `json:"torso"`
}

var (
	headKeywords     = []string{"head", "migraine", "vision"}
	headEscalation   = []string{"severe", "blindness"}
	torsoKeywords    = []string{"chest", "heart", "stomach", "abdominal"}
	torsoEscalations = [][]string{{"pain", "chest"}}
)

// Initial is the diagram before any analysis.
func Initial() State {
	return State{Head: Neutral, Torso: Neutral}
}

// Highlight matches keywords against all symptoms joined into one lowercase
// string, so a keyword pair may be split across two entries.
func Highlight(symptoms []string) State {
	s := strings.ToLower(strings.Join(symptoms, " "))
	state := Initial()

	if containsAny(s, headKeywords) {
		state.Head = Warning
	}
	// Escalation does not require the baseline keywords.
	if containsAny(s, headEscalation) {
		state.Head = Critical
	}

	if containsAny(s, torsoKeywords) {
		state.Torso = Warning
	}
	for _, all := range torsoEscalations {
		if containsAll(s, all) {
			state.Torso = Critical
		}
	}
	return state
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func containsAll(s string, keywords []string) bool {
	for _, k := range keywords {
		if !strings.Contains(s, k) {
			return false
		}
	}
	return true
}
