// Package triage holds the client-side state of one symptom-triage page: the
// session, the analyze → roadmap request pipeline, the view state machine and
// the renderers that turn service responses into display views.
package triage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformedResponse marks a response whose shape could not be used.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrSuperseded is returned when a response landed after a newer request
	// of the same kind was issued; the response is discarded.
	ErrSuperseded = errors.New("response superseded by a newer request")
)

// Identifier is the opaque patient token returned by the analysis call.
// The zero value means no patient is active.
type Identifier string

// UnmarshalJSON accepts both JSON strings and numbers.
func (id *Identifier) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = Identifier(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("patient_id must be a string or number: %w", err)
	}
	*id = Identifier(n.String())
	return nil
}

// PatientInput is captured from the form at submit time.
type PatientInput struct {
	Name        string `json:"name"`
	Age         string `json:"age"`
	Sex         string `json:"sex"`
	SymptomsRaw string `json:"symptoms_raw"`
}

// AnalysisResult is one ranked candidate condition.
type AnalysisResult struct {
	Name           string   `json:"name"`
	Probability    int      `json:"probability"`
	Explanation    string   `json:"explanation"`
	SuggestedTests []string `json:"suggested_tests"`
}

// Roadmap is the care guidance for a selected condition. A nil category means
// the service has no data for it.
type Roadmap struct {
	Medication []string `json:"medication"`
	Lifestyle  []string `json:"lifestyle"`
	Monitoring []string `json:"monitoring"`
	Diet       []string `json:"diet"`
}

type AnalyzeRequest struct {
	Name     string   `json:"name"`
	Age      string   `json:"age"`
	Sex      string   `json:"sex"`
	Symptoms []string `json:"symptoms"`
}

type AnalyzeResponse struct {
	PatientID Identifier       `json:"patient_id"`
	Results   []AnalysisResult `json:"results"`
}

type RoadmapRequest struct {
	Disease   string     `json:"disease"`
	PatientID Identifier `json:"patient_id"`
}

type RoadmapResponse struct {
	Roadmap *Roadmap `json:"roadmap"`
}

// Backend is the remote analysis/roadmap collaborator.
type Backend interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (AnalyzeResponse, error)
	Roadmap(ctx context.Context, req RoadmapRequest) (RoadmapResponse, error)
}
