package triage

import (
	"encoding/json"
	"testing"
)

func TestViewTransitions(t *testing.T) {
	cases := []struct {
		from   View
		event  Event
		to     View
		scroll bool
	}{
		{ViewAnalysis, EventRoadmapLoaded, ViewRoadmap, true},
		{ViewRoadmap, EventBack, ViewAnalysis, false},
		{ViewAnalysis, EventBack, ViewAnalysis, false},
		{ViewRoadmap, EventRoadmapLoaded, ViewRoadmap, true},
	}
	for _, tc := range cases {
		tr, ok := tc.from.Next(tc.event)
		if !ok {
			t.Fatalf("%s on %d rejected", tc.from, tc.event)
		}
		if tr.To != tc.to || tr.ScrollTop != tc.scroll || tr.From != tc.from {
			t.Fatalf("%s on %d = %+v, want to=%s scroll=%v", tc.from, tc.event, tr, tc.to, tc.scroll)
		}
	}
	if _, ok := View(9).Next(EventBack); ok {
		t.Fatal("unknown view should reject events")
	}
}

func TestNewSession(t *testing.T) {
	s := NewSession()
	if s.View() != ViewAnalysis {
		t.Fatalf("expected analysis view, got %s", s.View())
	}
	if s.HasPatient() {
		t.Fatal("new session should have no patient")
	}
}

func TestIdentifierDecoding(t *testing.T) {
	cases := map[string]Identifier{
		`{"patient_id":"abc-1"}`: "abc-1",
		`{"patient_id":42}`:      "42",
		`{"patient_id":null}`:    "",
		`{}`:                     "",
	}
	for raw, want := range cases {
		var resp AnalyzeResponse
		if err := json.Unmarshal([]byte(raw), &resp); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
		if resp.PatientID != want {
			t.Fatalf("decode %s: got %q want %q", raw, resp.PatientID, want)
		}
	}
	var resp AnalyzeResponse
	if err := json.Unmarshal([]byte(`{"patient_id":true}`), &resp); err == nil {
		t.Fatal("expected error for boolean patient_id")
	}
}

func TestRoadmapRequestEncodesIdentifierAsString(t *testing.T) {
	blob, err := json.Marshal(RoadmapRequest{Disease: "GERD", PatientID: "7"})
	if err != nil {
		t.Fatal(err)
	}
	if string(blob) != `{"disease":"GERD","patient_id":"7"}` {
		t.Fatalf("unexpected body %s", blob)
	}
}
