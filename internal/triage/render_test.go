package triage

import (
	"math"
	"reflect"
	"testing"
)

func TestRenderResultsEmpty(t *testing.T) {
	view := RenderResults(nil)
	if len(view.Cards) != 0 {
		t.Fatalf("expected no cards, got %d", len(view.Cards))
	}
	if view.Message != NoMatchMessage {
		t.Fatalf("unexpected message %q", view.Message)
	}
	if !view.Visible || !view.ScrollIntoView || !view.SmoothScroll {
		t.Fatalf("expected visible results area scrolled into view, got %+v", view)
	}
}

func TestRenderResultsKeepsOrderAndDuplicates(t *testing.T) {
	results := []AnalysisResult{
		{Name: "Angina", Probability: 20, Explanation: "cardiac", SuggestedTests: []string{"ECG", "Stress Test"}},
		{Name: "GERD", Probability: 35, Explanation: "reflux", SuggestedTests: []string{"Upper Endoscopy"}},
		{Name: "Angina", Probability: 20},
	}
	view := RenderResults(results)
	if view.Message != "" {
		t.Fatalf("expected no message, got %q", view.Message)
	}
	if len(view.Cards) != 3 {
		t.Fatalf("expected 3 cards, got %d", len(view.Cards))
	}
	names := []string{view.Cards[0].Name, view.Cards[1].Name, view.Cards[2].Name}
	if !reflect.DeepEqual(names, []string{"Angina", "GERD", "Angina"}) {
		t.Fatalf("cards out of input order: %v", names)
	}
	first := view.Cards[0]
	if first.Badge != "20% Probable" {
		t.Fatalf("unexpected badge %q", first.Badge)
	}
	if first.SuggestedTests != "ECG, Stress Test" {
		t.Fatalf("unexpected tests %q", first.SuggestedTests)
	}
	if first.Select.Condition != "Angina" {
		t.Fatalf("select action should name the condition, got %+v", first.Select)
	}
	if view.Cards[2].SuggestedTests != "" {
		t.Fatalf("nil tests should join to empty, got %q", view.Cards[2].SuggestedTests)
	}
}

func TestEmphasis(t *testing.T) {
	cases := map[int]float64{0: 0.5, 100: 1.0, 72: 0.86, 50: 0.75}
	for p, want := range cases {
		if got := Emphasis(p); math.Abs(got-want) > 1e-9 {
			t.Fatalf("Emphasis(%d) = %v, want %v", p, got, want)
		}
	}
}

func TestRenderRoadmapPerCategoryPlaceholder(t *testing.T) {
	roadmap := Roadmap{
		Lifestyle:  []string{"Rest", "Hydration"},
		Monitoring: []string{"Headache diary"},
	}
	view := RenderRoadmap("Migraine", roadmap, PatientSummary{Name: "Jane", Age: "30"})
	if view.Disease != "Migraine" {
		t.Fatalf("unexpected disease %q", view.Disease)
	}
	if !view.Medication.Placeholder || !reflect.DeepEqual(view.Medication.Items, []string{NoDataPlaceholder}) {
		t.Fatalf("expected placeholder for medication, got %+v", view.Medication)
	}
	if view.Lifestyle.Placeholder || !reflect.DeepEqual(view.Lifestyle.Items, []string{"Rest", "Hydration"}) {
		t.Fatalf("unexpected lifestyle %+v", view.Lifestyle)
	}
	if view.Monitoring.Placeholder || len(view.Monitoring.Items) != 1 {
		t.Fatalf("unexpected monitoring %+v", view.Monitoring)
	}
	if view.Summary != "Jane, 30y" {
		t.Fatalf("unexpected summary %q", view.Summary)
	}
	if got := len(view.Categories()); got != 3 {
		t.Fatalf("expected 3 categories, got %d", got)
	}
}

func TestRenderRoadmapEmptyListIsNotAbsent(t *testing.T) {
	view := RenderRoadmap("Common Cold", Roadmap{Medication: []string{}}, PatientSummary{})
	if view.Medication.Placeholder || len(view.Medication.Items) != 0 {
		t.Fatalf("present empty list should render no items, got %+v", view.Medication)
	}
	if !view.Lifestyle.Placeholder {
		t.Fatalf("absent lifestyle should render placeholder, got %+v", view.Lifestyle)
	}
}

func TestRoadmapCategoriesInDisplayOrder(t *testing.T) {
	view := RenderRoadmap("GERD", Roadmap{Medication: []string{"PPIs"}}, PatientSummary{})
	want := []RoadmapCategory{
		{Title: "Medication", Items: []string{"PPIs"}},
		{Title: "Lifestyle", Items: []string{NoDataPlaceholder}, Placeholder: true},
		{Title: "Monitoring", Items: []string{NoDataPlaceholder}, Placeholder: true},
	}
	if got := view.Categories(); !reflect.DeepEqual(got, want) {
		t.Fatalf("categories = %+v, want %+v", got, want)
	}
	if n := failureNotice(OpRoadmap, ErrMalformedResponse); n.Category != CategoryResponse {
		t.Fatalf("unexpected notice category %q", n.Category)
	}
}

func TestRenderSidePanel(t *testing.T) {
	cases := []struct {
		name    string
		results []AnalysisResult
		count   int
		want    SidePanelView
	}{
		{"no results", nil, 2, SidePanelView{SymptomCount: "2 Symptoms", Confidence: "--"}},
		{"moderate", []AnalysisResult{{Probability: 41}, {Probability: 10}}, 3, SidePanelView{SymptomCount: "3 Symptoms", Confidence: "Moderate", ConfidenceTone: ToneEmphasized}},
		{"boundary is low", []AnalysisResult{{Probability: 40}}, 1, SidePanelView{SymptomCount: "1 Symptoms", Confidence: "Low", ConfidenceTone: ToneMuted}},
		{"only first result counts", []AnalysisResult{{Probability: 12}, {Probability: 90}}, 0, SidePanelView{SymptomCount: "0 Symptoms", Confidence: "Low", ConfidenceTone: ToneMuted}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RenderSidePanel(tc.results, tc.count); got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}
