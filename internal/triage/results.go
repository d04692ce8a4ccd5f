package triage

import (
	"fmt"
	"strings"
)

// NoMatchMessage is shown in place of cards when the service ranked nothing.
const NoMatchMessage = "No specific conditions matched. Please assume general viral or consult a specialist."

// SelectAction names the condition a card's select control locks in.
type SelectAction struct {
	Condition string
}

// Card is one rendered candidate condition.
type Card struct {
	Name           string
	Probability    int
	Badge          string
	Emphasis       float64
	Explanation    string
	SuggestedTests string
	Select         SelectAction
}

// ResultsView replaces the whole results area on every render.
type ResultsView struct {
	Cards          []Card
	Message        string
	Visible        bool
	ScrollIntoView bool
	SmoothScroll   bool
}

// Emphasis scales the badge opacity linearly from 0.5 at 0% to 1.0 at 100%.
func Emphasis(probability int) float64 {
	return 0.5 + float64(probability)/200
}

// RenderResults builds the results view in service order. Results are neither
// re-sorted nor deduplicated.
func RenderResults(results []AnalysisResult) ResultsView {
	view := ResultsView{Visible: true, ScrollIntoView: true, SmoothScroll: true}
	if len(results) == 0 {
		view.Message = NoMatchMessage
		return view
	}
	view.Cards = make([]Card, 0, len(results))
	for _, r := range results {
		view.Cards = append(view.Cards, Card{
			Name:           r.Name,
			Probability:    r.Probability,
			Badge:          fmt.Sprintf("%d%% Probable", r.Probability),
			Emphasis:       Emphasis(r.Probability),
			Explanation:    r.Explanation,
			SuggestedTests: strings.Join(r.SuggestedTests, ", "),
			Select:         SelectAction{Condition: r.Name},
		})
	}
	return view
}
