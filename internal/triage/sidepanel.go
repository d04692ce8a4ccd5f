package triage

import "fmt"

// Tone is the visual weight of the confidence label.
type Tone string

const (
	ToneNone       Tone = ""
	ToneEmphasized Tone = "emphasized"
	ToneMuted      Tone = "muted"
)

const moderateConfidenceAbove = 40

// SidePanelView is the summary shown next to the form.
type SidePanelView struct {
	SymptomCount   string
	Confidence     string
	ConfidenceTone Tone
}

// InitialSidePanel is the panel before any analysis.
func InitialSidePanel() SidePanelView {
	return SidePanelView{SymptomCount: "0 Symptoms", Confidence: "--"}
}

// RenderSidePanel labels confidence from the top-ranked result only.
func RenderSidePanel(results []AnalysisResult, symptomCount int) SidePanelView {
	view := SidePanelView{SymptomCount: fmt.Sprintf("%d Symptoms", symptomCount)}
	if len(results) == 0 {
		view.Confidence = "--"
		return view
	}
	if results[0].Probability > moderateConfidenceAbove {
		view.Confidence = "Moderate"
		view.ConfidenceTone = ToneEmphasized
	} else {
		view.Confidence = "Low"
		view.ConfidenceTone = ToneMuted
	}
	return view
}
