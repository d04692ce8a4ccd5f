package triage

import "fmt"

// NoDataPlaceholder stands in for a roadmap category the service left out.
const NoDataPlaceholder = "No specific data available."

// RoadmapCategory is one titled list of roadmap items.
type RoadmapCategory struct {
	Title       string
	Items       []string
	Placeholder bool
}

// RoadmapView is the locked-in condition with its care guidance.
type RoadmapView struct {
	Disease    string
	Medication RoadmapCategory
	Lifestyle  RoadmapCategory
	Monitoring RoadmapCategory
	Summary    string
}

// Categories returns the rendered categories in display order.
func (v RoadmapView) Categories() []RoadmapCategory {
	return []RoadmapCategory{v.Medication, v.Lifestyle, v.Monitoring}
}

// PatientSummary is the name and age shown above a roadmap.
type PatientSummary struct {
	Name string
	Age  string
}

func (p PatientSummary) String() string {
	return fmt.Sprintf("%s, %sy", p.Name, p.Age)
}

// RenderRoadmap builds the roadmap view. Each category falls back to the
// placeholder on its own; a present but empty list renders no items.
func RenderRoadmap(disease string, roadmap Roadmap, summary PatientSummary) RoadmapView {
	return RoadmapView{
		Disease:    disease,
		Medication: fillCategory("Medication", roadmap.Medication),
		Lifestyle:  fillCategory("Lifestyle", roadmap.Lifestyle),
		Monitoring: fillCategory("Monitoring", roadmap.Monitoring),
		Summary:    summary.String(),
	}
}

func fillCategory(title string, items []string) RoadmapCategory {
	if items == nil {
		return RoadmapCategory{Title: title, Items: []string{NoDataPlaceholder}, Placeholder: true}
	}
	out := make([]string, len(items))
	copy(out, items)
	return RoadmapCategory{Title: title, Items: out}
}
