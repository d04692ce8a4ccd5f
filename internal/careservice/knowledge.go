// Package careservice is a reference implementation of the analysis and
// roadmap service the console talks to. It scores a fixed knowledge base of
// conditions against reported symptoms and keeps a visit log per patient.
package careservice

import "github.com/joelkehle/triage-console/internal/triage"

const (
	riskAgeOver45 = "age>45"
	riskFemale    = "female"
)

type Condition struct {
	Name        string
	Symptoms    []string
	BaseProb    float64
	RiskFactors []string
	Explanation string
	Tests       []string
}

// Conditions is scored in this order; ties in the ranking keep it.
var Conditions = []Condition{
	{
		Name:        "GERD",
		Symptoms:    []string{"heartburn", "acid reflux", "chest pain", "regurgitation", "difficulty swallowing"},
		BaseProb:    0.1,
		RiskFactors: []string{"obesity", "smoking"},
		Explanation: "Gastroesophageal Reflux Disease (GERD) is suggested by burning sensation in the chest and regurgitation.",
		Tests:       []string{"Upper Endoscopy", "Esophageal pH monitoring"},
	},
	{
		Name:        "Angina",
		Symptoms:    []string{"chest pain", "shortness of breath", "nausea", "fatigue", "dizziness"},
		BaseProb:    0.05,
		RiskFactors: []string{riskAgeOver45, "hypertension", "high cholesterol"},
		Explanation: "Symptoms overlap with cardiac issues. Chest pain combined with shortage of breath warrants investigation for Angina.",
		Tests:       []string{"ECG", "Stress Test", "Coronary Angiography"},
	},
	{
		Name:        "Common Cold",
		Symptoms:    []string{"runny nose", "sore throat", "cough", "sneezing", "mild fever"},
		BaseProb:    0.2,
		Explanation: "Classic viral upper respiratory symptoms.",
		Tests:       []string{"Physical Exam", "Rapid Strep Test (to rule out strep)"},
	},
	{
		Name:        "Migraine",
		Symptoms:    []string{"headache", "nausea", "sensitivity to light", "sensitivity to sound", "throbbing"},
		BaseProb:    0.1,
		RiskFactors: []string{"family history", riskFemale},
		Explanation: "Unilateral throbbing headache with sensory sensitivity is characteristic of Migraine.",
		Tests:       []string{"MRI (to rule out others)", "Neurological Exam"},
	},
	{
		Name:        "Type 2 Diabetes (Early Warning)",
		Symptoms:    []string{"excessive thirst", "frequent urination", "hunger", "fatigue", "blurred vision"},
		BaseProb:    0.05,
		RiskFactors: []string{"obesity", riskAgeOver45, "sedentary"},
		Explanation: "Polydipsia (thirst) and polyuria (urination) are hallmark signs of high blood sugar.",
		Tests:       []string{"HbA1c", "Fasting Plasma Glucose"},
	},
}

var careRoadmaps = map[string]triage.Roadmap{
	"GERD": {
		Medication: []string{"Antacids", "H2 blockers", "Proton pump inhibitors (PPIs)"},
		Lifestyle:  []string{"Avoid trigger foods (spicy, fatty)", "Eat smaller meals", "Wait 3 hours before lying down"},
		Diet:       []string{"Low-acid foods", "Lean proteins", "Vegetables"},
		Monitoring: []string{"Monitor frequency of heartburn", "Watch for difficulty swallowing"},
	},
	"Angina": {
		Medication: []string{"Nitrates", "Aspirin", "Beta-blockers", "Statins"},
		Lifestyle:  []string{"Stop smoking", "Stress management", "Cardiac rehabilitation"},
		Diet:       []string{"Heart-healthy diet (low saturated fat, low sodium)"},
		Monitoring: []string{"Blood pressure reading", "Lipid profile check"},
	},
	"Common Cold": {
		Medication: []string{"Pain relievers", "Decongestants", "Cough suppressants"},
		Lifestyle:  []string{"Rest", "Hydration"},
		Diet:       []string{"Warm fluids", "Soup"},
		Monitoring: []string{"Monitor fever temperature", "Watch for worsening breath"},
	},
	"Migraine": {
		Medication: []string{"Pain relief", "Triptans", "Anti-nausea meds"},
		Lifestyle:  []string{"Sleep hygiene", "Stress management", "Identify triggers"},
		Diet:       []string{"Magnesium-rich foods", "Hydration"},
		Monitoring: []string{"Headache diary"},
	},
	"Type 2 Diabetes (Early Warning)": {
		Medication: []string{"Metformin (if prescribed)", "Insulin (if advanced)"},
		Lifestyle:  []string{"Weight loss", "Regular exercise (150 mins/week)"},
		Diet:       []string{"Low glycemic index foods", "Portion control"},
		Monitoring: []string{"Daily blood sugar monitoring", "Foot checks"},
	},
}

// RoadmapFor returns the care roadmap for disease. Unknown diseases get an
// empty roadmap with every category absent.
func RoadmapFor(disease string) triage.Roadmap {
	return careRoadmaps[disease]
}
