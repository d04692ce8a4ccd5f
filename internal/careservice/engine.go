package careservice

import (
	"slices"
	"sort"
	"strings"

	"github.com/joelkehle/triage-console/internal/triage"
)

const (
	symptomWeight = 0.15
	riskWeight    = 0.1
	minPercent    = 5
)

// Rank scores every condition against the reported symptoms and returns those
// above the display threshold, most probable first. Scores are normalised over
// all conditions and truncated to whole percents.
func Rank(reported []string, age int, sex string) []triage.AnalysisResult {
	normalized := make([]string, 0, len(reported))
	for _, s := range reported {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		normalized = append(normalized, s)
	}
	female := strings.EqualFold(strings.TrimSpace(sex), riskFemale)

	scores := make([]float64, len(Conditions))
	total := 0.0
	for i, c := range Conditions {
		score := c.BaseProb
		for _, known := range c.Symptoms {
			if matchesAny(known, normalized) {
				score += symptomWeight
			}
		}
		if age > 45 && slices.Contains(c.RiskFactors, riskAgeOver45) {
			score += riskWeight
		}
		if female && slices.Contains(c.RiskFactors, riskFemale) {
			score += riskWeight
		}
		scores[i] = score
		total += score
	}

	results := []triage.AnalysisResult{}
	if total <= 0 {
		return results
	}
	for i, c := range Conditions {
		p := int(scores[i] / total * 100)
		if p <= minPercent {
			continue
		}
		results = append(results, triage.AnalysisResult{
			Name:           c.Name,
			Probability:    p,
			Explanation:    c.Explanation,
			SuggestedTests: slices.Clone(c.Tests),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Probability > results[j].Probability
	})
	return results
}

func matchesAny(known string, reported []string) bool {
	for _, s := range reported {
		if strings.Contains(known, s) || strings.Contains(s, known) {
			return true
		}
	}
	return false
}
