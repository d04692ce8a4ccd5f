// Package symptoms turns the free-text symptom field into a clean token list.
package symptoms

import "strings"

// Parse splits raw on commas, trims every piece and drops the empty ones.
// Input order is preserved.
func Parse(raw string) []string {
	out := []string{}
	for _, piece := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(piece)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
