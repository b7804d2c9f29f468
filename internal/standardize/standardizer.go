// Package standardize maps free-text labels onto the canonical taxonomy
// using fuzzy string similarity. The classifier is prompted to choose
// from the taxonomy but is not constrained to it, so near-miss labels
// are resolved by exact match first and a thresholded fuzzy match
// second. Anything below the threshold becomes the fallback category.
package standardize

import (
	"log/slog"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/ltnam/categorize/internal/core/taxonomy"
	"github.com/ltnam/categorize/internal/pipeline/metrics"
)

// Standardizer resolves arbitrary label strings to canonical categories.
// Standardize is a total function: an unmatched label resolves to the
// fallback category rather than failing.
type Standardizer struct {
	categories []string
	threshold  int
}

// New creates a standardizer over the given canonical categories.
// threshold is the minimum similarity ratio (0-100) for a fuzzy match.
func New(categories []string, threshold int) *Standardizer {
	return &Standardizer{categories: categories, threshold: threshold}
}

// Standardize returns the canonical category nearest to label, or the
// fallback category when nothing scores at or above the threshold.
// Exact matches short-circuit fuzzy scoring. Ties on the maximum ratio
// resolve to the first category in taxonomy order.
func (s *Standardizer) Standardize(label string) string {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		metrics.FallbackTotal.WithLabelValues("standardize").Inc()
		return taxonomy.Fallback
	}

	if taxonomy.Contains(s.categories, trimmed) {
		return trimmed
	}

	best := ""
	bestScore := -1
	for _, c := range s.categories {
		// Strict > keeps the first maximal entry on ties.
		if score := fuzzy.Ratio(trimmed, c); score > bestScore {
			best, bestScore = c, score
		}
	}

	if bestScore >= s.threshold {
		slog.Debug("fuzzy-matched category",
			"label", trimmed, "category", best, "ratio", bestScore)
		return best
	}

	metrics.FallbackTotal.WithLabelValues("standardize").Inc()
	slog.Warn("could not standardize category, using fallback",
		"label", trimmed, "best_ratio", bestScore, "fallback", taxonomy.Fallback)
	return taxonomy.Fallback
}
