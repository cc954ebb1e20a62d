package guardrails

import (
	"strings"

	"github.com/guardchat/orchestrator/domain"
)

// Classifier category names and the blocking policy action.
const (
	categoryHate     = "HATE"
	categorySexual   = "SEXUAL"
	categoryViolence = "VIOLENCE"
	categoryInsults  = "INSULTS"

	actionBlocked = "BLOCKED"
)

// confidenceScore quantizes the classifier's qualitative confidence levels.
// The table is deliberately lossy and its constants are part of the contract.
func confidenceScore(confidence string) float64 {
	switch strings.ToUpper(confidence) {
	case "HIGH":
		return 1.0
	case "MEDIUM":
		return 0.7
	case "LOW":
		return 0.3
	default:
		return 0
	}
}

// normalize folds an arbitrary assessment list into the four canonical
// categories. Categories the classifier never mentions stay zeroed, so the
// result is always fully populated. A category is filtered only when the
// classifier's action for it is BLOCKED; a nonzero score on its own is
// advisory.
func normalize(resp *applyResponse) domain.ContentFilterResults {
	var out domain.ContentFilterResults
	for _, a := range resp.Assessments {
		if a.ContentPolicy == nil {
			continue
		}
		for _, f := range a.ContentPolicy.Filters {
			score := confidenceScore(f.Confidence)
			if f.Score != nil {
				score = *f.Score
			}
			result := domain.ContentFilterResult{
				Filtered: strings.EqualFold(f.Action, actionBlocked),
				Score:    score,
			}
			switch strings.ToUpper(f.Type) {
			case categoryViolence:
				merge(&out.Harmful, result)
			case categoryHate:
				merge(&out.Hateful, result)
			case categorySexual:
				merge(&out.Sexual, result)
			case categoryInsults:
				merge(&out.Toxic, result)
			}
		}
	}
	return out
}

// merge keeps the strongest verdict when a category shows up more than once.
func merge(dst *domain.ContentFilterResult, next domain.ContentFilterResult) {
	if next.Filtered {
		dst.Filtered = true
	}
	if next.Score > dst.Score {
		dst.Score = next.Score
	}
}
