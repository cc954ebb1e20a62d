package domain

// ContentFilterResult is the verdict for one canonical safety category.
type ContentFilterResult struct {
	Filtered bool    `json:"filtered"`
	Score    float64 `json:"score"`
}

// ContentFilterResults carries all four canonical categories. It is always
// fully populated, so consumers never null-check a category.
type ContentFilterResults struct {
	Harmful ContentFilterResult `json:"harmful"`
	Hateful ContentFilterResult `json:"hateful"`
	Sexual  ContentFilterResult `json:"sexual"`
	Toxic   ContentFilterResult `json:"toxic"`
}

// AnyFiltered reports whether any category carries a blocking verdict.
func (r ContentFilterResults) AnyFiltered() bool {
	return r.Harmful.Filtered || r.Hateful.Filtered || r.Sexual.Filtered || r.Toxic.Filtered
}

// Scores flattens the per-category scores for the API response.
func (r ContentFilterResults) Scores() GuardrailsScores {
	return GuardrailsScores{
		Harmful: r.Harmful.Score,
		Hateful: r.Hateful.Score,
		Sexual:  r.Sexual.Score,
		Toxic:   r.Toxic.Score,
	}
}

// GuardrailsScores is the per-category score block echoed to the caller.
type GuardrailsScores struct {
	Harmful float64 `json:"harmful"`
	Hateful float64 `json:"hateful"`
	Sexual  float64 `json:"sexual"`
	Toxic   float64 `json:"toxic"`
}

// GuardrailsOutcome is the Safety Gate result for one screened text. When
// Error is set the classifier was unavailable: every score is zero and no
// category is filtered, so screening fails open.
type GuardrailsOutcome struct {
	ContentFilterResults ContentFilterResults `json:"contentFilterResults"`
	Error                string               `json:"error,omitempty"`
}
