package domain

// Record is one input row presented to the classifier.
// Index is the 0-based row position and is stable identity within a run.
// Fields are trimmed at load; an absent employer or occupation is the
// empty string here and is substituted with an explicit marker when the
// prompt is built.
type Record struct {
	Index      int
	Name       string
	Employer   string
	Occupation string
}

// Result is the outcome of classifying a single record.
// Only Label is persisted. Degraded marks rows where the fallback
// category was substituted for a failure, so callers can observe
// degradation without scraping logs.
type Result struct {
	Label    string
	Degraded bool
	Attempts int
}
