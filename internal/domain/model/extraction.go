package model

// Extraction is the outcome of one period extraction batch.
type Extraction struct {
	RunID       string // empty when no repository is attached
	Fingerprint string
	Periods     []Period
	Cached      bool
}
