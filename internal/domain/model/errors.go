package model

import "errors"

// Sentinel error kinds for the domain. Callers match them with errors.Is.
var (
	// ErrMalformedRecord marks input that cannot be segmented; it fails the whole batch.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrMalformedPeriod marks a labeled period row that violates start <= end.
	ErrMalformedPeriod = errors.New("malformed period")
)
