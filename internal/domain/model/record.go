// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// UnknownLabel is assigned to records whose code and year fall outside every
// labeled period.
const UnknownLabel = "Unknown"

// ParticipationRecord is one observed participation event, e.g. one
// athlete entry at one edition of the games.
type ParticipationRecord struct {
	EntityCode string // national/organisational code, e.g. "GER"
	Year       int    // participation year
	RegionHint string // free-form region or country name

	// Carried through untouched for downstream aggregation.
	AthleteID string
	Medal     string // "Gold", "Silver", "Bronze" or empty
}

// Validate reports whether the record can take part in segmentation.
func (r ParticipationRecord) Validate() error {
	if strings.TrimSpace(r.EntityCode) == "" {
		return fmt.Errorf("%w: missing entity code", ErrMalformedRecord)
	}
	return nil
}

// AnnotatedRecord is a ParticipationRecord with its resolved label.
type AnnotatedRecord struct {
	ParticipationRecord
	Label string
}

// Known reports whether the record resolved to a labeled period.
func (a AnnotatedRecord) Known() bool {
	return a.Label != UnknownLabel
}

// ApplyRegions fills empty region hints from a code -> region directory.
// The input slice is not modified.
func ApplyRegions(records []ParticipationRecord, regions map[string]string) []ParticipationRecord {
	out := make([]ParticipationRecord, len(records))
	for i, r := range records {
		if r.RegionHint == "" {
			if region, ok := regions[r.EntityCode]; ok {
				r.RegionHint = region
			}
		}
		out[i] = r
	}
	return out
}
