// Package types contains the JSON shapes exchanged over the HTTP API and
// their conversions to domain models.
package types

import (
	"fmt"

	"github.com/okian/eras/internal/domain/join"
	"github.com/okian/eras/internal/domain/model"
)

// Record is a participation record as accepted by the API. Year is a
// pointer so that a missing year can be told apart from year zero.
type Record struct {
	EntityCode string `json:"entity_code"`
	Year       *int   `json:"year"`
	RegionHint string `json:"region_hint,omitempty"`
	AthleteID  string `json:"athlete_id,omitempty"`
	Medal      string `json:"medal,omitempty"`
}

// Model converts r, failing with model.ErrMalformedRecord when the code or
// the year is missing.
func (r Record) Model() (model.ParticipationRecord, error) {
	m := model.ParticipationRecord{
		EntityCode: r.EntityCode,
		RegionHint: r.RegionHint,
		AthleteID:  r.AthleteID,
		Medal:      r.Medal,
	}
	if err := m.Validate(); err != nil {
		return model.ParticipationRecord{}, err
	}
	if r.Year == nil {
		return model.ParticipationRecord{}, fmt.Errorf("%w: missing year", model.ErrMalformedRecord)
	}
	m.Year = *r.Year
	return m, nil
}

// Records converts a batch; the first malformed record fails it.
func Records(in []Record) ([]model.ParticipationRecord, error) {
	out := make([]model.ParticipationRecord, len(in))
	for i, r := range in {
		m, err := r.Model()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out[i] = m
	}
	return out, nil
}

// Period is the wire shape of a period; Label is set for labeled periods.
type Period struct {
	EntityCode string `json:"entity_code"`
	RegionHint string `json:"region_hint"`
	StartYear  int    `json:"start_year"`
	EndYear    int    `json:"end_year"`
	Label      string `json:"label,omitempty"`
}

// FromPeriods converts extracted periods.
func FromPeriods(in []model.Period) []Period {
	out := make([]Period, len(in))
	for i, p := range in {
		out[i] = Period{EntityCode: p.EntityCode, RegionHint: p.RegionHint, StartYear: p.StartYear, EndYear: p.EndYear}
	}
	return out
}

// FromLabeled converts labeled periods.
func FromLabeled(in []model.LabeledPeriod) []Period {
	out := make([]Period, len(in))
	for i, p := range in {
		out[i] = Period{
			EntityCode: p.EntityCode,
			RegionHint: p.RegionHint,
			StartYear:  p.StartYear,
			EndYear:    p.EndYear,
			Label:      p.Label,
		}
	}
	return out
}

// AnnotatedRecord is a record with its resolved label.
type AnnotatedRecord struct {
	EntityCode string `json:"entity_code"`
	Year       int    `json:"year"`
	RegionHint string `json:"region_hint,omitempty"`
	AthleteID  string `json:"athlete_id,omitempty"`
	Medal      string `json:"medal,omitempty"`
	Label      string `json:"label"`
}

// FromAnnotated converts annotated records.
func FromAnnotated(in []model.AnnotatedRecord) []AnnotatedRecord {
	out := make([]AnnotatedRecord, len(in))
	for i, r := range in {
		out[i] = AnnotatedRecord{
			EntityCode: r.EntityCode,
			Year:       r.Year,
			RegionHint: r.RegionHint,
			AthleteID:  r.AthleteID,
			Medal:      r.Medal,
			Label:      r.Label,
		}
	}
	return out
}

// Extraction is the response of POST /periods/extract.
type Extraction struct {
	RunID       string   `json:"run_id,omitempty"`
	Fingerprint string   `json:"fingerprint"`
	Cached      bool     `json:"cached"`
	Periods     []Period `json:"periods"`
}

// FromExtraction converts an extraction result.
func FromExtraction(e model.Extraction) Extraction {
	return Extraction{
		RunID:       e.RunID,
		Fingerprint: e.Fingerprint,
		Cached:      e.Cached,
		Periods:     FromPeriods(e.Periods),
	}
}

// Annotation is the response of POST /annotate.
type Annotation struct {
	Records   []AnnotatedRecord `json:"records"`
	Total     int               `json:"total"`
	Unknown   int               `json:"unknown"`
	Ambiguous int               `json:"ambiguous"`
}

// FromAnnotation converts annotate output and its summary.
func FromAnnotation(records []model.AnnotatedRecord, sum join.Summary) Annotation {
	return Annotation{
		Records:   FromAnnotated(records),
		Total:     sum.Total,
		Unknown:   sum.Unknown,
		Ambiguous: sum.Ambiguous,
	}
}

// LabelResult is the response of GET /label.
type LabelResult struct {
	Code      string `json:"code"`
	Year      int    `json:"year"`
	Label     string `json:"label"`
	Found     bool   `json:"found"`
	Ambiguous bool   `json:"ambiguous"`
}
