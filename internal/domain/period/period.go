// Package period derives contiguous participation eras from sparse yearly
// records.
package period

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/okian/eras/internal/domain/model"
)

// DefaultGapThreshold is one four-year cycle. A larger gap between two
// consecutive participation years starts a new period.
const DefaultGapThreshold = 4

// Option applies a configuration option to the Extractor.
type Option func(*Extractor)

// WithGapThreshold sets the maximum tolerated gap in years. Negative values are ignored.
func WithGapThreshold(years int) Option {
	return func(e *Extractor) {
		if years >= 0 {
			e.gap = years
		}
	}
}

// Extractor segments participation records into periods.
type Extractor struct {
	gap int
}

// NewExtractor creates an extractor with configuration options.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{gap: DefaultGapThreshold}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GapThreshold returns the configured gap threshold.
func (e *Extractor) GapThreshold() int { return e.gap }

// Group is the year sequence of one entity code, sorted ascending.
type Group struct {
	EntityCode string
	RegionHint string
	Years      []int
}

// Groups validates records and partitions them by entity code, in the order
// codes are first encountered. Years are stably sorted; the region hint is
// the one of the first record after sorting.
func Groups(records []model.ParticipationRecord) ([]Group, error) {
	type bucket struct {
		code string
		recs []model.ParticipationRecord
	}

	index := make(map[string]int)
	var buckets []bucket
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		pos, ok := index[r.EntityCode]
		if !ok {
			pos = len(buckets)
			index[r.EntityCode] = pos
			buckets = append(buckets, bucket{code: r.EntityCode})
		}
		buckets[pos].recs = append(buckets[pos].recs, r)
	}

	groups := make([]Group, len(buckets))
	for i, b := range buckets {
		slices.SortStableFunc(b.recs, func(x, y model.ParticipationRecord) int {
			return cmp.Compare(x.Year, y.Year)
		})
		years := make([]int, len(b.recs))
		for j, r := range b.recs {
			years[j] = r.Year
		}
		groups[i] = Group{
			EntityCode: b.code,
			RegionHint: b.recs[0].RegionHint,
			Years:      years,
		}
	}
	return groups, nil
}

// Segment walks one code's sorted years and emits its periods in
// chronological order. An empty sequence yields no periods.
func Segment(code, region string, years []int, gap int) []model.Period {
	if len(years) == 0 {
		return nil
	}
	var out []model.Period
	start, end := years[0], years[0]
	for _, y := range years[1:] {
		if y-end > gap {
			out = append(out, model.Period{EntityCode: code, RegionHint: region, StartYear: start, EndYear: end})
			start = y
		}
		end = y
	}
	return append(out, model.Period{EntityCode: code, RegionHint: region, StartYear: start, EndYear: end})
}

// Segment runs Segment for a single group with the extractor's threshold.
func (e *Extractor) Segment(g Group) []model.Period {
	return Segment(g.EntityCode, g.RegionHint, g.Years, e.gap)
}

// Extract derives all periods from records. A malformed record fails the
// batch and no periods are returned.
func (e *Extractor) Extract(ctx context.Context, records []model.ParticipationRecord) ([]model.Period, error) {
	groups, err := Groups(records)
	if err != nil {
		return nil, err
	}
	var out []model.Period
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("extract cancelled: %w", err)
		}
		out = append(out, e.Segment(g)...)
	}
	return out, nil
}

// SortForPresentation orders periods by region hint, then start year, then
// code. This is a reporting order, not the extractor's output order.
func SortForPresentation(periods []model.Period) {
	slices.SortStableFunc(periods, func(a, b model.Period) int {
		return cmp.Or(
			cmp.Compare(a.RegionHint, b.RegionHint),
			cmp.Compare(a.StartYear, b.StartYear),
			cmp.Compare(a.EntityCode, b.EntityCode),
		)
	})
}
