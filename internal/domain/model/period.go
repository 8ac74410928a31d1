package model

import "fmt"

// Period is a maximal gap-tolerant run of participation years for one code.
type Period struct {
	EntityCode string
	RegionHint string
	StartYear  int
	EndYear    int
}

// Contains reports whether year lies within [StartYear, EndYear].
func (p Period) Contains(year int) bool {
	return p.StartYear <= year && year <= p.EndYear
}

// Overlaps reports whether both periods share at least one year.
func (p Period) Overlaps(o Period) bool {
	return p.StartYear <= o.EndYear && o.StartYear <= p.EndYear
}

// Years returns the inclusive length of the period in years.
func (p Period) Years() int {
	return p.EndYear - p.StartYear + 1
}

func (p Period) String() string {
	return fmt.Sprintf("%s[%d-%d]", p.EntityCode, p.StartYear, p.EndYear)
}

// LabeledPeriod is a Period enriched with an externally curated label,
// such as a political-system classification.
type LabeledPeriod struct {
	Period
	Label string
}

// Validate checks the structural invariants of a hand-maintained period row.
func (lp LabeledPeriod) Validate() error {
	if lp.EntityCode == "" {
		return fmt.Errorf("%w: missing entity code", ErrMalformedPeriod)
	}
	if lp.StartYear > lp.EndYear {
		return fmt.Errorf("%w: %s starts after it ends", ErrMalformedPeriod, lp.Period)
	}
	return nil
}

// WithLabel attaches label to every period, keeping order.
func WithLabel(periods []Period, label string) []LabeledPeriod {
	out := make([]LabeledPeriod, len(periods))
	for i, p := range periods {
		out[i] = LabeledPeriod{Period: p, Label: label}
	}
	return out
}
