// Package efficiency reduces annotated participation records to medal
// efficiency tables per label and per label-year.
package efficiency

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/okian/eras/internal/domain/model"
)

// ParticipantMode selects how participants are counted.
type ParticipantMode string

// Participant counting modes.
const (
	// ModeEntries counts every record as one participant.
	ModeEntries ParticipantMode = "entries"
	// ModeAthletes counts distinct athlete ids.
	ModeAthletes ParticipantMode = "athletes"
)

// DefaultMedalPoints weights bronze 1, silver 2 and gold 3.
func DefaultMedalPoints() map[string]float64 {
	return map[string]float64{"Bronze": 1, "Silver": 2, "Gold": 3}
}

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithMedalPointsFromConfig sets medal weights from a configuration map.
// Non-positive weights are dropped; an empty map keeps the defaults.
func WithMedalPointsFromConfig(points map[string]float64) Option {
	return func(c *Calculator) {
		weights := make(map[string]float64)
		for medal, w := range points {
			if w > 0 {
				weights[medal] = w
			}
		}
		if len(weights) > 0 {
			c.points = weights
		}
	}
}

// WithParticipantMode sets the participant counting mode.
func WithParticipantMode(mode ParticipantMode) Option {
	return func(c *Calculator) {
		switch mode {
		case ModeEntries, ModeAthletes:
			c.mode = mode
		}
	}
}

// WithZeroMedalRows keeps labels and label-years that won no medal. By
// default they are left out of both tables.
func WithZeroMedalRows(keep bool) Option {
	return func(c *Calculator) { c.keepZero = keep }
}

// Calculator aggregates annotated records.
type Calculator struct {
	points   map[string]float64
	mode     ParticipantMode
	keepZero bool
}

// NewCalculator creates a calculator with configuration options.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		points: DefaultMedalPoints(),
		mode:   ModeEntries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// KeepsZeroMedalRows reports whether medal-less rows are reported.
func (c *Calculator) KeepsZeroMedalRows() bool { return c.keepZero }

// Mode returns the participant counting mode.
func (c *Calculator) Mode() ParticipantMode { return c.mode }

// Points returns the weight of a medal. Unknown or empty medals score zero.
func (c *Calculator) Points(medal string) float64 {
	return c.points[medal]
}

// LabelSummary aggregates all years of one label.
type LabelSummary struct {
	Label        string
	Participants int
	Medals       int
	MedalPoints  float64
	Efficiency   float64 // medal points per participant
}

// YearSummary aggregates one label in one year.
type YearSummary struct {
	Label            string
	Year             int
	Participants     int
	Medals           int
	CumulativeMedals int
	MedalPoints      float64
	Efficiency       float64
}

// Report is the result of an aggregation pass.
type Report struct {
	ByLabel []LabelSummary
	ByYear  []YearSummary
}

type acc struct {
	entries  int
	athletes map[string]struct{}
	medals   int
	points   float64
}

func (a *acc) add(r model.AnnotatedRecord, points float64) {
	a.entries++
	if r.AthleteID != "" {
		a.athletes[r.AthleteID] = struct{}{}
	} else {
		// Rows without an id cannot be deduplicated.
		a.athletes[fmt.Sprintf("#%d", a.entries)] = struct{}{}
	}
	if r.Medal != "" {
		a.medals++
		a.points += points
	}
}

func (c *Calculator) participants(a *acc) int {
	if c.mode == ModeAthletes {
		return len(a.athletes)
	}
	return a.entries
}

type yearKey struct {
	label string
	year  int
}

// Summarize aggregates records. Records labeled model.UnknownLabel are
// excluded before any metric is computed. Rows without a medal are dropped
// unless WithZeroMedalRows(true) is set; participants of a dropped
// label-year still count towards their label.
func (c *Calculator) Summarize(ctx context.Context, records []model.AnnotatedRecord) (Report, error) {
	byLabel := make(map[string]*acc)
	byYear := make(map[yearKey]*acc)

	for i, r := range records {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return Report{}, fmt.Errorf("summarize cancelled: %w", err)
			}
		}
		if !r.Known() {
			continue
		}
		pts := c.Points(r.Medal)

		la, ok := byLabel[r.Label]
		if !ok {
			la = &acc{athletes: make(map[string]struct{})}
			byLabel[r.Label] = la
		}
		la.add(r, pts)

		k := yearKey{label: r.Label, year: r.Year}
		ya, ok := byYear[k]
		if !ok {
			ya = &acc{athletes: make(map[string]struct{})}
			byYear[k] = ya
		}
		ya.add(r, pts)
	}

	var rep Report
	for label, a := range byLabel {
		if a.medals == 0 && !c.keepZero {
			continue
		}
		n := c.participants(a)
		rep.ByLabel = append(rep.ByLabel, LabelSummary{
			Label:        label,
			Participants: n,
			Medals:       a.medals,
			MedalPoints:  a.points,
			Efficiency:   a.points / float64(n),
		})
	}
	slices.SortFunc(rep.ByLabel, func(a, b LabelSummary) int { return cmp.Compare(a.Label, b.Label) })

	for k, a := range byYear {
		if a.medals == 0 && !c.keepZero {
			continue
		}
		n := c.participants(a)
		rep.ByYear = append(rep.ByYear, YearSummary{
			Label:        k.label,
			Year:         k.year,
			Participants: n,
			Medals:       a.medals,
			MedalPoints:  a.points,
			Efficiency:   a.points / float64(n),
		})
	}
	slices.SortFunc(rep.ByYear, func(a, b YearSummary) int {
		return cmp.Or(cmp.Compare(a.Label, b.Label), cmp.Compare(a.Year, b.Year))
	})

	running := 0
	for i := range rep.ByYear {
		if i == 0 || rep.ByYear[i].Label != rep.ByYear[i-1].Label {
			running = 0
		}
		running += rep.ByYear[i].Medals
		rep.ByYear[i].CumulativeMedals = running
	}

	return rep, nil
}
