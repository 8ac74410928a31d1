// Package join attributes participation records to labeled periods.
//
// The Index is built once from a labeled period table and is read-only
// afterwards, so it may be shared by any number of goroutines.
package join

import (
	"cmp"
	"slices"
	"sort"

	"github.com/okian/eras/internal/domain/model"
)

// Match is the outcome of resolving a single code/year pair.
type Match struct {
	Label     string
	Found     bool
	Ambiguous bool // more than one period contains the year
}

// Overlap names two periods of the same code that share at least one year.
// First precedes Second in table order and therefore wins the tie-break.
type Overlap struct {
	First  model.LabeledPeriod
	Second model.LabeledPeriod
}

type codeTable struct {
	ordered     []model.LabeledPeriod // stored table order
	byStart     []model.LabeledPeriod // sorted by StartYear; valid only when !overlapping
	overlapping bool
}

// Index maps entity codes to their labeled periods.
type Index struct {
	codes    map[string]*codeTable
	size     int
	skipped  int
	overlaps []Overlap
}

// NewIndex builds an index from periods. Table order is preserved per code
// and decides ties between overlapping periods. Rows with start > end can
// never match and are left out.
func NewIndex(periods []model.LabeledPeriod) *Index {
	idx := &Index{codes: make(map[string]*codeTable)}
	for _, p := range periods {
		if p.StartYear > p.EndYear {
			idx.skipped++
			continue
		}
		t, ok := idx.codes[p.EntityCode]
		if !ok {
			t = &codeTable{}
			idx.codes[p.EntityCode] = t
		}
		t.ordered = append(t.ordered, p)
		idx.size++
	}

	for _, t := range idx.codes {
		for i := 0; i < len(t.ordered); i++ {
			for j := i + 1; j < len(t.ordered); j++ {
				if t.ordered[i].Overlaps(t.ordered[j].Period) {
					t.overlapping = true
					idx.overlaps = append(idx.overlaps, Overlap{First: t.ordered[i], Second: t.ordered[j]})
				}
			}
		}
		if !t.overlapping {
			t.byStart = slices.Clone(t.ordered)
			slices.SortFunc(t.byStart, func(a, b model.LabeledPeriod) int {
				return cmp.Compare(a.StartYear, b.StartYear)
			})
		}
	}

	slices.SortStableFunc(idx.overlaps, func(a, b Overlap) int {
		return cmp.Compare(a.First.EntityCode, b.First.EntityCode)
	})
	return idx
}

// Resolve finds the label for code at year.
func (idx *Index) Resolve(code string, year int) Match {
	t, ok := idx.codes[code]
	if !ok {
		return Match{Label: model.UnknownLabel}
	}

	if !t.overlapping {
		i := sort.Search(len(t.byStart), func(i int) bool { return t.byStart[i].StartYear > year }) - 1
		if i >= 0 && t.byStart[i].EndYear >= year {
			return Match{Label: t.byStart[i].Label, Found: true}
		}
		return Match{Label: model.UnknownLabel}
	}

	m := Match{Label: model.UnknownLabel}
	for _, p := range t.ordered {
		if !p.Contains(year) {
			continue
		}
		if m.Found {
			m.Ambiguous = true
			break
		}
		m = Match{Label: p.Label, Found: true}
	}
	return m
}

// Label returns the label for code at year, or model.UnknownLabel.
func (idx *Index) Label(code string, year int) string {
	return idx.Resolve(code, year).Label
}

// Periods returns the periods stored for code in table order.
func (idx *Index) Periods(code string) []model.LabeledPeriod {
	t, ok := idx.codes[code]
	if !ok {
		return nil
	}
	return slices.Clone(t.ordered)
}

// Codes returns the indexed entity codes in lexical order.
func (idx *Index) Codes() []string {
	codes := make([]string, 0, len(idx.codes))
	for c := range idx.codes {
		codes = append(codes, c)
	}
	slices.Sort(codes)
	return codes
}

// Size returns the number of indexed periods.
func (idx *Index) Size() int { return idx.size }

// Skipped returns the number of rows left out because start > end.
func (idx *Index) Skipped() int { return idx.skipped }

// Overlaps returns every overlapping pair found at build time.
func (idx *Index) Overlaps() []Overlap { return slices.Clone(idx.overlaps) }

// Summary counts noteworthy outcomes of an annotation pass.
type Summary struct {
	Total     int
	Unknown   int
	Ambiguous int
}

// Add merges another summary into s.
func (s *Summary) Add(o Summary) {
	s.Total += o.Total
	s.Unknown += o.Unknown
	s.Ambiguous += o.Ambiguous
}

// AnnotateInto resolves every record in src and writes the result to the
// same position in dst. dst must be at least as long as src.
func (idx *Index) AnnotateInto(dst []model.AnnotatedRecord, src []model.ParticipationRecord) Summary {
	s := Summary{Total: len(src)}
	for i, r := range src {
		m := idx.Resolve(r.EntityCode, r.Year)
		if !m.Found {
			s.Unknown++
		}
		if m.Ambiguous {
			s.Ambiguous++
		}
		dst[i] = model.AnnotatedRecord{ParticipationRecord: r, Label: m.Label}
	}
	return s
}

// Annotate labels every record. Records are never dropped; unmatched ones
// carry model.UnknownLabel.
func (idx *Index) Annotate(records []model.ParticipationRecord) ([]model.AnnotatedRecord, Summary) {
	out := make([]model.AnnotatedRecord, len(records))
	s := idx.AnnotateInto(out, records)
	return out, s
}

// MatchLinear scans periods in table order and returns the first label whose
// range contains year for code. It is the O(P) reference for Index.
func MatchLinear(periods []model.LabeledPeriod, code string, year int) string {
	for _, p := range periods {
		if p.EntityCode == code && p.Contains(year) {
			return p.Label
		}
	}
	return model.UnknownLabel
}

// FilterKnown drops records labeled model.UnknownLabel, keeping order.
func FilterKnown(records []model.AnnotatedRecord) []model.AnnotatedRecord {
	out := make([]model.AnnotatedRecord, 0, len(records))
	for _, r := range records {
		if r.Known() {
			out = append(out, r)
		}
	}
	return out
}
