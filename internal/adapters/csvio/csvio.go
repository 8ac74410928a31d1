// Package csvio reads and writes the CSV files the tool works with:
// participation records, region directories, period tables and
// aggregation results.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/okian/eras/internal/domain/efficiency"
	"github.com/okian/eras/internal/domain/model"
)

var recordColumns = map[string][]string{
	"code":    {"noc", "entity_code", "code"},
	"year":    {"year"},
	"region":  {"region", "region_hint", "country"},
	"athlete": {"id", "athlete_id"},
	"medal":   {"medal"},
}

var periodColumns = map[string][]string{
	"code":   {"noc", "entity_code", "code"},
	"label":  {"system", "label", "political_system"},
	"region": {"country", "region", "region_hint"},
	"start":  {"start_year", "start"},
	"end":    {"end_year", "end"},
}

var regionColumns = map[string][]string{
	"code":   {"noc", "entity_code", "code"},
	"region": {"region", "country"},
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr
}

// readAll walks the rows after the header, passing each row with its
// 1-based line number.
func readAll(r io.Reader, aliases map[string][]string, required []string, fn func(h header, row []string, line int) error) error {
	cr := newReader(r)
	first, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	h := newHeader(first, aliases)
	if err := h.require(required...); err != nil {
		return err
	}

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if err := fn(h, row, line); err != nil {
			return err
		}
	}
}

// parseYear accepts integers and integral floats such as "1952.0".
func parseYear(v string) (int, bool) {
	if n, err := strconv.Atoi(v); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// ReadRecords decodes participation records. A missing or non-integer year
// or an empty code fails the whole file with model.ErrMalformedRecord.
func ReadRecords(r io.Reader) ([]model.ParticipationRecord, error) {
	var out []model.ParticipationRecord
	err := readAll(r, recordColumns, []string{"code", "year"}, func(h header, row []string, line int) error {
		rec := model.ParticipationRecord{
			EntityCode: h.get(row, "code"),
			RegionHint: h.get(row, "region"),
			AthleteID:  h.get(row, "athlete"),
			Medal:      h.get(row, "medal"),
		}
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		y := h.get(row, "year")
		year, ok := parseYear(y)
		if !ok {
			return fmt.Errorf("%w: line %d: invalid year %q", model.ErrMalformedRecord, line, y)
		}
		rec.Year = year
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadLabeledPeriods decodes a curated period table, keeping row order.
func ReadLabeledPeriods(r io.Reader) ([]model.LabeledPeriod, error) {
	var out []model.LabeledPeriod
	err := readAll(r, periodColumns, []string{"code", "label", "start", "end"}, func(h header, row []string, line int) error {
		p := model.LabeledPeriod{
			Period: model.Period{
				EntityCode: h.get(row, "code"),
				RegionHint: h.get(row, "region"),
			},
			Label: h.get(row, "label"),
		}
		var ok bool
		if p.StartYear, ok = parseYear(h.get(row, "start")); !ok {
			return fmt.Errorf("%w: line %d: invalid start year", model.ErrMalformedPeriod, line)
		}
		if p.EndYear, ok = parseYear(h.get(row, "end")); !ok {
			return fmt.Errorf("%w: line %d: invalid end year", model.ErrMalformedPeriod, line)
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadRegions decodes a code -> region directory. The first row wins for
// repeated codes.
func ReadRegions(r io.Reader) (map[string]string, error) {
	out := make(map[string]string)
	err := readAll(r, regionColumns, []string{"code", "region"}, func(h header, row []string, _ int) error {
		code := h.get(row, "code")
		if _, seen := out[code]; code != "" && !seen {
			out[code] = h.get(row, "region")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func writeAll(w io.Writer, head []string, n int, row func(i int) []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(head); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(row(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func itoa(n int) string { return strconv.Itoa(n) }

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// WritePeriods writes NOC, Country, Start_Year, End_Year rows.
func WritePeriods(w io.Writer, periods []model.Period) error {
	return writeAll(w, []string{"NOC", "Country", "Start_Year", "End_Year"}, len(periods), func(i int) []string {
		p := periods[i]
		return []string{p.EntityCode, p.RegionHint, itoa(p.StartYear), itoa(p.EndYear)}
	})
}

// WriteLabeledPeriods writes a period table that ReadLabeledPeriods accepts.
func WriteLabeledPeriods(w io.Writer, periods []model.LabeledPeriod) error {
	return writeAll(w, []string{"NOC", "Country", "System", "Start_Year", "End_Year"}, len(periods), func(i int) []string {
		p := periods[i]
		return []string{p.EntityCode, p.RegionHint, p.Label, itoa(p.StartYear), itoa(p.EndYear)}
	})
}

// WriteAnnotated writes records with their resolved label.
func WriteAnnotated(w io.Writer, records []model.AnnotatedRecord) error {
	return writeAll(w, []string{"ID", "NOC", "region", "Year", "Medal", "Political_System"}, len(records), func(i int) []string {
		r := records[i]
		return []string{r.AthleteID, r.EntityCode, r.RegionHint, itoa(r.Year), r.Medal, r.Label}
	})
}

// WriteEfficiency writes one row per label.
func WriteEfficiency(w io.Writer, rows []efficiency.LabelSummary) error {
	return writeAll(w, []string{"Political_System", "Participants", "Medals", "Medal_Points", "Efficiency"}, len(rows), func(i int) []string {
		r := rows[i]
		return []string{r.Label, itoa(r.Participants), itoa(r.Medals), ftoa(r.MedalPoints), ftoa(r.Efficiency)}
	})
}

// WriteEfficiencyByYear writes one row per label and year.
func WriteEfficiencyByYear(w io.Writer, rows []efficiency.YearSummary) error {
	return writeAll(w, []string{"Political_System", "Year", "Participants", "Medals", "Cumulative_Medals", "Medal_Points", "Efficiency"}, len(rows), func(i int) []string {
		r := rows[i]
		return []string{r.Label, itoa(r.Year), itoa(r.Participants), itoa(r.Medals), itoa(r.CumulativeMedals), ftoa(r.MedalPoints), ftoa(r.Efficiency)}
	})
}
