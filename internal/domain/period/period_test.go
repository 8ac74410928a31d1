package period_test

import (
	"context"
	"errors"
	"math/rand"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/okian/eras/internal/domain/model"
	"github.com/okian/eras/internal/domain/period"
	. "github.com/smartystreets/goconvey/convey"
)

func recs(code string, years ...int) []model.ParticipationRecord {
	out := make([]model.ParticipationRecord, len(years))
	for i, y := range years {
		out[i] = model.ParticipationRecord{EntityCode: code, Year: y, RegionHint: code + "-region"}
	}
	return out
}

func TestExtract(t *testing.T) {
	Convey("Given a default extractor", t, func() {
		ctx := context.Background()
		ex := period.NewExtractor()

		So(ex.GapThreshold(), ShouldEqual, period.DefaultGapThreshold)

		Convey("When URS participates until 1968 and again in 1992", func() {
			got, err := ex.Extract(ctx, recs("URS", 1952, 1956, 1960, 1964, 1968, 1992))

			Convey("Then the 24 year gap splits the history in two periods", func() {
				So(err, ShouldBeNil)
				So(got, ShouldResemble, []model.Period{
					{EntityCode: "URS", RegionHint: "URS-region", StartYear: 1952, EndYear: 1968},
					{EntityCode: "URS", RegionHint: "URS-region", StartYear: 1992, EndYear: 1992},
				})
			})
		})

		Convey("When a code has a single record", func() {
			got, err := ex.Extract(ctx, recs("TAN", 1964))

			Convey("Then it yields one one-year period", func() {
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 1)
				So(got[0].StartYear, ShouldEqual, 1964)
				So(got[0].EndYear, ShouldEqual, 1964)
			})
		})

		Convey("When the input is empty", func() {
			got, err := ex.Extract(ctx, nil)

			Convey("Then no periods are produced and no error is raised", func() {
				So(err, ShouldBeNil)
				So(got, ShouldBeEmpty)
			})
		})

		Convey("When the gap is exactly one cycle", func() {
			got, err := ex.Extract(ctx, recs("FRA", 1900, 1904, 1908))

			Convey("Then the years stay in the same period", func() {
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 1)
				So(got[0].StartYear, ShouldEqual, 1900)
				So(got[0].EndYear, ShouldEqual, 1908)
			})
		})

		Convey("When the gap is one year more than a cycle", func() {
			got, err := ex.Extract(ctx, recs("FRA", 1900, 1905))

			Convey("Then a new period starts", func() {
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 2)
			})
		})

		Convey("When records arrive unsorted with repeated years", func() {
			got, err := ex.Extract(ctx, recs("GER", 1980, 1972, 1976, 1976, 1936, 1972))

			Convey("Then the extractor sorts before segmenting", func() {
				So(err, ShouldBeNil)
				So(got, ShouldResemble, []model.Period{
					{EntityCode: "GER", RegionHint: "GER-region", StartYear: 1936, EndYear: 1936},
					{EntityCode: "GER", RegionHint: "GER-region", StartYear: 1972, EndYear: 1980},
				})
			})
		})

		Convey("When several codes are interleaved", func() {
			in := append(recs("SWE", 1912), recs("NOR", 1920)...)
			in = append(in, recs("SWE", 1908, 1960)...)
			got, err := ex.Extract(ctx, in)

			Convey("Then codes keep first-encounter order and periods are chronological", func() {
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 3)
				So(got[0].EntityCode, ShouldEqual, "SWE")
				So(got[0].StartYear, ShouldEqual, 1908)
				So(got[0].EndYear, ShouldEqual, 1912)
				So(got[1].EntityCode, ShouldEqual, "SWE")
				So(got[1].StartYear, ShouldEqual, 1960)
				So(got[2].EntityCode, ShouldEqual, "NOR")
			})
		})

		Convey("When a record misses its code", func() {
			in := recs("ITA", 1960, 1964)
			in = append(in, model.ParticipationRecord{Year: 1968})
			got, err := ex.Extract(ctx, in)

			Convey("Then the whole batch fails without partial output", func() {
				So(errors.Is(err, model.ErrMalformedRecord), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "record 2")
				So(got, ShouldBeNil)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := ex.Extract(cctx, recs("ITA", 1960))

			Convey("Then extraction stops with the context error", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})

	Convey("Given an extractor with a custom threshold", t, func() {
		ex := period.NewExtractor(period.WithGapThreshold(8))

		Convey("When two years are eight apart", func() {
			got, err := ex.Extract(context.Background(), recs("EUN", 1984, 1992))

			Convey("Then they are merged", func() {
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 1)
			})
		})

		Convey("When a negative threshold is passed", func() {
			ex := period.NewExtractor(period.WithGapThreshold(-1))

			Convey("Then the default is kept", func() {
				So(ex.GapThreshold(), ShouldEqual, period.DefaultGapThreshold)
			})
		})
	})
}

func TestRegionHint(t *testing.T) {
	Convey("Given records of one code with different region hints", t, func() {
		in := []model.ParticipationRecord{
			{EntityCode: "RUS", Year: 1996, RegionHint: "Russia"},
			{EntityCode: "RUS", Year: 1900, RegionHint: "Russian Empire"},
			{EntityCode: "RUS", Year: 1900, RegionHint: "Tsardom"},
			{EntityCode: "RUS", Year: 2000, RegionHint: "Russia"},
		}

		Convey("When extracting", func() {
			got, err := period.NewExtractor().Extract(context.Background(), in)

			Convey("Then every period carries the hint of the earliest record", func() {
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				for _, p := range got {
					So(p.RegionHint, ShouldEqual, "Russian Empire")
				}
			})
		})
	})
}

func TestSegment(t *testing.T) {
	Convey("Given the pure segmentation walk", t, func() {
		Convey("When no years are given", func() {
			So(period.Segment("X", "", nil, 4), ShouldBeNil)
		})

		Convey("When the threshold is zero", func() {
			got := period.Segment("X", "", []int{2000, 2000, 2001}, 0)

			Convey("Then only repeated years share a period", func() {
				So(got, ShouldHaveLength, 2)
				So(got[0].EndYear, ShouldEqual, 2000)
				So(got[1].StartYear, ShouldEqual, 2001)
			})
		})
	})
}

func TestGapAndCoverageLaws(t *testing.T) {
	Convey("Given random participation histories", t, func() {
		rng := rand.New(rand.NewSource(7))
		codes := []string{"AAA", "BBB", "CCC", "DDD"}
		var in []model.ParticipationRecord
		for i := 0; i < 400; i++ {
			in = append(in, model.ParticipationRecord{
				EntityCode: codes[rng.Intn(len(codes))],
				Year:       1896 + rng.Intn(40)*3,
			})
		}

		got, err := period.NewExtractor().Extract(context.Background(), in)
		So(err, ShouldBeNil)

		byCode := make(map[string][]model.Period)
		for _, p := range got {
			So(p.StartYear, ShouldBeLessThanOrEqualTo, p.EndYear)
			byCode[p.EntityCode] = append(byCode[p.EntityCode], p)
		}

		Convey("Then every observed year is covered by exactly one period", func() {
			for _, r := range in {
				n := 0
				for _, p := range byCode[r.EntityCode] {
					if p.Contains(r.Year) {
						n++
					}
				}
				So(n, ShouldEqual, 1)
			}
		})

		Convey("Then consecutive distinct years obey the gap law", func() {
			for code, periods := range byCode {
				var years []int
				for _, r := range in {
					if r.EntityCode == code {
						years = append(years, r.Year)
					}
				}
				slices.Sort(years)
				years = slices.Compact(years)
				find := func(y int) int {
					for i, p := range periods {
						if p.Contains(y) {
							return i
						}
					}
					return -1
				}
				for i := 1; i < len(years); i++ {
					if years[i]-years[i-1] > period.DefaultGapThreshold {
						So(find(years[i]), ShouldNotEqual, find(years[i-1]))
					} else {
						So(find(years[i]), ShouldEqual, find(years[i-1]))
					}
				}
			}
		})

		Convey("Then periods of a code are ordered and disjoint", func() {
			for _, periods := range byCode {
				for i := 1; i < len(periods); i++ {
					So(periods[i].StartYear, ShouldBeGreaterThan, periods[i-1].EndYear)
				}
			}
		})
	})
}

func TestSortForPresentation(t *testing.T) {
	Convey("Given periods in extraction order", t, func() {
		ps := []model.Period{
			{EntityCode: "URS", RegionHint: "Russia", StartYear: 1952},
			{EntityCode: "GDR", RegionHint: "Germany", StartYear: 1968},
			{EntityCode: "RUS", RegionHint: "Russia", StartYear: 1900},
			{EntityCode: "FRG", RegionHint: "Germany", StartYear: 1968},
		}

		Convey("When sorting for presentation", func() {
			period.SortForPresentation(ps)

			Convey("Then they are ordered by region, start year and code", func() {
				So(ps[0].EntityCode, ShouldEqual, "FRG")
				So(ps[1].EntityCode, ShouldEqual, "GDR")
				So(ps[2].EntityCode, ShouldEqual, "RUS")
				So(ps[3].EntityCode, ShouldEqual, "URS")
			})
		})
	})
}

func TestGroups(t *testing.T) {
	Convey("Given records for two codes", t, func() {
		in := append(recs("B", 2004, 2000), recs("A", 1990)...)

		Convey("When grouping", func() {
			groups, err := period.Groups(in)

			Convey("Then groups follow first-encounter order with sorted years", func() {
				So(err, ShouldBeNil)
				So(groups, ShouldHaveLength, 2)
				So(groups[0].EntityCode, ShouldEqual, "B")
				So(groups[0].Years, ShouldResemble, []int{2000, 2004})
				So(groups[1].EntityCode, ShouldEqual, "A")
			})

			Convey("And the input slice is left untouched", func() {
				So(in[0].Year, ShouldEqual, 2004)
			})
		})
	})
}

func TestSegmentTable(t *testing.T) {
	p := func(start, end int) model.Period {
		return model.Period{EntityCode: "X", RegionHint: "R", StartYear: start, EndYear: end}
	}

	tests := []struct {
		name  string
		years []int
		gap   int
		want  []model.Period
	}{
		{name: "singleton", years: []int{1936}, gap: 4, want: []model.Period{p(1936, 1936)}},
		{name: "gap equal to threshold joins", years: []int{1952, 1956}, gap: 4, want: []model.Period{p(1952, 1956)}},
		{name: "gap above threshold splits", years: []int{1952, 1957}, gap: 4, want: []model.Period{p(1952, 1952), p(1957, 1957)}},
		{name: "duplicates collapse", years: []int{1960, 1960, 1960}, gap: 4, want: []model.Period{p(1960, 1960)}},
		{name: "chained small gaps", years: []int{1900, 1904, 1908, 1920, 1924}, gap: 4, want: []model.Period{p(1900, 1908), p(1920, 1924)}},
		{name: "wide threshold", years: []int{1900, 1920, 1940}, gap: 20, want: []model.Period{p(1900, 1940)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := period.Segment("X", "R", tt.years, tt.gap)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Segment() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
