package model_test

import (
	"errors"
	"testing"

	"github.com/okian/eras/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestParticipationRecord(t *testing.T) {
	convey.Convey("Given participation records", t, func() {
		convey.Convey("When the entity code is blank", func() {
			err := model.ParticipationRecord{EntityCode: "  ", Year: 1900}.Validate()

			convey.Convey("Then it is malformed", func() {
				convey.So(errors.Is(err, model.ErrMalformedRecord), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the entity code is present", func() {
			err := model.ParticipationRecord{EntityCode: "FIN", Year: 1952}.Validate()
			convey.So(err, convey.ShouldBeNil)
		})
	})
}

func TestApplyRegions(t *testing.T) {
	convey.Convey("Given records with and without region hints", t, func() {
		in := []model.ParticipationRecord{
			{EntityCode: "FRG", Year: 1972},
			{EntityCode: "GDR", Year: 1972, RegionHint: "East"},
			{EntityCode: "ZZZ", Year: 1972},
		}
		regions := map[string]string{"FRG": "Germany", "GDR": "Germany"}

		convey.Convey("When applying the region directory", func() {
			out := model.ApplyRegions(in, regions)

			convey.Convey("Then only empty hints are filled", func() {
				convey.So(out[0].RegionHint, convey.ShouldEqual, "Germany")
				convey.So(out[1].RegionHint, convey.ShouldEqual, "East")
				convey.So(out[2].RegionHint, convey.ShouldEqual, "")
			})

			convey.Convey("And the input is not modified", func() {
				convey.So(in[0].RegionHint, convey.ShouldEqual, "")
			})
		})
	})
}

func TestPeriod(t *testing.T) {
	convey.Convey("Given a period", t, func() {
		p := model.Period{EntityCode: "URS", StartYear: 1952, EndYear: 1988}

		convey.So(p.Contains(1952), convey.ShouldBeTrue)
		convey.So(p.Contains(1988), convey.ShouldBeTrue)
		convey.So(p.Contains(1992), convey.ShouldBeFalse)
		convey.So(p.Years(), convey.ShouldEqual, 37)
		convey.So(p.String(), convey.ShouldEqual, "URS[1952-1988]")
		convey.So(p.Overlaps(model.Period{StartYear: 1988, EndYear: 1992}), convey.ShouldBeTrue)
		convey.So(p.Overlaps(model.Period{StartYear: 1989, EndYear: 1992}), convey.ShouldBeFalse)
	})

	convey.Convey("Given labeled periods", t, func() {
		convey.Convey("When start is after end", func() {
			err := model.LabeledPeriod{Period: model.Period{EntityCode: "X", StartYear: 2000, EndYear: 1990}}.Validate()
			convey.So(errors.Is(err, model.ErrMalformedPeriod), convey.ShouldBeTrue)
		})

		convey.Convey("When the code is missing", func() {
			err := model.LabeledPeriod{Period: model.Period{StartYear: 1990, EndYear: 1990}}.Validate()
			convey.So(errors.Is(err, model.ErrMalformedPeriod), convey.ShouldBeTrue)
		})

		convey.Convey("When labeling a batch", func() {
			out := model.WithLabel([]model.Period{{EntityCode: "A"}, {EntityCode: "B"}}, "Theocracy")
			convey.So(out, convey.ShouldHaveLength, 2)
			convey.So(out[1].Label, convey.ShouldEqual, "Theocracy")
			convey.So(out[1].EntityCode, convey.ShouldEqual, "B")
		})
	})
}

func TestAnnotatedRecord(t *testing.T) {
	convey.Convey("Given annotated records", t, func() {
		convey.So(model.AnnotatedRecord{Label: model.UnknownLabel}.Known(), convey.ShouldBeFalse)
		convey.So(model.AnnotatedRecord{Label: "Communism"}.Known(), convey.ShouldBeTrue)
	})
}
