package repository_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/eras/internal/adapters/repository"
	"github.com/okian/eras/internal/domain/model"
)

func openSQLite(t *testing.T) *repository.SQLStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eras.db")
	s, err := repository.Open(context.Background(), repository.DriverSQLite, path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func urs() []model.Period {
	return []model.Period{
		{EntityCode: "URS", RegionHint: "Russia", StartYear: 1952, EndYear: 1988},
		{EntityCode: "EUN", RegionHint: "Russia", StartYear: 1992, EndYear: 1992},
	}
}

func TestSQLStoreRuns(t *testing.T) {
	Convey("Given an empty sqlite store", t, func() {
		s := openSQLite(t)
		ctx := context.Background()

		So(s.Driver(), ShouldEqual, repository.DriverSQLite)

		Convey("LatestRun reports ErrNotFound", func() {
			_, err := s.LatestRun(ctx)
			So(err, ShouldEqual, repository.ErrNotFound)
		})

		Convey("When two runs are saved", func() {
			first := repository.Run{
				ID:           uuid.NewString(),
				CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				GapThreshold: 4,
				RecordCount:  10,
				Fingerprint:  "abc",
			}
			second := first
			second.ID = uuid.NewString()
			second.CreatedAt = first.CreatedAt.Add(time.Hour)
			second.Fingerprint = "def"

			So(s.SaveRun(ctx, first, urs()), ShouldBeNil)
			So(s.SaveRun(ctx, second, urs()[:1]), ShouldBeNil)

			Convey("Run returns the stored metadata", func() {
				got, err := s.Run(ctx, first.ID)
				So(err, ShouldBeNil)
				So(got.ID, ShouldEqual, first.ID)
				So(got.CreatedAt.Equal(first.CreatedAt), ShouldBeTrue)
				So(got.GapThreshold, ShouldEqual, 4)
				So(got.RecordCount, ShouldEqual, 10)
				So(got.PeriodCount, ShouldEqual, 2)
				So(got.Fingerprint, ShouldEqual, "abc")
			})

			Convey("LatestRun returns the newest run", func() {
				got, err := s.LatestRun(ctx)
				So(err, ShouldBeNil)
				So(got.ID, ShouldEqual, second.ID)
				So(got.PeriodCount, ShouldEqual, 1)
			})

			Convey("Periods come back in extraction order", func() {
				got, err := s.Periods(ctx, first.ID)
				So(err, ShouldBeNil)
				So(got, ShouldResemble, urs())
			})

			Convey("Unknown runs are not found", func() {
				_, err := s.Periods(ctx, "missing")
				So(err, ShouldEqual, repository.ErrNotFound)
			})

			Convey("Saving a duplicate id fails without side effects", func() {
				err := s.SaveRun(ctx, first, urs())
				So(err, ShouldNotBeNil)
				got, err := s.Periods(ctx, first.ID)
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 2)
			})
		})

		Convey("A run without id is rejected", func() {
			So(s.SaveRun(ctx, repository.Run{}, nil), ShouldNotBeNil)
		})
	})
}

func TestSQLStoreLabeledPeriods(t *testing.T) {
	Convey("Given a sqlite store", t, func() {
		s := openSQLite(t)
		ctx := context.Background()

		table := []model.LabeledPeriod{
			{Period: model.Period{EntityCode: "ITA", StartYear: 1900, EndYear: 1950}, Label: "Democracy"},
			{Period: model.Period{EntityCode: "ITA", StartYear: 1940, EndYear: 1960}, Label: "Monarchy"},
			{Period: model.Period{EntityCode: "GER", RegionHint: "Germany", StartYear: 1896, EndYear: 1936}, Label: "Democracy"},
		}

		Convey("An empty table lists nothing", func() {
			got, err := s.LabeledPeriods(ctx)
			So(err, ShouldBeNil)
			So(got, ShouldBeEmpty)
		})

		Convey("Stored rows keep their table order", func() {
			So(s.ReplaceLabeledPeriods(ctx, table), ShouldBeNil)
			got, err := s.LabeledPeriods(ctx)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, table)

			Convey("Replacing swaps the whole table", func() {
				So(s.ReplaceLabeledPeriods(ctx, table[2:]), ShouldBeNil)
				got, err := s.LabeledPeriods(ctx)
				So(err, ShouldBeNil)
				So(got, ShouldResemble, table[2:])
			})

			Convey("An inverted row is rejected and the old table survives", func() {
				bad := []model.LabeledPeriod{
					{Period: model.Period{EntityCode: "FRA", StartYear: 2000, EndYear: 1990}, Label: "x"},
				}
				err := s.ReplaceLabeledPeriods(ctx, bad)
				So(errors.Is(err, repository.ErrInvalidPeriods), ShouldBeTrue)
				So(errors.Is(err, model.ErrMalformedPeriod), ShouldBeTrue)

				got, err := s.LabeledPeriods(ctx)
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 3)
			})
		})
	})
}

func TestOpen(t *testing.T) {
	Convey("Open rejects bad arguments", t, func() {
		ctx := context.Background()

		_, err := repository.Open(ctx, "mysql", "x")
		So(errors.Is(err, repository.ErrUnknownDriver), ShouldBeTrue)

		_, err = repository.Open(ctx, repository.DriverSQLite, " ")
		So(errors.Is(err, repository.ErrNotConfigured), ShouldBeTrue)
	})

	Convey("Reopening a sqlite file keeps its data", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "eras.db")

		s, err := repository.Open(ctx, repository.DriverSQLite, path)
		So(err, ShouldBeNil)
		table := []model.LabeledPeriod{{Period: model.Period{EntityCode: "GER", StartYear: 1, EndYear: 2}, Label: "L"}}
		So(s.ReplaceLabeledPeriods(ctx, table), ShouldBeNil)
		So(s.Close(), ShouldBeNil)

		s, err = repository.Open(ctx, repository.DriverSQLite, path)
		So(err, ShouldBeNil)
		defer s.Close()
		got, err := s.LabeledPeriods(ctx)
		So(err, ShouldBeNil)
		So(got, ShouldResemble, table)
	})
}

// Set ERAS_TEST_POSTGRES_DSN to run against a live PostgreSQL.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("ERAS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ERAS_TEST_POSTGRES_DSN not set")
	}

	Convey("Given a postgres store", t, func() {
		ctx := context.Background()
		s, err := repository.Open(ctx, repository.DriverPostgres, dsn, repository.WithMaxOpenConns(4))
		So(err, ShouldBeNil)
		defer s.Close()

		run := repository.Run{ID: uuid.NewString(), GapThreshold: 4, RecordCount: 3, Fingerprint: "pg"}
		So(s.SaveRun(ctx, run, urs()), ShouldBeNil)

		got, err := s.Periods(ctx, run.ID)
		So(err, ShouldBeNil)
		So(got, ShouldResemble, urs())
	})
}
