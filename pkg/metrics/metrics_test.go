package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{0.1, 1}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered under the namespace", func() {
				So(m, ShouldNotBeNil)
				m.periodsExtracted.Add(2)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_extract_periods_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When empty options are passed", func() {
			m := NewManager(WithNamespace(""), WithSubsystem(""), WithHistogramBuckets(nil), WithPrometheusRegistry(registry))

			Convey("Then defaults are kept", func() {
				So(m.namespace, ShouldEqual, "eras")
				So(m.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording an extraction", func() {
			before := testutil.ToFloat64(globalManager.periodsExtracted)
			RecordExtraction(10, 3, 0.01)
			So(testutil.ToFloat64(globalManager.periodsExtracted)-before, ShouldEqual, 3)
		})

		Convey("When recording a join", func() {
			before := testutil.ToFloat64(globalManager.ambiguousMatches)
			RecordJoin(4, 2, 0.02)
			RecordAnnotated("Communism", 5)
			So(testutil.ToFloat64(globalManager.ambiguousMatches)-before, ShouldEqual, 2)
			So(testutil.ToFloat64(globalManager.recordsAnnotated.WithLabelValues("Communism")), ShouldBeGreaterThanOrEqualTo, 5)
		})

		Convey("When updating the index gauges", func() {
			UpdateIndex(12, 4, 1)
			So(testutil.ToFloat64(globalManager.indexPeriods), ShouldEqual, 12)
			So(testutil.ToFloat64(globalManager.indexOverlaps), ShouldEqual, 1)
		})

		Convey("When a store operation fails", func() {
			before := testutil.ToFloat64(globalManager.storeErrors.WithLabelValues("save_run"))
			RecordStoreOp("save_run", errors.New("boom"))
			RecordStoreOp("save_run", nil)
			So(testutil.ToFloat64(globalManager.storeErrors.WithLabelValues("save_run"))-before, ShouldEqual, 1)
		})

		Convey("When worker shards run", func() {
			WorkerStarted()
			WorkerFinished(0.1, nil)
			So(testutil.ToFloat64(globalManager.workerActive), ShouldEqual, 0)
		})

		Convey("Then the custom registry gathers without error", func() {
			RecordCacheHit()
			RecordCacheMiss()
			RecordCacheError()
			RecordMalformedBatch()
			RecordHTTPRequest("annotate", "POST", "200")
			RecordHTTPRequestDuration("annotate", "POST", "200", 0.001)
			RecordErrorByEndpoint("annotate", "POST", "client_error")
			_, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
		})
	})
}
