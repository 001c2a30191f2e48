package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given a private registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom naming", func() {
			m := NewManager(
				WithNamespace("exam"),
				WithSubsystem("monitor"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithPrometheusRegistry(registry),
			)
			m.eventsEmitted.WithLabelValues("PHONE_DETECTED").Inc()

			Convey("Then collectors are registered under that name", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "exam_monitor_events_emitted_total")
			})
		})

		Convey("When creating two managers on one registry", func() {
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("Event counters are labelled by type", func() {
			before := testutil.ToFloat64(globalManager.eventsEmitted.WithLabelValues("NO_FACE_10S"))
			RecordEventEmitted("NO_FACE_10S")
			RecordEventEmitted("NO_FACE_10S")
			So(testutil.ToFloat64(globalManager.eventsEmitted.WithLabelValues("NO_FACE_10S")), ShouldEqual, before+2)
		})

		Convey("Tick outcomes are labelled by source", func() {
			before := testutil.ToFloat64(globalManager.ticks.WithLabelValues("faces", "no_signal"))
			RecordTick("faces", "no_signal")
			So(testutil.ToFloat64(globalManager.ticks.WithLabelValues("faces", "no_signal")), ShouldEqual, before+1)
		})

		Convey("Zero skipped records are not counted", func() {
			before := testutil.ToFloat64(globalManager.recordsSkipped.WithLabelValues("objects"))
			RecordRecordsSkipped("objects", 0)
			RecordRecordsSkipped("objects", 3)
			So(testutil.ToFloat64(globalManager.recordsSkipped.WithLabelValues("objects")), ShouldEqual, before+3)
		})

		Convey("Gauges hold the last value", func() {
			UpdateSessionsActive(4)
			UpdateQueueSize(12)
			UpdateStreamClients(2)
			So(testutil.ToFloat64(globalManager.sessionsActive), ShouldEqual, 4)
			So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 12)
			So(testutil.ToFloat64(globalManager.streamClients), ShouldEqual, 2)
		})

		Convey("Recording functions never panic", func() {
			So(func() {
				RecordDetectorLatency("faces", 3.5)
				RecordTaskRun("faces", "timeout", 2000)
				RecordTickDuplicate()
				RecordMailboxDropped("objects")
				RecordSessionStarted()
				RecordSessionStopped(85)
				UpdateArchivedReports(3)
				UpdateQueueCapacity(100)
				UpdateQueueUtilization(0.1)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				UpdateWorkerActiveCount(1)
				RecordWorkerProcessingLatency(1.2)
				RecordWorkerError()
				RecordSinkPublish("kafka", "error")
				RecordHTTPRequest("/sessions", "POST", "201")
				RecordHTTPRequestDuration("/sessions", "POST", "201", 4)
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
		})

		Convey("The custom registry exposes the proctor namespace", func() {
			RecordSessionStarted()
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			found := false
			for _, f := range families {
				if strings.HasPrefix(f.GetName(), "proctor_engine_") {
					found = true
				}
			}
			So(found, ShouldBeTrue)
		})
	})
}
