package export_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/internal/domain/types"
	"github.com/okian/proctor/internal/export"
)

var start = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func sampleEvents() []model.Event {
	return []model.Event{
		{Seq: 1, Timestamp: start.Add(5100 * time.Millisecond), Type: model.EventLookingAway},
		{Seq: 2, Timestamp: start.Add(12 * time.Second), Type: model.EventExtraDevice, Details: model.Details{Label: "laptop", Score: 0.82}},
	}
}

func TestWriteCSV(t *testing.T) {
	Convey("Given two events", t, func() {
		var buf bytes.Buffer
		So(export.WriteCSV(&buf, sampleEvents()), ShouldBeNil)
		lines := strings.Split(buf.String(), "\n")

		Convey("The header and rows are fully quoted", func() {
			So(lines, ShouldHaveLength, 3)
			So(lines[0], ShouldEqual, `"t","type","details"`)
			So(lines[1], ShouldEqual, `"2025-03-01T09:30:05.100Z","LOOKING_AWAY_5S","{}"`)
			So(lines[2], ShouldEqual, `"2025-03-01T09:30:12.000Z","EXTRA_DEVICE_DETECTED","{""label"":""laptop"",""score"":0.82}"`)
		})
	})

	Convey("An empty log yields only the header", t, func() {
		var buf bytes.Buffer
		So(export.WriteCSV(&buf, nil), ShouldBeNil)
		So(buf.String(), ShouldEqual, `"t","type","details"`)
	})
}

func TestWriteReport(t *testing.T) {
	Convey("Given a report", t, func() {
		r := types.Report{
			Candidate:      "Ada",
			SessionID:      "sid_1",
			StartedAt:      start,
			DurationSec:    42,
			Metrics:        model.Counters{FocusLost: 1, ExtraDevices: 1},
			IntegrityScore: 85,
			Events:         sampleEvents(),
		}

		Convey("It is written as indented JSON and reads back", func() {
			var buf bytes.Buffer
			So(export.WriteReport(&buf, r), ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, "\n  \"candidate\": \"Ada\"")
			So(buf.String(), ShouldContainSubstring, `"notesOrBook": 0`)

			back, err := export.ReadReport(&buf)
			So(err, ShouldBeNil)
			So(back.SessionID, ShouldEqual, "sid_1")
			So(back.Metrics, ShouldResemble, r.Metrics)
			So(back.Events, ShouldHaveLength, 2)
			So(back.Events[1].Details.Label, ShouldEqual, "laptop")
		})

		Convey("A report without events has an empty list", func() {
			r.Events = nil
			var buf bytes.Buffer
			So(export.WriteReport(&buf, r), ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, `"events": []`)
		})

		Convey("Garbage does not decode", func() {
			_, err := export.ReadReport(strings.NewReader("{"))
			So(err, ShouldNotBeNil)
		})
	})
}
