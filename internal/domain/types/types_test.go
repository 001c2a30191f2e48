package types_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestReport(t *testing.T) {
	Convey("Given a finished report", t, func() {
		started := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
		r := types.Report{
			Candidate:      "Ada",
			SessionID:      "sid_a1b2c3",
			StartedAt:      started,
			DurationSec:    1800,
			Metrics:        model.Counters{Phone: 1},
			IntegrityScore: 85,
			Events:         []model.Event{{Seq: 1, Type: model.EventPhone}},
		}

		Convey("It serializes with the report field names", func() {
			raw, err := json.Marshal(r)
			So(err, ShouldBeNil)
			var m map[string]any
			So(json.Unmarshal(raw, &m), ShouldBeNil)
			for _, k := range []string{"candidate", "sessionId", "startedAt", "durationSec", "metrics", "integrityScore", "events"} {
				So(m, ShouldContainKey, k)
			}
		})

		Convey("Its summary is inactive and keeps the score", func() {
			ended := started.Add(30 * time.Minute)
			s := r.Summary(ended)
			So(s.Active, ShouldBeFalse)
			So(*s.EndedAt, ShouldEqual, ended)
			So(s.IntegrityScore, ShouldEqual, 85)
			So(s.EventCount, ShouldEqual, 1)
		})
	})
}
