package model_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	model "github.com/okian/proctor/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestEventType(t *testing.T) {
	convey.Convey("Given the event type enumeration", t, func() {
		convey.Convey("Every listed type is valid", func() {
			types := model.EventTypes()
			convey.So(types, convey.ShouldHaveLength, 6)
			for _, et := range types {
				convey.So(et.Valid(), convey.ShouldBeTrue)
			}
		})

		convey.Convey("Unknown types are rejected", func() {
			convey.So(model.EventType("TAB_SWITCH").Valid(), convey.ShouldBeFalse)
			convey.So(model.EventType("").Valid(), convey.ShouldBeFalse)
		})
	})
}

func TestCounters(t *testing.T) {
	convey.Convey("Given zero counters", t, func() {
		var c model.Counters

		convey.Convey("Inc touches exactly one counter per type", func() {
			for i, et := range model.EventTypes() {
				convey.So(c.Inc(et), convey.ShouldBeTrue)
				convey.So(c.Get(et), convey.ShouldEqual, 1)
				convey.So(c.Total(), convey.ShouldEqual, i+1)
			}
		})

		convey.Convey("Inc ignores unknown types", func() {
			convey.So(c.Inc("TAB_SWITCH"), convey.ShouldBeFalse)
			convey.So(c.Total(), convey.ShouldEqual, 0)
			convey.So(c.Get("TAB_SWITCH"), convey.ShouldEqual, 0)
		})

		convey.Convey("JSON uses the report metric names", func() {
			c.Inc(model.EventLookingAway)
			c.Inc(model.EventBookOrNotes)
			raw, err := json.Marshal(c)
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(raw), convey.ShouldEqual,
				`{"focusLost":1,"noFace10s":0,"multipleFaces":0,"phone":0,"notesOrBook":1,"extraDevices":0}`)
		})
	})
}

func TestEventJSON(t *testing.T) {
	convey.Convey("Given an object event", t, func() {
		e := model.Event{
			Seq:       2,
			Timestamp: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
			Type:      model.EventExtraDevice,
			Details:   model.Details{Label: "laptop", Score: 0.82},
		}

		convey.Convey("It encodes an ISO-8601 timestamp and the details payload", func() {
			raw, err := json.Marshal(e)
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(raw), convey.ShouldEqual,
				`{"seq":2,"timestamp":"2024-05-01T09:30:00Z","type":"EXTRA_DEVICE_DETECTED","details":{"label":"laptop","score":0.82}}`)
		})

		convey.Convey("Face events carry empty details", func() {
			raw, err := json.Marshal(model.Event{Type: model.EventNoFace})
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(raw), convey.ShouldContainSubstring, `"details":{}`)
		})
	})
}

func TestRecordValidation(t *testing.T) {
	convey.Convey("Given face records", t, func() {
		good := model.FaceRecord{
			Box:       model.Box{TopLeft: model.Point{X: 10, Y: 10}, BottomRight: model.Point{X: 110, Y: 130}},
			Landmarks: []model.Point{{X: 40, Y: 50}, {X: 80, Y: 50}},
		}

		convey.Convey("Two landmarks is valid input", func() {
			convey.So(good.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("An inverted box is malformed", func() {
			bad := good
			bad.Box.BottomRight.X = 0
			convey.So(errors.Is(bad.Validate(), model.ErrMalformedRecord), convey.ShouldBeTrue)
		})

		convey.Convey("A NaN landmark is malformed", func() {
			bad := good
			bad.Landmarks = []model.Point{{X: math.NaN(), Y: 1}}
			convey.So(errors.Is(bad.Validate(), model.ErrMalformedRecord), convey.ShouldBeTrue)
		})

		convey.Convey("ValidFaces filters and counts", func() {
			bad := good
			bad.Box.TopLeft.Y = math.Inf(1)
			out, skipped := model.ValidFaces([]model.FaceRecord{good, bad, good})
			convey.So(out, convey.ShouldHaveLength, 2)
			convey.So(skipped, convey.ShouldEqual, 1)
		})
	})

	convey.Convey("Given object records", t, func() {
		convey.Convey("Scores outside [0,1] and empty classes are malformed", func() {
			records := []model.ObjectRecord{
				{Class: "book", Score: 0.9},
				{Class: "", Score: 0.9},
				{Class: "cell phone", Score: 1.4},
				{Class: "laptop", Score: math.NaN()},
				{Class: "tv", Score: 0.7, BBox: model.Rect{W: -1}},
			}
			out, skipped := model.ValidObjects(records)
			convey.So(out, convey.ShouldHaveLength, 1)
			convey.So(out[0].Class, convey.ShouldEqual, "book")
			convey.So(skipped, convey.ShouldEqual, 4)
		})

		convey.Convey("An empty tick stays empty", func() {
			out, skipped := model.ValidObjects(nil)
			convey.So(out, convey.ShouldBeEmpty)
			convey.So(skipped, convey.ShouldEqual, 0)
		})
	})
}
