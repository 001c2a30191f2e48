package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrMalformedRecord marks a detector record that cannot be interpreted.
var ErrMalformedRecord = errors.New("malformed detection record")

// Point is a pixel coordinate in the frame.
type Point struct {
	X float64
	Y float64
}

func (p Point) finite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Box is a face bounding box given by its corners.
type Box struct {
	TopLeft     Point
	BottomRight Point
}

// Rect is an object bounding box as origin plus extent.
type Rect struct {
	X, Y, W, H float64
}

// Landmark indices. Detectors order landmarks right eye, left eye, nose, ...
const (
	LandmarkRightEye = 0
	LandmarkLeftEye  = 1
	LandmarkNose     = 2
)

// FaceRecord is one detected face.
type FaceRecord struct {
	Box       Box
	Landmarks []Point
}

// Validate rejects records whose geometry is unusable. A face with fewer
// than three landmarks is valid; it only yields no gaze signal.
func (r FaceRecord) Validate() error {
	if !r.Box.TopLeft.finite() || !r.Box.BottomRight.finite() {
		return fmt.Errorf("%w: non-finite bounding box", ErrMalformedRecord)
	}
	if r.Box.BottomRight.X < r.Box.TopLeft.X || r.Box.BottomRight.Y < r.Box.TopLeft.Y {
		return fmt.Errorf("%w: inverted bounding box", ErrMalformedRecord)
	}
	for i, p := range r.Landmarks {
		if !p.finite() {
			return fmt.Errorf("%w: landmark %d is not finite", ErrMalformedRecord, i)
		}
	}
	return nil
}

// ObjectRecord is one detected object.
type ObjectRecord struct {
	Class string
	Score float64
	BBox  Rect
}

// Validate rejects records without a class or with an out-of-range score.
func (r ObjectRecord) Validate() error {
	if r.Class == "" {
		return fmt.Errorf("%w: empty class", ErrMalformedRecord)
	}
	if math.IsNaN(r.Score) || r.Score < 0 || r.Score > 1 {
		return fmt.Errorf("%w: score %v outside [0,1]", ErrMalformedRecord, r.Score)
	}
	if r.BBox.W < 0 || r.BBox.H < 0 {
		return fmt.Errorf("%w: negative bbox extent", ErrMalformedRecord)
	}
	return nil
}

// FaceTick is the face detector output for one fast-cadence tick.
type FaceTick struct {
	Records     []FaceRecord
	FrameHeight float64
	// Skipped counts records dropped before the tick was built, e.g. while
	// decoding. A tick whose every record was dropped carries no signal.
	Skipped int
}

// Unreadable reports whether the detector saw faces but none survived
// validation, as opposed to seeing no face at all.
func (t FaceTick) Unreadable(valid, skipped int) bool {
	return valid == 0 && skipped+t.Skipped > 0
}

// ObjectTick is the object detector output for one slow-cadence tick.
type ObjectTick struct {
	Records []ObjectRecord
}

// ValidFaces drops malformed records and returns how many were dropped.
func ValidFaces(records []FaceRecord) ([]FaceRecord, int) {
	out := records[:0:0]
	for _, r := range records {
		if r.Validate() == nil {
			out = append(out, r)
		}
	}
	return out, len(records) - len(out)
}

// ValidObjects drops malformed records and returns how many were dropped.
func ValidObjects(records []ObjectRecord) ([]ObjectRecord, int) {
	out := records[:0:0]
	for _, r := range records {
		if r.Validate() == nil {
			out = append(out, r)
		}
	}
	return out, len(records) - len(out)
}
