// Package detect is the boundary to the external face and object detectors.
package detect

import (
	"github.com/okian/proctor/internal/domain/model"
)

// BoxWire is a face bounding box as produced by the face detector.
type BoxWire struct {
	TopLeft     []float64 `json:"topLeft"`
	BottomRight []float64 `json:"bottomRight"`
}

// FaceWire is one face detector record.
type FaceWire struct {
	BoundingBox BoxWire     `json:"boundingBox"`
	Landmarks   [][]float64 `json:"landmarks"`
	Probability float64     `json:"probability,omitempty"`
}

// ObjectWire is one object detector record; BBox is [x, y, w, h].
type ObjectWire struct {
	Class string    `json:"class"`
	Score float64   `json:"score"`
	BBox  []float64 `json:"bbox,omitempty"`
}

func point(v []float64) (model.Point, bool) {
	if len(v) < 2 {
		return model.Point{}, false
	}
	return model.Point{X: v[0], Y: v[1]}, true
}

// DecodeFace converts and validates one record.
func DecodeFace(w FaceWire) (model.FaceRecord, bool) {
	tl, ok1 := point(w.BoundingBox.TopLeft)
	br, ok2 := point(w.BoundingBox.BottomRight)
	if !ok1 || !ok2 {
		return model.FaceRecord{}, false
	}
	r := model.FaceRecord{Box: model.Box{TopLeft: tl, BottomRight: br}}
	if len(w.Landmarks) > 0 {
		r.Landmarks = make([]model.Point, 0, len(w.Landmarks))
	}
	for _, lm := range w.Landmarks {
		p, ok := point(lm)
		if !ok {
			return model.FaceRecord{}, false
		}
		r.Landmarks = append(r.Landmarks, p)
	}
	if r.Validate() != nil {
		return model.FaceRecord{}, false
	}
	return r, true
}

// DecodeFaces converts a tick of face records, dropping malformed ones.
func DecodeFaces(ws []FaceWire) ([]model.FaceRecord, int) {
	out := make([]model.FaceRecord, 0, len(ws))
	for _, w := range ws {
		if r, ok := DecodeFace(w); ok {
			out = append(out, r)
		}
	}
	return out, len(ws) - len(out)
}

// DecodeObject converts and validates one record. An absent bbox is allowed.
func DecodeObject(w ObjectWire) (model.ObjectRecord, bool) {
	r := model.ObjectRecord{Class: w.Class, Score: w.Score}
	switch len(w.BBox) {
	case 0:
	case 4:
		r.BBox = model.Rect{X: w.BBox[0], Y: w.BBox[1], W: w.BBox[2], H: w.BBox[3]}
	default:
		return model.ObjectRecord{}, false
	}
	if r.Validate() != nil {
		return model.ObjectRecord{}, false
	}
	return r, true
}

// DecodeObjects converts a tick of object records, dropping malformed ones.
func DecodeObjects(ws []ObjectWire) ([]model.ObjectRecord, int) {
	out := make([]model.ObjectRecord, 0, len(ws))
	for _, w := range ws {
		if r, ok := DecodeObject(w); ok {
			out = append(out, r)
		}
	}
	return out, len(ws) - len(out)
}

// EncodeFace converts a record to its wire shape.
func EncodeFace(r model.FaceRecord) FaceWire {
	w := FaceWire{BoundingBox: BoxWire{
		TopLeft:     []float64{r.Box.TopLeft.X, r.Box.TopLeft.Y},
		BottomRight: []float64{r.Box.BottomRight.X, r.Box.BottomRight.Y},
	}}
	for _, p := range r.Landmarks {
		w.Landmarks = append(w.Landmarks, []float64{p.X, p.Y})
	}
	return w
}

// EncodeObject converts a record to its wire shape.
func EncodeObject(r model.ObjectRecord) ObjectWire {
	return ObjectWire{Class: r.Class, Score: r.Score, BBox: []float64{r.BBox.X, r.BBox.Y, r.BBox.W, r.BBox.H}}
}
