package simulate

import (
	"time"

	"github.com/okian/proctor/internal/adapters/detect"
	"github.com/okian/proctor/internal/domain/model"
)

// Face geometry for a 480px frame: eyes 40px apart on one row.
const (
	rightEyeX   = 80
	leftEyeX    = 120
	eyeY        = 100
	centeredX   = 100
	turnedX     = 117
	secondFaceX = 300
)

// Phase is one stretch of the scripted session.
type Phase struct {
	Name    string
	Faces   []detect.FaceWire
	Ticks   int
	Objects []detect.ObjectWire
}

// Scenario is the ordered phase list and the counters it should produce.
type Scenario struct {
	Phases   []Phase
	Expected model.Counters
}

// Ticks returns the total number of face pushes.
func (s Scenario) Ticks() int {
	n := 0
	for _, p := range s.Phases {
		n += p.Ticks
	}
	return n
}

func faceAt(offsetX, noseX float64) detect.FaceWire {
	return detect.FaceWire{
		BoundingBox: detect.BoxWire{
			TopLeft:     []float64{offsetX + 60, 60},
			BottomRight: []float64{offsetX + 140, 160},
		},
		Landmarks: [][]float64{
			{offsetX + rightEyeX, eyeY},
			{offsetX + leftEyeX, eyeY},
			{offsetX + noseX, eyeY},
		},
		Probability: 0.98,
	}
}

// ticksOver returns the smallest tick count whose accumulated time is
// strictly greater than d.
func ticksOver(d, step time.Duration) int {
	if step <= 0 {
		return 0
	}
	return int(d/step) + 1
}

// BuildScenario scripts a session that is focused, then looks away past the
// look-away threshold, then leaves the frame past the no-face threshold, then
// shows a second face, and finally holds up a phone.
func BuildScenario(cfg *Config) Scenario {
	focused := faceAt(0, centeredX)
	phone := detect.ObjectWire{Class: "cell phone", Score: 0.91, BBox: []float64{10, 20, 60, 120}}

	focusTicks := int(cfg.FocusDuration / cfg.FaceInterval)
	if focusTicks < 1 {
		focusTicks = 1
	}

	return Scenario{
		Phases: []Phase{
			{Name: "focused", Faces: []detect.FaceWire{focused}, Ticks: focusTicks},
			{Name: "looking_away", Faces: []detect.FaceWire{faceAt(0, turnedX)}, Ticks: ticksOver(cfg.LookAwayThreshold, cfg.FaceInterval)},
			{Name: "absent", Faces: nil, Ticks: ticksOver(cfg.NoFaceThreshold, cfg.FaceInterval)},
			{Name: "two_faces", Faces: []detect.FaceWire{focused, faceAt(secondFaceX, centeredX)}, Ticks: 1},
			{Name: "phone", Faces: []detect.FaceWire{focused}, Ticks: 1, Objects: []detect.ObjectWire{phone}},
		},
		Expected: model.Counters{FocusLost: 1, NoFace: 1, MultipleFaces: 1, Phone: 1},
	}
}
