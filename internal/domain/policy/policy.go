// Package policy maps object detector labels to suspicious-object categories.
package policy

import "github.com/okian/proctor/internal/domain/model"

// DefaultConfidenceFloor rejects detections scoring below it.
const DefaultConfidenceFloor = 0.6

// Category is the policy bucket of an object label.
type Category int8

const (
	CategoryIgnored Category = iota
	CategoryPhone
	CategoryBookOrNotes
	CategoryExtraDevice
)

// EventType returns the event emitted for the category, empty for ignored.
func (c Category) EventType() model.EventType {
	switch c {
	case CategoryPhone:
		return model.EventPhone
	case CategoryBookOrNotes:
		return model.EventBookOrNotes
	case CategoryExtraDevice:
		return model.EventExtraDevice
	}
	return ""
}

func (c Category) String() string {
	switch c {
	case CategoryPhone:
		return "phone"
	case CategoryBookOrNotes:
		return "book-or-notes"
	case CategoryExtraDevice:
		return "extra-device"
	}
	return "ignored"
}

// defaultLabels uses the COCO class names of the object detector.
var defaultLabels = map[string]Category{
	"cell phone": CategoryPhone,
	"book":       CategoryBookOrNotes,
	"laptop":     CategoryExtraDevice,
	"keyboard":   CategoryExtraDevice,
	"mouse":      CategoryExtraDevice,
	"tv":         CategoryExtraDevice,
}

// Classifier applies the confidence floor and label table.
type Classifier struct {
	floor  float64
	labels map[string]Category
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithConfidenceFloor sets the minimum accepted score.
func WithConfidenceFloor(f float64) Option {
	return func(c *Classifier) { c.floor = f }
}

// NewClassifier creates a Classifier with the default floor and labels.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{floor: DefaultConfidenceFloor, labels: defaultLabels}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the category of r and whether it qualifies for an event.
func (c *Classifier) Classify(r model.ObjectRecord) (Category, bool) {
	if r.Score < c.floor {
		return CategoryIgnored, false
	}
	cat, ok := c.labels[r.Class]
	if !ok {
		return CategoryIgnored, false
	}
	return cat, true
}

// Floor returns the configured confidence floor.
func (c *Classifier) Floor() float64 { return c.floor }
