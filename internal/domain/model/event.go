// Package model contains domain models passed between layers.
package model

import "time"

// EventType names a suspicious-activity category. The set is fixed.
type EventType string

const (
	EventLookingAway   EventType = "LOOKING_AWAY_5S"
	EventNoFace        EventType = "NO_FACE_10S"
	EventMultipleFaces EventType = "MULTIPLE_FACES"
	EventPhone         EventType = "PHONE_DETECTED"
	EventBookOrNotes   EventType = "BOOK_OR_NOTES_DETECTED"
	EventExtraDevice   EventType = "EXTRA_DEVICE_DETECTED"
)

// EventTypes lists every event type in report order.
func EventTypes() []EventType {
	return []EventType{
		EventLookingAway,
		EventNoFace,
		EventMultipleFaces,
		EventPhone,
		EventBookOrNotes,
		EventExtraDevice,
	}
}

// Valid reports whether t belongs to the fixed enumeration.
func (t EventType) Valid() bool {
	switch t {
	case EventLookingAway, EventNoFace, EventMultipleFaces, EventPhone, EventBookOrNotes, EventExtraDevice:
		return true
	}
	return false
}

// Details carries the optional payload of object events.
type Details struct {
	Label string  `json:"label,omitempty"`
	Score float64 `json:"score,omitempty"`
}

// Event is one entry of a session's append-only log.
type Event struct {
	Seq       int       `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Details   Details   `json:"details"`
}

// Counters holds one count per event type.
type Counters struct {
	FocusLost     int `json:"focusLost"`
	NoFace        int `json:"noFace10s"`
	MultipleFaces int `json:"multipleFaces"`
	Phone         int `json:"phone"`
	BookOrNotes   int `json:"notesOrBook"`
	ExtraDevices  int `json:"extraDevices"`
}

// Inc increments the counter of t. It reports false for unknown types.
func (c *Counters) Inc(t EventType) bool {
	p := c.field(t)
	if p == nil {
		return false
	}
	*p++
	return true
}

// Get returns the counter of t, zero for unknown types.
func (c Counters) Get(t EventType) int {
	if p := c.field(t); p != nil {
		return *p
	}
	return 0
}

// Total sums all counters.
func (c Counters) Total() int {
	return c.FocusLost + c.NoFace + c.MultipleFaces + c.Phone + c.BookOrNotes + c.ExtraDevices
}

func (c *Counters) field(t EventType) *int {
	switch t {
	case EventLookingAway:
		return &c.FocusLost
	case EventNoFace:
		return &c.NoFace
	case EventMultipleFaces:
		return &c.MultipleFaces
	case EventPhone:
		return &c.Phone
	case EventBookOrNotes:
		return &c.BookOrNotes
	case EventExtraDevice:
		return &c.ExtraDevices
	}
	return nil
}

// SessionEvent is the envelope handed to event sinks.
type SessionEvent struct {
	SessionID string   `json:"session_id"`
	Event     Event    `json:"event"`
	Counters  Counters `json:"counters"`
	Score     int      `json:"integrity_score"`
}
