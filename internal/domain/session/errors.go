package session

import "errors"

var (
	// ErrStopped is returned when observing a session that has ended.
	ErrStopped = errors.New("session stopped")
	// ErrInvalidID is returned by New for an empty id.
	ErrInvalidID = errors.New("invalid session id")
)
