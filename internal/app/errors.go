package service

import "errors"

// Sentinel kinds for session service errors.
var (
	ErrNotStarted      = errors.New("service not started")
	ErrNotFound        = errors.New("session not found")
	ErrSessionStopped  = errors.New("session stopped")
	ErrTooManySessions = errors.New("too many active sessions")
	ErrInvalidLimit    = errors.New("invalid list limit")
	ErrInvalidInput    = errors.New("invalid input")
)
