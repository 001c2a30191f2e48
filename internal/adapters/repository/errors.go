package repository

import "errors"

// Sentinel kinds for archive errors.
var (
	ErrNotFound     = errors.New("session not found")
	ErrInvalidLimit = errors.New("invalid list limit")
	ErrInvalidEntry = errors.New("invalid archive entry")
)
