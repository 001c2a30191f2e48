package detect

import "errors"

var (
	// ErrNoResult means the detector produced nothing for this tick.
	ErrNoResult = errors.New("no detector result")
	// ErrClosed is returned by a closed mailbox.
	ErrClosed = errors.New("mailbox closed")
)
