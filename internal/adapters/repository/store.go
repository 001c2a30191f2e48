// Package repository archives the final reports of stopped sessions.
package repository

import (
	"context"
	"time"

	"github.com/okian/proctor/internal/domain/types"
)

// Entry is one archived session.
type Entry struct {
	Report  types.Report
	EndedAt time.Time
}

// Summary derives the session summary of the entry.
func (e Entry) Summary() types.Summary { //nolint:gocritic // hugeParam: value receiver keeps Entry immutable
	return e.Report.Summary(e.EndedAt)
}

// Store provides read/write access to archived sessions.
type Store interface {
	// Save archives the report of a stopped session, replacing any previous
	// entry with the same session id.
	Save(ctx context.Context, e Entry) error

	// Get returns the archived entry of a session.
	// Returns ErrNotFound if the session is unknown.
	Get(ctx context.Context, sessionID string) (Entry, error)

	// List returns up to limit entries, lowest integrity score first, ties by
	// start time.
	List(ctx context.Context, limit int) ([]Entry, error)

	// Count returns the number of archived sessions.
	Count(ctx context.Context) int
}
