package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/okian/proctor/internal/export"
	"github.com/okian/proctor/pkg/metrics"
)

const (
	reportSuffix = "_report.json"
	eventsSuffix = "_events.csv"
)

// MemoryStore keeps archived sessions in memory, ordered for triage.
//
// Ordering: integrity score ASC, then startedAt ASC, then session id ASC.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	order   []string

	archiveDir string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{entries: make(map[string]Entry)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, e Entry) error { //nolint:gocritic // hugeParam: stored by value
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.Report.SessionID == "" || strings.ContainsAny(e.Report.SessionID, `/\`) {
		return fmt.Errorf("%w: session id %q", ErrInvalidEntry, e.Report.SessionID)
	}
	if s.archiveDir != "" {
		if err := s.writeFiles(e); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.insertLocked(e)
	n := len(s.entries)
	s.mu.Unlock()

	metrics.UpdateArchivedReports(n)
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, sessionID string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[sessionID]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// List implements Store.
func (s *MemoryStore) List(ctx context.Context, limit int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit > len(s.order) {
		limit = len(s.order)
	}
	out := make([]Entry, 0, limit)
	for _, id := range s.order[:limit] {
		out = append(out, s.entries[id])
	}
	return out, nil
}

// Count implements Store.
func (s *MemoryStore) Count(context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Restore loads every report found in the archive directory. Unreadable files
// are reported together and do not stop the others from loading.
func (s *MemoryStore) Restore(ctx context.Context) (int, error) {
	if s.archiveDir == "" {
		return 0, nil
	}
	paths, err := filepath.Glob(filepath.Join(s.archiveDir, "*"+reportSuffix))
	if err != nil {
		return 0, fmt.Errorf("scan archive: %w", err)
	}

	var errs error
	loaded := 0
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return loaded, multierr.Append(errs, err)
		}
		e, err := readEntry(p)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		s.mu.Lock()
		s.insertLocked(e)
		s.mu.Unlock()
		loaded++
	}
	metrics.UpdateArchivedReports(s.Count(ctx))
	return loaded, errs
}

func (s *MemoryStore) insertLocked(e Entry) { //nolint:gocritic // hugeParam: stored by value
	id := e.Report.SessionID
	if _, ok := s.entries[id]; ok {
		s.removeLocked(id)
	}
	s.entries[id] = e
	i := sort.Search(len(s.order), func(i int) bool {
		return before(e, s.entries[s.order[i]])
	})
	s.order = append(s.order, "")
	copy(s.order[i+1:], s.order[i:])
	s.order[i] = id
}

func (s *MemoryStore) removeLocked(id string) {
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	delete(s.entries, id)
}

// before reports whether a sorts ahead of b.
func before(a, b Entry) bool { //nolint:gocritic // hugeParam: comparator
	if a.Report.IntegrityScore != b.Report.IntegrityScore {
		return a.Report.IntegrityScore < b.Report.IntegrityScore
	}
	if !a.Report.StartedAt.Equal(b.Report.StartedAt) {
		return a.Report.StartedAt.Before(b.Report.StartedAt)
	}
	return a.Report.SessionID < b.Report.SessionID
}

func (s *MemoryStore) writeFiles(e Entry) (err error) { //nolint:gocritic // hugeParam: read-only
	if err := os.MkdirAll(s.archiveDir, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	id := e.Report.SessionID

	rf, err := os.Create(filepath.Join(s.archiveDir, id+reportSuffix))
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer func() { err = multierr.Append(err, rf.Close()) }()
	if err := export.WriteReport(rf, e.Report); err != nil {
		return err
	}

	cf, err := os.Create(filepath.Join(s.archiveDir, id+eventsSuffix))
	if err != nil {
		return fmt.Errorf("create events file: %w", err)
	}
	defer func() { err = multierr.Append(err, cf.Close()) }()
	return export.WriteCSV(cf, e.Report.Events)
}

func readEntry(path string) (Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return Entry{}, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	r, err := export.ReadReport(f)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if r.SessionID == "" {
		r.SessionID = strings.TrimSuffix(filepath.Base(path), reportSuffix)
	}
	return Entry{
		Report:  r,
		EndedAt: r.StartedAt.Add(time.Duration(r.DurationSec) * time.Second),
	}, nil
}
