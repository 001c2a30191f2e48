package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithArchiveDir mirrors every saved entry to dir as <sid>_report.json and
// <sid>_events.csv. An empty dir disables mirroring.
func WithArchiveDir(dir string) Option {
	return func(s *MemoryStore) {
		s.archiveDir = dir
	}
}
