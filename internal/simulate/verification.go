package simulate

import (
	"errors"
	"fmt"

	"github.com/okian/proctor/internal/domain/scoring"
)

var (
	// ErrInvalidConfig is returned when the run configuration is unusable.
	ErrInvalidConfig = errors.New("invalid simulation config")
	// ErrVerification is returned when the report disagrees with the script.
	ErrVerification = errors.New("verification failed")
)

// verify checks the observed counters and score against the scripted ones.
func verify(stats *Stats, stopScore int) error {
	if stats.Duplicates != 1 {
		return fmt.Errorf("%w: replayed tick was not reported as a duplicate", ErrVerification)
	}
	if stats.Observed != stats.Expected {
		return fmt.Errorf("%w: metrics %+v, want %+v", ErrVerification, stats.Observed, stats.Expected)
	}
	want := scoring.Score(stats.Expected)
	if stats.Score != want {
		return fmt.Errorf("%w: integrity score %d, want %d", ErrVerification, stats.Score, want)
	}
	if stopScore != stats.Score {
		return fmt.Errorf("%w: stop returned score %d but report has %d", ErrVerification, stopScore, stats.Score)
	}
	return nil
}
