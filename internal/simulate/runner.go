package simulate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/proctor/internal/adapters/detect"
	"github.com/okian/proctor/internal/domain/types"
	"github.com/okian/proctor/internal/export"
	"github.com/okian/proctor/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// driftTolerance is how far the push loop may fall behind its cadence
// before a warning is logged.
const driftTolerance = 1.5

// Run executes the scripted session against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if cfg.FaceInterval <= 0 || cfg.ObjectInterval <= 0 {
		return nil, fmt.Errorf("%w: intervals must be positive", ErrInvalidConfig)
	}

	log := logger.Named("simulate")
	stats := &Stats{StartTime: time.Now()}
	client := NewClient(cfg.BaseURL, cfg.Timeout)
	scenario := BuildScenario(cfg)
	stats.Expected = scenario.Expected

	log.Info(ctx, "starting simulated session",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("candidate", cfg.Candidate),
		logger.String("faceInterval", cfg.FaceInterval.String()),
		logger.String("objectInterval", cfg.ObjectInterval.String()),
		logger.Int("ticks", scenario.Ticks()))

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Start the session
	sum, err := client.StartSession(ctx, cfg.Candidate, DefaultFrameHeight)
	if err != nil {
		return stats, fmt.Errorf("session start failed: %w", err)
	}
	stats.SessionID = sum.SessionID
	log.Info(ctx, "session started", logger.String("sessionID", sum.SessionID))

	// Step 3: Push the scripted detector results at cadence
	if err := push(ctx, cfg, client, scenario, stats); err != nil {
		return stats, fmt.Errorf("push failed: %w", err)
	}

	// Step 4: Stop and fetch the report
	final, err := client.StopSession(ctx, stats.SessionID)
	if err != nil {
		return stats, fmt.Errorf("session stop failed: %w", err)
	}
	report, err := client.Report(ctx, stats.SessionID)
	if err != nil {
		return stats, fmt.Errorf("report retrieval failed: %w", err)
	}
	stats.Observed = report.Metrics
	stats.Score = report.IntegrityScore

	if cfg.OutputFile != "" {
		if err := saveReport(cfg.OutputFile, report); err != nil {
			log.Warn(ctx, "failed to save report", logger.Error(err))
		} else {
			log.Info(ctx, "report saved", logger.String("filename", cfg.OutputFile))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	// Step 5: Verify
	if err := verify(stats, final.IntegrityScore); err != nil {
		return stats, err
	}

	displayFinalStats(ctx, stats)
	return stats, nil
}

func push(ctx context.Context, cfg *Config, client *Client, sc Scenario, stats *Stats) error {
	log := logger.Named("simulate")
	objectEvery := int(cfg.ObjectInterval / cfg.FaceInterval)
	if objectEvery < 1 {
		objectEvery = 1
	}

	ticker := time.NewTicker(cfg.FaceInterval)
	defer ticker.Stop()

	begin := time.Now()
	tick := 0
	for _, phase := range sc.Phases {
		log.Info(ctx, "phase", logger.String("name", phase.Name), logger.Int("ticks", phase.Ticks))
		for i := 0; i < phase.Ticks; i++ {
			tickID := newTickID()
			ack, err := client.PushFaces(ctx, stats.SessionID, tickID, DefaultFrameHeight, phase.Faces)
			if err != nil {
				stats.Failed++
				return err
			}
			stats.FacePushes++
			if ack.Dropped {
				stats.Dropped++
			}
			if cfg.Verbose {
				log.Debug(ctx, "faces pushed", logger.String("tickID", tickID), logger.String("phase", phase.Name))
			}

			// Replaying the very first tick must be acknowledged as a duplicate.
			if tick == 0 {
				dup, err := client.PushFaces(ctx, stats.SessionID, tickID, DefaultFrameHeight, phase.Faces)
				if err != nil {
					stats.Failed++
					return err
				}
				if dup.Duplicate {
					stats.Duplicates++
				}
			}

			var objects []detect.ObjectWire
			send := tick%objectEvery == 0
			if i == 0 && len(phase.Objects) > 0 {
				objects, send = phase.Objects, true
			}
			if send {
				ack, err := client.PushObjects(ctx, stats.SessionID, newTickID(), objects)
				if err != nil {
					stats.Failed++
					return err
				}
				stats.ObjectPushes++
				if ack.Dropped {
					stats.Dropped++
				}
			}

			tick++
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}

	want := time.Duration(tick) * cfg.FaceInterval
	if elapsed := time.Since(begin); float64(elapsed) > float64(want)*driftTolerance {
		log.Warn(ctx, "push loop fell behind its cadence",
			logger.String("elapsed", elapsed.String()),
			logger.String("expected", want.String()))
	}
	if stats.Dropped > 0 {
		log.Warn(ctx, "server evicted pending detector results", logger.Int("dropped", stats.Dropped))
	}
	return nil
}

func saveReport(filename string, report types.Report) error { //nolint:gocritic // hugeParam: read-only view
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return export.WriteReport(file, report)
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	logger.Named("simulate").Info(ctx, "final statistics",
		logger.String("sessionID", stats.SessionID),
		logger.Int("facePushes", stats.FacePushes),
		logger.Int("objectPushes", stats.ObjectPushes),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("dropped", stats.Dropped),
		logger.Any("metrics", stats.Observed),
		logger.Int("integrityScore", stats.Score),
		logger.String("duration", stats.Duration.String()))
}
