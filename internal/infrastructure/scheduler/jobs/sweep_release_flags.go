package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/cohort-hub/cohort-engine/internal/domain/release"
	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SWEEP RELEASE FLAGS JOB
// Flips the advisory Released flag on records whose unlock instant has
// passed. Availability checks never trust the flag - it exists so listing
// queries can filter released lessons without comparing timestamps.
// ══════════════════════════════════════════════════════════════════════════════

// SweepReleaseFlagsJob flips advisory release flags on due records.
type SweepReleaseFlagsJob struct {
	releases release.Repository
	clock    shared.Clock
	logger   *slog.Logger
}

// NewSweepReleaseFlagsJob creates a new sweep job.
func NewSweepReleaseFlagsJob(releases release.Repository, clock shared.Clock, logger *slog.Logger) *SweepReleaseFlagsJob {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &SweepReleaseFlagsJob{
		releases: releases,
		clock:    clock,
		logger:   logger,
	}
}

// Name returns the job name.
func (j *SweepReleaseFlagsJob) Name() string {
	return "sweep_release_flags"
}

// Description returns a human-readable description.
func (j *SweepReleaseFlagsJob) Description() string {
	return "Flips the advisory released flag on lesson release records whose unlock time has passed"
}

// Run executes one sweep.
func (j *SweepReleaseFlagsJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	flipped, err := j.releases.MarkReleased(ctx, j.clock.Now())
	if err != nil {
		return err
	}

	if flipped > 0 {
		j.logger.Info("release flags swept", "flipped", flipped)
	}
	return nil
}
