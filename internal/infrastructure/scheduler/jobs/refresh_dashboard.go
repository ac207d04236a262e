// Package jobs contains the scheduled background jobs of the cohort engine.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cohort-hub/cohort-engine/internal/application/query"
	"github.com/cohort-hub/cohort-engine/internal/infrastructure/persistence/redis"
)

// ══════════════════════════════════════════════════════════════════════════════
// REFRESH DASHBOARD JOB
// Recomputes the community stats snapshot and caches it, so the dashboard
// reads a precomputed value instead of fanning out six storage queries
// per page load. The aggregator degrades failed metrics to zero, so this
// job succeeds even under partial storage outages.
// ══════════════════════════════════════════════════════════════════════════════

// RefreshDashboardJob recomputes and caches community stats snapshots.
type RefreshDashboardJob struct {
	stats  *query.GetCommunityStatsHandler
	cache  *redis.DashboardCache
	logger *slog.Logger

	// CohortIDs are the cohorts to precompute snapshots for, in addition
	// to the academy-wide snapshot. Updated between runs by the owner.
	cohortIDs atomic.Value // []string

	// Timeout bounds one full refresh pass.
	timeout time.Duration
}

// NewRefreshDashboardJob creates a new refresh dashboard job.
func NewRefreshDashboardJob(stats *query.GetCommunityStatsHandler, cache *redis.DashboardCache, logger *slog.Logger) *RefreshDashboardJob {
	if logger == nil {
		logger = slog.Default()
	}
	j := &RefreshDashboardJob{
		stats:   stats,
		cache:   cache,
		logger:  logger,
		timeout: 30 * time.Second,
	}
	j.cohortIDs.Store([]string{})
	return j
}

// SetCohorts replaces the set of cohorts to precompute snapshots for.
func (j *RefreshDashboardJob) SetCohorts(ids []string) {
	snapshot := make([]string, len(ids))
	copy(snapshot, ids)
	j.cohortIDs.Store(snapshot)
}

// Name returns the job name.
func (j *RefreshDashboardJob) Name() string {
	return "refresh_dashboard"
}

// Description returns a human-readable description.
func (j *RefreshDashboardJob) Description() string {
	return "Recomputes community engagement snapshots and caches them for the live dashboard"
}

// Run executes one refresh pass: the academy-wide snapshot first, then
// one snapshot per tracked cohort.
func (j *RefreshDashboardJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	refreshed := 0
	failed := 0

	if err := j.refreshOne(ctx, ""); err != nil {
		failed++
		j.logger.Warn("global dashboard refresh failed", "error", err)
	} else {
		refreshed++
	}

	for _, cohortID := range j.cohortIDs.Load().([]string) {
		if err := j.refreshOne(ctx, cohortID); err != nil {
			failed++
			j.logger.Warn("cohort dashboard refresh failed",
				"cohort_id", cohortID,
				"error", err)
			continue
		}
		refreshed++
	}

	j.logger.Info("dashboard snapshots refreshed",
		"refreshed", refreshed,
		"failed", failed)

	if failed > 0 && refreshed == 0 {
		return fmt.Errorf("refresh_dashboard: all %d snapshot refreshes failed", failed)
	}
	return nil
}

// refreshOne recomputes and stores a single snapshot.
func (j *RefreshDashboardJob) refreshOne(ctx context.Context, cohortID string) error {
	stats, err := j.stats.Handle(ctx, query.GetCommunityStatsQuery{CohortID: cohortID})
	if err != nil {
		return err
	}
	return j.cache.StoreSnapshot(ctx, cohortID, stats)
}
