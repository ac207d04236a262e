package redis

import (
	"context"

	"github.com/cohort-hub/cohort-engine/internal/domain/community"
)

// ══════════════════════════════════════════════════════════════════════════════
// DASHBOARD CACHE
// The community dashboard polls every few seconds; the snapshot is
// recomputed by a background job and served from here. A missing snapshot
// means the job has not run yet, not an error page.
// ══════════════════════════════════════════════════════════════════════════════

// DashboardCache stores precomputed community stats snapshots.
type DashboardCache struct {
	cache *Cache
}

// NewDashboardCache creates a new DashboardCache.
func NewDashboardCache(cache *Cache) *DashboardCache {
	return &DashboardCache{cache: cache}
}

// StoreSnapshot caches a stats snapshot for a cohort.
// An empty cohort ID stores the academy-wide snapshot.
func (d *DashboardCache) StoreSnapshot(ctx context.Context, cohortID string, stats *community.Stats) error {
	if stats == nil {
		return ErrCacheNilValue
	}
	return d.cache.Set(ctx, DashboardKey(cohortID), stats, TTLDashboardSnapshot)
}

// GetSnapshot returns the cached snapshot for a cohort.
// Returns ErrCacheMiss when no snapshot has been computed yet.
func (d *DashboardCache) GetSnapshot(ctx context.Context, cohortID string) (*community.Stats, error) {
	var stats community.Stats
	if err := d.cache.Get(ctx, DashboardKey(cohortID), &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
