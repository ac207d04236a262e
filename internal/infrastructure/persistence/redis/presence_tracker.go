package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cohort-hub/cohort-engine/internal/domain/shared"

	"github.com/redis/go-redis/v9"
)

// ══════════════════════════════════════════════════════════════════════════════
// PRESENCE TRACKER
// Implements community.PresenceTracker on two structures:
//   - a per-user heartbeat key with TTLPresence, so a learner expires
//     out of "online" without any sweeper
//   - a sorted set of all users scored by last-seen unix time, for cheap
//     academy-wide counts and batch membership checks
// ══════════════════════════════════════════════════════════════════════════════

// keyPresenceAll is the sorted set of last-seen timestamps per user.
const keyPresenceAll = PrefixPresence + "all"

// PresenceTracker tracks learner activity heartbeats in Redis.
type PresenceTracker struct {
	cache *Cache
}

// NewPresenceTracker creates a new PresenceTracker.
func NewPresenceTracker(cache *Cache) *PresenceTracker {
	return &PresenceTracker{cache: cache}
}

// Touch records a heartbeat for the user, refreshing the presence window.
func (t *PresenceTracker) Touch(ctx context.Context, userID shared.UserID) error {
	if !userID.IsValid() {
		return ErrCacheKeyEmpty
	}

	now := time.Now().UTC()
	pipe := t.cache.Client().Pipeline()
	pipe.Set(ctx, PresenceKey(string(userID)), now.Unix(), TTLPresence)
	pipe.ZAdd(ctx, keyPresenceAll, redis.Z{
		Score:  float64(now.Unix()),
		Member: string(userID),
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("presence: failed to record heartbeat: %w", err)
	}
	return nil
}

// CountOnline returns the number of users with a heartbeat inside the
// presence window. Stale sorted-set entries are trimmed on the way.
func (t *PresenceTracker) CountOnline(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-TTLPresence).Unix()
	client := t.cache.Client()

	// Trim entries that fell out of the window.
	if err := client.ZRemRangeByScore(ctx, keyPresenceAll, "-inf", fmt.Sprintf("(%d", cutoff)).Err(); err != nil {
		return 0, fmt.Errorf("presence: failed to trim stale entries: %w", err)
	}

	count, err := client.ZCount(ctx, keyPresenceAll, fmt.Sprintf("%d", cutoff), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("presence: failed to count online users: %w", err)
	}
	return int(count), nil
}

// FilterOnline returns the subset of userIDs that are currently online.
// Order of the input is preserved.
func (t *PresenceTracker) FilterOnline(ctx context.Context, userIDs []shared.UserID) ([]shared.UserID, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	cutoff := float64(time.Now().UTC().Add(-TTLPresence).Unix())
	client := t.cache.Client()

	pipe := client.Pipeline()
	cmds := make([]*redis.FloatCmd, len(userIDs))
	for i, id := range userIDs {
		cmds[i] = pipe.ZScore(ctx, keyPresenceAll, string(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("presence: failed to check members: %w", err)
	}

	var online []shared.UserID
	for i, cmd := range cmds {
		score, err := cmd.Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("presence: failed to read member score: %w", err)
		}
		if score >= cutoff {
			online = append(online, userIDs[i])
		}
	}
	return online, nil
}

// LastSeen returns the last heartbeat instant for a user,
// or ErrCacheMiss when the user has never been seen.
func (t *PresenceTracker) LastSeen(ctx context.Context, userID shared.UserID) (time.Time, error) {
	score, err := t.cache.Client().ZScore(ctx, keyPresenceAll, string(userID)).Result()
	if err == redis.Nil {
		return time.Time{}, ErrCacheMiss
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("presence: failed to read last seen: %w", err)
	}
	return time.Unix(int64(score), 0).UTC(), nil
}
