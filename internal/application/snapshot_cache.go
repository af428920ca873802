package application

import (
	"sync"
	"time"

	"github.com/example/prayer-debt/internal/domain"
)

// snapshotCache keeps recently read snapshots so repeated reads skip the
// store and the field decryption behind it. Writers invalidate their user.
type snapshotCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]snapshotCacheEntry
}

type snapshotCacheEntry struct {
	snapshot  domain.Snapshot
	expiresAt time.Time
}

// newSnapshotCache returns nil, a disabled cache, when ttl is not positive.
func newSnapshotCache(ttl time.Duration, maxEntries int, now func() time.Time) *snapshotCache {
	if ttl <= 0 {
		return nil
	}
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	if now == nil {
		now = time.Now
	}
	return &snapshotCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]snapshotCacheEntry),
	}
}

func (c *snapshotCache) Get(userID string) (domain.Snapshot, bool) {
	if c == nil {
		return domain.Snapshot{}, false
	}
	c.mu.RLock()
	entry, ok := c.entries[userID]
	c.mu.RUnlock()
	if !ok {
		return domain.Snapshot{}, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, userID)
		c.mu.Unlock()
		return domain.Snapshot{}, false
	}
	return cloneSnapshot(entry.snapshot), true
}

func (c *snapshotCache) Store(snapshot domain.Snapshot) {
	if c == nil {
		return
	}
	cloned := cloneSnapshot(snapshot)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if _, exists := c.entries[snapshot.UserID]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[snapshot.UserID] = snapshotCacheEntry{snapshot: cloned, expiresAt: expiry}
}

func (c *snapshotCache) Invalidate(userID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}

func (c *snapshotCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *snapshotCache) evictOneLocked() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for key, entry := range c.entries {
		if oldestKey == "" || entry.expiresAt.Before(oldest) {
			oldestKey, oldest = key, entry.expiresAt
		}
	}
	delete(c.entries, oldestKey)
}

func cloneSnapshot(s domain.Snapshot) domain.Snapshot {
	out := s
	if s.Women != nil {
		women := *s.Women
		out.Women = &women
	}
	if s.Travel.Periods != nil {
		out.Travel.Periods = make([]domain.TravelPeriod, len(s.Travel.Periods))
		for i, p := range s.Travel.Periods {
			if p.DaysCount != nil {
				days := *p.DaysCount
				p.DaysCount = &days
			}
			out.Travel.Periods[i] = p
		}
	}
	return out
}
