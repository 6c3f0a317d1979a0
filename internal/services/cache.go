package services

import (
	"sync"
	"time"

	"greenalgeria-api/internal/models"
)

type sampleEntry struct {
	contributions []*models.Contribution
	expires       time.Time
}

// SampleCache keeps recent list queries (mainly the "latest contribution"
// sample the map UI polls) out of Firestore for a short TTL.
type SampleCache struct {
	cache           map[int]*sampleEntry
	mu              sync.RWMutex
	ttl             time.Duration
	cleanupInterval time.Duration
}

func NewSampleCache(ttl, cleanupInterval time.Duration) *SampleCache {
	sc := &SampleCache{
		cache:           make(map[int]*sampleEntry),
		ttl:             ttl,
		cleanupInterval: cleanupInterval,
	}

	// Start cleanup goroutine
	go sc.cleanupExpired()

	return sc
}

// Retrieves a cached list result by its limit, or false when absent or
// expired.
func (sc *SampleCache) Get(limit int) ([]*models.Contribution, bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	entry, ok := sc.cache[limit]
	if !ok {
		return nil, false
	}

	if entry.expires.Before(time.Now()) {
		return nil, false
	}

	return entry.contributions, true
}

// Stores a list result under its limit. The entry expires after the
// configured TTL.
func (sc *SampleCache) Set(limit int, contributions []*models.Contribution) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.cache[limit] = &sampleEntry{
		contributions: contributions,
		expires:       time.Now().Add(sc.ttl),
	}
}

// Invalidate drops all cached results. Called after every write so a fresh
// list reflects the new contribution immediately.
func (sc *SampleCache) Invalidate() {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.cache = make(map[int]*sampleEntry)
}

// Periodically removes expired entries from the cache.
// This runs in a background goroutine started by NewSampleCache.
func (sc *SampleCache) cleanupExpired() {
	ticker := time.NewTicker(sc.cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		sc.mu.Lock()
		for k, v := range sc.cache {
			if v.expires.Before(now) {
				delete(sc.cache, k)
			}
		}
		sc.mu.Unlock()
	}
}
