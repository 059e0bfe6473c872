package benchmarks

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/inferencemax/dashboard/pkg/metrics"
	"github.com/inferencemax/dashboard/pkg/models"
	"github.com/inferencemax/dashboard/pkg/store"
)

// DefaultCacheTTL is how long a fetched result is served before it is refetched.
const DefaultCacheTTL = 10 * time.Hour

// DiskTier is the persistent tier behind the in-memory cache.
type DiskTier interface {
	Load(workflow string, days int) (*models.CacheEntry, error)
	Save(entry *models.CacheEntry) error
	Remove(workflow string, days int) error
}

var _ DiskTier = (*store.DiskStore)(nil)

type cacheKey struct {
	workflow string
	days     int
}

// Cache is a two-tier (memory, then disk) TTL cache of fetch results keyed
// by (workflow, days). Expired entries are evicted from the tier they were
// found in. A nil disk tier makes the cache memory-only.
type Cache struct {
	mu      sync.Mutex
	entries map[cacheKey]*models.CacheEntry

	disk    DiskTier
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics
}

// NewCache creates a Cache. A non-positive ttl selects DefaultCacheTTL.
func NewCache(disk DiskTier, ttl time.Duration, m *metrics.Metrics) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		entries: make(map[cacheKey]*models.CacheEntry),
		disk:    disk,
		ttl:     ttl,
		now:     time.Now,
		metrics: m,
	}
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns a fresh entry for (workflow, days), checking memory before disk.
// A fresh disk entry is promoted into memory.
func (c *Cache) Get(workflow string, days int) (*models.CacheEntry, bool) {
	key := cacheKey{workflow, days}
	now := c.now()

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		if entry.Age(now) < c.ttl {
			c.mu.Unlock()
			c.metrics.CacheLookup(metrics.TierMemory, metrics.ResultHit)
			return entry, true
		}
		delete(c.entries, key)
		c.mu.Unlock()
		c.metrics.CacheLookup(metrics.TierMemory, metrics.ResultExpired)
	} else {
		c.mu.Unlock()
		c.metrics.CacheLookup(metrics.TierMemory, metrics.ResultMiss)
	}

	if c.disk == nil {
		return nil, false
	}

	entry, err := c.disk.Load(workflow, days)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.metrics.CacheLookup(metrics.TierDisk, metrics.ResultMiss)
		return nil, false
	case err != nil:
		log.Printf("[Cache] Failed to read disk cache for %s/%dd: %v", workflow, days, err)
		c.metrics.CacheLookup(metrics.TierDisk, metrics.ResultError)
		return nil, false
	}

	if entry.Age(now) >= c.ttl {
		c.metrics.CacheLookup(metrics.TierDisk, metrics.ResultExpired)
		if err := c.disk.Remove(workflow, days); err != nil {
			log.Printf("[Cache] Failed to remove expired cache for %s/%dd: %v", workflow, days, err)
		}
		return nil, false
	}

	// Distinct workflows can share a file name; the stored key decides.
	if entry.Workflow != workflow || entry.Days != days {
		log.Printf("[Cache] Disk cache for %s/%dd holds %s/%dd, ignoring", workflow, days, entry.Workflow, entry.Days)
		c.metrics.CacheLookup(metrics.TierDisk, metrics.ResultMiss)
		return nil, false
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	c.metrics.CacheLookup(metrics.TierDisk, metrics.ResultHit)
	log.Printf("[Cache] Loaded %s/%dd from disk (%d records)", workflow, days, len(entry.Data))
	return entry, true
}

// Set stores a new entry stamped with the current time in both tiers. A
// failed disk write is logged and leaves the entry memory-only.
func (c *Cache) Set(workflow string, days int, data []models.BenchmarkRecord, runs []models.WorkflowRun) *models.CacheEntry {
	if data == nil {
		data = []models.BenchmarkRecord{}
	}
	if runs == nil {
		runs = []models.WorkflowRun{}
	}
	entry := &models.CacheEntry{
		Data:      data,
		Runs:      runs,
		Timestamp: c.now(),
		Workflow:  workflow,
		Days:      days,
	}

	c.mu.Lock()
	c.entries[cacheKey{workflow, days}] = entry
	c.mu.Unlock()

	if c.disk != nil {
		if err := c.disk.Save(entry); err != nil {
			log.Printf("[Cache] Failed to write disk cache for %s/%dd: %v", workflow, days, err)
		}
	}
	return entry
}
