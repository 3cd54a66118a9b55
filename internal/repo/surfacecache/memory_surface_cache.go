package surfacecache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mkrupp/memeforge/internal/domain"
	"github.com/mkrupp/memeforge/internal/infra/logging"
)

const evictBatchFraction = 0.3

// MemorySurfaceCacheConfig holds configuration for the in-memory surface cache.
type MemorySurfaceCacheConfig struct {
	// MemoryBudget is the maximum summed byte cost of all cached surfaces.
	// Default is 100MB.
	MemoryBudget int64 `env:"MEMORY_BUDGET" default:"104857600"`

	// MaxEntries is the maximum number of cached surfaces.
	MaxEntries int `env:"MAX_ENTRIES" default:"10"`

	// TTL is how long an entry stays usable after creation.
	TTL time.Duration `env:"TTL" default:"5m"`
}

type cacheEntry struct {
	key          string
	surface      *domain.RasterSurface
	createdAt    time.Time
	lastAccessed time.Time
	sizeBytes    int64
}

// MemorySurfaceCache implements Cache with a bounded in-memory store.
// A single mutex guards all state; memoryUsed is adjusted on every insert
// and evict so it always equals the sum of entry costs exactly.
type MemorySurfaceCache struct {
	cfg        MemorySurfaceCacheConfig
	log        logging.Logger
	mu         sync.Mutex
	entries    map[string]*cacheEntry
	memoryUsed int64

	now func() time.Time
}

var _ Cache = (*MemorySurfaceCache)(nil)

// MemorySurfaceCacheFactory creates a factory function that returns a new
// MemorySurfaceCache. The factory function implements the CacheFactory type.
func MemorySurfaceCacheFactory(cfg MemorySurfaceCacheConfig) CacheFactory {
	return func(ctx context.Context) (Cache, error) {
		return NewMemorySurfaceCache(cfg), nil
	}
}

// NewMemorySurfaceCache creates a new MemorySurfaceCache with the given configuration.
func NewMemorySurfaceCache(cfg MemorySurfaceCacheConfig) *MemorySurfaceCache {
	return &MemorySurfaceCache{
		cfg: cfg,
		log: logging.GetLogger("repo.surfacecache.memory_surface_cache").With(
			logging.Group("cache",
				"budget", cfg.MemoryBudget,
				"maxEntries", cfg.MaxEntries,
				"ttl", cfg.TTL,
			),
		),
		mu:         sync.Mutex{},
		entries:    make(map[string]*cacheEntry),
		memoryUsed: 0,
		now:        time.Now,
	}
}

// Get implements Cache.Get with clone-on-read semantics.
func (cache *MemorySurfaceCache) Get(ctx context.Context, key string) (*domain.RasterSurface, bool) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	entry, ok := cache.entries[key]
	if !ok {
		return nil, false
	}

	if cache.now().Sub(entry.createdAt) > cache.cfg.TTL {
		cache.removeLocked(entry)
		cache.log.DebugContext(ctx, "cache entry expired on read", "key", key)

		return nil, false
	}

	entry.lastAccessed = cache.now()

	return entry.surface.Clone(), true
}

// Put implements Cache.Put. Surfaces larger than the whole budget are not
// cached at all.
func (cache *MemorySurfaceCache) Put(ctx context.Context, key string, surface *domain.RasterSurface) {
	cost := surface.SizeBytes()
	if cost > cache.cfg.MemoryBudget || cost == 0 {
		cache.log.DebugContext(ctx, "surface not cacheable", "key", key, "cost", cost)

		return
	}

	cache.mu.Lock()
	defer cache.mu.Unlock()

	if existing, ok := cache.entries[key]; ok {
		cache.removeLocked(existing)
	}

	cache.evictExpiredLocked(ctx)

	for cache.memoryUsed+cost > cache.cfg.MemoryBudget || len(cache.entries)+1 > cache.cfg.MaxEntries {
		if !cache.evictBatchLocked(ctx) {
			break
		}
	}

	entry := &cacheEntry{
		key:          key,
		surface:      surface.Clone(),
		createdAt:    cache.now(),
		lastAccessed: cache.now(),
		sizeBytes:    cost,
	}

	cache.entries[key] = entry
	cache.memoryUsed += cost

	cache.log.DebugContext(ctx, "surface cached",
		"key", key,
		"cost", cost,
		"memoryUsed", cache.memoryUsed,
		"entries", len(cache.entries),
	)
}

// EvictExpired implements Cache.EvictExpired.
func (cache *MemorySurfaceCache) EvictExpired(ctx context.Context) int {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	return cache.evictExpiredLocked(ctx)
}

// Clear implements Cache.Clear.
func (cache *MemorySurfaceCache) Clear(ctx context.Context) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	dropped := len(cache.entries)
	cache.entries = make(map[string]*cacheEntry)
	cache.memoryUsed = 0

	cache.log.DebugContext(ctx, "cache cleared", "dropped", dropped)
}

// Len implements Cache.Len.
func (cache *MemorySurfaceCache) Len() int {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	return len(cache.entries)
}

// MemoryUsed implements Cache.MemoryUsed.
func (cache *MemorySurfaceCache) MemoryUsed() int64 {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	return cache.memoryUsed
}

func (cache *MemorySurfaceCache) removeLocked(entry *cacheEntry) {
	delete(cache.entries, entry.key)
	cache.memoryUsed -= entry.sizeBytes
}

func (cache *MemorySurfaceCache) evictExpiredLocked(ctx context.Context) int {
	evicted := 0

	for _, entry := range cache.entries {
		if cache.now().Sub(entry.createdAt) > cache.cfg.TTL {
			cache.removeLocked(entry)
			evicted++
		}
	}

	if evicted > 0 {
		cache.log.DebugContext(ctx, "expired entries evicted", "count", evicted)
	}

	return evicted
}

// evictBatchLocked removes the least-recently-accessed ~30% of entries in one
// sweep. Batch eviction amortizes the sort cost over several inserts instead
// of paying it per entry. Returns false once nothing is left to evict.
func (cache *MemorySurfaceCache) evictBatchLocked(ctx context.Context) bool {
	if len(cache.entries) == 0 {
		return false
	}

	ordered := make([]*cacheEntry, 0, len(cache.entries))
	for _, entry := range cache.entries {
		ordered = append(ordered, entry)
	}

	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].lastAccessed.Before(ordered[j].lastAccessed)
	})

	batch := int(float64(len(ordered)) * evictBatchFraction)
	if batch < 1 {
		batch = 1
	}

	for _, entry := range ordered[:batch] {
		cache.removeLocked(entry)
	}

	cache.log.DebugContext(ctx, "lru batch evicted",
		"count", batch,
		"memoryUsed", cache.memoryUsed,
	)

	return true
}
