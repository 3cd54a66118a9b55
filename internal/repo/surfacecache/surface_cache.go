package surfacecache

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"

	"github.com/mkrupp/memeforge/internal/domain"
	"github.com/mkrupp/memeforge/internal/util/encoding"
)

// Cache defines the interface for the rasterized-surface cache.
//
// Implementations must preserve isolation: surfaces handed out by Get and
// surfaces handed in to Put are cloned, so no caller ever shares pixels with
// the cache.
type Cache interface {
	// Get returns a clone of the cached surface for key and refreshes its
	// last-access time. A hit older than the TTL counts as a miss and is
	// evicted.
	Get(ctx context.Context, key string) (*domain.RasterSurface, bool)

	// Put inserts a clone of the surface under key, evicting expired and
	// least-recently-used entries first so the memory budget and entry count
	// limits hold afterwards.
	Put(ctx context.Context, key string, surface *domain.RasterSurface)

	// EvictExpired removes all entries older than the TTL and returns how
	// many were dropped. Intended for a periodic timer wired by the host.
	EvictExpired(ctx context.Context) int

	// Clear drops all entries.
	Clear(ctx context.Context)

	// Len returns the current entry count.
	Len() int

	// MemoryUsed returns the summed byte cost of all entries.
	MemoryUsed() int64
}

// CacheFactory is a function that creates a new Cache instance.
type CacheFactory func(ctx context.Context) (Cache, error)

// KeyFor derives the cache key for a source at the given raster dimensions.
// The key is a non-cryptographic FNV hash of the source identity plus the
// dimensions; identical-looking sources may share a slot by design.
func KeyFor(source domain.ImageSource, width, height int) string {
	hasher := fnv.New64a()

	_, _ = hasher.Write([]byte(source.Identity()))
	_ = binary.Write(hasher, binary.BigEndian, int64(width))
	_ = binary.Write(hasher, binary.BigEndian, int64(height))

	return fmt.Sprintf("%s_%dx%d", encoding.EncodeCrockfordB32LC(hasher.Sum(nil)), width, height)
}
