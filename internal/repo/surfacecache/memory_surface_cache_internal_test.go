package surfacecache

import (
	"context"
	"testing"
	"time"

	"github.com/mkrupp/memeforge/internal/domain"
)

func TestMemorySurfaceCache_TTLExpiry(t *testing.T) {
	t.Parallel()

	cache := NewMemorySurfaceCache(MemorySurfaceCacheConfig{
		MemoryBudget: 1 << 20,
		MaxEntries:   10,
		TTL:          5 * time.Minute,
	})

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return current }

	cache.Put(context.TODO(), "k", domain.NewRasterSurface(2, 2))

	if _, ok := cache.Get(context.TODO(), "k"); !ok {
		t.Fatal("expected fresh hit")
	}

	// A hit past the TTL must behave as a miss and evict the entry.
	current = current.Add(6 * time.Minute)

	if _, ok := cache.Get(context.TODO(), "k"); ok {
		t.Error("expected expired entry to miss")
	}

	if cache.Len() != 0 || cache.MemoryUsed() != 0 {
		t.Errorf("expired entry not evicted: len=%d memoryUsed=%d", cache.Len(), cache.MemoryUsed())
	}
}

func TestMemorySurfaceCache_EvictExpired(t *testing.T) {
	t.Parallel()

	cache := NewMemorySurfaceCache(MemorySurfaceCacheConfig{
		MemoryBudget: 1 << 20,
		MaxEntries:   10,
		TTL:          time.Minute,
	})

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return current }

	cache.Put(context.TODO(), "old", domain.NewRasterSurface(2, 2))

	current = current.Add(45 * time.Second)
	cache.Put(context.TODO(), "fresh", domain.NewRasterSurface(2, 2))

	current = current.Add(30 * time.Second) // "old" is now 75s old, "fresh" 30s

	if evicted := cache.EvictExpired(context.TODO()); evicted != 1 {
		t.Errorf("EvictExpired() = %d, want 1", evicted)
	}

	if _, ok := cache.Get(context.TODO(), "fresh"); !ok {
		t.Error("fresh entry was evicted")
	}
}
