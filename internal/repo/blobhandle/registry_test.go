package blobhandle_test

import (
	"context"
	"testing"
	"time"

	. "github.com/mkrupp/memeforge/internal/repo/blobhandle"
)

func testRegistryConfig() RegistryConfig {
	return RegistryConfig{
		MaxBytes:      1024,
		DefaultTTL:    time.Minute,
		GracePeriod:   time.Second,
		SweepInterval: time.Minute,
	}
}

func TestRegistry_CreateAndRelease(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(testRegistryConfig())

	handle, err := registry.Create(context.TODO(), []byte("payload"), 0)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if handle.Token() == "" {
		t.Error("handle has empty token")
	}

	if registry.Outstanding() != 1 || registry.TotalBytes() != 7 {
		t.Errorf("outstanding=%d totalBytes=%d, want 1/7", registry.Outstanding(), registry.TotalBytes())
	}

	// First release wins, second is a no-op.
	if !handle.Release() {
		t.Error("first release reported no-op")
	}

	if handle.Release() {
		t.Error("second release reported success")
	}

	if registry.Outstanding() != 0 || registry.TotalBytes() != 0 {
		t.Errorf("outstanding=%d totalBytes=%d after release, want 0/0", registry.Outstanding(), registry.TotalBytes())
	}
}

func TestRegistry_ByteBudgetEvictsOldest(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(testRegistryConfig())

	oldest, err := registry.Create(context.TODO(), make([]byte, 512), 0)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := registry.Create(context.TODO(), make([]byte, 400), 0); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Third payload does not fit; the oldest handle must be evicted for it.
	if _, err := registry.Create(context.TODO(), make([]byte, 500), 0); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if registry.TotalBytes() > 1024 {
		t.Errorf("totalBytes %d exceeds budget", registry.TotalBytes())
	}

	if oldest.Release() {
		t.Error("evicted handle was still registered")
	}
}

func TestRegistry_RejectsOversizedPayload(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(testRegistryConfig())

	if _, err := registry.Create(context.TODO(), make([]byte, 2048), 0); err == nil {
		t.Error("expected error for payload above budget, got nil")
	}
}

func TestRegistry_ForceCleanupEmptiesRegistry(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(testRegistryConfig())

	for range 3 {
		if _, err := registry.Create(context.TODO(), []byte("x"), time.Hour); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	if reclaimed := registry.CleanupExpired(context.TODO(), true); reclaimed != 3 {
		t.Errorf("CleanupExpired(force) = %d, want 3", reclaimed)
	}

	if registry.Outstanding() != 0 {
		t.Errorf("outstanding = %d after force cleanup, want 0", registry.Outstanding())
	}
}

func TestRegistry_CloseRefusesNewHandles(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(testRegistryConfig())
	registry.Close(context.TODO())

	if _, err := registry.Create(context.TODO(), []byte("x"), 0); err == nil {
		t.Error("expected error after close, got nil")
	}
}
