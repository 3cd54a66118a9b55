package blobhandle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/mkrupp/memeforge/internal/infra/logging"
	"github.com/mkrupp/memeforge/internal/util/uuid"
)

var (
	ErrHandleTooLarge = errors.New("payload exceeds registry byte budget")
	ErrRegistryClosed = errors.New("registry is closed")
)

// RegistryConfig holds configuration for the staging-handle registry.
type RegistryConfig struct {
	// MaxBytes bounds the summed size of all outstanding handles.
	// Default is 256MB.
	MaxBytes int64 `env:"MAX_BYTES" default:"268435456"`

	// DefaultTTL applies when Create is called with a zero TTL.
	DefaultTTL time.Duration `env:"DEFAULT_TTL" default:"30s"`

	// GracePeriod extends the TTL before the sweeper reclaims a handle, so
	// a consumer that grabbed the handle just before expiry can finish.
	GracePeriod time.Duration `env:"GRACE_PERIOD" default:"2s"`

	// SweepInterval is the period of the background cleanup started by
	// StartSweep.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" default:"10s"`
}

// Handle is one staged payload. Every handle is released exactly once:
// explicitly via Release, by the TTL sweeper, or by a forced cleanup.
type Handle struct {
	token     string
	data      []byte
	createdAt time.Time
	ttl       time.Duration

	registry *Registry
}

// Token returns the opaque handle token.
func (h *Handle) Token() string {
	return h.token
}

// Bytes returns the staged payload bytes.
func (h *Handle) Bytes() []byte {
	return h.data
}

// Size returns the staged payload size in bytes.
func (h *Handle) Size() int64 {
	return int64(len(h.data))
}

// Read returns a reader over the staged payload.
func (h *Handle) Read() io.Reader {
	return bytes.NewReader(h.data)
}

// Release returns the handle's bytes to the registry budget. Releasing an
// already-released handle is a no-op; the first call wins.
func (h *Handle) Release() bool {
	return h.registry.release(h.token)
}

// Registry is the process-wide owner of all staged payload handles. It
// guarantees that no handle outlives its TTL plus the grace period and that
// the summed handle size stays within the configured budget, evicting the
// oldest handles first when it would not.
type Registry struct {
	log logging.Logger

	config     RegistryConfig
	mu         sync.Mutex
	handles    map[string]*Handle
	totalBytes int64
	closed     bool

	now func() time.Time
}

// NewRegistry creates a new handle registry with the given configuration.
func NewRegistry(cfg RegistryConfig) *Registry {
	//nolint:exhaustruct
	return &Registry{
		config: cfg,
		log: logging.GetLogger("repo.blobhandle.registry").With(
			logging.Group("registry",
				"maxBytes", cfg.MaxBytes,
				"defaultTTL", cfg.DefaultTTL,
			),
		),
		handles: make(map[string]*Handle),
		now:     time.Now,
	}
}

// Create stages a payload and returns its handle. A zero ttl uses the
// configured default. Payloads larger than the whole budget are refused;
// otherwise the oldest handles are evicted until the new one fits.
func (reg *Registry) Create(ctx context.Context, data []byte, ttl time.Duration) (*Handle, error) {
	if ttl <= 0 {
		ttl = reg.config.DefaultTTL
	}

	size := int64(len(data))
	if size > reg.config.MaxBytes {
		return nil, fmt.Errorf("%w: %d > %d", ErrHandleTooLarge, size, reg.config.MaxBytes)
	}

	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("new token: %w", err)
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if reg.closed {
		return nil, ErrRegistryClosed
	}

	for reg.totalBytes+size > reg.config.MaxBytes {
		if !reg.evictOldestLocked(ctx) {
			break
		}
	}

	for _, taken := reg.handles[token]; taken; _, taken = reg.handles[token] {
		if token, err = newToken(); err != nil {
			return nil, fmt.Errorf("new token: %w", err)
		}
	}

	handle := &Handle{
		token:     token,
		data:      data,
		createdAt: reg.now(),
		ttl:       ttl,
		registry:  reg,
	}

	reg.handles[token] = handle
	reg.totalBytes += size

	reg.log.DebugContext(ctx, "handle created",
		"token", token,
		"size", size,
		"ttl", ttl,
		"totalBytes", reg.totalBytes,
	)

	return handle, nil
}

// CleanupExpired removes every handle past its TTL plus the grace period and
// returns how many were reclaimed. With force set, all outstanding handles
// are reclaimed regardless of age; hosts wire this to shutdown.
func (reg *Registry) CleanupExpired(ctx context.Context, force bool) int {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reclaimed := 0

	for token, handle := range reg.handles {
		age := reg.now().Sub(handle.createdAt)
		if force || age > handle.ttl+reg.config.GracePeriod {
			reg.removeLocked(token)
			reclaimed++
		}
	}

	if reclaimed > 0 {
		reg.log.DebugContext(ctx, "handles reclaimed",
			"count", reclaimed,
			"force", force,
			"totalBytes", reg.totalBytes,
		)
	}

	return reclaimed
}

// StartSweep runs CleanupExpired on the configured interval until the
// returned stop function is called or the context is cancelled.
func (reg *Registry) StartSweep(ctx context.Context) (stop func()) {
	sweepCtx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(reg.config.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				reg.CleanupExpired(sweepCtx, false)
			}
		}
	}()

	return cancel
}

// Close force-reclaims all handles and refuses further Create calls.
func (reg *Registry) Close(ctx context.Context) {
	reg.CleanupExpired(ctx, true)

	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.closed = true
}

// Outstanding returns the number of live handles.
func (reg *Registry) Outstanding() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	return len(reg.handles)
}

// TotalBytes returns the summed size of all live handles.
func (reg *Registry) TotalBytes() int64 {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	return reg.totalBytes
}

func (reg *Registry) release(token string) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.handles[token]; !ok {
		return false
	}

	reg.removeLocked(token)

	return true
}

func (reg *Registry) removeLocked(token string) {
	handle, ok := reg.handles[token]
	if !ok {
		return
	}

	delete(reg.handles, token)
	reg.totalBytes -= handle.Size()
}

// evictOldestLocked reclaims the single oldest handle. Returns false when
// the registry is empty.
func (reg *Registry) evictOldestLocked(ctx context.Context) bool {
	if len(reg.handles) == 0 {
		return false
	}

	ordered := make([]*Handle, 0, len(reg.handles))
	for _, handle := range reg.handles {
		ordered = append(ordered, handle)
	}

	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].createdAt.Before(ordered[j].createdAt)
	})

	reg.removeLocked(ordered[0].token)

	reg.log.DebugContext(ctx, "oldest handle evicted over budget",
		"token", ordered[0].token,
		"totalBytes", reg.totalBytes,
	)

	return true
}

func newToken() (string, error) {
	id, err := uuid.New(uuid.UUIDv7)
	if err != nil {
		return "", fmt.Errorf("uuid: %w", err)
	}

	return "blob-" + id.Short(), nil
}
