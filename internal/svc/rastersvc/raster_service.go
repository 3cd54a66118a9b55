package rastersvc

import (
	"context"
	"time"

	"github.com/mkrupp/memeforge/internal/domain"
)

// RasterizerConfig holds configuration for the rasterizer service.
type RasterizerConfig struct {
	// MaxDimension caps a single side of a rasterized surface. 4096 suits
	// constrained device profiles, 8192 desktop-class ones.
	MaxDimension int `env:"MAX_DIMENSION" default:"8192"`

	// MaxPixels caps the total pixel count of a rasterized surface.
	MaxPixels int64 `env:"MAX_PIXELS" default:"33554432"`

	// MemoryBudget caps the projected RGBA footprint (width * height * 4)
	// of a single surface. Default is 512MB.
	MemoryBudget int64 `env:"MEMORY_BUDGET" default:"536870912"`

	// MaxDataURIBytes caps the decoded size of an inline data URI payload,
	// checked before decoding. Default is 50MB.
	MaxDataURIBytes int64 `env:"MAX_DATA_URI_BYTES" default:"52428800"`

	// FetchTimeout bounds a single source fetch over HTTP.
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT" default:"30s"`

	// Interpolator selects the scaling algorithm
	// ("nearestneighbor", "catmullrom", "bilinear", "approxbilinear").
	Interpolator string `env:"INTERPOLATOR" default:"catmullrom"`

	// Credentials, when set, is sent as the Authorization header on source
	// fetches. A 401/403 response triggers one anonymous retry whose result
	// is marked tainted.
	Credentials string `env:"CREDENTIALS" default:""`

	// CacheEnabled controls whether rasterized surfaces are looked up in and
	// inserted into the surface cache.
	CacheEnabled bool `env:"CACHE_ENABLED" default:"true"`
}

// RasterOptions selects the target raster dimensions for one call. Zero
// values mean the source's native dimensions.
type RasterOptions struct {
	TargetWidth  int
	TargetHeight int
}

// Rasterizer defines the interface for turning an image source into an owned
// RGBA surface.
type Rasterizer interface {
	// Rasterize resolves, decodes, safety-checks and draws the source at the
	// requested dimensions. The returned surface is owned by the caller.
	Rasterize(ctx context.Context, source domain.ImageSource, opts RasterOptions) (*domain.RasterSurface, error)
}

// RasterizerFactory is a function that creates a new Rasterizer instance.
type RasterizerFactory func(ctx context.Context) (Rasterizer, error)
