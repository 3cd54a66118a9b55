package encodesvc

import (
	"context"

	"github.com/mkrupp/memeforge/internal/domain"
)

// EncoderConfig holds configuration for the format encoder.
type EncoderConfig struct {
	// MaxPayloadBytes caps the encoded artifact size. Default is 100MB.
	MaxPayloadBytes int64 `env:"MAX_PAYLOAD_BYTES" default:"104857600"`
}

// Encoder defines the interface for encoding raster surfaces into payloads.
type Encoder interface {
	// Encode produces an encoded payload from the surface. A requested
	// format the environment cannot encode is silently substituted with PNG
	// and flagged on the payload. Tainted surfaces are refused.
	Encode(ctx context.Context, surface *domain.RasterSurface, format domain.Format, quality int) (domain.EncodedPayload, error)
}

// EncoderFactory is a function that creates a new Encoder instance.
type EncoderFactory func(ctx context.Context) (Encoder, error)
