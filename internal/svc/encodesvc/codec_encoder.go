package encodesvc

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"image/png"

	"github.com/chai2010/webp"

	"github.com/mkrupp/memeforge/internal/domain"
	"github.com/mkrupp/memeforge/internal/infra/logging"
	"github.com/mkrupp/memeforge/internal/svc/probesvc"
)

// CodecEncoder implements Encoder on top of the stdlib png/jpeg codecs and
// the cgo-free webp codec, guided by a capability report.
type CodecEncoder struct {
	config EncoderConfig
	log    logging.Logger
	report probesvc.CapabilityReport
}

var _ Encoder = (*CodecEncoder)(nil)

// CodecEncoderFactory creates a factory function that returns a new
// CodecEncoder. The factory function implements the EncoderFactory type.
func CodecEncoderFactory(cfg EncoderConfig, report probesvc.CapabilityReport) EncoderFactory {
	return func(ctx context.Context) (Encoder, error) {
		return NewCodecEncoder(cfg, report), nil
	}
}

// NewCodecEncoder creates a new CodecEncoder honoring the given capability
// report.
func NewCodecEncoder(cfg EncoderConfig, report probesvc.CapabilityReport) *CodecEncoder {
	return &CodecEncoder{
		config: cfg,
		log:    logging.GetLogger("svc.encodesvc.codec_encoder"),
		report: report,
	}
}

// Encode implements Encoder.Encode.
func (enc *CodecEncoder) Encode(
	ctx context.Context,
	surface *domain.RasterSurface,
	format domain.Format,
	quality int,
) (payload domain.EncodedPayload, err error) {
	defer func() {
		enc.log.DebugContext(ctx, "encode",
			"format", payload.Format().String(),
			"substituted", payload.Substituted(),
			"size", payload.Size(),
			"error", err,
		)
	}()

	if surface == nil || surface.Width() == 0 || surface.Height() == 0 {
		return domain.EncodedPayload{}, &domain.ValidationError{
			Reason: "cannot encode an empty surface",
			Err:    domain.ErrSurfaceEmpty,
		}
	}

	if surface.Tainted() {
		return domain.EncodedPayload{}, &domain.SecurityError{
			Origin: surface.TaintOrigin(),
			Err:    domain.ErrSurfaceTainted,
		}
	}

	if !format.Valid() {
		return domain.EncodedPayload{}, &domain.FormatError{Requested: format}
	}

	quality = clampQuality(quality)

	substituted := false
	if !enc.report.Supports(format) {
		enc.log.DebugContext(ctx, "format unsupported, substituting png", "requested", format.String())

		format = domain.FormatPNG
		substituted = true
	}

	estimated := estimateBytes(format, quality, surface.Width(), surface.Height())

	data, err := encodeSurface(surface, format, quality)
	if err != nil {
		return domain.EncodedPayload{}, fmt.Errorf("encode %s: %w", format, err)
	}

	if size := int64(len(data)); size > enc.config.MaxPayloadBytes {
		return domain.EncodedPayload{}, &domain.MemoryError{
			NeedBytes:   size,
			BudgetBytes: enc.config.MaxPayloadBytes,
			Width:       surface.Width(),
			Height:      surface.Height(),
			Err:         domain.ErrPayloadTooLarge,
		}
	}

	return domain.NewEncodedPayload(data, format, estimated, substituted), nil
}

func encodeSurface(surface *domain.RasterSurface, format domain.Format, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case domain.FormatPNG:
		if err := png.Encode(&buf, surface.RGBA()); err != nil {
			return nil, fmt.Errorf("png: %w", err)
		}
	case domain.FormatJPEG:
		// The stdlib codec rejects quality 0.
		if err := jpeg.Encode(&buf, surface.RGBA(), &jpeg.Options{Quality: max(1, quality)}); err != nil {
			return nil, fmt.Errorf("jpeg: %w", err)
		}
	case domain.FormatWebP:
		//nolint:exhaustruct
		if err := webp.Encode(&buf, surface.RGBA(), &webp.Options{Quality: float32(max(1, quality))}); err != nil {
			return nil, fmt.Errorf("webp: %w", err)
		}
	default:
		return nil, &domain.FormatError{Requested: format}
	}

	return buf.Bytes(), nil
}
