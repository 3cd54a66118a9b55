package encodesvc

import "github.com/mkrupp/memeforge/internal/domain"

// Compression-ratio model shared by the encoder and the estimator. Ratios
// are fractions of the raw RGBA footprint (width * height * 4) and were
// calibrated against typical meme content: large flat regions, hard edges,
// a few text overlays.

const (
	pngRatio        = 0.30
	webpOverJPEG    = 0.7
	bytesPerPixel   = 4
	referenceWidth  = 500
	referenceHeight = 500
)

// jpegRatioSteps maps quality breakpoints (each multiple of 10) to ratios.
// Ordered descending; the first entry whose quality bound is met wins.
//
//nolint:gochecknoglobals
var jpegRatioSteps = []struct {
	minQuality int
	ratio      float64
}{
	{95, 0.40},
	{90, 0.35},
	{80, 0.28},
	{70, 0.22},
	{60, 0.18},
	{50, 0.15},
	{40, 0.12},
	{30, 0.08},
	{20, 0.05},
	{10, 0.03},
	{0, 0.02},
}

// compressionRatio returns the modeled output-to-raw ratio for a format at a
// clamped quality. Monotone non-decreasing in quality for lossy formats.
func compressionRatio(format domain.Format, quality int) float64 {
	quality = clampQuality(quality)

	switch format {
	case domain.FormatJPEG:
		return jpegRatio(quality)
	case domain.FormatWebP:
		return jpegRatio(quality) * webpOverJPEG
	case domain.FormatPNG:
		fallthrough
	default:
		return pngRatio
	}
}

func jpegRatio(quality int) float64 {
	for _, step := range jpegRatioSteps {
		if quality >= step.minQuality {
			return step.ratio
		}
	}

	return jpegRatioSteps[len(jpegRatioSteps)-1].ratio
}

// estimateBytes projects the encoded size for a raster of the given
// dimensions.
func estimateBytes(format domain.Format, quality, width, height int) int64 {
	raw := float64(width) * float64(height) * bytesPerPixel

	return int64(raw * compressionRatio(format, quality))
}

func clampQuality(quality int) int {
	if quality < 0 {
		return 0
	}

	if quality > 100 {
		return 100
	}

	return quality
}
