package domain

import (
	"image"
	"image/color"
)

const bytesPerPixel = 4 // RGBA

// RasterSurface owns a rasterized RGBA pixel buffer of fixed dimensions.
// A surface is owned exclusively by whoever holds it; the surface cache
// clones on both insert and read so cached pixels are never aliased by
// in-flight exports.
type RasterSurface struct {
	pix     *image.RGBA
	tainted bool
	origin  string
}

// NewRasterSurface allocates a zeroed surface of the given dimensions.
func NewRasterSurface(width, height int) *RasterSurface {
	return &RasterSurface{
		pix:     image.NewRGBA(image.Rect(0, 0, width, height)),
		tainted: false,
		origin:  "",
	}
}

// Width returns the surface width in pixels.
func (s *RasterSurface) Width() int {
	return s.pix.Rect.Dx()
}

// Height returns the surface height in pixels.
func (s *RasterSurface) Height() int {
	return s.pix.Rect.Dy()
}

// SizeBytes returns the memory cost of the pixel buffer (width * height * 4).
func (s *RasterSurface) SizeBytes() int64 {
	return int64(s.Width()) * int64(s.Height()) * bytesPerPixel
}

// RGBA exposes the backing pixel buffer for drawing and encoding.
func (s *RasterSurface) RGBA() *image.RGBA {
	return s.pix
}

// At reads a single pixel. Used as the post-draw probe.
func (s *RasterSurface) At(x, y int) color.Color {
	return s.pix.At(x, y)
}

// MarkTainted flags the surface as sourced from an origin whose pixels must
// not be exported. The origin is recorded for diagnostics.
func (s *RasterSurface) MarkTainted(origin string) {
	s.tainted = true
	s.origin = origin
}

// Tainted reports whether the surface carries cross-origin pixels.
func (s *RasterSurface) Tainted() bool {
	return s.tainted
}

// TaintOrigin returns the origin recorded by MarkTainted, or "".
func (s *RasterSurface) TaintOrigin() string {
	return s.origin
}

// Clone returns a deep copy of the surface, taint flag included.
func (s *RasterSurface) Clone() *RasterSurface {
	pix := image.NewRGBA(s.pix.Rect)
	copy(pix.Pix, s.pix.Pix)

	return &RasterSurface{
		pix:     pix,
		tainted: s.tainted,
		origin:  s.origin,
	}
}
