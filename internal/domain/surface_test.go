package domain_test

import (
	"image/color"
	"testing"

	. "github.com/mkrupp/memeforge/internal/domain"
)

func TestRasterSurface_Clone(t *testing.T) {
	t.Parallel()

	surface := NewRasterSurface(4, 4)
	surface.RGBA().Set(1, 1, color.RGBA{R: 255, A: 255})

	clone := surface.Clone()

	// Mutating the clone must not leak into the original.
	clone.RGBA().Set(1, 1, color.RGBA{G: 255, A: 255})

	r, g, _, _ := surface.At(1, 1).RGBA()
	if r == 0 || g != 0 {
		t.Errorf("original surface mutated through clone: r=%d g=%d", r, g)
	}

	if surface.SizeBytes() != 4*4*4 {
		t.Errorf("SizeBytes() = %d, want %d", surface.SizeBytes(), 4*4*4)
	}
}

func TestRasterSurface_Taint(t *testing.T) {
	t.Parallel()

	surface := NewRasterSurface(2, 2)

	if surface.Tainted() {
		t.Fatal("fresh surface reported tainted")
	}

	surface.MarkTainted("https://evil.example")

	if !surface.Tainted() || surface.TaintOrigin() != "https://evil.example" {
		t.Errorf("taint not recorded: tainted=%v origin=%q", surface.Tainted(), surface.TaintOrigin())
	}

	if clone := surface.Clone(); !clone.Tainted() {
		t.Error("clone dropped taint flag")
	}
}

func TestExportRequest_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		request ExportRequest
		wantErr bool
	}{
		{
			name:    "valid request",
			request: ExportRequest{Source: NewURLSource("https://example.com/a.png"), Format: FormatPNG, Quality: 80},
			wantErr: false,
		},
		{
			name:    "empty source",
			request: ExportRequest{Source: ImageSource{}, Format: FormatPNG, Quality: 80},
			wantErr: true,
		},
		{
			name:    "unknown format",
			request: ExportRequest{Source: NewURLSource("https://example.com/a.png"), Format: Format(42), Quality: 80},
			wantErr: true,
		},
		{
			name:    "quality too high",
			request: ExportRequest{Source: NewURLSource("https://example.com/a.png"), Format: FormatJPEG, Quality: 101},
			wantErr: true,
		},
		{
			name:    "quality negative",
			request: ExportRequest{Source: NewURLSource("https://example.com/a.png"), Format: FormatJPEG, Quality: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.request.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestImageSource_Identity(t *testing.T) {
	t.Parallel()

	urlSource := NewURLSource("https://example.com/a.png")
	if urlSource.Identity() != "url:https://example.com/a.png" {
		t.Errorf("unexpected url identity: %q", urlSource.Identity())
	}

	short := NewDataURISource("data:image/png;base64,AAAA")
	if short.Identity() == "" {
		t.Error("short data uri identity is empty")
	}

	// Long data URIs must still produce a bounded identity.
	long := NewDataURISource("data:image/png;base64," + string(make([]byte, 10_000)))
	if len(long.Identity()) > 256 {
		t.Errorf("long data uri identity not bounded: %d chars", len(long.Identity()))
	}
}
