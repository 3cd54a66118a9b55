package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrFormatUnknown = errors.New("unknown image format")

// Format identifies an output image format supported by the export pipeline.
type Format int

const (
	FormatPNG Format = iota
	FormatJPEG
	FormatWebP
)

//nolint:gochecknoglobals
var formatNames = map[Format]string{
	FormatPNG:  "png",
	FormatJPEG: "jpeg",
	FormatWebP: "webp",
}

//nolint:gochecknoglobals
var formatExts = map[Format]string{
	FormatPNG:  ".png",
	FormatJPEG: ".jpg",
	FormatWebP: ".webp",
}

//nolint:gochecknoglobals
var formatMIMETypes = map[Format]string{
	FormatPNG:  "image/png",
	FormatJPEG: "image/jpeg",
	FormatWebP: "image/webp",
}

// ParseFormat resolves a format name ("png", "jpeg", "jpg", "webp") into a Format.
// Matching is case-insensitive. Returns ErrFormatUnknown for anything else.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "webp":
		return FormatWebP, nil
	default:
		return FormatPNG, fmt.Errorf("%w: %q", ErrFormatUnknown, name)
	}
}

// String returns the canonical lowercase name of the format.
func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}

	return fmt.Sprintf("format(%d)", int(f))
}

// Ext returns the file extension for the format, including the leading dot.
func (f Format) Ext() string {
	return formatExts[f]
}

// MIMEType returns the MIME type for the format.
func (f Format) MIMEType() string {
	return formatMIMETypes[f]
}

// Valid reports whether the format is one of the supported output formats.
func (f Format) Valid() bool {
	_, ok := formatNames[f]

	return ok
}

// Lossless reports whether the format ignores the quality parameter.
func (f Format) Lossless() bool {
	return f == FormatPNG
}
