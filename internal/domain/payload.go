package domain

import (
	"bytes"
	"fmt"
	"io"
)

// EncodedPayload holds one encoded export artifact. Payloads are produced
// once per export call and never cached; only the pixel surface is worth
// caching since encoding is cheap relative to rasterization.
type EncodedPayload struct {
	data          []byte
	format        Format
	estimatedSize int64
	substituted   bool
}

// NewEncodedPayload wraps encoded bytes with their format metadata.
// estimatedSize is the pre-encode estimate that produced this payload;
// substituted records that the requested format was silently replaced.
func NewEncodedPayload(data []byte, format Format, estimatedSize int64, substituted bool) EncodedPayload {
	return EncodedPayload{
		data:          data,
		format:        format,
		estimatedSize: estimatedSize,
		substituted:   substituted,
	}
}

// Bytes returns the encoded bytes.
func (p EncodedPayload) Bytes() []byte {
	return p.data
}

// Size returns the actual encoded size in bytes.
func (p EncodedPayload) Size() int64 {
	return int64(len(p.data))
}

// Format returns the format the payload was actually encoded in.
func (p EncodedPayload) Format() Format {
	return p.format
}

// EstimatedSize returns the byte-size estimate derived before encoding.
func (p EncodedPayload) EstimatedSize() int64 {
	return p.estimatedSize
}

// Substituted reports whether the requested format was replaced by a
// supported fallback.
func (p EncodedPayload) Substituted() bool {
	return p.substituted
}

// Read returns a reader over the encoded bytes.
func (p EncodedPayload) Read() io.Reader {
	return bytes.NewReader(p.data)
}

// WriteTo writes the encoded bytes to the given writer.
func (p EncodedPayload) WriteTo(writer io.Writer) (int64, error) {
	written, err := writer.Write(p.data)
	if err != nil {
		return int64(written), fmt.Errorf("write: %w", err)
	}

	return int64(written), nil
}
