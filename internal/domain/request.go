package domain

import "fmt"

// ExportRequest describes one export call. Quality is retained but ignored
// for lossless formats.
type ExportRequest struct {
	Source   ImageSource
	Format   Format
	Quality  int
	Filename string
}

// Validate checks the request shape without doing any pipeline work.
// Invalid requests must fail fast as validation errors before rasterization
// starts.
func (r ExportRequest) Validate() error {
	if r.Source.IsZero() {
		return &ValidationError{Reason: "source", Err: ErrSourceEmpty}
	}

	if !r.Format.Valid() {
		return &ValidationError{
			Reason: "format",
			Err:    fmt.Errorf("%w: %d", ErrFormatUnknown, int(r.Format)),
		}
	}

	if r.Quality < 0 || r.Quality > 100 {
		return &ValidationError{
			Reason: "quality",
			Err:    fmt.Errorf("%w: got %d", ErrQualityRange, r.Quality),
		}
	}

	return nil
}
