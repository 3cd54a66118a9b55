package exportsvc

import (
	"context"

	"github.com/mkrupp/memeforge/internal/domain"
)

// ServiceConfig holds configuration for the export orchestrator.
type ServiceConfig struct {
	// FilenamePrefix seeds generated filenames when the request carries none.
	FilenamePrefix string `env:"FILENAME_PREFIX" default:"meme"`

	// RecordHistory controls whether export attempts are journaled.
	RecordHistory bool `env:"RECORD_HISTORY" default:"true"`
}

// Exporter defines the interface for running one export end to end.
type Exporter interface {
	// Export validates the request, then walks
	// rasterize -> encode -> deliver, applying at most one automatic
	// recovery loop with mutated parameters. It never returns an error;
	// failures are carried inside the result.
	Export(ctx context.Context, req domain.ExportRequest) domain.ExportResult
}

// ExporterFactory is a function that creates a new Exporter instance.
type ExporterFactory func(ctx context.Context) (Exporter, error)
