package logging

import (
	"context"
	"log/slog"

	context_ "github.com/mkrupp/memeforge/internal/infra/context"
)

// ExportTracingHandler wraps another slog.Handler to add the export ID from
// the context to all log records, tying together the rasterize, encode and
// deliver stages of one export call.
type ExportTracingHandler struct {
	h slog.Handler
}

var _ slog.Handler = (*ExportTracingHandler)(nil)

// NewExportTracingHandler creates a new ExportTracingHandler wrapping the given handler.
func NewExportTracingHandler(h slog.Handler) *ExportTracingHandler {
	return &ExportTracingHandler{h: h}
}

// Handle implements slog.Handler by adding export ID information if available
// in the context before delegating to the wrapped handler.
func (h *ExportTracingHandler) Handle(ctx context.Context, r slog.Record) error {
	if exportID, ok := context_.ExportIDFromContext(ctx); ok {
		r.AddAttrs(slog.Group("export",
			slog.String("id", exportID),
		))
	}

	//nolint:wrapcheck
	return h.h.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.WithAttrs.
func (h *ExportTracingHandler) WithAttrs(attrs []slog.Attr) Handler {
	return NewExportTracingHandler(h.h.WithAttrs(attrs))
}

// WithGroup implements slog.Handler.WithGroup.
func (h *ExportTracingHandler) WithGroup(name string) Handler {
	return NewExportTracingHandler(h.h.WithGroup(name))
}

// Enabled implements slog.Handler.Enabled.
func (h *ExportTracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.h.Enabled(ctx, level)
}
