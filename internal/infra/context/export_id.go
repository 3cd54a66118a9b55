package context

import (
	"context"
)

type contextKey string

const contextKeyExportID = contextKey("exportID")

// ExportIDFromContext extracts the export ID from the context.
// Returns the export ID and true if present, or empty string and false if not present.
func ExportIDFromContext(ctx context.Context) (string, bool) {
	exportID, ok := ctx.Value(contextKeyExportID).(string)

	return exportID, ok
}

// WithExportID creates a new context carrying the given export ID.
// The ID ties log records, cache activity and delivery attempts of one
// export call together.
func WithExportID(ctx context.Context, exportID string) context.Context {
	return context.WithValue(ctx, contextKeyExportID, exportID)
}
