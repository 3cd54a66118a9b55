package domain

import "time"

// RecoveryOption is one user-selectable action attached to a failed export.
type RecoveryOption struct {
	Action string
	Label  string
}

// ExportFailure describes a terminal export failure in user-presentable
// terms. UserMessage and Suggestions are always populated; the raw native
// error is never the primary message.
type ExportFailure struct {
	Category        Category
	Severity        Severity
	UserMessage     string
	Suggestions     []string
	CanRetry        bool
	RecoveryOptions []RecoveryOption
}

// ExportResult is the discriminated outcome of one export call.
type ExportResult struct {
	Success    bool
	Filename   string
	ByteSize   int64
	FormatUsed Format
	Elapsed    time.Duration
	Failure    *ExportFailure
}

// NewExportSuccess builds a successful result.
func NewExportSuccess(filename string, byteSize int64, format Format, elapsed time.Duration) ExportResult {
	return ExportResult{
		Success:    true,
		Filename:   filename,
		ByteSize:   byteSize,
		FormatUsed: format,
		Elapsed:    elapsed,
		Failure:    nil,
	}
}

// NewExportFailure builds a failed result.
//
//nolint:exhaustruct
func NewExportFailure(failure ExportFailure, elapsed time.Duration) ExportResult {
	return ExportResult{
		Success: false,
		Elapsed: elapsed,
		Failure: &failure,
	}
}
