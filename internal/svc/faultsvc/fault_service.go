package faultsvc

import (
	"github.com/mkrupp/memeforge/internal/domain"
)

// Context carries what the pipeline was doing when the error surfaced. The
// classifier uses it to tailor messages and recovery parameters.
type Context struct {
	// Operation names the pipeline stage ("rasterize", "encode", "deliver").
	Operation string

	// Format is the format the export was attempting.
	Format domain.Format

	// Quality is the quality the export was attempting.
	Quality int
}

// AutoRecovery describes parameter mutations a caller may apply for one
// automatic retry. Zero value means no automatic recovery.
type AutoRecovery struct {
	// QualityDelta is added to the quality (negative to reduce).
	QualityDelta int

	// SwitchFormat replaces the requested format when HasFormat is set.
	SwitchFormat domain.Format
	HasFormat    bool

	// ForceQuality overrides the quality outright when HasQuality is set.
	ForceQuality int
	HasQuality   bool
}

// IsZero reports whether no automatic recovery applies.
func (a AutoRecovery) IsZero() bool {
	return a.QualityDelta == 0 && !a.HasFormat && !a.HasQuality
}

// Report is the classified view of a pipeline error. UserMessage and
// Suggestions are always non-empty.
type Report struct {
	Category        domain.Category
	Severity        domain.Severity
	UserMessage     string
	Suggestions     []string
	CanRetry        bool
	RecoveryOptions []domain.RecoveryOption
	Auto            AutoRecovery
}

// Failure converts the report into the domain failure shape carried by
// export results.
func (r Report) Failure() domain.ExportFailure {
	return domain.ExportFailure{
		Category:        r.Category,
		Severity:        r.Severity,
		UserMessage:     r.UserMessage,
		Suggestions:     r.Suggestions,
		CanRetry:        r.CanRetry,
		RecoveryOptions: r.RecoveryOptions,
	}
}

// Classifier defines the interface for resolving raw pipeline errors into
// reports.
type Classifier interface {
	// Classify never fails; any error resolves to some category, Unknown at
	// worst.
	Classify(err error, fctx Context) Report
}
