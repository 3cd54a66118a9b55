package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Category is the fixed failure taxonomy every pipeline error resolves into.
type Category string

const (
	CategoryCORS          Category = "cors"
	CategoryMemory        Category = "memory"
	CategoryNetwork       Category = "network"
	CategoryPermission    Category = "permission"
	CategoryFormatSupport Category = "format-support"
	CategoryCanvas        Category = "canvas"
	CategoryDownload      Category = "download"
	CategoryTimeout       Category = "timeout"
	CategoryValidation    Category = "validation"
	CategoryUnknown       Category = "unknown"
)

// Severity grades how serious a classified failure is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

var (
	ErrSourceEmpty     = errors.New("export source is empty")
	ErrQualityRange    = errors.New("quality must be between 0 and 100")
	ErrSurfaceEmpty    = errors.New("surface has zero dimensions")
	ErrSurfaceTainted  = errors.New("surface is tainted by a cross-origin source")
	ErrPayloadTooLarge = errors.New("encoded payload exceeds size limit")
	ErrDataURITooLarge = errors.New("data uri exceeds decoded size limit")
	ErrDataURIMalformed = errors.New("malformed data uri")
)

// ValidationError reports rejected input before any pipeline work was done.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation: %s: %v", e.Reason, e.Err)
	}

	return "validation: " + e.Reason
}

func (e *ValidationError) Unwrap() error { return e.Err }

// DecodeError reports corrupt or undecodable image data.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DimensionError reports an image whose dimensions exceed the safety limits.
// It carries the offending dimensions so the classifier never has to
// re-derive them.
type DimensionError struct {
	Width        int
	Height       int
	MaxDimension int
	MaxPixels    int64
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf(
		"image %dx%d exceeds safety limits (max dimension %d, max pixels %d)",
		e.Width, e.Height, e.MaxDimension, e.MaxPixels,
	)
}

// MemoryError reports a projected allocation that would exceed the memory
// budget.
type MemoryError struct {
	NeedBytes   int64
	BudgetBytes int64
	Width       int
	Height      int
	Err         error
}

func (e *MemoryError) Error() string {
	return fmt.Sprintf(
		"image %dx%d needs %d bytes, budget is %d bytes",
		e.Width, e.Height, e.NeedBytes, e.BudgetBytes,
	)
}

func (e *MemoryError) Unwrap() error { return e.Err }

// SecurityError reports a cross-origin source whose pixels may not be
// exported.
type SecurityError struct {
	Origin string
	Err    error
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("cross-origin content from %q cannot be exported", e.Origin)
}

func (e *SecurityError) Unwrap() error { return e.Err }

// TimeoutError reports an operation that exceeded its deadline.
type TimeoutError struct {
	Op    string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.After)
}

// NetworkError reports a failed source fetch.
type NetworkError struct {
	URL    string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}

	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// FormatError reports a requested format the environment cannot encode.
type FormatError struct {
	Requested Format
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format %s is not supported by this environment", e.Requested)
}

// StrategyFailure records one delivery strategy giving up, for the failure
// chain carried by DeliverError.
type StrategyFailure struct {
	Strategy string
	Attempts int
	Err      error
}

func (f StrategyFailure) String() string {
	return fmt.Sprintf("%s (%d attempts): %v", f.Strategy, f.Attempts, f.Err)
}

// DeliverError reports that every delivery strategy was exhausted. The chain
// preserves per-strategy failure reasons in attempt order.
type DeliverError struct {
	Filename string
	Chain    []StrategyFailure
}

func (e *DeliverError) Error() string {
	reasons := make([]string, 0, len(e.Chain))
	for _, failure := range e.Chain {
		reasons = append(reasons, failure.String())
	}

	return fmt.Sprintf("deliver %q: all strategies failed: %s", e.Filename, strings.Join(reasons, "; "))
}
