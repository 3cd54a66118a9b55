package faultsvc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mkrupp/memeforge/internal/domain"
	"github.com/mkrupp/memeforge/internal/infra/logging"
)

// RuleClassifier implements Classifier with typed-error matching first and
// case-insensitive substring heuristics second. Categories are checked in a
// fixed priority order so an error matching several rules lands in the most
// specific one.
type RuleClassifier struct {
	log logging.Logger
}

var _ Classifier = (*RuleClassifier)(nil)

// NewRuleClassifier creates a new RuleClassifier.
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{
		log: logging.GetLogger("svc.faultsvc.rule_classifier"),
	}
}

// Classify implements Classifier.Classify.
func (c *RuleClassifier) Classify(err error, fctx Context) Report {
	category := categorize(err)
	report := buildReport(category, fctx)

	c.log.DebugContext(context.Background(), "error classified",
		"category", string(category),
		"operation", fctx.Operation,
		"error", err,
	)

	return report
}

//nolint:cyclop
func categorize(err error) domain.Category {
	if err == nil {
		return domain.CategoryUnknown
	}

	// Typed errors first, in priority order.
	var (
		secErr      *domain.SecurityError
		memErr      *domain.MemoryError
		dimErr      *domain.DimensionError
		netErr      *domain.NetworkError
		formatErr   *domain.FormatError
		decodeErr   *domain.DecodeError
		deliverErr  *domain.DeliverError
		timeoutErr  *domain.TimeoutError
		validateErr *domain.ValidationError
	)

	switch {
	case errors.As(err, &secErr) || errors.Is(err, domain.ErrSurfaceTainted):
		return domain.CategoryCORS
	case errors.As(err, &memErr) || errors.As(err, &dimErr) || errors.Is(err, domain.ErrPayloadTooLarge):
		return domain.CategoryMemory
	case errors.As(err, &netErr):
		return domain.CategoryNetwork
	case errors.Is(err, os.ErrPermission):
		return domain.CategoryPermission
	case errors.As(err, &formatErr) || errors.Is(err, domain.ErrFormatUnknown):
		return domain.CategoryFormatSupport
	case errors.Is(err, domain.ErrSurfaceEmpty) || errors.As(err, &decodeErr):
		return domain.CategoryCanvas
	case errors.As(err, &deliverErr):
		return domain.CategoryDownload
	case errors.As(err, &timeoutErr) || errors.Is(err, context.DeadlineExceeded):
		return domain.CategoryTimeout
	case errors.As(err, &validateErr):
		return domain.CategoryValidation
	}

	return categorizeByMessage(strings.ToLower(err.Error()))
}

//nolint:gochecknoglobals
var messageRules = []struct {
	category domain.Category
	needles  []string
}{
	{domain.CategoryCORS, []string{"cors", "cross-origin", "tainted"}},
	{domain.CategoryMemory, []string{"memory", "allocation", "too large", "quota"}},
	{domain.CategoryNetwork, []string{"network", "fetch", "connection", "no such host"}},
	{domain.CategoryPermission, []string{"permission", "denied", "not allowed"}},
	{domain.CategoryFormatSupport, []string{"format", "unsupported", "mime"}},
	{domain.CategoryCanvas, []string{"canvas", "surface", "decode"}},
	{domain.CategoryDownload, []string{"download", "deliver", "save"}},
	{domain.CategoryTimeout, []string{"timeout", "timed out", "deadline"}},
	{domain.CategoryValidation, []string{"invalid", "validation", "malformed"}},
}

func categorizeByMessage(msg string) domain.Category {
	for _, rule := range messageRules {
		for _, needle := range rule.needles {
			if strings.Contains(msg, needle) {
				return rule.category
			}
		}
	}

	return domain.CategoryUnknown
}

//nolint:funlen
func buildReport(category domain.Category, fctx Context) Report {
	//nolint:exhaustruct
	report := Report{
		Category: category,
		Severity: domain.SeverityMedium,
		CanRetry: true,
	}

	switch category {
	case domain.CategoryCORS:
		report.Severity = domain.SeverityHigh
		report.UserMessage = "The source image comes from another site and cannot be exported as-is."
		report.Suggestions = []string{
			"Reload the image without credentials",
			"Upload the image directly instead of linking it",
		}
		// No automatic retry: a tainted surface stays tainted through the
		// cache, so only the user-facing options can resolve this.
		report.RecoveryOptions = []domain.RecoveryOption{
			{Action: "reload-anonymous", Label: "Reload without credentials"},
			{Action: "upload-direct", Label: "Upload the image file"},
		}
	case domain.CategoryMemory:
		report.Severity = domain.SeverityHigh
		report.UserMessage = "The image is too large to export at the current settings."
		report.Suggestions = []string{
			fmt.Sprintf("Lower the quality (currently %d)", fctx.Quality),
			"Export at a smaller resolution",
			"Switch to JPEG, which needs far less memory",
		}
		report.RecoveryOptions = []domain.RecoveryOption{
			{Action: "reduce-quality", Label: "Lower quality and retry"},
			{Action: "switch-jpeg", Label: "Retry as JPEG"},
		}
		//nolint:exhaustruct
		report.Auto = AutoRecovery{
			QualityDelta: -30,
			SwitchFormat: domain.FormatJPEG,
			HasFormat:    fctx.Format != domain.FormatJPEG,
		}
	case domain.CategoryNetwork:
		report.UserMessage = "The source image could not be downloaded."
		report.Suggestions = []string{
			"Check the connection and retry",
			"Verify the image URL is still reachable",
		}
	case domain.CategoryPermission:
		report.Severity = domain.SeverityHigh
		report.UserMessage = "Writing the export was not permitted."
		report.Suggestions = []string{
			"Check the permissions of the export directory",
			"Choose a different export directory",
		}
	case domain.CategoryFormatSupport:
		report.Severity = domain.SeverityLow
		report.UserMessage = fmt.Sprintf("The %s format is not available here.", fctx.Format)
		report.Suggestions = []string{
			"Export as PNG instead, which is always available",
		}
		report.RecoveryOptions = []domain.RecoveryOption{
			{Action: "switch-png", Label: "Export as PNG"},
		}
		//nolint:exhaustruct
		report.Auto = AutoRecovery{
			SwitchFormat: domain.FormatPNG,
			HasFormat:    true,
			ForceQuality: 100,
			HasQuality:   true,
		}
	case domain.CategoryCanvas:
		report.UserMessage = "The image could not be rendered."
		report.Suggestions = []string{
			"Check that the source is a valid image",
			"Try a different source image",
		}
	case domain.CategoryDownload:
		report.Severity = domain.SeverityHigh
		report.UserMessage = "The export could not be written to disk."
		report.Suggestions = []string{
			"Check free disk space",
			"Try a different export directory",
		}
		report.CanRetry = false
	case domain.CategoryTimeout:
		report.UserMessage = "The export took too long and was aborted."
		report.Suggestions = []string{
			"Retry; the source may have been slow",
			"Use a smaller image",
		}
	case domain.CategoryValidation:
		report.Severity = domain.SeverityLow
		report.UserMessage = "The export request is not valid."
		report.Suggestions = []string{
			"Check the source, format and quality settings",
		}
		report.CanRetry = false
	case domain.CategoryUnknown:
		fallthrough
	default:
		report.Category = domain.CategoryUnknown
		report.UserMessage = "Something went wrong during the export."
		report.Suggestions = []string{
			"Retry the export",
			"If the problem persists, try a different format",
		}
	}

	return report
}
