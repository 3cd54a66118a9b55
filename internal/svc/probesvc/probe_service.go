package probesvc

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/chai2010/webp"

	"github.com/mkrupp/memeforge/internal/domain"
	"github.com/mkrupp/memeforge/internal/infra/logging"
)

// CapabilityReport describes what the current environment can actually do.
// Callers should cache the report for the session; probing itself is
// stateless and repeatable.
type CapabilityReport struct {
	// FormatsSupported records per-format encode support, verified by a
	// real trial encode.
	FormatsSupported map[domain.Format]bool

	// TargetWritable reports whether files can be created in the probed
	// delivery directory.
	TargetWritable bool

	// AtomicRename reports whether rename works within the probed delivery
	// directory, enabling the staged-rename delivery strategy.
	AtomicRename bool
}

// Supports reports whether the given format can be encoded.
func (r CapabilityReport) Supports(format domain.Format) bool {
	return r.FormatsSupported[format]
}

// FallbackPlan is an ordered plan derived from a capability report.
type FallbackPlan struct {
	// FormatOrder lists encodable formats by preference (webp > jpeg > png).
	FormatOrder []domain.Format

	// StrategyOrder lists delivery strategy names by preference.
	StrategyOrder []string
}

// Strategy names understood by the delivery dispatcher.
const (
	StrategyStagedRename    = "staged-rename"
	StrategyExclusiveCreate = "exclusive-create"
	StrategyUniqueSuffix    = "unique-suffix"
	StrategySpilloverDir    = "spillover-dir"
	StrategyTruncateWrite   = "truncate-write"
)

// Prober defines the interface for environment capability probing.
type Prober interface {
	// Probe builds a capability report for the given delivery directory.
	Probe(ctx context.Context, targetDir string) CapabilityReport
}

// TrialProber implements Prober by performing real trial encodes and real
// filesystem operations rather than trusting feature lookups. A codec that
// silently produces a different container than requested is reported
// unsupported, which is the behavior that matters to the encoder's fallback
// logic.
type TrialProber struct {
	log logging.Logger
}

var _ Prober = (*TrialProber)(nil)

// NewTrialProber creates a new TrialProber.
func NewTrialProber() *TrialProber {
	return &TrialProber{
		log: logging.GetLogger("svc.probesvc.trial_prober"),
	}
}

// Probe implements Prober.Probe. It has no side effects beyond a transient
// probe file in targetDir.
func (prober *TrialProber) Probe(ctx context.Context, targetDir string) CapabilityReport {
	report := CapabilityReport{
		FormatsSupported: map[domain.Format]bool{
			domain.FormatPNG:  prober.probeFormat(ctx, domain.FormatPNG),
			domain.FormatJPEG: prober.probeFormat(ctx, domain.FormatJPEG),
			domain.FormatWebP: prober.probeFormat(ctx, domain.FormatWebP),
		},
		TargetWritable: false,
		AtomicRename:   false,
	}

	report.TargetWritable, report.AtomicRename = prober.probeTarget(ctx, targetDir)

	prober.log.DebugContext(ctx, "environment probed",
		logging.Group("report",
			"png", report.FormatsSupported[domain.FormatPNG],
			"jpeg", report.FormatsSupported[domain.FormatJPEG],
			"webp", report.FormatsSupported[domain.FormatWebP],
			"writable", report.TargetWritable,
			"rename", report.AtomicRename,
		),
	)

	return report
}

// probeFormat trial-encodes a 1x1 surface and verifies the magic bytes of
// the produced payload match the requested container.
func (prober *TrialProber) probeFormat(ctx context.Context, format domain.Format) bool {
	probe := image.NewRGBA(image.Rect(0, 0, 1, 1))

	var (
		buf bytes.Buffer
		err error
	)

	switch format {
	case domain.FormatPNG:
		err = png.Encode(&buf, probe)
	case domain.FormatJPEG:
		err = jpeg.Encode(&buf, probe, &jpeg.Options{Quality: 80})
	case domain.FormatWebP:
		err = webp.Encode(&buf, probe, &webp.Options{Quality: 80}) //nolint:exhaustruct
	default:
		return false
	}

	if err != nil {
		prober.log.DebugContext(ctx, "trial encode failed", "format", format.String(), "error", err)

		return false
	}

	return MatchesMagic(buf.Bytes(), format)
}

func (prober *TrialProber) probeTarget(ctx context.Context, targetDir string) (writable, rename bool) {
	if targetDir == "" {
		return false, false
	}

	probeFile, err := os.CreateTemp(targetDir, ".memeforge-probe-*")
	if err != nil {
		prober.log.DebugContext(ctx, "target not writable", "dir", targetDir, "error", err)

		return false, false
	}

	probePath := probeFile.Name()
	_ = probeFile.Close()

	renamedPath := filepath.Join(targetDir, filepath.Base(probePath)+".renamed")
	if err := os.Rename(probePath, renamedPath); err != nil {
		_ = os.Remove(probePath)

		return true, false
	}

	_ = os.Remove(renamedPath)

	return true, true
}

// RecommendFallbacks derives an ordered fallback plan from a report. Pure.
func RecommendFallbacks(report CapabilityReport) FallbackPlan {
	var plan FallbackPlan

	for _, format := range []domain.Format{domain.FormatWebP, domain.FormatJPEG, domain.FormatPNG} {
		if report.Supports(format) {
			plan.FormatOrder = append(plan.FormatOrder, format)
		}
	}

	if report.TargetWritable && report.AtomicRename {
		plan.StrategyOrder = append(plan.StrategyOrder, StrategyStagedRename)
	}

	if report.TargetWritable {
		plan.StrategyOrder = append(plan.StrategyOrder, StrategyExclusiveCreate, StrategyUniqueSuffix)
	}

	plan.StrategyOrder = append(plan.StrategyOrder, StrategySpilloverDir, StrategyTruncateWrite)

	return plan
}

// MatchesMagic reports whether data begins with the magic bytes of the given
// format's container.
func MatchesMagic(data []byte, format domain.Format) bool {
	switch format {
	case domain.FormatPNG:
		return bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n"))
	case domain.FormatJPEG:
		return bytes.HasPrefix(data, []byte("\xFF\xD8"))
	case domain.FormatWebP:
		return len(data) >= 12 &&
			bytes.HasPrefix(data, []byte("RIFF")) &&
			bytes.Equal(data[8:12], []byte("WEBP"))
	default:
		return false
	}
}
