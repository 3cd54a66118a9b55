package exportsvc

import (
	"context"
	"path/filepath"
	"time"

	"github.com/mkrupp/memeforge/internal/domain"
	infracontext "github.com/mkrupp/memeforge/internal/infra/context"
	"github.com/mkrupp/memeforge/internal/infra/logging"
	"github.com/mkrupp/memeforge/internal/repo/history"
	"github.com/mkrupp/memeforge/internal/svc/deliversvc"
	"github.com/mkrupp/memeforge/internal/svc/encodesvc"
	"github.com/mkrupp/memeforge/internal/svc/faultsvc"
	"github.com/mkrupp/memeforge/internal/svc/rastersvc"
	"github.com/mkrupp/memeforge/internal/util/uuid"
)

// PipelineExporter implements Exporter by wiring the rasterizer, encoder and
// dispatcher behind a single state walk:
// Idle -> Rasterizing -> Encoding -> Delivering -> Succeeded | Failed, with
// at most one Recovering loop back to Rasterizing.
type PipelineExporter struct {
	config     ServiceConfig
	log        logging.Logger
	rasterizer rastersvc.Rasterizer
	encoder    encodesvc.Encoder
	deliverer  deliversvc.Deliverer
	classifier faultsvc.Classifier

	// journal is optional; exports run fine without history.
	journal history.Repository

	now func() time.Time
}

var _ Exporter = (*PipelineExporter)(nil)

// pipelineOutcome is the raw result of one pipeline walk before
// classification.
type pipelineOutcome struct {
	stage      string
	filename   string
	byteSize   int64
	formatUsed domain.Format
	strategy   string
	err        error
}

// NewPipelineExporter creates a new PipelineExporter. journal may be nil.
func NewPipelineExporter(
	cfg ServiceConfig,
	rasterizer rastersvc.Rasterizer,
	encoder encodesvc.Encoder,
	deliverer deliversvc.Deliverer,
	classifier faultsvc.Classifier,
	journal history.Repository,
) *PipelineExporter {
	return &PipelineExporter{
		config:     cfg,
		log:        logging.GetLogger("svc.exportsvc.pipeline_exporter"),
		rasterizer: rasterizer,
		encoder:    encoder,
		deliverer:  deliverer,
		classifier: classifier,
		journal:    journal,
		now:        time.Now,
	}
}

// Export implements Exporter.Export.
func (svc *PipelineExporter) Export(ctx context.Context, req domain.ExportRequest) domain.ExportResult {
	started := svc.now()
	exportID := newExportID()
	ctx = infracontext.WithExportID(ctx, exportID)

	svc.log.InfoContext(ctx, "export started",
		"source", req.Source.Descriptor(),
		"format", req.Format.String(),
		"quality", req.Quality,
	)

	if err := req.Validate(); err != nil {
		report := svc.classifier.Classify(err, faultsvc.Context{
			Operation: "validate",
			Format:    req.Format,
			Quality:   req.Quality,
		})

		result := domain.NewExportFailure(report.Failure(), svc.now().Sub(started))
		svc.record(ctx, exportID, req, result, "")

		return result
	}

	outcome := svc.run(ctx, req)

	if outcome.err != nil {
		report := svc.classifier.Classify(outcome.err, faultsvc.Context{
			Operation: outcome.stage,
			Format:    req.Format,
			Quality:   req.Quality,
		})

		// One automatic recovery loop, parameters mutated per the report.
		if recovered, ok := applyRecovery(req, report.Auto); ok {
			svc.log.InfoContext(ctx, "recovering",
				"category", string(report.Category),
				"format", recovered.Format.String(),
				"quality", recovered.Quality,
			)

			req = recovered
			outcome = svc.run(ctx, req)

			if outcome.err != nil {
				report = svc.classifier.Classify(outcome.err, faultsvc.Context{
					Operation: outcome.stage,
					Format:    req.Format,
					Quality:   req.Quality,
				})
			}
		}

		if outcome.err != nil {
			result := domain.NewExportFailure(report.Failure(), svc.now().Sub(started))
			svc.record(ctx, exportID, req, result, outcome.strategy)

			svc.log.WarnContext(ctx, "export failed",
				"category", string(report.Category),
				"stage", outcome.stage,
				"error", outcome.err,
			)

			return result
		}
	}

	result := domain.NewExportSuccess(
		outcome.filename,
		outcome.byteSize,
		outcome.formatUsed,
		svc.now().Sub(started),
	)
	svc.record(ctx, exportID, req, result, outcome.strategy)

	svc.log.InfoContext(ctx, "export succeeded",
		"filename", outcome.filename,
		"byteSize", outcome.byteSize,
		"format", outcome.formatUsed.String(),
		"elapsed", result.Elapsed,
	)

	return result
}

// run walks the pipeline once and reports the stage of the first failure.
func (svc *PipelineExporter) run(ctx context.Context, req domain.ExportRequest) pipelineOutcome {
	//nolint:exhaustruct
	outcome := pipelineOutcome{stage: "rasterize"}

	surface, err := svc.rasterizer.Rasterize(ctx, req.Source, rastersvc.RasterOptions{TargetWidth: 0, TargetHeight: 0})
	if err != nil {
		outcome.err = err

		return outcome
	}

	outcome.stage = "encode"

	payload, err := svc.encoder.Encode(ctx, surface, req.Format, req.Quality)
	if err != nil {
		outcome.err = err

		return outcome
	}

	outcome.formatUsed = payload.Format()
	outcome.stage = "deliver"

	filename := svc.generateFilename(req, payload.Format())
	if req.Filename != "" {
		filename = domain.SanitizeFilename(req.Filename, payload.Format())
	}

	receipt, err := svc.deliverer.Deliver(ctx, payload, filename)
	if err != nil {
		outcome.err = err

		return outcome
	}

	outcome.stage = "done"
	outcome.filename = filepath.Base(receipt.Path)
	outcome.byteSize = payload.Size()
	outcome.strategy = receipt.Strategy
	outcome.err = nil

	return outcome
}

func (svc *PipelineExporter) generateFilename(req domain.ExportRequest, format domain.Format) string {
	//nolint:exhaustruct
	opts := domain.FilenameOptions{
		Prefix:         svc.config.FilenamePrefix,
		Quality:        req.Quality,
		IncludeQuality: !format.Lossless(),
		Suffix:         shortSuffix(),
	}

	return domain.GenerateFilename(opts, format)
}

func (svc *PipelineExporter) record(
	ctx context.Context,
	exportID string,
	req domain.ExportRequest,
	result domain.ExportResult,
	strategy string,
) {
	if svc.journal == nil || !svc.config.RecordHistory {
		return
	}

	//nolint:exhaustruct
	record := domain.ExportRecord{
		ExportID: exportID,
		Format:   req.Format,
		Quality:  req.Quality,
		ByteSize: result.ByteSize,
		Filename: result.Filename,
		Strategy: strategy,
		Success:  result.Success,
		Elapsed:  result.Elapsed,
	}

	if result.Failure != nil {
		record.Category = result.Failure.Category
	}

	if result.Success {
		record.Format = result.FormatUsed
	}

	if err := svc.journal.RecordExport(ctx, record); err != nil {
		svc.log.WarnContext(ctx, "history record failed", "error", err)
	}
}

// applyRecovery mutates the request per the automatic recovery. Only
// parameter mutations make a retry worthwhile; cross-origin taint survives a
// retry and surfaces as user-facing recovery options instead.
func applyRecovery(req domain.ExportRequest, auto faultsvc.AutoRecovery) (domain.ExportRequest, bool) {
	mutated := false

	if auto.QualityDelta != 0 {
		req.Quality = clamp(req.Quality+auto.QualityDelta, 0, 100)
		mutated = true
	}

	if auto.HasFormat && auto.SwitchFormat != req.Format {
		req.Format = auto.SwitchFormat
		mutated = true
	}

	if auto.HasQuality {
		req.Quality = clamp(auto.ForceQuality, 0, 100)
		mutated = true
	}

	return req, mutated
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}

func newExportID() string {
	id, err := uuid.New(uuid.UUIDv7)
	if err != nil {
		return "export-unknown"
	}

	return id.Short()
}

func shortSuffix() string {
	id, err := uuid.New(uuid.UUIDv7)
	if err != nil {
		return ""
	}

	return id.Short()
}
