package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/mkrupp/memeforge/internal/domain"
	"github.com/mkrupp/memeforge/internal/repo/blobhandle"
	"github.com/mkrupp/memeforge/internal/repo/history"
	"github.com/mkrupp/memeforge/internal/repo/surfacecache"
	"github.com/mkrupp/memeforge/internal/svc/deliversvc"
	"github.com/mkrupp/memeforge/internal/svc/encodesvc"
	"github.com/mkrupp/memeforge/internal/svc/exportsvc"
	"github.com/mkrupp/memeforge/internal/svc/faultsvc"
	"github.com/mkrupp/memeforge/internal/svc/probesvc"
	"github.com/mkrupp/memeforge/internal/svc/rastersvc"
)

// app wires the export pipeline for one CLI invocation.
type app struct {
	cfg Config

	cache      surfacecache.Cache
	registry   *blobhandle.Registry
	journal    history.Repository
	report     probesvc.CapabilityReport
	rasterizer rastersvc.Rasterizer
	encoder    encodesvc.Encoder
	estimator  *encodesvc.Estimator
	dispatcher *deliversvc.FileDispatcher
	exporter   exportsvc.Exporter

	stopSweep func()
}

func newApp(ctx context.Context, cfg Config) (*app, error) {
	cache := surfacecache.NewMemorySurfaceCache(cfg.Cache)

	registry := blobhandle.NewRegistry(cfg.Handles)
	stopSweep := registry.StartSweep(ctx)

	report := probesvc.NewTrialProber().Probe(ctx, cfg.Deliver.TargetDir)
	plan := probesvc.RecommendFallbacks(report)

	rasterizer, err := rastersvc.NewDrawRasterizer(cfg.Raster, cache)
	if err != nil {
		stopSweep()

		return nil, fmt.Errorf("new rasterizer: %w", err)
	}

	if dir := filepath.Dir(cfg.History.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			stopSweep()

			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	journal, err := history.NewSQLiteHistoryRepository(cfg.History)
	if err != nil {
		stopSweep()

		return nil, fmt.Errorf("new history repository: %w", err)
	}

	encoder := encodesvc.NewCodecEncoder(cfg.Encode, report)
	dispatcher := deliversvc.NewFileDispatcher(cfg.Deliver, registry, plan.StrategyOrder)

	return &app{
		cfg:        cfg,
		cache:      cache,
		registry:   registry,
		journal:    journal,
		report:     report,
		rasterizer: rasterizer,
		encoder:    encoder,
		estimator:  encodesvc.NewEstimator(cfg.Estimate),
		dispatcher: dispatcher,
		exporter: exportsvc.NewPipelineExporter(
			cfg.Export,
			rasterizer,
			encoder,
			dispatcher,
			faultsvc.NewRuleClassifier(),
			journal,
		),
		stopSweep: stopSweep,
	}, nil
}

func (a *app) close(ctx context.Context) {
	a.stopSweep()
	a.registry.Close(ctx)

	if err := a.journal.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close history: %v\n", err)
	}
}

// sourceFromArg resolves a CLI source argument: a data URI and an http(s)
// URL pass through; anything else is read as a local file and inlined.
func sourceFromArg(arg string) (domain.ImageSource, error) {
	switch {
	case strings.HasPrefix(arg, "data:"):
		return domain.NewDataURISource(arg), nil
	case strings.HasPrefix(arg, "http://"), strings.HasPrefix(arg, "https://"):
		return domain.NewURLSource(arg), nil
	}

	data, err := os.ReadFile(arg)
	if err != nil {
		return domain.ImageSource{}, fmt.Errorf("read source file: %w", err)
	}

	mediaType := mime.TypeByExtension(filepath.Ext(arg))
	if !strings.HasPrefix(mediaType, "image/") {
		mediaType = "image/png"
	}

	uri := "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)

	return domain.NewDataURISource(uri), nil
}

func parseFormatFlag(name string) (domain.Format, error) {
	format, err := domain.ParseFormat(name)
	if err != nil {
		return format, fmt.Errorf("parse format: %w", err)
	}

	return format, nil
}
