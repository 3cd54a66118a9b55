package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mkrupp/memeforge/internal/infra/config"
	"github.com/mkrupp/memeforge/internal/infra/logging"
	"github.com/mkrupp/memeforge/internal/repo/blobhandle"
	"github.com/mkrupp/memeforge/internal/repo/history"
	"github.com/mkrupp/memeforge/internal/repo/surfacecache"
	"github.com/mkrupp/memeforge/internal/svc/captionsvc"
	"github.com/mkrupp/memeforge/internal/svc/deliversvc"
	"github.com/mkrupp/memeforge/internal/svc/encodesvc"
	"github.com/mkrupp/memeforge/internal/svc/exportsvc"
	"github.com/mkrupp/memeforge/internal/svc/rastersvc"
)

const appName = "memeforge"

// Config aggregates every component's configuration under one environment
// namespace (MEMEFORGE_*).
type Config struct {
	config.EnvConfig

	Log      logging.LoggerConfig                  `envPrefix:"LOG_"`
	Cache    surfacecache.MemorySurfaceCacheConfig `envPrefix:"CACHE_"`
	Raster   rastersvc.RasterizerConfig            `envPrefix:"RASTER_"`
	Encode   encodesvc.EncoderConfig               `envPrefix:"ENCODE_"`
	Estimate encodesvc.EstimatorConfig             `envPrefix:"ESTIMATE_"`
	Deliver  deliversvc.DispatcherConfig           `envPrefix:"DELIVER_"`
	Handles  blobhandle.RegistryConfig             `envPrefix:"HANDLES_"`
	History  history.SQLiteHistoryRepositoryConfig `envPrefix:"HISTORY_"`
	Export   exportsvc.ServiceConfig               `envPrefix:"EXPORT_"`
	Caption  captionsvc.HTTPClientConfig           `envPrefix:"CAPTION_"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cfg Config
	if err := config.Parse(ctx, &cfg, strings.ToUpper(appName)); err != nil {
		panic(err)
	}

	logging.Configure(ctx, cfg.Log, appName)

	if err := newRootCmd(cfg).ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130) // Standard shell convention for SIGINT
		}

		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(cfg Config) *cobra.Command {
	//nolint:exhaustruct
	root := &cobra.Command{
		Use:          appName,
		Short:        "memeforge exports captioned memes as image files",
		Long:         "memeforge rasterizes meme sources (URLs, data URIs, local files), encodes them as png/jpeg/webp and delivers them to disk with automatic fallbacks.",
		SilenceUsage: true,
	}

	root.AddCommand(newExportCmd(cfg))
	root.AddCommand(newBatchCmd(cfg))
	root.AddCommand(newEstimateCmd(cfg))
	root.AddCommand(newProbeCmd(cfg))
	root.AddCommand(newHistoryCmd(cfg))
	root.AddCommand(newCacheCmd(cfg))

	return root
}
