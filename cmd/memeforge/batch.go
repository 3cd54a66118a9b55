package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkrupp/memeforge/internal/domain"
	"github.com/mkrupp/memeforge/internal/svc/deliversvc"
	"github.com/mkrupp/memeforge/internal/svc/rastersvc"
)

//nolint:funlen
func newBatchCmd(cfg Config) *cobra.Command {
	var (
		formatName  string
		quality     int
		concurrency int
		interDelay  time.Duration
	)

	//nolint:exhaustruct
	cmd := &cobra.Command{
		Use:   "batch <source>...",
		Short: "Export several memes in one run",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			format, err := parseFormatFlag(formatName)
			if err != nil {
				return err
			}

			app, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.close(ctx)

			items := make([]deliversvc.BatchItem, 0, len(args))

			for _, arg := range args {
				source, err := sourceFromArg(arg)
				if err != nil {
					return err
				}

				surface, err := app.rasterizer.Rasterize(ctx, source, rastersvc.RasterOptions{
					TargetWidth:  0,
					TargetHeight: 0,
				})
				if err != nil {
					return fmt.Errorf("rasterize %s: %w", arg, err)
				}

				payload, err := app.encoder.Encode(ctx, surface, format, quality)
				if err != nil {
					return fmt.Errorf("encode %s: %w", arg, err)
				}

				//nolint:exhaustruct
				filename := domain.GenerateFilename(domain.FilenameOptions{
					Prefix:         cfg.Export.FilenamePrefix,
					Quality:        quality,
					IncludeQuality: !payload.Format().Lossless(),
					Suffix:         fmt.Sprintf("%03d", len(items)),
				}, payload.Format())

				items = append(items, deliversvc.BatchItem{Payload: payload, Filename: filename})
			}

			results := app.dispatcher.DeliverMany(ctx, items, deliversvc.BatchOptions{
				Concurrency: concurrency,
				InterDelay:  interDelay,
			})

			failed := 0

			for i, result := range results {
				if result.Err != nil {
					failed++

					cmd.PrintErrf("%s: %v\n", args[i], result.Err)

					continue
				}

				cmd.Printf("%s -> %s (%s)\n", args[i], result.Receipt.Path, result.Receipt.Strategy)
			}

			if failed > 0 {
				return fmt.Errorf("%w: %d of %d items", errExportFailed, failed, len(items))
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&formatName, "format", "f", "png", "output format (png, jpeg, webp)")
	cmd.Flags().IntVarP(&quality, "quality", "q", 90, "quality 0-100 (ignored for png)")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 1, "parallel deliveries (1 = sequential)")
	cmd.Flags().DurationVar(&interDelay, "delay", 0, "pause between sequential deliveries")

	return cmd
}
