package main

import (
	"github.com/spf13/cobra"

	"github.com/mkrupp/memeforge/internal/domain"
	"github.com/mkrupp/memeforge/internal/svc/encodesvc"
)

func newEstimateCmd(cfg Config) *cobra.Command {
	var (
		source     string
		formatName string
		quality    int
	)

	//nolint:exhaustruct
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate the export size without encoding",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormatFlag(formatName)
			if err != nil {
				return err
			}

			var imageSource domain.ImageSource
			if source != "" {
				if imageSource, err = sourceFromArg(source); err != nil {
					return err
				}
			}

			estimate := encodesvc.NewEstimator(cfg.Estimate).Estimate(format, quality, imageSource)

			cmd.Printf("%s q%d: ~%d bytes (%.1f KiB)\n", format, quality, estimate, float64(estimate)/1024)

			return nil
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "source image (empty uses the 500x500 reference)")
	cmd.Flags().StringVarP(&formatName, "format", "f", "png", "output format (png, jpeg, webp)")
	cmd.Flags().IntVarP(&quality, "quality", "q", 90, "quality 0-100")

	return cmd
}
