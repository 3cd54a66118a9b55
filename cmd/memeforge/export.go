package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mkrupp/memeforge/internal/domain"
	"github.com/mkrupp/memeforge/internal/svc/captionsvc"
)

var errExportFailed = errors.New("export failed")

//nolint:funlen
func newExportCmd(cfg Config) *cobra.Command {
	var (
		source     string
		formatName string
		quality    int
		filename   string
		templateID string
		texts      []string
	)

	//nolint:exhaustruct
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a single meme to disk",
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

			imageSource, err := resolveSource(cmd, cfg, source, templateID, texts)
			if err != nil {
				return err
			}

			result := app.exporter.Export(ctx, domain.ExportRequest{
				Source:   imageSource,
				Format:   format,
				Quality:  quality,
				Filename: filename,
			})

			if !result.Success {
				cmd.PrintErrf("export failed: %s\n", result.Failure.UserMessage)

				for _, suggestion := range result.Failure.Suggestions {
					cmd.PrintErrf("  - %s\n", suggestion)
				}

				return fmt.Errorf("%w: %s", errExportFailed, result.Failure.Category)
			}

			cmd.Printf("exported %s (%d bytes, %s, %s)\n",
				result.Filename, result.ByteSize, result.FormatUsed, result.Elapsed.Round(0))

			return nil
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "source image: file path, http(s) URL or data URI")
	cmd.Flags().StringVarP(&formatName, "format", "f", "png", "output format (png, jpeg, webp)")
	cmd.Flags().IntVarP(&quality, "quality", "q", 90, "quality 0-100 (ignored for png)")
	cmd.Flags().StringVarP(&filename, "filename", "o", "", "output filename (generated when empty)")
	cmd.Flags().StringVar(&templateID, "template", "", "caption a template via the captioning proxy")
	cmd.Flags().StringArrayVar(&texts, "text", nil, "caption text boxes (repeatable, used with --template)")

	return cmd
}

// resolveSource prefers an explicit source; with --template set, the
// captioning proxy renders the template first and its URL becomes the source.
func resolveSource(
	cmd *cobra.Command,
	cfg Config,
	source, templateID string,
	texts []string,
) (domain.ImageSource, error) {
	if templateID != "" {
		boxes := make([]captionsvc.CaptionBox, 0, len(texts))
		for _, text := range texts {
			boxes = append(boxes, captionsvc.CaptionBox{Text: text})
		}

		url, err := captionsvc.NewHTTPClient(cfg.Caption, nil).Caption(cmd.Context(), templateID, boxes)
		if err != nil {
			return domain.ImageSource{}, fmt.Errorf("caption template: %w", err)
		}

		cmd.Printf("captioned template %s: %s\n", templateID, url)

		return domain.NewURLSource(url), nil
	}

	if strings.TrimSpace(source) == "" {
		return domain.ImageSource{}, &domain.ValidationError{
			Reason: "either --source or --template is required",
			Err:    domain.ErrSourceEmpty,
		}
	}

	return sourceFromArg(source)
}
