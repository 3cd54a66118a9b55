package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/mkrupp/memeforge/internal/domain"
	"github.com/mkrupp/memeforge/internal/svc/probesvc"
)

func newProbeCmd(cfg Config) *cobra.Command {
	//nolint:exhaustruct
	return &cobra.Command{
		Use:   "probe",
		Short: "Probe encoder and delivery-target capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			report := probesvc.NewTrialProber().Probe(cmd.Context(), cfg.Deliver.TargetDir)

			for _, format := range []domain.Format{domain.FormatPNG, domain.FormatJPEG, domain.FormatWebP} {
				cmd.Printf("%-6s %s\n", format, supportedWord(report.Supports(format)))
			}

			cmd.Printf("target %s writable=%v atomic-rename=%v\n",
				cfg.Deliver.TargetDir, report.TargetWritable, report.AtomicRename)

			plan := probesvc.RecommendFallbacks(report)

			formats := make([]string, 0, len(plan.FormatOrder))
			for _, format := range plan.FormatOrder {
				formats = append(formats, format.String())
			}

			cmd.Printf("format preference:   %s\n", strings.Join(formats, " > "))
			cmd.Printf("strategy preference: %s\n", strings.Join(plan.StrategyOrder, " > "))

			return nil
		},
	}
}

func supportedWord(ok bool) string {
	if ok {
		return "supported"
	}

	return "unsupported"
}
