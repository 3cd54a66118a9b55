package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkrupp/memeforge/internal/domain"
	"github.com/mkrupp/memeforge/internal/repo/history"
)

func newHistoryCmd(cfg Config) *cobra.Command {
	//nolint:exhaustruct
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the export history",
	}

	cmd.AddCommand(newHistoryListCmd(cfg))
	cmd.AddCommand(newHistoryStatsCmd(cfg))
	cmd.AddCommand(newHistoryPruneCmd(cfg))

	return cmd
}

func withJournal(cfg Config, fn func(cmd *cobra.Command, journal history.Repository) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		journal, err := history.NewSQLiteHistoryRepository(cfg.History)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer journal.Close() //nolint:errcheck

		return fn(cmd, journal)
	}
}

func newHistoryListCmd(cfg Config) *cobra.Command {
	var limit int

	//nolint:exhaustruct
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent exports, newest first",
		RunE: withJournal(cfg, func(cmd *cobra.Command, journal history.Repository) error {
			records, err := journal.ListRecent(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}

			for _, record := range records {
				when := time.Unix(record.CreatedAt, 0).Format(time.DateTime)

				if record.Success {
					cmd.Printf("%s  ok    %-5s q%-3d %8d bytes  %s\n",
						when, record.Format, record.Quality, record.ByteSize, record.Filename)

					continue
				}

				cmd.Printf("%s  FAIL  %-5s q%-3d %s\n",
					when, record.Format, record.Quality, record.Category)
			}

			return nil
		}),
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum records to list")

	return cmd
}

func newHistoryStatsCmd(cfg Config) *cobra.Command {
	//nolint:exhaustruct
	return &cobra.Command{
		Use:   "stats",
		Short: "Aggregate export counters",
		RunE: withJournal(cfg, func(cmd *cobra.Command, journal history.Repository) error {
			stats, err := journal.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("history stats: %w", err)
			}

			cmd.Printf("total %d, succeeded %d, failed %d\n", stats.Total, stats.Succeeded, stats.Failed)

			for _, format := range []domain.Format{domain.FormatPNG, domain.FormatJPEG, domain.FormatWebP} {
				if count, ok := stats.ByFormat[format]; ok {
					cmd.Printf("  %-5s %d\n", format, count)
				}
			}

			return nil
		}),
	}
}

func newHistoryPruneCmd(cfg Config) *cobra.Command {
	var keep int

	//nolint:exhaustruct
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Drop all but the newest records",
		RunE: withJournal(cfg, func(cmd *cobra.Command, journal history.Repository) error {
			removed, err := journal.Prune(cmd.Context(), keep)
			if err != nil {
				return fmt.Errorf("prune history: %w", err)
			}

			cmd.Printf("pruned %d records, kept the newest %d\n", removed, keep)

			return nil
		}),
	}

	cmd.Flags().IntVarP(&keep, "keep", "k", 100, "records to keep")

	return cmd
}
