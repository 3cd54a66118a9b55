package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func newCacheCmd(cfg Config) *cobra.Command {
	//nolint:exhaustruct
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Maintain pipeline caches and staging leftovers",
	}

	cmd.AddCommand(newCacheClearCmd(cfg))

	return cmd
}

// newCacheClearCmd reclaims everything a crashed or interrupted run may have
// left behind: staged work files in the target directory and any outstanding
// payload handles.
func newCacheClearCmd(cfg Config) *cobra.Command {
	//nolint:exhaustruct
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear cached surfaces and stale staging files",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			app, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.close(ctx)

			app.cache.Clear(ctx)
			reclaimed := app.registry.CleanupExpired(ctx, true)

			removed, err := removeStagingLeftovers(cfg.Deliver.TargetDir)
			if err != nil {
				return err
			}

			cmd.Printf("cleared surface cache, reclaimed %d handles, removed %d staging files\n",
				reclaimed, removed)

			return nil
		},
	}
}

func removeStagingLeftovers(targetDir string) (int, error) {
	entries, err := os.ReadDir(targetDir)
	if err != nil {
		return 0, fmt.Errorf("read target dir: %w", err)
	}

	removed := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), ".stage-") {
			continue
		}

		if err := os.Remove(filepath.Join(targetDir, entry.Name())); err != nil {
			return removed, fmt.Errorf("remove staging file: %w", err)
		}

		removed++
	}

	return removed, nil
}
