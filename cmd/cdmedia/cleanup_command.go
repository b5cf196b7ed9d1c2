package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cdmedia/internal/staging"
)

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration
	var list bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove work directories left behind by interrupted imports",
		Long: `Remove rip work directories in paths.staging_dir and unpublished bundle
directories in paths.library_dir that are older than --older-than.

Imports clean up after themselves; leftovers only appear when the process was
killed. Keep --older-than above the length of a full read so a running import
in another terminal is never touched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if list {
				dirs, err := staging.ListDirectories(cfg.Paths.StagingDir)
				if err != nil {
					return fmt.Errorf("list staging directories: %w", err)
				}
				if len(dirs) == 0 {
					fmt.Fprintln(out, "No work directories found")
					return nil
				}
				var total int64
				rows := make([][]string, 0, len(dirs))
				for _, dir := range dirs {
					total += dir.Size
					rows = append(rows, []string{dir.Name, formatDuration(time.Since(dir.ModTime)), formatBytes(dir.Size)})
				}
				tbl := tableLayout{
					headers: []string{"Directory", "Age", "Size"},
					aligns:  []columnAlignment{alignLeft, alignRight, alignRight},
					footer:  []string{fmt.Sprintf("%d directories", len(dirs)), "", formatBytes(total)},
				}
				fmt.Fprint(out, tbl.render(rows))
				return nil
			}

			work := staging.CleanStale(cmd.Context(), cfg.Paths.StagingDir, maxAge, logger)
			printCleanResult(cmd, work, "work")
			bundles := staging.CleanAbandonedBundles(cmd.Context(), cfg.Paths.LibraryDir, maxAge, logger)
			printCleanResult(cmd, bundles, "unpublished bundle")
			if n := len(work.Errors) + len(bundles.Errors); n > 0 {
				return fmt.Errorf("%d directories could not be removed", n)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&maxAge, "older-than", 24*time.Hour, "Only remove directories older than this")
	cmd.Flags().BoolVar(&list, "list", false, "List work directories instead of removing them")
	return cmd
}

func printCleanResult(cmd *cobra.Command, result staging.CleanStaleResult, label string) {
	out := cmd.OutOrStdout()
	if len(result.Removed) == 0 && len(result.Errors) == 0 {
		fmt.Fprintf(out, "No %s directories to clean\n", label)
		return
	}
	fmt.Fprintf(out, "Removed %d %s directories\n", len(result.Removed), label)
	for _, e := range result.Errors {
		fmt.Fprintf(out, "  Error: %s: %v\n", e.Path, e.Error)
	}
}
