package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"cdmedia/internal/disc"
	"cdmedia/internal/preflight"
	"cdmedia/internal/staging"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show drive, dependency and history status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			var lines []string

			lines = append(lines, renderSectionHeader("Configuration", colorize)...)
			configMsg := ctx.configPath
			if !ctx.configExists {
				configMsg += " (not found; using defaults)"
			}
			lines = append(lines, renderStatusLine("Config", statusInfo, configMsg, colorize))
			for _, r := range append(preflight.RunAll(cfg), preflight.CheckDirectoryAccess("Library directory", cfg.Paths.LibraryDir)) {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			lines = append(lines, renderStatusLine("Default mode", statusInfo, formatMode(cfg.Cdrdao.ErrorCorrection), colorize))
			lines = append(lines, "")

			lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
			for _, s := range preflight.CheckSystemDeps(cfg) {
				kind, msg := statusOK, s.Path
				if !s.Available {
					kind, msg = statusError, s.Detail
					if s.Optional {
						kind = statusWarn
						msg += " (optional: " + strings.ToLower(s.Description) + ")"
					}
				}
				lines = append(lines, renderStatusLine(s.Name, kind, msg, colorize))
			}
			lines = append(lines, "")

			lines = append(lines, renderSectionHeader("Drive", colorize)...)
			node := preflight.CheckDeviceNode(cfg.Cdrdao.Device)
			driveStatus, driveErr := disc.CheckDriveStatus(cfg.Cdrdao.Device)
			switch {
			case !node.Passed:
				lines = append(lines, renderStatusLine(node.Name, statusError, node.Detail, colorize))
			case driveErr != nil:
				lines = append(lines, renderStatusLine(cfg.Cdrdao.Device, statusError, driveErr.Error(), colorize))
			case driveStatus.HasMedia():
				msg := "disc ready"
				if label, err := disc.ReadLabel(cmd.Context(), cfg.Cdrdao.Device, 0); err == nil {
					msg += ", label " + label
				}
				lines = append(lines, renderStatusLine(cfg.Cdrdao.Device, statusOK, msg, colorize))
			default:
				lines = append(lines, renderStatusLine(cfg.Cdrdao.Device, statusWarn,
					fmt.Sprintf("%s (%s)", driveStatus, driveStatus.Hint()), colorize))
			}
			lines = append(lines, "")

			lines = append(lines, renderSectionHeader("Imports", colorize)...)
			if dirs, err := staging.ListDirectories(cfg.Paths.StagingDir); err == nil && len(dirs) > 0 {
				lines = append(lines, renderStatusLine("Work dirs", statusWarn,
					fmt.Sprintf("%d present (active imports or leftovers; see `cdmedia cleanup --list`)", len(dirs)), colorize))
			} else {
				lines = append(lines, renderStatusLine("Work dirs", statusOK, "none", colorize))
			}
			lines = append(lines, historyStatusLines(cmd, ctx, colorize)...)

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return nil
		},
	}
}

func historyStatusLines(cmd *cobra.Command, ctx *commandContext, colorize bool) []string {
	store, err := ctx.openHistory()
	if err != nil {
		return []string{renderStatusLine("History", statusError, err.Error(), colorize)}
	}
	if store == nil {
		return []string{renderStatusLine("History", statusInfo, "disabled", colorize)}
	}
	defer store.Close()

	counts, err := store.CountByStatus(cmd.Context())
	if err != nil {
		return []string{renderStatusLine("History", statusError, err.Error(), colorize)}
	}
	if len(counts) == 0 {
		return []string{renderStatusLine("History", statusInfo, "no imports recorded", colorize)}
	}
	statuses := make([]string, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	lines := make([]string, 0, len(statuses))
	for _, status := range statuses {
		lines = append(lines, renderStatusLine("History "+status, outcomeKind(status), fmt.Sprintf("%d", counts[status]), colorize))
	}
	return lines
}
