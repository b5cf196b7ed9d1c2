package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"cdmedia/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent imports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				entries, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No imports recorded")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{
						shortID(e.SessionID),
						e.FinishedAt.Local().Format("2006-01-02 15:04"),
						e.Status,
						formatMode(e.ErrorCorrection),
						formatDuration(e.Duration()),
						formatBytes(e.DataBytes),
						strconv.Itoa(len(e.Warnings)),
						filepath.Base(e.Destination),
					})
				}
				tbl := tableLayout{
					headers: []string{"ID", "Finished", "Status", "Mode", "Took", "Size", "Warn", "Bundle"},
					aligns:  []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				}
				fmt.Fprint(out, tbl.render(rows))
				return nil
			})
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of imports to show (0 for all)")

	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))
	return historyCmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show SESSION_ID",
		Short: "Show the details of one import",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				entry, err := findEntry(cmd, store, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintln(out, renderStatusLine("Session", statusInfo, entry.SessionID, colorize))
				fmt.Fprintln(out, renderStatusLine("Status", outcomeKind(entry.Status), entry.Status, colorize))
				if entry.ErrorKind != "" {
					fmt.Fprintln(out, renderStatusLine("Failure", statusError, entry.ErrorKind+": "+entry.ErrorMessage, colorize))
				}
				fmt.Fprintln(out, renderStatusLine("Device", statusInfo, entry.Device, colorize))
				fmt.Fprintln(out, renderStatusLine("Destination", statusInfo, entry.Destination, colorize))
				fmt.Fprintln(out, renderStatusLine("Mode", statusInfo, formatMode(entry.ErrorCorrection), colorize))
				fmt.Fprintln(out, renderStatusLine("Started", statusInfo, entry.StartedAt.Local().Format(time.RFC3339), colorize))
				fmt.Fprintln(out, renderStatusLine("Duration", statusInfo, formatDuration(entry.Duration()), colorize))
				fmt.Fprintln(out, renderStatusLine("cdrdao exit", statusInfo, strconv.Itoa(entry.ExitCode), colorize))
				if entry.Status == "succeeded" {
					fmt.Fprintln(out, renderStatusLine("Data", statusInfo,
						fmt.Sprintf("%s, %d tracks", formatBytes(entry.DataBytes), entry.Tracks), colorize))
				}
				if entry.CleanupError != "" {
					fmt.Fprintln(out, renderStatusLine("Cleanup", statusWarn, entry.CleanupError, colorize))
				}
				for _, w := range entry.Warnings {
					fmt.Fprintln(out, renderStatusLine("Warning", statusWarn, w, colorize))
				}
				return nil
			})
		},
	}
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old history entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				return fmt.Errorf("--older-than must be a positive number of days")
			}
			return withHistory(ctx, func(store *history.Store) error {
				cutoff := time.Now().AddDate(0, 0, -days)
				removed, err := store.Prune(cmd.Context(), cutoff)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries older than %d days\n", removed, days)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "older-than", 90, "Age in days")
	return cmd
}

func withHistory(ctx *commandContext, fn func(*history.Store) error) error {
	store, err := ctx.openHistory()
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	if store == nil {
		return errors.New("import history is disabled; set [history] enabled = true")
	}
	defer store.Close()
	return fn(store)
}

// findEntry resolves a full session id or the short prefix shown by
// `cdmedia history`.
func findEntry(cmd *cobra.Command, store *history.Store, id string) (*history.Entry, error) {
	entry, err := store.Get(cmd.Context(), id)
	if err == nil || !errors.Is(err, history.ErrNotFound) {
		return entry, err
	}
	entries, err := store.List(cmd.Context(), 0)
	if err != nil {
		return nil, err
	}
	var match *history.Entry
	for i := range entries {
		if len(id) >= 4 && len(entries[i].SessionID) >= len(id) && entries[i].SessionID[:len(id)] == id {
			if match != nil {
				return nil, fmt.Errorf("session id %q is ambiguous", id)
			}
			match = &entries[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("no import with session id %q", id)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
