package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"cdmedia/internal/bundle"
)

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "inspect BUNDLE",
		Short:       "Verify a bundle and list its tracks",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve bundle path: %w", err)
			}
			b, err := bundle.Open(dir)
			if err != nil {
				return fmt.Errorf("inspect %s: %w", dir, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Bundle:    %s\n", b.Path)
			fmt.Fprintf(out, "Cue sheet: %s\n", filepath.Base(b.SheetFile))
			fmt.Fprintf(out, "Data file: %s (%s, %d sectors)\n", filepath.Base(b.DataFile), formatBytes(b.DataSize), b.Frames())
			if b.Catalog != "" {
				fmt.Fprintf(out, "Catalog:   %s\n", b.Catalog)
			}
			fmt.Fprintln(out)

			tbl := tableLayout{
				headers: []string{"Track", "Mode", "Start", "Length", "Pregap", "Indexes"},
				aligns:  []columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight},
			}
			fmt.Fprint(out, tbl.render(trackRows(b)))
			return nil
		},
	}
}
