package main

import (
	"fmt"
	"io"
	"strconv"

	"cdmedia/internal/bundle"
	"cdmedia/internal/ripping"
	"cdmedia/internal/services/cdrdao"
)

func printOutcome(out io.Writer, o ripping.Outcome, colorize bool) {
	status := o.Status.String()
	message := formatDuration(o.FinishedAt.Sub(o.StartedAt))
	if o.Err != nil {
		message = o.Err.Error()
	}
	fmt.Fprintln(out, renderStatusLine("Import", outcomeKind(status), message, colorize))

	if o.Bundle != nil {
		fmt.Fprintln(out, renderStatusLine("Bundle", statusInfo, o.Bundle.Path, colorize))
		fmt.Fprintln(out, renderStatusLine("Data", statusInfo,
			fmt.Sprintf("%s, %d tracks", formatBytes(o.Bundle.DataSize), len(o.Bundle.Tracks)), colorize))
	}
	if n := len(o.Warnings); n > 0 {
		fmt.Fprintln(out, renderStatusLine("Warnings", statusWarn, strconv.Itoa(n)+" read warnings", colorize))
		for _, w := range o.Warnings {
			fmt.Fprintf(out, "%s  - %s\n", statusIndent, w)
		}
	}
	if o.CleanupErr != nil {
		fmt.Fprintln(out, renderStatusLine("Cleanup", statusWarn, o.CleanupErr.Error(), colorize))
	}
}

func trackRows(b *bundle.Bundle) [][]string {
	rows := make([][]string, 0, len(b.Tracks))
	for i, t := range b.Tracks {
		end := b.Frames()
		if i+1 < len(b.Tracks) {
			end = firstIndexFrame(b.Tracks[i+1])
		}
		start := t.Start()
		length := ""
		if start >= 0 && end >= start {
			length = cdrdao.FormatMSF(end - start)
		}
		pregap := ""
		if t.Pregap > 0 {
			pregap = cdrdao.FormatMSF(t.Pregap)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%02d", t.Number),
			t.Mode,
			cdrdao.FormatMSF(start),
			length,
			pregap,
			strconv.Itoa(len(t.Indexes)),
		})
	}
	return rows
}

// firstIndexFrame returns where a track's data begins in the file, which is
// its index 00 when it has one.
func firstIndexFrame(t bundle.Track) int {
	if len(t.Indexes) == 0 {
		return -1
	}
	first := t.Indexes[0].Frame
	for _, idx := range t.Indexes[1:] {
		if idx.Frame < first {
			first = idx.Frame
		}
	}
	return first
}
