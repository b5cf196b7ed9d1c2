package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// framesPerSecond is the CD sector rate used to render *_frames fields.
const framesPerSecond = 75

func attrString(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return formatValue(v)
	}
}

// formatField renders a console attribute, annotating the units used by
// rip logging: byte counts, disc positions in frames, and percentages.
func formatField(key string, v slog.Value) string {
	v = v.Resolve()
	switch {
	case strings.HasSuffix(key, "_bytes") && isInteger(v):
		n := integerValue(v)
		return strconv.FormatInt(n, 10) + " (" + humanBytes(n) + ")"
	case strings.HasSuffix(key, "_frames") && isInteger(v):
		n := integerValue(v)
		return strconv.FormatInt(n, 10) + " (" + msf(n) + ")"
	case key == "percent" && v.Kind() == slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', 1, 64) + "%"
	}
	return formatValue(v)
}

func formatValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return roundDuration(v.Duration()).String()
	case slog.KindTime:
		return formatTimestamp(v.Time())
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return quoteIfNeeded(err.Error())
		}
		return quoteIfNeeded(fmt.Sprint(v.Any()))
	default:
		return quoteIfNeeded(v.String())
	}
}

// roundDuration trims sub-millisecond noise from read and grace timings.
func roundDuration(d time.Duration) time.Duration {
	switch {
	case d >= time.Second:
		return d.Round(time.Millisecond)
	case d >= time.Millisecond:
		return d.Round(time.Microsecond)
	default:
		return d
	}
}

func isInteger(v slog.Value) bool {
	return v.Kind() == slog.KindInt64 || v.Kind() == slog.KindUint64
}

func integerValue(v slog.Value) int64 {
	if v.Kind() == slog.KindUint64 {
		return int64(v.Uint64())
	}
	return v.Int64()
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	value := float64(n)
	suffixes := []string{"KiB", "MiB", "GiB"}
	i := -1
	for value >= unit && i < len(suffixes)-1 {
		value /= unit
		i++
	}
	return strconv.FormatFloat(value, 'f', 1, 64) + " " + suffixes[i]
}

func msf(frames int64) string {
	if frames < 0 {
		frames = 0
	}
	seconds := frames / framesPerSecond
	return fmt.Sprintf("%02d:%02d:%02d", seconds/60, seconds%60, frames%framesPerSecond)
}

func quoteIfNeeded(s string) string {
	if needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return true
		}
	}
	return false
}
