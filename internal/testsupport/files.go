package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cdmedia/internal/services/cdrdao"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// WriteDiscImage writes what cdrdao read-cd leaves behind for a two-track
// audio disc: a sparse data file of dataFrames raw sectors and a TOC whose
// tracks split tocFrames evenly. Passing dataFrames < tocFrames produces a
// truncated image. It is safe to call from any goroutine.
func WriteDiscImage(dataPath, tocPath string, dataFrames, tocFrames int) error {
	f, err := os.Create(dataPath)
	if err != nil {
		return err
	}
	if err := f.Truncate(int64(dataFrames) * cdrdao.RawSectorSize); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	first := tocFrames / 2
	second := tocFrames - first
	var b strings.Builder
	b.WriteString("CD_DA\n\n")
	fmt.Fprintf(&b, "// Track 1\nTRACK AUDIO\nNO COPY\nFILE %q 0 %s\n\n", dataPath, cdrdao.FormatMSF(first))
	fmt.Fprintf(&b, "// Track 2\nTRACK AUDIO\nNO COPY\nFILE %q %s %s\n", dataPath, cdrdao.FormatMSF(first), cdrdao.FormatMSF(second))
	return os.WriteFile(tocPath, []byte(b.String()), 0o644)
}

// MustWriteDiscImage is WriteDiscImage for the test goroutine.
func MustWriteDiscImage(t testing.TB, dataPath, tocPath string, frames int) {
	t.Helper()
	if err := WriteDiscImage(dataPath, tocPath, frames, frames); err != nil {
		t.Fatalf("write disc image: %v", err)
	}
}

// FakeCdrdaoScript returns a shell script that behaves like a successful
// `cdrdao read-cd`: it prints lines, then writes a two-track image of frames
// sectors to the --datafile path and its TOC to the last argument.
func FakeCdrdaoScript(lines []string, frames int) string {
	first := frames / 2
	second := frames - first

	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	b.WriteString("data=\"\"\ntoc=\"\"\n")
	b.WriteString("while [ $# -gt 0 ]; do\n")
	b.WriteString("  case \"$1\" in\n")
	b.WriteString("    --datafile) data=\"$2\"; shift 2 ;;\n")
	b.WriteString("    *) toc=\"$1\"; shift ;;\n")
	b.WriteString("  esac\n")
	b.WriteString("done\n")
	for _, line := range lines {
		fmt.Fprintf(&b, "printf '%%s\\n' %s\n", shellQuote(line))
	}
	fmt.Fprintf(&b, "dd if=/dev/zero of=\"$data\" bs=%d count=%d 2>/dev/null || exit 3\n", cdrdao.RawSectorSize, frames)
	fmt.Fprintf(&b, "printf 'CD_DA\\n\\nTRACK AUDIO\\nFILE \"%%s\" 0 %s\\n\\nTRACK AUDIO\\nFILE \"%%s\" %s %s\\n' \"$data\" \"$data\" > \"$toc\"\n",
		cdrdao.FormatMSF(first), cdrdao.FormatMSF(first), cdrdao.FormatMSF(second))
	b.WriteString("exit 0\n")
	return b.String()
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
