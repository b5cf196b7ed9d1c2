package cdrdao

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mixedModeTOC = `CD_ROM

CATALOG "0000000000000"

// Track 1
TRACK MODE1_RAW
NO COPY
DATAFILE "/var/tmp/rip/tracks.bin" 00:40:00 // length in bytes: 7056000

// Track 2
TRACK AUDIO
NO COPY
NO PRE_EMPHASIS
TWO_CHANNEL_AUDIO
CD_TEXT {
  LANGUAGE 0 {
    TITLE "Intro // not a comment"
  }
}
FILE "/var/tmp/rip/tracks.bin" #7056000 0 00:20:00
START 00:02:00

// Track 3
TRACK AUDIO
SILENCE 00:01:00
START
FILE "/var/tmp/rip/tracks.bin" #7056000 00:20:00 00:10:00
INDEX 00:05:00
`

func TestParseTOCMixedMode(t *testing.T) {
	toc, err := ParseTOC(strings.NewReader(mixedModeTOC))
	require.NoError(t, err)

	assert.Equal(t, "CD_ROM", toc.DiscType)
	assert.Equal(t, "0000000000000", toc.Catalog)
	require.Len(t, toc.Tracks, 3)

	data := toc.Tracks[0]
	assert.Equal(t, "MODE1_RAW", data.Mode)
	assert.Equal(t, "/var/tmp/rip/tracks.bin", data.File)
	assert.Equal(t, int64(0), data.Offset)
	assert.Equal(t, 3000, data.Length)
	assert.Equal(t, -1, data.Start)

	audio := toc.Tracks[1]
	assert.Equal(t, 2, audio.Number)
	assert.Equal(t, "AUDIO", audio.Mode)
	assert.Equal(t, int64(7056000), audio.Offset)
	assert.Equal(t, 1500, audio.Length)
	assert.Equal(t, 150, audio.Start)

	last := toc.Tracks[2]
	assert.Equal(t, int64(7056000+1500*RawSectorSize), last.Offset, "start counts from the byte offset")
	assert.Equal(t, 750, last.Length)
	assert.Equal(t, 75, last.Pregap)
	assert.Equal(t, 75, last.Start, "bare START marks everything so far as pregap")
	assert.Equal(t, []int{375}, last.Indexes)
}

func TestParseTOCAudioStartsCountFromFileStart(t *testing.T) {
	input := `CD_DA

// Track 1
TRACK AUDIO
NO COPY
NO PRE_EMPHASIS
TWO_CHANNEL_AUDIO
FILE "tracks.bin" 0 00:10:00

// Track 2
TRACK AUDIO
NO COPY
NO PRE_EMPHASIS
TWO_CHANNEL_AUDIO
FILE "tracks.bin" 00:10:00 00:05:00
START 00:01:00

// Track 3
TRACK AUDIO
FILE "tracks.bin" 00:15:00 00:02:00
`
	toc, err := ParseTOC(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, toc.Tracks, 3)

	assert.Equal(t, int64(0), toc.Tracks[0].Offset)
	assert.Equal(t, 750, toc.Tracks[0].Length)
	assert.Equal(t, int64(750*RawSectorSize), toc.Tracks[1].Offset)
	assert.Equal(t, 375, toc.Tracks[1].Length)
	assert.Equal(t, 75, toc.Tracks[1].Start)
	assert.Equal(t, int64(1125*RawSectorSize), toc.Tracks[2].Offset)
	assert.Equal(t, 150, toc.Tracks[2].Length)
}

func TestParseTOCDataFileFollowsCursor(t *testing.T) {
	input := "CD_ROM\nTRACK MODE1_RAW\nDATAFILE \"d.bin\" 00:02:00\nTRACK MODE1_RAW\nDATAFILE \"d.bin\" 00:01:00\n"
	toc, err := ParseTOC(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, toc.Tracks, 2)
	assert.Equal(t, int64(150*RawSectorSize), toc.Tracks[1].Offset)
}

func TestParseTOCOpenEndedLastTrack(t *testing.T) {
	toc, err := ParseTOC(strings.NewReader("CD_DA\nTRACK AUDIO\nFILE \"a.bin\" 0\n"))
	require.NoError(t, err)
	require.Len(t, toc.Tracks, 1)
	assert.Equal(t, -1, toc.Tracks[0].Length)
}

func TestParseTOCSampleLengths(t *testing.T) {
	toc, err := ParseTOC(strings.NewReader("CD_DA\nTRACK AUDIO\nFILE \"a.bin\" 0 1176\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, toc.Tracks[0].Length)
}

func TestParseTOCErrors(t *testing.T) {
	tests := map[string]string{
		"no tracks":          "CD_ROM\n",
		"unknown mode":       "TRACK MODE9\nDATAFILE \"a\" 00:01:00\n",
		"no data":            "TRACK AUDIO\nNO COPY\n",
		"open middle track":  "TRACK AUDIO\nFILE \"a\" 0\nTRACK AUDIO\nFILE \"a\" 0 00:01:00\n",
		"bad msf":            "TRACK AUDIO\nFILE \"a\" 0 00:99:00\n",
		"partial frame":      "TRACK AUDIO\nFILE \"a\" 0 100\n",
		"unterminated":       "TRACK AUDIO\nFILE \"a 0 00:01:00\n",
		"file outside track": "DATAFILE \"a\" 00:01:00\n",
		"gap in segments":    "TRACK AUDIO\nFILE \"a\" 0 00:01:00\nFILE \"a\" #999999 0 00:01:00\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTOC(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}

func TestReadTOCFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracks.toc")
	require.NoError(t, os.WriteFile(path, []byte(mixedModeTOC), 0o644))

	toc, err := ReadTOCFile(path)
	require.NoError(t, err)
	assert.Len(t, toc.Tracks, 3)

	_, err = ReadTOCFile(filepath.Join(t.TempDir(), "missing.toc"))
	assert.Error(t, err)
}

func TestSectorSize(t *testing.T) {
	assert.Equal(t, 2352, SectorSize("audio"))
	assert.Equal(t, 2352, SectorSize("MODE2_FORM_MIX"))
	assert.Equal(t, 2048, SectorSize("MODE1"))
	assert.Equal(t, 2336, SectorSize("MODE2"))
	assert.Equal(t, 0, SectorSize("MODE7"))
}

func TestMSFRoundTrip(t *testing.T) {
	frames, err := ParseMSF("05:20:42")
	require.NoError(t, err)
	assert.Equal(t, (5*60+20)*75+42, frames)
	assert.Equal(t, "05:20:42", FormatMSF(frames))
	assert.Equal(t, "00:00:00", FormatMSF(-3))

	for _, bad := range []string{"", "1:2", "aa:00:00", "00:60:00", "00:00:75"} {
		_, err := ParseMSF(bad)
		assert.Error(t, err, bad)
	}
}

func TestReadCDArgs(t *testing.T) {
	args := ReadCDArgs(ReadOptions{
		Device:       "/dev/sr0",
		ReadRaw:      true,
		ParanoiaMode: 3,
		DataFile:     "/work/tracks.bin",
		TOCFile:      "/work/tracks.toc",
	})
	assert.Equal(t, []string{
		"read-cd", "--read-raw", "--device", "/dev/sr0",
		"--paranoia-mode", "3", "--datafile", "/work/tracks.bin", "/work/tracks.toc",
	}, args)

	args = ReadCDArgs(ReadOptions{Device: "/dev/sr1", Driver: "generic-mmc-raw", DataFile: "d", TOCFile: "t"})
	assert.Equal(t, []string{
		"read-cd", "--device", "/dev/sr1", "--driver", "generic-mmc-raw",
		"--paranoia-mode", "0", "--datafile", "d", "t",
	}, args)
}
