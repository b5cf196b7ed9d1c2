package cdrdao

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// TOCTrack is one track of a cdrdao TOC file.
type TOCTrack struct {
	Number int
	// Mode is the cdrdao track mode, e.g. AUDIO or MODE1_RAW.
	Mode string
	// File is the data file exactly as referenced by the TOC.
	File string
	// Offset is the byte position of the track's data inside File.
	Offset int64
	// Length is the number of frames stored in File, -1 when the TOC leaves
	// it open-ended (runs to the end of File).
	Length int
	// Pregap counts frames of SILENCE/ZERO before the stored data.
	Pregap int
	// Postgap counts frames of SILENCE/ZERO after the stored data.
	Postgap int
	// Start is the number of frames from the start of the track (including
	// Pregap) to index 01, or -1 when the track has no START statement.
	Start int
	// Indexes are index 02+ positions relative to index 01.
	Indexes []int
}

// TOC is the parsed content of a cdrdao TOC file.
type TOC struct {
	DiscType string
	Catalog  string
	Tracks   []TOCTrack
}

// SectorSize returns the bytes per sector stored for a cdrdao track mode,
// or 0 for unknown modes.
func SectorSize(mode string) int {
	switch strings.ToUpper(mode) {
	case "AUDIO", "MODE1_RAW", "MODE2_RAW", "MODE2_FORM_MIX":
		return RawSectorSize
	case "MODE1", "MODE2_FORM1":
		return 2048
	case "MODE2":
		return 2336
	case "MODE2_FORM2":
		return 2324
	default:
		return 0
	}
}

// ReadTOCFile parses the TOC at path.
func ReadTOCFile(path string) (*TOC, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open toc: %w", err)
	}
	defer f.Close()
	toc, err := ParseTOC(f)
	if err != nil {
		return nil, fmt.Errorf("parse toc %s: %w", path, err)
	}
	return toc, nil
}

// ParseTOC reads a TOC as written by cdrdao read-cd. CD_TEXT blocks and
// flag statements (COPY, PRE_EMPHASIS, ...) are skipped.
func ParseTOC(r io.Reader) (*TOC, error) {
	toc := &TOC{}
	scanner := bufio.NewScanner(r)
	var (
		current   *TOCTrack
		cursors   = map[string]int64{}
		depth     int
		lineNo    int
		hasData   bool
		trackSize int
	)
	for scanner.Scan() {
		lineNo++
		line := stripComment(scanner.Text())
		if depth > 0 || strings.Contains(line, "{") {
			depth += strings.Count(line, "{") - strings.Count(line, "}")
			continue
		}
		fields, err := tokenize(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if len(fields) == 0 {
			continue
		}
		keyword := strings.ToUpper(fields[0])
		args := fields[1:]
		switch keyword {
		case "CD_DA", "CD_ROM", "CD_ROM_XA", "CD_I":
			toc.DiscType = keyword
		case "CATALOG":
			if len(args) > 0 {
				toc.Catalog = args[0]
			}
		case "TRACK":
			if len(args) == 0 {
				return nil, fmt.Errorf("line %d: TRACK without mode", lineNo)
			}
			toc.Tracks = append(toc.Tracks, TOCTrack{
				Number: len(toc.Tracks) + 1,
				Mode:   strings.ToUpper(args[0]),
				Start:  -1,
				Length: 0,
			})
			current = &toc.Tracks[len(toc.Tracks)-1]
			trackSize = SectorSize(current.Mode)
			if trackSize == 0 {
				return nil, fmt.Errorf("line %d: unsupported track mode %q", lineNo, args[0])
			}
			hasData = false
		case "SILENCE", "ZERO", "PREGAP":
			if current == nil {
				return nil, fmt.Errorf("line %d: %s outside a track", lineNo, keyword)
			}
			if len(args) == 0 {
				return nil, fmt.Errorf("line %d: %s without length", lineNo, keyword)
			}
			unit := trackSize
			if keyword == "SILENCE" {
				unit = SamplesPerFrame
			}
			frames, err := parseLength(args[len(args)-1], unit)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			if hasData {
				current.Postgap += frames
			} else {
				current.Pregap += frames
			}
		case "DATAFILE", "FILE", "AUDIOFILE":
			if current == nil {
				return nil, fmt.Errorf("line %d: %s outside a track", lineNo, keyword)
			}
			if err := applyDataStatement(current, keyword, args, cursors, hasData, trackSize); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			hasData = true
		case "START":
			if current == nil {
				return nil, fmt.Errorf("line %d: START outside a track", lineNo)
			}
			if len(args) == 0 {
				current.Start = current.Pregap + max(current.Length, 0)
				continue
			}
			frames, err := ParseMSF(args[0])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			current.Start = frames
		case "INDEX":
			if current == nil || len(args) == 0 {
				return nil, fmt.Errorf("line %d: malformed INDEX", lineNo)
			}
			frames, err := ParseMSF(args[0])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			current.Indexes = append(current.Indexes, frames)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read toc: %w", err)
	}
	if len(toc.Tracks) == 0 {
		return nil, errors.New("toc has no tracks")
	}
	for i, track := range toc.Tracks {
		if track.File == "" {
			return nil, fmt.Errorf("track %d has no data file", track.Number)
		}
		if track.Length < 0 && i != len(toc.Tracks)-1 {
			return nil, fmt.Errorf("track %d has no length", track.Number)
		}
	}
	return toc, nil
}

// applyDataStatement handles DATAFILE "f" [#off] [len] and
// FILE "f" [#off] start [len]. A FILE track's data begins at
// #off + start, with #off defaulting to 0.
func applyDataStatement(track *TOCTrack, keyword string, args []string, cursors map[string]int64, hasData bool, sectorSize int) error {
	if len(args) == 0 {
		return fmt.Errorf("%s without file name", keyword)
	}
	file := args[0]
	rest := args[1:]
	// FILE start positions count from the base offset, not from the
	// previous segment. Only a bare DATAFILE follows on from the cursor.
	var offset int64
	if keyword == "DATAFILE" {
		offset = cursors[file]
	}
	if len(rest) > 0 && strings.HasPrefix(rest[0], "#") {
		n, err := strconv.ParseInt(strings.TrimPrefix(rest[0], "#"), 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid byte offset %q", rest[0])
		}
		offset = n
		rest = rest[1:]
	}
	unit := sectorSize
	if keyword != "DATAFILE" {
		unit = SamplesPerFrame
		if len(rest) == 0 {
			return fmt.Errorf("%s without start position", keyword)
		}
		start, err := parseLength(rest[0], unit)
		if err != nil {
			return err
		}
		offset += int64(start) * int64(sectorSize)
		rest = rest[1:]
	}
	length := -1
	if len(rest) > 0 {
		n, err := parseLength(rest[0], unit)
		if err != nil {
			return err
		}
		length = n
	}

	if hasData {
		// A second segment must continue the first one.
		if file != track.File || track.Length < 0 || offset != track.Offset+int64(track.Length)*int64(sectorSize) {
			return fmt.Errorf("track %d: non-contiguous data segments are not supported", track.Number)
		}
		if length < 0 {
			track.Length = -1
		} else {
			track.Length += length
		}
	} else {
		track.File = file
		track.Offset = offset
		track.Length = length
	}
	if length >= 0 {
		cursors[file] = offset + int64(length)*int64(sectorSize)
	}
	return nil
}

// parseLength accepts "mm:ss:ff" or a plain integer counting units of
// which perFrame make up one frame (samples for audio, bytes for data).
func parseLength(value string, perFrame int) (int, error) {
	if strings.Contains(value, ":") {
		return ParseMSF(value)
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid length %q", value)
	}
	if n%int64(perFrame) != 0 {
		return 0, fmt.Errorf("length %d is not a whole number of frames", n)
	}
	return int(n / int64(perFrame)), nil
}

func stripComment(line string) string {
	inQuote := false
	for i := 0; i < len(line); i++ {
		switch {
		case line[i] == '"':
			inQuote = !inQuote
		case !inQuote && line[i] == '/' && i+1 < len(line) && line[i+1] == '/':
			return line[:i]
		}
	}
	return line
}

// tokenize splits on whitespace, keeping quoted strings (with \" escapes)
// as single unquoted tokens.
func tokenize(line string) ([]string, error) {
	var (
		tokens []string
		buf    strings.Builder
		inWord bool
	)
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"':
			end := i + 1
			buf.Reset()
			for ; end < len(line) && line[end] != '"'; end++ {
				if line[end] == '\\' && end+1 < len(line) {
					end++
				}
				buf.WriteByte(line[end])
			}
			if end >= len(line) {
				return nil, errors.New("unterminated string")
			}
			tokens = append(tokens, buf.String())
			buf.Reset()
			i = end
			inWord = false
		case ch == ' ' || ch == '\t':
			if inWord {
				tokens = append(tokens, buf.String())
				buf.Reset()
				inWord = false
			}
		default:
			buf.WriteByte(ch)
			inWord = true
		}
	}
	if inWord {
		tokens = append(tokens, buf.String())
	}
	return tokens, nil
}
