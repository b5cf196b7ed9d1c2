package bundle

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cdmedia/internal/services/cdrdao"
)

// CueSheet is a single-file cue sheet.
type CueSheet struct {
	Catalog string
	File    string
	Tracks  []Track
}

var cueModes = map[string]string{
	"AUDIO":          "AUDIO",
	"MODE1_RAW":      "MODE1/2352",
	"MODE1":          "MODE1/2048",
	"MODE2_RAW":      "MODE2/2352",
	"MODE2_FORM_MIX": "MODE2/2352",
	"MODE2":          "MODE2/2336",
}

func sectorSizeForCueMode(mode string) int {
	switch mode {
	case "AUDIO", "MODE1/2352", "MODE2/2352":
		return cdrdao.RawSectorSize
	case "MODE1/2048":
		return 2048
	case "MODE2/2336":
		return 2336
	default:
		return 0
	}
}

// BuildCueSheet converts a cdrdao TOC into a cue sheet for a data file of
// dataSize bytes that will be referenced as dataName. Every track must live
// in the same data file with the same sector size.
func BuildCueSheet(toc *cdrdao.TOC, dataName string, dataSize int64) (*CueSheet, error) {
	if toc == nil || len(toc.Tracks) == 0 {
		return nil, errors.New("toc has no tracks")
	}
	if dataSize <= 0 {
		return nil, errors.New("data file is empty")
	}
	sheet := &CueSheet{File: dataName}
	if strings.Trim(toc.Catalog, "0") != "" {
		sheet.Catalog = toc.Catalog
	}

	sourceFile := toc.Tracks[0].File
	sectorSize := 0
	nextFree := 0
	for _, t := range toc.Tracks {
		mode, ok := cueModes[t.Mode]
		if !ok {
			return nil, fmt.Errorf("track %d: mode %s has no cue sheet equivalent", t.Number, t.Mode)
		}
		if t.File != sourceFile {
			return nil, fmt.Errorf("track %d: data in %q, expected a single data file %q", t.Number, t.File, sourceFile)
		}
		size := cdrdao.SectorSize(t.Mode)
		if sectorSize == 0 {
			sectorSize = size
		} else if size != sectorSize {
			return nil, fmt.Errorf("track %d: sector size %d differs from %d; mixed-mode discs need cdrdao.read_raw = true", t.Number, size, sectorSize)
		}
		if dataSize%int64(size) != 0 {
			return nil, fmt.Errorf("data file size %d is not a multiple of %d", dataSize, size)
		}
		if t.Offset%int64(size) != 0 {
			return nil, fmt.Errorf("track %d: offset %d is not sector aligned", t.Number, t.Offset)
		}
		totalFrames := int(dataSize / int64(size))
		start := int(t.Offset / int64(size))
		length := t.Length
		if length < 0 {
			length = totalFrames - start
		}
		if length <= 0 || start+length > totalFrames {
			return nil, fmt.Errorf("track %d: frames %d-%d exceed data file of %d frames", t.Number, start, start+length, totalFrames)
		}
		if start < nextFree {
			return nil, fmt.Errorf("track %d: data at frame %d overlaps the previous track ending at %d", t.Number, start, nextFree)
		}
		nextFree = start + length

		silence, inFile := t.Pregap, 0
		if t.Start >= 0 {
			if t.Start < t.Pregap {
				silence = t.Start
			} else {
				inFile = t.Start - t.Pregap
			}
		}
		if inFile >= length {
			return nil, fmt.Errorf("track %d: index 01 lies beyond its data", t.Number)
		}

		track := Track{Number: t.Number, Mode: mode, Pregap: silence, Postgap: t.Postgap}
		if inFile > 0 {
			track.Indexes = append(track.Indexes, Index{Number: 0, Frame: start})
		}
		index1 := start + inFile
		track.Indexes = append(track.Indexes, Index{Number: 1, Frame: index1})
		for i, rel := range t.Indexes {
			if rel <= 0 || inFile+rel >= length {
				return nil, fmt.Errorf("track %d: index %d out of range", t.Number, i+2)
			}
			track.Indexes = append(track.Indexes, Index{Number: i + 2, Frame: index1 + rel})
		}
		sheet.Tracks = append(sheet.Tracks, track)
	}
	return sheet, nil
}

// Render produces the cue sheet text.
func (c *CueSheet) Render() []byte {
	var buf bytes.Buffer
	if c.Catalog != "" {
		fmt.Fprintf(&buf, "CATALOG %s\n", c.Catalog)
	}
	fmt.Fprintf(&buf, "FILE %s BINARY\n", strconv.Quote(c.File))
	for _, t := range c.Tracks {
		fmt.Fprintf(&buf, "  TRACK %02d %s\n", t.Number, t.Mode)
		if t.Pregap > 0 {
			fmt.Fprintf(&buf, "    PREGAP %s\n", cdrdao.FormatMSF(t.Pregap))
		}
		for _, idx := range t.Indexes {
			fmt.Fprintf(&buf, "    INDEX %02d %s\n", idx.Number, cdrdao.FormatMSF(idx.Frame))
		}
		if t.Postgap > 0 {
			fmt.Fprintf(&buf, "    POSTGAP %s\n", cdrdao.FormatMSF(t.Postgap))
		}
	}
	return buf.Bytes()
}

// ParseCueSheet reads a single-file cue sheet. REM, TITLE, PERFORMER and
// similar metadata lines are ignored.
func ParseCueSheet(r io.Reader) (*CueSheet, error) {
	sheet := &CueSheet{}
	scanner := bufio.NewScanner(r)
	var current *Track
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		keyword, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)
		switch strings.ToUpper(keyword) {
		case "CATALOG":
			sheet.Catalog = rest
		case "FILE":
			if sheet.File != "" {
				return nil, fmt.Errorf("line %d: multiple FILE entries are not supported", lineNo)
			}
			name, err := parseCueFileName(rest)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			sheet.File = name
		case "TRACK":
			fields := strings.Fields(rest)
			if len(fields) != 2 {
				return nil, fmt.Errorf("line %d: malformed TRACK", lineNo)
			}
			n, err := strconv.Atoi(fields[0])
			if err != nil {
				return nil, fmt.Errorf("line %d: track number %q", lineNo, fields[0])
			}
			sheet.Tracks = append(sheet.Tracks, Track{Number: n, Mode: strings.ToUpper(fields[1])})
			current = &sheet.Tracks[len(sheet.Tracks)-1]
		case "INDEX":
			if current == nil {
				return nil, fmt.Errorf("line %d: INDEX outside a track", lineNo)
			}
			fields := strings.Fields(rest)
			if len(fields) != 2 {
				return nil, fmt.Errorf("line %d: malformed INDEX", lineNo)
			}
			n, err := strconv.Atoi(fields[0])
			if err != nil {
				return nil, fmt.Errorf("line %d: index number %q", lineNo, fields[0])
			}
			frame, err := cdrdao.ParseMSF(fields[1])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			current.Indexes = append(current.Indexes, Index{Number: n, Frame: frame})
		case "PREGAP", "POSTGAP":
			if current == nil {
				return nil, fmt.Errorf("line %d: %s outside a track", lineNo, keyword)
			}
			frames, err := cdrdao.ParseMSF(rest)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			if strings.EqualFold(keyword, "PREGAP") {
				current.Pregap = frames
			} else {
				current.Postgap = frames
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read cue sheet: %w", err)
	}
	if sheet.File == "" {
		return nil, errors.New("cue sheet has no FILE entry")
	}
	if len(sheet.Tracks) == 0 {
		return nil, errors.New("cue sheet has no tracks")
	}
	return sheet, nil
}

// parseCueFileName accepts `"name with spaces" BINARY` or `name BINARY`.
func parseCueFileName(rest string) (string, error) {
	if strings.HasPrefix(rest, `"`) {
		end := strings.Index(rest[1:], `"`)
		if end < 0 {
			return "", errors.New("unterminated FILE name")
		}
		return rest[1 : end+1], nil
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", errors.New("FILE without name")
	}
	return fields[0], nil
}
