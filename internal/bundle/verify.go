package bundle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Verify checks that dir holds a complete bundle in the given layout: the cue
// sheet parses, references the data file by a plain relative name, and every
// track index lies inside a non-empty data file of whole sectors.
func Verify(dir string, layout Layout) (*Bundle, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat bundle: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("bundle %s is not a directory", dir)
	}

	sheetPath := filepath.Join(dir, layout.SheetFile)
	f, err := os.Open(sheetPath)
	if err != nil {
		return nil, fmt.Errorf("open cue sheet: %w", err)
	}
	sheet, err := ParseCueSheet(f)
	_ = f.Close()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", layout.SheetFile, err)
	}

	if sheet.File != filepath.Base(sheet.File) || sheet.File == "." || sheet.File == ".." {
		return nil, fmt.Errorf("cue sheet references %q outside the bundle", sheet.File)
	}
	dataPath := filepath.Join(dir, sheet.File)
	dataInfo, err := os.Stat(dataPath)
	if err != nil {
		return nil, fmt.Errorf("stat data file: %w", err)
	}
	if !dataInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("data file %s is not a regular file", sheet.File)
	}
	size := dataInfo.Size()
	if size == 0 {
		return nil, errors.New("data file is empty")
	}

	if err := checkTracks(sheet.Tracks, size); err != nil {
		return nil, err
	}

	return &Bundle{
		Path:      dir,
		DataFile:  dataPath,
		SheetFile: sheetPath,
		DataSize:  size,
		Catalog:   sheet.Catalog,
		Tracks:    sheet.Tracks,
	}, nil
}

// Open verifies an existing bundle, locating the cue sheet by the default
// layout name or, failing that, the only *.cue file in the directory.
func Open(dir string) (*Bundle, error) {
	layout := DefaultLayout
	if _, err := os.Stat(filepath.Join(dir, layout.SheetFile)); errors.Is(err, os.ErrNotExist) {
		matches, globErr := filepath.Glob(filepath.Join(dir, "*.cue"))
		if globErr != nil {
			return nil, globErr
		}
		if len(matches) != 1 {
			return nil, fmt.Errorf("bundle %s: expected one cue sheet, found %d", dir, len(matches))
		}
		layout.SheetFile = filepath.Base(matches[0])
	}
	return Verify(dir, layout)
}

func checkTracks(tracks []Track, size int64) error {
	sectorSize := 0
	lastFrame := -1
	for i, t := range tracks {
		if t.Number != i+1 {
			return fmt.Errorf("track %d out of sequence (expected %d)", t.Number, i+1)
		}
		ss := sectorSizeForCueMode(t.Mode)
		if ss == 0 {
			return fmt.Errorf("track %d: unsupported mode %s", t.Number, t.Mode)
		}
		if sectorSize == 0 {
			sectorSize = ss
			if size%int64(ss) != 0 {
				return fmt.Errorf("data file size %d is not a multiple of %d", size, ss)
			}
		} else if ss != sectorSize {
			return fmt.Errorf("track %d: sector size %d differs from %d", t.Number, ss, sectorSize)
		}
		if t.Start() < 0 {
			return fmt.Errorf("track %d has no INDEX 01", t.Number)
		}
		frames := int(size / int64(sectorSize))
		for _, idx := range t.Indexes {
			if idx.Frame <= lastFrame {
				return fmt.Errorf("track %d: index %02d is not after the previous index", t.Number, idx.Number)
			}
			if idx.Frame >= frames {
				return fmt.Errorf("track %d: index %02d beyond the end of the data file", t.Number, idx.Number)
			}
			lastFrame = idx.Frame
		}
	}
	return nil
}
