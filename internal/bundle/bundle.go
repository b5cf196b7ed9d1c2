package bundle

// Layout names the files inside a bundle directory.
type Layout struct {
	DataFile  string
	SheetFile string
}

// DefaultLayout is the layout used when none is configured.
var DefaultLayout = Layout{DataFile: "tracks.bin", SheetFile: "tracks.cue"}

// Index marks a position inside the data file, in frames from its start.
type Index struct {
	Number int
	Frame  int
}

// Track is one cue sheet track.
type Track struct {
	Number int
	// Mode is the cue sheet datatype, e.g. AUDIO or MODE1/2352.
	Mode    string
	Pregap  int
	Postgap int
	Indexes []Index
}

// Start returns the frame of index 01.
func (t Track) Start() int {
	for _, idx := range t.Indexes {
		if idx.Number == 1 {
			return idx.Frame
		}
	}
	return -1
}

// IsAudio reports whether the track holds CD-DA audio.
func (t Track) IsAudio() bool {
	return t.Mode == "AUDIO"
}

// Bundle describes a published, verified image bundle.
type Bundle struct {
	Path      string
	DataFile  string
	SheetFile string
	DataSize  int64
	Catalog   string
	Tracks    []Track
}

// Frames returns the number of sectors stored in the data file.
func (b *Bundle) Frames() int {
	if b == nil || len(b.Tracks) == 0 {
		return 0
	}
	size := sectorSizeForCueMode(b.Tracks[0].Mode)
	if size == 0 {
		return 0
	}
	return int(b.DataSize / int64(size))
}
