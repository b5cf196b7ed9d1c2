package cdrdao

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// FramesPerSecond is the number of sectors per second of CD time.
	FramesPerSecond = 75
	// RawSectorSize is the size of a full 2352-byte CD sector.
	RawSectorSize = 2352
	// SamplesPerFrame is the number of 16-bit stereo samples in an audio sector.
	SamplesPerFrame = 588
)

// ParseMSF converts an "mm:ss:ff" timestamp into a frame count.
func ParseMSF(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("msf %q: expected mm:ss:ff", value)
	}
	var fields [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("msf %q: invalid field %q", value, part)
		}
		fields[i] = n
	}
	if fields[1] >= 60 || fields[2] >= FramesPerSecond {
		return 0, fmt.Errorf("msf %q: field out of range", value)
	}
	return (fields[0]*60+fields[1])*FramesPerSecond + fields[2], nil
}

// FormatMSF renders a frame count as "mm:ss:ff".
func FormatMSF(frames int) string {
	if frames < 0 {
		frames = 0
	}
	minutes := frames / (60 * FramesPerSecond)
	seconds := (frames / FramesPerSecond) % 60
	return fmt.Sprintf("%02d:%02d:%02d", minutes, seconds, frames%FramesPerSecond)
}
