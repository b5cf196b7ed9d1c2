package disc

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"cdmedia/internal/textutil"
)

var (
	allDigitsPattern = regexp.MustCompile(`^\d+$`)
	shortCodePattern = regexp.MustCompile(`^[A-Z0-9_]{1,2}$`)
)

// IsUnusableLabel returns true if the label does not describe the disc
// contents: mastering tool defaults, bare numbers, and very short codes.
func IsUnusableLabel(label string) bool {
	label = strings.TrimSpace(label)
	if label == "" {
		return true
	}

	upper := strings.ToUpper(label)

	patterns := []string{
		"CDROM", "CD_ROM", "NEW_VOLUME", "NEW VOLUME", "VOLUME_ID", "UNTITLED",
		"UNKNOWN", "AUDIO_CD", "MYDISC", "DISK_", "VOLUME_",
	}
	for _, pattern := range patterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}

	if allDigitsPattern.MatchString(label) {
		return true
	}
	return shortCodePattern.MatchString(upper)
}

// BundleName derives a bundle directory name (without extension) for the
// disc in device. Usable labels become title-cased names. Anything else
// falls back to a name built from the device and the time of the import.
func BundleName(label, device string, now time.Time) string {
	if !IsUnusableLabel(label) {
		if name := textutil.SanitizeFileName(textutil.TitleFromLabel(label)); name != "" {
			return name
		}
	}
	return "cd-" + textutil.SanitizeToken(filepath.Base(device)) + "-" + now.Format("20060102-150405")
}
