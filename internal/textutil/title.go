package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.Und)

// TitleFromLabel converts a volume label such as "FINAL_FANTASY-VII" into a
// display title ("Final Fantasy Vii"). Separators collapse to single spaces
// and anything other than letters and digits is dropped. An empty string is
// returned when nothing usable remains.
func TitleFromLabel(label string) string {
	var cleaned strings.Builder
	prevSpace := true
	for _, r := range label {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		return ""
	}
	return titleCaser.String(strings.ToLower(title))
}
