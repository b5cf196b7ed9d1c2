package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxNameBytes leaves room under NAME_MAX for the bundle extension and the
// ".<name>.staging-XXXXXXXX" directory used while publishing.
const maxNameBytes = 200

var pathSeparatorReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
)

// SanitizeFileName turns a disc title into a bundle directory name.
// Separators and colons become dashes, shell and Windows-reserved characters
// and control characters are dropped, whitespace runs collapse to one space,
// and leading dots are removed so the name can never be hidden or collide
// with a staging directory. Long names are cut at a rune boundary.
func SanitizeFileName(name string) string {
	name = pathSeparatorReplacer.Replace(name)
	var b strings.Builder
	space := false
	for _, r := range name {
		switch {
		case r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
			continue
		case unicode.IsSpace(r):
			space = b.Len() > 0
			continue
		case unicode.IsControl(r) || r == utf8.RuneError:
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}
	out := strings.TrimLeft(b.String(), ".")
	if len(out) > maxNameBytes {
		cut := maxNameBytes
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = out[:cut]
	}
	return strings.TrimSpace(out)
}

// SanitizeToken lowercases value into a token safe for fallback bundle
// names, e.g. "/dev/sr0" becomes "dev_sr0". Runs of other characters become
// a single underscore. Returns "unknown" when nothing usable remains.
func SanitizeToken(value string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.TrimSpace(value) {
		switch {
		case r >= 'A' && r <= 'Z':
			r += 'a' - 'A'
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			pending = true
			continue
		}
		if pending && b.Len() > 0 {
			b.WriteByte('_')
		}
		pending = false
		b.WriteRune(r)
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}
