package hostname

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	maxLabelLength = 63
	maxNameLength  = 253
)

// Coerce rewrites s into a name Checkmk accepts as a piggyback host:
// lowercase ASCII letters, digits, dashes and dots, with RFC 1123 label and
// total-length limits applied. Unicode input is folded to ASCII first (NFKD,
// combining marks dropped), anything still outside the allowed set becomes a
// dash, empty labels are collapsed. Coerce is idempotent.
func Coerce(s string) string {
	s = strings.ToLower(foldToASCII(s))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}

	labels := make([]string, 0, strings.Count(b.String(), ".")+1)
	for _, label := range strings.Split(b.String(), ".") {
		label = strings.Trim(label, "-")
		if len(label) > maxLabelLength {
			// truncation can expose a new trailing dash
			label = strings.TrimRight(label[:maxLabelLength], "-")
		}
		if label == "" {
			continue
		}
		labels = append(labels, label)
	}

	name := strings.Join(labels, ".")
	if len(name) > maxNameLength {
		name = strings.TrimRight(name[:maxNameLength], "-.")
	}
	return name
}

func foldToASCII(s string) string {
	// the transformer chain is stateful, build it per call
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}
