// Package slug builds URL-safe identifiers from display names.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength bounds the name part of a slug.
const MaxLength = 100

// Make lowercases s, strips accents and collapses every run of characters
// outside [a-z0-9] into a single hyphen. The result is at most maxLen bytes
// and never starts or ends with a hyphen.
func Make(s string, maxLen int) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		plain = strings.ToLower(s)
	}

	var b strings.Builder
	hyphen := false
	for _, r := range plain {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			hyphen = false
			continue
		}
		if !hyphen && b.Len() > 0 {
			b.WriteByte('-')
			hyphen = true
		}
	}

	out := strings.TrimSuffix(b.String(), "-")
	if maxLen > 0 && len(out) > maxLen {
		out = strings.TrimSuffix(out[:maxLen], "-")
	}
	return out
}

// WithSuffix slugs name and appends a slugged suffix, keeping slugs of
// same-named items apart.
func WithSuffix(name, suffix string) string {
	base := Make(name, MaxLength)
	tail := Make(suffix, MaxLength)
	switch {
	case tail == "":
		return base
	case base == "":
		return tail
	default:
		return base + "-" + tail
	}
}
