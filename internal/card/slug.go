package card

import (
	"strings"
	"unicode"
)

// FallbackSlug is used when a name has no letters or digits.
const FallbackSlug = "player"

// Slugify lowercases name and collapses every run of characters that are
// not letters or digits into a single underscore.
func Slugify(name string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	if b.Len() == 0 {
		return FallbackSlug
	}
	return b.String()
}

// Filename returns the PDF file name for a player.
func Filename(name string) string {
	return Slugify(name) + ".pdf"
}
