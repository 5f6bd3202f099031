package chunk

import (
	"strings"
	"unicode"
)

// Clean normalizes raw document text before chunking: control characters are
// dropped and runs of whitespace (including newlines) collapse to a single
// space. Scraped web pages and PDF extractions arrive with erratic spacing;
// normalizing here keeps chunk boundaries stable across re-collection.
func Clean(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			inSpace = true
		case unicode.IsControl(r):
			// drop
		default:
			if inSpace && b.Len() > 0 {
				b.WriteRune(' ')
			}
			inSpace = false
			b.WriteRune(r)
		}
	}

	return b.String()
}
