package domain

import "strings"

// NormalizeISBN strips every rune that is not an ASCII digit or the
// letter X (either case) so that hyphens and spaces never create
// distinct keys. No length or checksum validation: a malformed ISBN
// simply matches no book.
func NormalizeISBN(isbn string) string {
	var b strings.Builder
	b.Grow(len(isbn))
	for _, r := range isbn {
		if (r >= '0' && r <= '9') || r == 'X' || r == 'x' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
