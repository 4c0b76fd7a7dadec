package cleaning

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// Fingerprint returns a lowercase, alphanumeric representation of v.
//
// v is converted to a string first, so numbers and other scalars can be
// fingerprinted directly. Every rune that is not in [0-9a-z] is removed,
// unless it appears in special. Non-ASCII letters are removed as well.
//
// Fingerprint is idempotent for a fixed special set:
// Fingerprint(Fingerprint(x, s), s) == Fingerprint(x, s).
func Fingerprint(v any, special string) string {
	s := strings.ToLower(ToString(v))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isFingerprintRune(r) || (special != "" && strings.ContainsRune(special, r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isFingerprintRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

// ToString renders a cell value as text. nil becomes "".
// Types cast does not know are formatted with fmt.
func ToString(v any) string {
	if v == nil {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return s
}
