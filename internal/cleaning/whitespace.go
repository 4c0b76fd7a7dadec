package cleaning

import "strings"

// CleanWhitespace trims s and condenses every run of whitespace into a single
// ASCII space.
//
// Whitespace is anything with the Unicode White_Space property, including
// tabs, newlines, NBSP (U+00A0) and the ideographic space (U+3000).
// Formatting characters without that property, such as U+200B or U+FEFF,
// are left in place.
func CleanWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CleanWhitespaceValue applies CleanWhitespace to string values and returns
// every other value unchanged.
func CleanWhitespaceValue(v any) any {
	if s, ok := v.(string); ok {
		return CleanWhitespace(s)
	}
	return v
}
