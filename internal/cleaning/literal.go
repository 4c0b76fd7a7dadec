package cleaning

import (
	"strings"
	"unicode"

	"github.com/ohler55/ojg/oj"
	"github.com/ohler55/ojg/sen"
)

// looksLikeLiteral limits literal parsing to strings that can hold a
// container or a quoted string.
func looksLikeLiteral(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return false
	}
	switch s[0] {
	case '[', '{', '(', '\'', '"':
		return true
	}
	return false
}

// parseLiteral reads s as a Python-style literal:
//
//	[None, {"Null", ("", "")}]  ->  []any{nil, []any{"Null", []any{"", ""}}}
//
// Tuples and sets become lists, dicts become maps, None/True/False become
// nil/true/false and single-quoted strings are accepted. ok is false when s
// does not parse.
func parseLiteral(s string) (v any, ok bool) {
	text, ok := rewriteLiteral(strings.TrimSpace(s))
	if !ok {
		return nil, false
	}
	v, err := sen.Parse([]byte(text))
	if err != nil {
		return nil, false
	}
	return v, true
}

// rewriteLiteral converts Python literal syntax into SEN. Brackets must
// balance and strings must be closed.
func rewriteLiteral(s string) (string, bool) {
	src := []rune(s)

	// A brace pair is a dict when a colon appears directly inside it,
	// otherwise a set.
	dicts := make(map[int]bool)
	var open []int
	for i := 0; i < len(src); i++ {
		switch c := src[i]; c {
		case '\'', '"':
			end, ok := stringEnd(src, i)
			if !ok {
				return "", false
			}
			i = end
		case '[', '{', '(':
			open = append(open, i)
		case ']', '}', ')':
			if len(open) == 0 || src[open[len(open)-1]] != opening(c) {
				return "", false
			}
			open = open[:len(open)-1]
		case ':':
			if n := len(open); n > 0 && src[open[n-1]] == '{' {
				dicts[open[n-1]] = true
			}
		}
	}
	if len(open) > 0 {
		return "", false
	}

	var (
		b       strings.Builder
		closers []rune
	)
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '\'' || c == '"':
			end, _ := stringEnd(src, i)
			b.WriteString(oj.JSON(unescape(src[i+1:end])))
			i = end
		case c == '(' || (c == '{' && !dicts[i]):
			b.WriteByte('[')
			closers = append(closers, ']')
		case c == '[':
			b.WriteByte('[')
			closers = append(closers, ']')
		case c == '{':
			b.WriteByte('{')
			closers = append(closers, '}')
		case c == ']' || c == '}' || c == ')':
			b.WriteRune(closers[len(closers)-1])
			closers = closers[:len(closers)-1]
		case unicode.IsLetter(c) || c == '_':
			j := i
			for j < len(src) && (unicode.IsLetter(src[j]) || unicode.IsDigit(src[j]) || src[j] == '_') {
				j++
			}
			b.WriteString(literalWord(string(src[i:j])))
			i = j - 1
		default:
			b.WriteRune(c)
		}
	}
	return b.String(), true
}

func opening(c rune) rune {
	switch c {
	case ']':
		return '['
	case '}':
		return '{'
	}
	return '('
}

func literalWord(w string) string {
	switch w {
	case "None":
		return "null"
	case "True":
		return "true"
	case "False":
		return "false"
	}
	return w
}

// stringEnd returns the index of the quote closing the string that starts
// at src[start].
func stringEnd(src []rune, start int) (int, bool) {
	quote := src[start]
	for i := start + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case quote:
			return i, true
		}
	}
	return 0, false
}

func unescape(body []rune) string {
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 == len(body) {
			b.WriteRune(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\', '\'', '"':
			b.WriteRune(body[i])
		default:
			b.WriteByte('\\')
			b.WriteRune(body[i])
		}
	}
	return b.String()
}
