package cleaning

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint(t *testing.T) {
	tests := []struct {
		input any
		want  string
	}{
		{"(Aa_Bb_Cc)", "aabbcc"},
		{" sdfD 432   ^%", "sdfd432"},
		{"###$@!%^&*()-=", ""},
		{"F\nP\n\t\tZ    ", "fpz"},
		{"a\u00e3aa\u00e5a\ufffd", "aaaa"},
		{"Cust.", "cust"},
		{12045, "12045"},
		{-3.5, "35"},
		{true, "true"},
		{nil, ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Fingerprint(tt.input, ""), "Fingerprint(%#v)", tt.input)
	}
}

func TestFingerprint_SpecialCharacters(t *testing.T) {
	tests := []struct {
		input   string
		special string
		want    string
	}{
		{"Phone#", "#", "phone#"},
		{"$AMOUNT  ", "$", "$amount"},
		{`\backslashes\`, `\`, `\backslashes\`},
		{"%(MULTIPLE$@()_", "%_@(", "%(multiple@(_"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Fingerprint(tt.input, tt.special), "Fingerprint(%q, %q)", tt.input, tt.special)
	}
}

func TestFingerprint_Idempotent(t *testing.T) {
	inputs := []string{"Cust.", "EML-addr", "  Phone # ", "日付 Date", "$amount", ""}
	for _, in := range inputs {
		once := Fingerprint(in, "#$")
		assert.Equal(t, once, Fingerprint(once, "#$"), "input %q", in)
	}

	assert.Equal(t, Fingerprint("Cust.", ""), Fingerprint("cust", ""))
	assert.Equal(t, Fingerprint("CUST", ""), Fingerprint(" c-u-s-t ", ""))
}

func TestCleanWhitespace(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"mixed runs", " 123   abc 456\n            def\t\t 789\t", "123 abc 456 def 789"},
		{"padding", "   spaces   ", "spaces"},
		{"only control whitespace", "\t\n\r\f\v", ""},
		{"unicode spaces", "\u2008 and \u3000", "and"},
		{"every white_space rune", "\u0009 \u000A \u000B\n\u000C \u000D a \u0020\n" +
			"\u0085 \u00A0 \u1680\n\u2000 \u2001 \u2002 b\n" +
			"\u2003 \u2004 \u2005\n\u2006 \u2007 \u2008\n" +
			"\u2009 \u200A \u2028 c\n\u2029 \u202F \u205F\n\u3000", "a b c"},
		{"empty", "", ""},
		{"zero width space kept", "a\u200bb", "a\u200bb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanWhitespace(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, CleanWhitespace(got), "not idempotent")
		})
	}
}

func TestCleanWhitespaceValue_NonStringPassthrough(t *testing.T) {
	assert.Equal(t, 42, CleanWhitespaceValue(42))
	assert.Nil(t, CleanWhitespaceValue(nil))
	assert.Equal(t, "a b", CleanWhitespaceValue(" a\tb "))
}

func TestCleanNull(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  any
	}{
		{"nil", nil, nil},
		{"empty string", "", nil},
		{"None", "None", nil},
		{"plain value", "A", "A"},
		{"punctuation only", "(>", nil},
		{"zero kept", 0, 0},
		{"False kept", "False", "False"},
		{"empty slice", []any{}, nil},
		{"slice of nil", []any{nil}, nil},
		{"literal list of nulls", "[None,None]", nil},
		{"set of tokens", map[string]bool{"empty": true}, nil},
		{"slice with a value", []any{nil, "value"}, []any{nil, "value"}},
		{"literal set with a value", `{"real_python_literal"}`, `{"real_python_literal"}`},
		{"broken literal", `{"half_written_literal"`, `{"half_written_literal"`},
		{"literal with a nested value", `[None,{"5"}]`, `[None,{"5"}]`},
		{"nested set and tuple of nulls", `[None,{"Null",("","")}]`, nil},
		{"tuple of nulls", "(None, None)", nil},
		{"one-element tuple", "(None,)", nil},
		{"single quotes", "['n/a', 'unknown']", nil},
		{"dict with null keys", "{'empty': 1, 'n/a': 2}", nil},
		{"dict with a value key", "{'id': None}", "{'id': None}"},
		{"escaped quote", `['it\'s']`, `['it\'s']`},
		{"literal with a value", `[None, "5"]`, `[None, "5"]`},
		{"string slice of tokens", []string{"empty", "n/a"}, nil},
		{"NaN", math.NaN(), nil},
		{"nil pointer", (*string)(nil), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanNull(tt.input, NullOptions{}))
		})
	}
}

func TestCleanNull_FalseyIsNull(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  any
	}{
		{"nil", nil, nil},
		{"empty string", "", nil},
		{"int zero", 0, nil},
		{"string zero", "0", nil},
		{"plain value", "A", "A"},
		{"False", "False", nil},
		{"bool false", false, nil},
		{"slice of false", []any{false}, nil},
		{"literal with zero", "[None,0]", nil},
		{"slice with a value", []any{nil, "value"}, []any{nil, "value"}},
		{"literal set of float zero", "{0.0}", nil},
		{"literal tuple of False", "(False, 0)", nil},
		{"literal set with a value", "{0.0, 1}", "{0.0, 1}"},
		{"non zero", 7, 7},
	}

	opts := NullOptions{FalseyIsNull: true}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanNull(tt.input, opts))
		})
	}
}

func TestCleanNull_LiteralNeedsFalseyIsNull(t *testing.T) {
	assert.Equal(t, "{0.0}", CleanNull("{0.0}", NullOptions{}))
	assert.Equal(t, "[None,0]", CleanNull("[None,0]", NullOptions{}))
}

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		input string
		want  any
		ok    bool
	}{
		{"(None, 'a')", []any{nil, "a"}, true},
		{"{'x', \"y\"}", []any{"x", "y"}, true},
		{"{'k': True}", map[string]any{"k": true}, true},
		{"[('', ''), {'a'}]", []any{[]any{"", ""}, []any{"a"}}, true},
		{"'n/a'", "n/a", true},
		{"[1, 2", nil, false},
		{"(1]", nil, false},
		{"'open", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseLiteral(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestCleanNull_EveryDefaultTokenAnyCasing(t *testing.T) {
	for _, tok := range DefaultNullTokens().Tokens() {
		for _, variant := range []string{tok, " " + tok + " ", upper(tok), "  " + upper(tok) + "\t"} {
			assert.Nil(t, CleanNull(variant, NullOptions{}), "variant %q", variant)
		}
	}

	assert.Nil(t, CleanNull(" NULL ", NullOptions{}))
	assert.Nil(t, CleanNull("N/A", NullOptions{}))
	assert.Nil(t, CleanNull("-", NullOptions{}))
}

func TestCleanNull_CustomTokens(t *testing.T) {
	opts := NullOptions{Tokens: NewNullTokens("tbd", "?")}

	assert.Nil(t, CleanNull("TBD", opts))
	assert.Nil(t, CleanNull("?", opts))
	// Custom sets replace the defaults.
	assert.Equal(t, "none", CleanNull("none", opts))

	extended := DefaultNullTokens().With("tbd")
	assert.Nil(t, CleanNull("none", NullOptions{Tokens: extended}))
	assert.Nil(t, CleanNull("T.B.D.", NullOptions{Tokens: extended}))
}

func TestCleanNull_SpecialCharacters(t *testing.T) {
	// "-" fingerprints to "" normally, which is a null token.
	assert.Nil(t, CleanNull("-", NullOptions{}))
	// Preserving "-" keeps it meaningful.
	assert.Equal(t, "-", CleanNull("-", NullOptions{SpecialCharacters: "-"}))
}

func TestNullTokens_WithDoesNotMutate(t *testing.T) {
	base := NewNullTokens("a")
	extended := base.With("b")

	assert.Equal(t, 1, base.Len())
	assert.Equal(t, 2, extended.Len())
	assert.False(t, base.Has("b"))
	assert.True(t, extended.Has("b"))
}

func TestNullOptions_Resolved(t *testing.T) {
	var opts NullOptions
	assert.True(t, opts.Tokens.IsZero())
	assert.False(t, opts.Resolved().Tokens.IsZero())
	assert.Equal(t, DefaultNullTokens().Len(), opts.Resolved().Tokens.Len())
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}
