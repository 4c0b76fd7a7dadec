package cleaning

// null.go decides whether a value is null-indicating.
//
// A value is null-indicating if any of these hold:
//   - it is nil (or a nil pointer/interface)
//   - it is an empty string, slice, array or map
//   - its fingerprint is one of the null tokens
//   - FalseyIsNull is set and the value is falsey (false, numeric zero) or
//     its fingerprint is one of the falsey tokens
//   - it is a slice/array whose elements are all null-indicating, or a map
//     whose keys are all null-indicating
//   - it is a string that reads as a literal ("[None, null]", "(None,)",
//     "{'', 'n/a'}") whose parsed value is null-indicating

import (
	"reflect"
	"sort"
)

// defaultNullTokens lists the fingerprints treated as null by default.
var defaultNullTokens = []string{
	"",
	"blank",
	"blocked",
	"empty",
	"invalid",
	"na",
	"nan",
	"nbsp",
	"none",
	"notavailable",
	"notset",
	"np",
	"null",
	"removed",
	"unavailable",
	"unidentified",
	"unknown",
}

// falseyTokens lists the fingerprints treated as null when FalseyIsNull is set.
var falseyTokens = []string{"false", "0"}

// NullTokens is an immutable set of null-equivalent token fingerprints.
// The zero value is an empty set; functions taking NullOptions substitute
// DefaultNullTokens when they are given the zero value.
type NullTokens struct {
	set map[string]struct{}
}

// NewNullTokens builds a token set. Each token is fingerprinted, so "N/A"
// and "na" are the same member.
func NewNullTokens(tokens ...string) NullTokens {
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[Fingerprint(tok, "")] = struct{}{}
	}
	return NullTokens{set: set}
}

// DefaultNullTokens returns a new copy of the standard null token set.
func DefaultNullTokens() NullTokens {
	return NewNullTokens(defaultNullTokens...)
}

// With returns a new set containing the receiver's members plus tokens.
func (n NullTokens) With(tokens ...string) NullTokens {
	set := make(map[string]struct{}, len(n.set)+len(tokens))
	for k := range n.set {
		set[k] = struct{}{}
	}
	for _, tok := range tokens {
		set[Fingerprint(tok, "")] = struct{}{}
	}
	return NullTokens{set: set}
}

// Has reports whether fingerprint is a member of the set.
func (n NullTokens) Has(fingerprint string) bool {
	_, ok := n.set[fingerprint]
	return ok
}

// Len returns the number of tokens in the set.
func (n NullTokens) Len() int {
	return len(n.set)
}

// IsZero reports whether n is the zero value (no set was ever built).
func (n NullTokens) IsZero() bool {
	return n.set == nil
}

// Tokens returns the members in sorted order.
func (n NullTokens) Tokens() []string {
	out := make([]string, 0, len(n.set))
	for k := range n.set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// NullOptions controls null detection.
type NullOptions struct {
	// Tokens is the null token set. The zero value means DefaultNullTokens.
	Tokens NullTokens

	// FalseyIsNull also treats falsey values (false, 0, "false", "0") as null.
	// Useful for data where zero is only ever a placeholder, like phone numbers.
	FalseyIsNull bool

	// SpecialCharacters are preserved while fingerprinting values.
	SpecialCharacters string
}

// resolved returns opts with the default token set filled in.
func (o NullOptions) resolved() NullOptions {
	if o.Tokens.IsZero() {
		o.Tokens = DefaultNullTokens()
	}
	return o
}

// Resolved returns a copy of o whose token set is never the zero value.
// Callers checking many values should resolve once up front.
func (o NullOptions) Resolved() NullOptions {
	return o.resolved()
}

// CleanNull returns nil if v is null-indicating, else v unchanged.
func CleanNull(v any, opts NullOptions) any {
	if IsNull(v, opts) {
		return nil
	}
	return v
}

// IsNull reports whether v is null-indicating.
func IsNull(v any, opts NullOptions) bool {
	return isNull(v, opts.resolved())
}

func isNull(v any, opts NullOptions) bool {
	if v == nil {
		return true
	}

	if b, ok := v.([]byte); ok {
		return isNull(string(b), opts)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return true
		}
		return isNull(rv.Elem().Interface(), opts)

	case reflect.Slice, reflect.Array:
		if rv.Len() == 0 {
			return true
		}
		for i := 0; i < rv.Len(); i++ {
			if !isNull(rv.Index(i).Interface(), opts) {
				return false
			}
		}
		return true

	case reflect.Map:
		if rv.Len() == 0 {
			return true
		}
		iter := rv.MapRange()
		for iter.Next() {
			if !isNull(iter.Key().Interface(), opts) {
				return false
			}
		}
		return true
	}

	fp := Fingerprint(v, opts.SpecialCharacters)
	if opts.Tokens.Has(fp) {
		return true
	}

	if opts.FalseyIsNull {
		if isFalsey(rv) {
			return true
		}
		for _, tok := range falseyTokens {
			if fp == tok {
				return true
			}
		}
	}

	if s, ok := v.(string); ok && looksLikeLiteral(s) {
		if parsed, ok := parseLiteral(s); ok && isNull(parsed, opts) {
			return true
		}
	}

	return false
}

// isFalsey reports whether a scalar is false or numeric zero.
func isFalsey(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return rv.IsZero()
	}
	return false
}
