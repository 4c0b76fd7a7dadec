// Package cleaning provides basic transformations for cleaning individual
// units of tabular data.
//
// Everything here is a pure function over a single value: whitespace
// condensing, null-token detection and label fingerprinting. Table-wide
// operations built on top of these live in package table.
//
// # Fingerprints
//
// A fingerprint is a lowercase, alphanumeric representation of a value used
// for robust comparison of messy labels:
//
//	cleaning.Fingerprint("(Aa_Bb_Cc)", "")  // "aabbcc"
//	cleaning.Fingerprint("Phone#", "#")     // "phone#"
//
// Special characters that carry meaning for a data set (for example "#" or
// "$" used as column labels) are preserved by listing them in the special
// argument.
//
// # Null tokens
//
// [CleanNull] returns nil for values that conventionally mean "no data".
// Tokens are compared by fingerprint, so "N/A", " null " and "-" are all
// recognised without listing every spelling. The token set is passed
// explicitly through [NullOptions]; [DefaultNullTokens] returns a fresh copy
// of the standard set on every call.
package cleaning
