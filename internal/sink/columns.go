package sink

import (
	"strconv"
	"strings"

	"github.com/JonMunkholm/etltoolbox/internal/mapping"
	"github.com/JonMunkholm/etltoolbox/internal/table"
)

// maxIdentLen is PostgreSQL's NAMEDATALEN - 1.
const maxIdentLen = 63

// ColumnNames returns a database column name for each of t's labels.
// Names are unique among themselves and never equal one of reserved:
// repeated names get _1, _2, ... suffixes, and every name fits in
// PostgreSQL's identifier length with its suffix.
func ColumnNames(t table.Tabular, reserved ...string) []string {
	names := make([]string, t.ColumnCount())
	for j := range names {
		names[j] = columnName(t.Label(j), j)
	}
	names = mapping.RenameDuplicateLabels(names, suffixWithin(maxIdentLen))

	used := make(map[string]bool, len(names)+len(reserved))
	for _, r := range reserved {
		used[r] = true
	}
	for j, name := range names {
		short := truncateIdent(name, maxIdentLen)
		if used[short] {
			next := suffixWithin(maxIdentLen)(name)
			for used[short] {
				short = next()
			}
		}
		used[short] = true
		names[j] = short
	}
	return names
}

// ToColumnName converts a label to a snake_case column name.
// "Transaction ID" -> "transaction_id", "$ Amount (USD)" -> "amount_usd".
// Null labels and labels with no letters or digits become column_<j+1>.
func ToColumnName(l table.Label, j int) string {
	return truncateIdent(columnName(l, j), maxIdentLen)
}

func columnName(l table.Label, j int) string {
	fallback := "column_" + strconv.Itoa(j+1)
	if !l.Valid {
		return fallback
	}

	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(l.Name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if underscore && b.Len() > 0 {
				b.WriteByte('_')
			}
			underscore = false
			b.WriteRune(r)
			continue
		}
		underscore = true
	}

	name := b.String()
	if name == "" {
		return fallback
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "c_" + name
	}
	return name
}

// suffixWithin is a mapping.RenameFunc whose names stay within n bytes,
// shortening the label to make room for the suffix.
func suffixWithin(n int) mapping.RenameFunc {
	return func(label string) func() string {
		i := 0
		return func() string {
			i++
			suffix := "_" + strconv.Itoa(i)
			return truncateIdent(label, n-len(suffix)) + suffix
		}
	}
}

// truncateIdent cuts name to n bytes. Column names are ASCII.
func truncateIdent(name string, n int) string {
	if len(name) > n {
		return name[:n]
	}
	return name
}
