package loader

import (
	"strings"

	"github.com/JonMunkholm/etltoolbox/internal/table"
)

// columnLetters converts a 0-based index to spreadsheet column letters:
// 0 -> A, 25 -> Z, 26 -> AA, 701 -> ZZ, 702 -> AAA.
func columnLetters(index int) string {
	var b []byte
	for index++; index > 0; index /= 26 {
		index--
		b = append([]byte{byte('A' + index%26)}, b...)
	}
	return string(b)
}

func unnamed(index int) string {
	return "Unnamed_" + columnLetters(index)
}

// UnnamedLabels returns n synthetic labels: Unnamed_A, Unnamed_B, ...
func UnnamedLabels(n int) []table.Label {
	out := make([]table.Label, n)
	for j := range out {
		out[j] = table.NewLabel(unnamed(j))
	}
	return out
}

// NormalizeHeaders replaces blank headers with Unnamed_A, Unnamed_B, ...
// numbered by how many blanks came before. Other headers are kept as-is.
//
//	["name", "", "age", "  ", "city"] -> ["name", "Unnamed_A", "age", "Unnamed_B", "city"]
func NormalizeHeaders(header []string) []string {
	out := make([]string, len(header))
	blanks := 0
	for i, h := range header {
		if strings.TrimSpace(h) == "" {
			out[i] = unnamed(blanks)
			blanks++
			continue
		}
		out[i] = h
	}
	return out
}
