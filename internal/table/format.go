package table

import (
	"github.com/ohler55/ojg/oj"

	"github.com/JonMunkholm/etltoolbox/internal/cleaning"
)

// CellText renders a cell for text output. nil becomes "". Lists and maps,
// such as cells produced by MergeCollect, are rendered as compact JSON with
// sorted keys; other values are rendered with cleaning.ToString.
func CellText(v any) string {
	switch v.(type) {
	case nil:
		return ""
	case []any, map[string]any:
		opts := oj.DefaultOptions
		opts.Sort = true
		return oj.JSON(v, &opts)
	default:
		return cleaning.ToString(v)
	}
}
