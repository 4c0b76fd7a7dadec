package table

import "github.com/JonMunkholm/etltoolbox/internal/cleaning"

// CleanNullOptions controls CleanNull.
type CleanNullOptions struct {
	cleaning.NullOptions

	// EmptyRowThresh is the number of non-null cells a row needs to be kept.
	// 0 keeps every row.
	EmptyRowThresh int
	// EmptyColumnThresh is the number of non-null cells a column needs to be
	// kept, counted after rows are dropped. 0 keeps every column.
	EmptyColumnThresh int
}

// DefaultCleanNullOptions drops rows and columns that are entirely null.
func DefaultCleanNullOptions() CleanNullOptions {
	return CleanNullOptions{EmptyRowThresh: 1, EmptyColumnThresh: 1}
}

// CleanNull replaces every null-indicating cell of t with nil (see
// cleaning.CleanNull), then drops sparse rows and columns.
//
// Rows are dropped before columns. When EmptyColumnThresh is above 1 the
// column pass can empty a row again, so entirely-null rows are dropped once
// more unless EmptyRowThresh is 0.
func CleanNull(t Tabular, opts CleanNullOptions) {
	if t.RowCount() == 0 || t.ColumnCount() == 0 {
		return
	}

	nullOpts := opts.NullOptions.Resolved()
	for j := 0; j < t.ColumnCount(); j++ {
		for i := 0; i < t.RowCount(); i++ {
			t.SetCell(i, j, cleaning.CleanNull(t.Cell(i, j), nullOpts))
		}
	}

	if opts.EmptyRowThresh > 0 {
		DropEmptyRows(t, opts.EmptyRowThresh)
	}
	if opts.EmptyColumnThresh > 0 {
		DropEmptyColumns(t, opts.EmptyColumnThresh)
	}
	if opts.EmptyColumnThresh > 1 && opts.EmptyRowThresh != 0 {
		DropEmptyRows(t, 1)
	}
}

// DropEmptyRows removes rows with fewer than thresh non-nil cells and
// returns how many were removed.
func DropEmptyRows(t Tabular, thresh int) int {
	var drop []int
	for i := 0; i < t.RowCount(); i++ {
		n := 0
		for j := 0; j < t.ColumnCount(); j++ {
			if t.Cell(i, j) != nil {
				n++
			}
		}
		if n < thresh {
			drop = append(drop, i)
		}
	}
	t.DropRows(drop...)
	return len(drop)
}

// DropEmptyColumns removes columns with fewer than thresh non-nil cells and
// returns how many were removed.
func DropEmptyColumns(t Tabular, thresh int) int {
	var drop []int
	for j := 0; j < t.ColumnCount(); j++ {
		n := 0
		for i := 0; i < t.RowCount(); i++ {
			if t.Cell(i, j) != nil {
				n++
			}
		}
		if n < thresh {
			drop = append(drop, j)
		}
	}
	t.DropColumns(drop...)
	return len(drop)
}

// CleanWhitespace condenses whitespace in every string cell of t.
// Labels are not touched.
func CleanWhitespace(t Tabular) {
	for j := 0; j < t.ColumnCount(); j++ {
		for i := 0; i < t.RowCount(); i++ {
			if s, ok := t.Cell(i, j).(string); ok {
				t.SetCell(i, j, cleaning.CleanWhitespace(s))
			}
		}
	}
}
