package table

import "reflect"

// MergeStrategy selects how MergeColumnsByLabel combines a row's values.
type MergeStrategy int

const (
	// MergeFirstNonNull keeps the first non-null value in column order.
	MergeFirstNonNull MergeStrategy = iota
	// MergeCollect keeps every non-null value as a []any.
	MergeCollect
)

func (s MergeStrategy) String() string {
	switch s {
	case MergeFirstNonNull:
		return "first"
	case MergeCollect:
		return "collect"
	default:
		return "unknown"
	}
}

// MergeOptions controls MergeColumnsByLabel.
type MergeOptions struct {
	Strategy MergeStrategy
	// Deduplicate drops repeated values within a collected cell.
	// Only used with MergeCollect.
	Deduplicate bool
}

// MergeColumnsByLabel folds columns that share a label into the first of
// them. Null labels count as one shared label. Groups of a single column are
// left alone, so a table without repeated labels is unchanged.
//
// With MergeCollect, a row with no non-null values in the group becomes nil.
func MergeColumnsByLabel(t Tabular, opts MergeOptions) {
	var order []Label
	groups := make(map[Label][]int)
	for j := 0; j < t.ColumnCount(); j++ {
		l := t.Label(j)
		if _, ok := groups[l]; !ok {
			order = append(order, l)
		}
		groups[l] = append(groups[l], j)
	}

	var drop []int
	for _, l := range order {
		cols := groups[l]
		if len(cols) < 2 {
			continue
		}

		merged := make([]any, t.RowCount())
		for i := range merged {
			switch opts.Strategy {
			case MergeCollect:
				merged[i] = collectRow(t, i, cols, opts.Deduplicate)
			default:
				merged[i] = firstNonNull(t, i, cols)
			}
		}
		t.SetColumn(cols[0], merged)
		drop = append(drop, cols[1:]...)
	}

	if len(drop) > 0 {
		t.DropColumns(drop...)
	}
}

func firstNonNull(t Tabular, i int, cols []int) any {
	for _, j := range cols {
		if v := t.Cell(i, j); v != nil {
			return v
		}
	}
	return nil
}

func collectRow(t Tabular, i int, cols []int, dedupe bool) any {
	var values []any
	for _, j := range cols {
		v := t.Cell(i, j)
		if v == nil {
			continue
		}
		if dedupe && containsValue(values, v) {
			continue
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil
	}
	return values
}

func containsValue(values []any, v any) bool {
	for _, existing := range values {
		if reflect.DeepEqual(existing, v) {
			return true
		}
	}
	return false
}
