package loader

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/ohler55/ojg/oj"

	"github.com/JonMunkholm/etltoolbox/internal/table"
)

// readJSON loads a JSON array of arrays (rows) or an array of objects
// (records). Records are keyed by label: the labels are the union of all
// object keys, sorted, and missing keys are nil. A single top-level object
// is read as one record.
func readJSON(ctx context.Context, r io.Reader, opts Options) (*table.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s: read json: %w", opts.displayName(), err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	doc, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: parse json: %w", opts.displayName(), err)
	}

	var items []any
	switch v := doc.(type) {
	case []any:
		items = v
	case map[string]any:
		items = []any{v}
	default:
		return nil, fmt.Errorf("%s: json must be an array or object, got %T", opts.displayName(), doc)
	}
	if len(items) == 0 {
		return nil, ErrEmptyInput
	}

	if _, ok := items[0].(map[string]any); ok {
		return recordsTable(ctx, items, opts)
	}

	rows := make([][]any, len(items))
	for i, item := range items {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, ok := item.([]any)
		if !ok {
			return nil, fmt.Errorf("%s: row %d is %T, want array", opts.displayName(), i+1, item)
		}
		rows[i] = row
	}
	return buildTable(rows, opts.HeaderRow)
}

func recordsTable(ctx context.Context, items []any, opts Options) (*table.Table, error) {
	seen := make(map[string]bool)
	var keys []string
	for i, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: record %d is %T, want object", opts.displayName(), i+1, item)
		}
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)

	t := table.New(table.Labels(keys...)...)
	row := make([]any, len(keys))
	for i, item := range items {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec := item.(map[string]any)
		for j, k := range keys {
			row[j] = rec[k]
		}
		t.AppendRow(row...)
	}
	return t, nil
}
