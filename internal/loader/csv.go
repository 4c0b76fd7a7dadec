package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/JonMunkholm/etltoolbox/internal/table"
)

func readCSV(ctx context.Context, r io.Reader, delim rune) ([][]any, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows [][]any
	for {
		if len(rows)%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}

		row := make([]any, len(record))
		for j, v := range record {
			row[j] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteCSV writes t with its labels as the first row. Null labels and nil
// cells are written as empty fields. Cells holding lists or maps, such as
// those produced by table.MergeCollect, are written as JSON.
func WriteCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)

	record := make([]string, t.ColumnCount())
	for j := range record {
		if l := t.Label(j); l.Valid {
			record[j] = l.Name
		}
	}
	if err := cw.Write(record); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i := 0; i < t.RowCount(); i++ {
		for j := range record {
			record[j] = table.CellText(t.Cell(i, j))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
