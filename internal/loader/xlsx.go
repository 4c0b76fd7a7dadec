package loader

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// readXLSX reads every row of one worksheet. Cells come back as the
// formatted strings Excel would display; trailing empty cells of a row are
// left out and later padded with nil.
func readXLSX(r io.Reader, sheet string) ([][]any, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("no sheets found in workbook")
		}
		sheet = sheets[0]
	}

	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	rows := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(rec))
		for j, v := range rec {
			row[j] = v
		}
		rows[i] = row
	}
	return rows, nil
}
