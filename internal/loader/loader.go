package loader

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/JonMunkholm/etltoolbox/internal/cleaning"
	"github.com/JonMunkholm/etltoolbox/internal/table"
)

// ErrEmptyInput is returned when the input has no rows at all.
var ErrEmptyInput = errors.New("input is empty")

// checkEvery is how many rows are parsed between context checks.
const checkEvery = 1000

// ReadFile opens path and reads it with Read. opts.Name defaults to path.
func ReadFile(ctx context.Context, path string, opts Options) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if opts.Name == "" {
		opts.Name = path
	}
	return Read(ctx, f, opts)
}

// Read decompresses, decodes and parses r into a table.
func Read(ctx context.Context, r io.Reader, opts Options) (*table.Table, error) {
	plain, _, err := decompress(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opts.displayName(), err)
	}

	br := bufio.NewReader(plain)
	format := opts.Format
	if format == FormatAuto {
		format = formatFromName(opts.Name)
	}
	if format == FormatAuto {
		format = sniffFormat(br)
	}

	var rows [][]any
	switch format {
	case FormatXLSX:
		rows, err = readXLSX(br, opts.Sheet)
	case FormatJSON:
		var text io.Reader
		if text, err = decodeText(br, opts.Charset, opts.NormalizeUnicode); err == nil {
			return readJSON(ctx, text, opts)
		}
	default:
		var text io.Reader
		if text, err = decodeText(br, opts.Charset, opts.NormalizeUnicode); err == nil {
			rows, err = readCSV(ctx, text, opts.delimiter())
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opts.displayName(), err)
	}

	return buildTable(rows, opts.HeaderRow)
}

// buildTable turns parsed rows into a table, taking labels from the first
// row or synthesizing them.
func buildTable(rows [][]any, headerRow bool) (*table.Table, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyInput
	}

	if !headerRow {
		width := 0
		for _, r := range rows {
			width = max(width, len(r))
		}
		return table.FromRows(UnnamedLabels(width), rows), nil
	}

	header := make([]string, len(rows[0]))
	for j, v := range rows[0] {
		header[j] = cleaning.ToString(v)
	}
	t := table.FromRows(table.Labels(NormalizeHeaders(header)...), rows[1:])
	// Columns wider than the header row get synthetic labels too.
	for j := len(header); j < t.ColumnCount(); j++ {
		t.SetLabel(j, table.NewLabel(unnamed(j)))
	}
	return t, nil
}

// sniffFormat guesses the format of undetectable input from its first bytes.
func sniffFormat(br *bufio.Reader) Format {
	head, _ := br.Peek(512)
	if bytes.HasPrefix(head, []byte("PK\x03\x04")) {
		return FormatXLSX
	}
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(head, utf8BOM), " \t\r\n")
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		return FormatJSON
	}
	return FormatCSV
}

func (o Options) displayName() string {
	if o.Name == "" {
		return "input"
	}
	return o.Name
}
