// Package loader reads delimited text, Excel workbooks and JSON documents
// into table.Table values and writes cleaned tables back out as CSV.
//
// Input may be gzip or xz compressed; compression is detected from the
// leading magic bytes, not the file name. Text formats are decoded from the
// configured charset to UTF-8 before parsing.
//
// Loaded tables do not trust the source's first row: unless HeaderRow is
// set, every row is data and the columns get synthetic labels (Unnamed_A,
// Unnamed_B, ...). Use table.FindColumnLabels to locate the real labels.
package loader

import (
	"path/filepath"
	"strings"
)

// Format identifies an input file format.
type Format int

const (
	FormatAuto Format = iota
	FormatCSV
	FormatXLSX
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatXLSX:
		return "xlsx"
	case FormatJSON:
		return "json"
	default:
		return "auto"
	}
}

// ParseFormat parses a format name such as "csv" or "xlsx". Unknown names
// and "" return FormatAuto.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv", "tsv", "txt":
		return FormatCSV
	case "xlsx", "xlsm", "excel":
		return FormatXLSX
	case "json":
		return FormatJSON
	default:
		return FormatAuto
	}
}

// Options controls how input is read.
type Options struct {
	// Format of the input. FormatAuto detects it from Name's extension and
	// falls back to sniffing the content.
	Format Format

	// Name is the source file name, used for format detection and errors.
	Name string

	// Delimiter for CSV input. Zero means ',' (or '\t' for .tsv names).
	Delimiter rune

	// Sheet selects the XLSX worksheet. Empty means the first sheet.
	Sheet string

	// Charset of text input: "utf-8" (default), "latin1", "windows-1252",
	// "utf-16", "utf-16le" or "utf-16be".
	Charset string

	// HeaderRow takes the first row as the labels instead of data.
	HeaderRow bool

	// NormalizeUnicode applies NFC normalization to decoded text input, so
	// composed and decomposed forms of the same label compare equal.
	NormalizeUnicode bool
}

var compressedExts = map[string]bool{".gz": true, ".gzip": true, ".xz": true}

// formatFromName detects the format from a file name, ignoring a trailing
// compression extension.
func formatFromName(name string) Format {
	ext := strings.ToLower(filepath.Ext(name))
	if compressedExts[ext] {
		ext = strings.ToLower(filepath.Ext(strings.TrimSuffix(name, filepath.Ext(name))))
	}
	return ParseFormat(strings.TrimPrefix(ext, "."))
}

func (o Options) delimiter() rune {
	if o.Delimiter != 0 {
		return o.Delimiter
	}
	name := strings.ToLower(o.Name)
	for ext := range compressedExts {
		name = strings.TrimSuffix(name, ext)
	}
	if strings.HasSuffix(name, ".tsv") {
		return '\t'
	}
	return ','
}
