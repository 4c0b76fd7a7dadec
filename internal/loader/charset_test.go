package loader

import (
	"bytes"
	"io"
	"testing"
	"testing/iotest"
)

func TestSkipBOM(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "file with BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello,world")...),
			expected: "hello,world",
		},
		{
			name:     "file without BOM",
			input:    []byte("hello,world"),
			expected: "hello,world",
		},
		{
			name:     "empty file",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
		{
			name:     "partial BOM at start",
			input:    []byte{0xEF, 0xBB, 'a', 'b', 'c'},
			expected: string([]byte{0xEF, 0xBB, 'a', 'b', 'c'}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := io.ReadAll(skipBOM(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestUTF8Sanitizer(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "valid ASCII",
			input:    []byte("hello,world"),
			expected: "hello,world",
		},
		{
			name:     "valid UTF-8 with multibyte",
			input:    []byte("caf\u00e9,\u65e5\u4ed8"),
			expected: "caf\u00e9,\u65e5\u4ed8",
		},
		{
			name:     "invalid single byte replaced",
			input:    []byte{'h', 'e', 0x80, 'l', 'o'},
			expected: "he?lo",
		},
		{
			name:     "truncated sequence at EOF",
			input:    []byte{'a', 0xE6, 0x97},
			expected: "a??",
		},
		{
			name:     "empty input",
			input:    []byte{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := io.ReadAll(newUTF8Sanitizer(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestUTF8Sanitizer_SplitAcrossReads(t *testing.T) {
	// OneByteReader hands out a single byte per Read, so every multi-byte
	// rune is split across calls.
	input := "\u65e5\u4ed8,caf\u00e9"
	result, err := io.ReadAll(newUTF8Sanitizer(iotest.OneByteReader(bytes.NewReader([]byte(input)))))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result) != input {
		t.Errorf("got %q, want %q", string(result), input)
	}
}

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name     string
		charset  string
		input    []byte
		expected string
	}{
		{"utf-8 default with BOM and bad byte", "", append([]byte{0xEF, 0xBB, 0xBF}, 'h', 'e', 0x80, 'l', 'o'), "he?lo"},
		{"latin1", "latin1", []byte{'c', 'a', 'f', 0xE9}, "caf\u00e9"},
		{"ISO-8859-1 alias", "ISO-8859-1", []byte{0xE9}, "\u00e9"},
		{"windows-1252 euro", "windows-1252", []byte{0x80, '5'}, "\u20ac5"},
		{"utf-16 with LE BOM", "utf-16", []byte{0xFF, 0xFE, 'a', 0, ',', 0, 'b', 0}, "a,b"},
		{"utf-16be", "UTF-16BE", []byte{0, 'o', 0, 'k'}, "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := decodeText(bytes.NewReader(tt.input), tt.charset, false)
			if err != nil {
				t.Fatalf("decodeText: %v", err)
			}
			result, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestDecodeText_Normalize(t *testing.T) {
	r, err := decodeText(bytes.NewReader([]byte("cafe\u0301")), "utf-8", true)
	if err != nil {
		t.Fatalf("decodeText: %v", err)
	}
	result, _ := io.ReadAll(r)
	if string(result) != "caf\u00e9" {
		t.Errorf("got %q, want composed form", string(result))
	}
}

func TestDecodeText_Unsupported(t *testing.T) {
	if _, err := decodeText(bytes.NewReader(nil), "ebcdic", false); err == nil {
		t.Fatal("expected error for unknown charset")
	}
}
