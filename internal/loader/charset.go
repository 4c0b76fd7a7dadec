package loader

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrUnsupportedCharset is returned for charset names the loader does not know.
var ErrUnsupportedCharset = errors.New("unsupported charset")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText wraps r so it yields UTF-8 text.
//
// UTF-8 input has its BOM removed and invalid bytes replaced with '?', so a
// single bad byte in a large export does not fail the whole load.
func decodeText(r io.Reader, charset string, normalize bool) (io.Reader, error) {
	var out io.Reader

	name := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(charset))
	switch name {
	case "", "utf8":
		out = newUTF8Sanitizer(skipBOM(r))
	default:
		enc, err := lookupEncoding(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", err, charset)
		}
		out = transform.NewReader(r, enc.NewDecoder())
	}

	if normalize {
		out = transform.NewReader(out, norm.NFC)
	}
	return out, nil
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	switch name {
	case "latin1", "iso88591":
		return charmap.ISO8859_1, nil
	case "windows1252", "cp1252":
		return charmap.Windows1252, nil
	case "utf16":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), nil
	case "utf16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), nil
	case "utf16be":
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), nil
	default:
		return nil, ErrUnsupportedCharset
	}
}

// skipBOM drops a leading UTF-8 byte order mark. Windows tools add one to
// most CSV exports and it would otherwise end up in the first cell.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, _ := br.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// utf8Sanitizer replaces bytes that are not valid UTF-8 with '?' while
// streaming, using constant memory. A multi-byte sequence split across two
// reads is carried over to the next Read.
type utf8Sanitizer struct {
	r       io.Reader
	pending []byte
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{r: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	off := copy(p, s.pending)
	s.pending = append(s.pending[:0], s.pending[off:]...)

	n, err := s.r.Read(p[off:])
	n += off
	if n == 0 {
		return 0, err
	}
	atEOF := err == io.EOF

	w := 0
	for i := 0; i < n; {
		if p[i] < utf8.RuneSelf {
			p[w] = p[i]
			w++
			i++
			continue
		}

		r, size := utf8.DecodeRune(p[i:n])
		if r == utf8.RuneError && size == 1 {
			if !atEOF && !utf8.FullRune(p[i:n]) {
				s.pending = append(s.pending, p[i:n]...)
				break
			}
			p[w] = '?'
			w++
			i++
			continue
		}

		copy(p[w:], p[i:i+size])
		w += size
		i += size
	}

	return w, err
}
