package loader

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"
)

// Compression is the compression format of an input stream.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionXZ
)

func (c Compression) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionXZ:
		return "xz"
	default:
		return "none"
	}
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	xzMagic   = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}
)

// detectCompression peeks at br without consuming input.
func detectCompression(br *bufio.Reader) Compression {
	header, _ := br.Peek(len(xzMagic))
	switch {
	case bytes.HasPrefix(header, gzipMagic):
		return CompressionGzip
	case bytes.HasPrefix(header, xzMagic):
		return CompressionXZ
	default:
		return CompressionNone
	}
}

// decompress returns a reader over the decompressed content of r.
func decompress(r io.Reader) (io.Reader, Compression, error) {
	br := bufio.NewReader(r)

	switch c := detectCompression(br); c {
	case CompressionGzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, c, fmt.Errorf("create gzip reader: %w", err)
		}
		return gz, c, nil
	case CompressionXZ:
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, c, fmt.Errorf("create xz reader: %w", err)
		}
		return xr, c, nil
	default:
		return br, c, nil
	}
}
