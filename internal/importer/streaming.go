package importer

// streaming.go normalizes raw invoice bytes before they reach a parser.
//
// Supplier exports arrive from Windows tools, so they carry byte-order marks,
// occasionally UTF-16, and stray Latin-1 bytes in descriptions. The readers here
// fix that on the fly without loading the file:
//
//   - NewDecodingReader: strips a UTF-8 BOM and transcodes UTF-16 LE/BE to UTF-8
//   - UTF8Sanitizer: replaces invalid UTF-8 bytes with '?'
//   - CountingReader: tracks bytes read and enforces a size limit
//
// Use WrapForParsing to apply all three in the right order.

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrFileTooLarge is returned by CountingReader once its limit is exceeded.
var ErrFileTooLarge = errors.New("file too large")

// NewDecodingReader returns a reader that removes a leading BOM and, when that
// BOM announces UTF-16, decodes the stream to UTF-8. Input without a BOM passes
// through unchanged.
func NewDecodingReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(transform.Nop))
}

// UTF8Sanitizer replaces invalid UTF-8 bytes with '?' as they are read.
// Multi-byte runes split across reads are carried to the next call.
type UTF8Sanitizer struct {
	reader  io.Reader
	pending []byte
}

// NewUTF8Sanitizer wraps r.
func NewUTF8Sanitizer(r io.Reader) *UTF8Sanitizer {
	return &UTF8Sanitizer{reader: r, pending: make([]byte, 0, utf8.UTFMax)}
}

// Read implements io.Reader.
func (s *UTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	offset := copy(p, s.pending)
	if offset < len(s.pending) {
		s.pending = append(s.pending[:0], s.pending[offset:]...)
		return offset, nil
	}
	s.pending = s.pending[:0]

	n, err := s.reader.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	if isASCII(p[:n]) {
		return n, err
	}
	return s.sanitize(p[:n], err == io.EOF), err
}

// sanitize rewrites data in place and returns the number of bytes to emit.
// Unless atEOF, a truncated rune at the end is held back in pending.
func (s *UTF8Sanitizer) sanitize(data []byte, atEOF bool) int {
	write := 0
	for read := 0; read < len(data); {
		if !atEOF && !utf8.FullRune(data[read:]) {
			s.pending = append(s.pending, data[read:]...)
			return write
		}

		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			data[write] = '?'
			write++
			read++
			continue
		}

		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return write
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// CountingReader tracks bytes read. When Limit is positive, reading past it
// fails with ErrFileTooLarge.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	Limit     int64
}

// NewCountingReader wraps r with an optional byte limit (0 for none).
func NewCountingReader(r io.Reader, limit int64) *CountingReader {
	return &CountingReader{reader: r, Limit: limit}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	if r.Limit > 0 && r.BytesRead > r.Limit {
		return n, fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, r.Limit)
	}
	return n, err
}

// WrapForParsing applies size limiting, BOM/UTF-16 decoding and UTF-8
// sanitization. The limit applies to raw bytes, before decoding.
func WrapForParsing(r io.Reader, limit int64) io.Reader {
	counted := NewCountingReader(r, limit)
	return NewUTF8Sanitizer(NewDecodingReader(counted))
}
