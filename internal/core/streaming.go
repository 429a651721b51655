package core

// streaming.go provides the reader chain a feed passes through before CSV
// parsing:
//
//   - BOMSkippingReader drops a leading UTF-8 byte order mark
//   - UTF8Sanitizer replaces invalid UTF-8 bytes with '?'
//   - SizeLimitReader fails once the feed exceeds the configured size
//
// Each stage holds at most a few bytes of state, so memory stays constant
// regardless of feed size.

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// ErrFeedTooLarge is returned by SizeLimitReader once the limit is passed.
var ErrFeedTooLarge = errors.New("feed too large")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// UTF8Sanitizer replaces each invalid UTF-8 byte with '?'. A multi-byte rune
// split across two reads is carried over to the next read intact.
type UTF8Sanitizer struct {
	reader  io.Reader
	pending []byte
}

// NewUTF8Sanitizer wraps r.
func NewUTF8Sanitizer(r io.Reader) *UTF8Sanitizer {
	return &UTF8Sanitizer{reader: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *UTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	offset := 0
	if len(s.pending) > 0 {
		offset = copy(p, s.pending)
		s.pending = s.pending[:0]
	}

	n, err := s.reader.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	out := s.sanitize(p[:n], err == io.EOF)
	if out == 0 && err == nil {
		// Everything read so far is the start of a rune; read again.
		return s.Read(p)
	}
	return out, err
}

// sanitize rewrites data in place and returns the number of bytes to emit.
// Unless atEOF, a trailing incomplete rune is moved to s.pending.
func (s *UTF8Sanitizer) sanitize(data []byte, atEOF bool) int {
	write := 0
	for read := 0; read < len(data); {
		if data[read] < utf8.RuneSelf {
			data[write] = data[read]
			write++
			read++
			continue
		}

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

// BOMSkippingReader drops a UTF-8 byte order mark at the start of the stream.
type BOMSkippingReader struct {
	reader  io.Reader
	checked bool
	head    []byte
}

// NewBOMSkippingReader wraps r.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{reader: r}
}

func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true

		buf := make([]byte, len(utf8BOM))
		n, err := io.ReadFull(r.reader, buf)
		switch {
		case err == io.ErrUnexpectedEOF || err == io.EOF:
			// Short stream; whatever was read is data unless it is a BOM.
		case err != nil:
			return 0, err
		}

		buf = buf[:n]
		if !bytes.Equal(buf, utf8BOM) {
			r.head = buf
		}
		if n < len(utf8BOM) {
			// The underlying reader is exhausted.
			r.reader = eofReader{}
		}
	}

	if len(r.head) > 0 {
		n := copy(p, r.head)
		r.head = r.head[n:]
		return n, nil
	}

	return r.reader.Read(p)
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }

// SizeLimitReader counts bytes and fails with ErrFeedTooLarge once more than
// Limit bytes have been read. A Limit of zero or less disables the check.
type SizeLimitReader struct {
	reader    io.Reader
	Limit     int64
	BytesRead int64
}

// NewSizeLimitReader wraps r with the given limit.
func NewSizeLimitReader(r io.Reader, limit int64) *SizeLimitReader {
	return &SizeLimitReader{reader: r, Limit: limit}
}

func (r *SizeLimitReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	if r.Limit > 0 && r.BytesRead > r.Limit {
		return n, fmt.Errorf("%w: exceeds %d bytes", ErrFeedTooLarge, r.Limit)
	}
	return n, err
}

// WrapFeed applies the full reader chain. The size limit counts raw bytes,
// before any transformation.
func WrapFeed(r io.Reader, limit int64) io.Reader {
	return NewUTF8Sanitizer(NewBOMSkippingReader(NewSizeLimitReader(r, limit)))
}
