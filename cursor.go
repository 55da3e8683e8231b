// Copyright 2026 The nitfmeta Authors
// SPDX-License-Identifier: MIT

package nitfmeta

import (
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// cursor is a bounds checked read position in a borrowed buffer.
// It never copies the buffer and never reads past its end.
// Note that this is not thread safe, but many cursors may share one buffer.
type cursor struct {
	buf []byte
	pos int

	// Lazily created, *encoding.Decoder is not safe for concurrent use.
	ecsDecoder *encoding.Decoder
}

func newCursor(buf []byte, pos int) *cursor {
	return &cursor{buf: buf, pos: pos}
}

func (c *cursor) remaining() int {
	return len(c.buf) - c.pos
}

// read returns the next width bytes and advances.
// The returned slice aliases the buffer.
func (c *cursor) read(tag string, width int) ([]byte, error) {
	if width < 0 || c.pos < 0 {
		return nil, newDecodeErrorf(ErrTruncatedInput, tag, c.pos, "invalid width %d", width)
	}
	if width > c.remaining() {
		return nil, newDecodeErrorf(ErrTruncatedInput, tag, c.pos, "need %d bytes, have %d", width, max(c.remaining(), 0))
	}
	b := c.buf[c.pos : c.pos+width]
	c.pos += width
	return b, nil
}

// readText reads a BCS field and returns it trimmed.
func (c *cursor) readText(tag string, width int) (string, error) {
	start := c.pos
	b, err := c.read(tag, width)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", newDecodeError(ErrInvalidEncoding, tag, start)
	}
	return printableString(string(b)), nil
}

// readECS reads an extended character set (ISO 8859-1) field and returns it trimmed.
func (c *cursor) readECS(tag string, width int) (string, error) {
	start := c.pos
	b, err := c.read(tag, width)
	if err != nil {
		return "", err
	}
	if utf8.Valid(b) {
		return printableString(string(b)), nil
	}
	if c.ecsDecoder == nil {
		c.ecsDecoder = charmap.ISO8859_1.NewDecoder()
	}
	s, err := c.ecsDecoder.Bytes(b)
	if err != nil {
		return "", newDecodeError(ErrInvalidEncoding, tag, start)
	}
	return printableString(string(s)), nil
}

// readNumber reads a fixed-width decimal field.
// It returns both the raw digits and the parsed value.
func (c *cursor) readNumber(tag string, width int) (string, int, error) {
	start := c.pos
	b, err := c.read(tag, width)
	if err != nil {
		return "", 0, err
	}
	n, ok := parseDecimal(b)
	if !ok {
		return "", 0, newDecodeErrorf(ErrMalformedCount, tag, start, "%q is not a decimal number", b)
	}
	return string(b), n, nil
}

// parseDecimal parses a fixed-width, zero padded decimal field.
// All bytes must be ASCII digits.
func parseDecimal(b []byte) (int, bool) {
	if len(b) == 0 || len(b) > 18 {
		return 0, false
	}
	var n int
	for _, d := range b {
		if d < '0' || d > '9' {
			return 0, false
		}
		n = n*10 + int(d-'0')
	}
	return n, true
}

func parseDecimalString(s string) (int, bool) {
	return parseDecimal([]byte(s))
}
