package nitfmeta

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const (
	treTagWidth    = 6
	treLengthWidth = 5
	treHeaderWidth = treTagWidth + treLengthWidth
	overflowWidth  = 3
)

// TRE is one tagged record extension (tag, length, value) from a
// header extension area.
type TRE struct {
	// Tag is the 6 character extension name, trimmed.
	Tag string
	// Length is the declared value length in bytes.
	Length int
	// Value is the value as text with trailing whitespace removed.
	// Values that are not valid UTF-8 are read as ISO 8859-1.
	// It is empty if Binary is set.
	Value string
	// Data is the raw value.
	// When decoded it aliases the buffer passed to Decode.
	Data []byte
	// Binary is set if Data holds control bytes and is not text.
	Binary bool
}

// readTLVBlock reads TLV entries until exactly total bytes are consumed.
func (c *cursor) readTLVBlock(area string, total int) ([]TRE, error) {
	start := c.pos
	if total < 0 {
		return nil, newDecodeErrorf(ErrMalformedTLV, area, start, "negative block length %d", total)
	}
	if total > c.remaining() {
		return nil, newDecodeErrorf(ErrTruncatedInput, area, start, "block of %d bytes, have %d", total, c.remaining())
	}

	// Reads are limited to the block itself.
	block := newCursor(c.buf[:start+total], start)

	var tres []TRE
	for block.remaining() > 0 {
		entryStart := block.pos
		if block.remaining() < treHeaderWidth {
			return nil, newDecodeErrorf(ErrMalformedTLV, area, entryStart, "%d trailing bytes do not hold a tag and length", block.remaining())
		}
		tagb, _ := block.read(area, treTagWidth)
		if !isValidTag(tagb) {
			return nil, newDecodeErrorf(ErrInvalidEncoding, area, entryStart, "invalid tag %q", tagb)
		}
		tag := strings.TrimRight(string(tagb), " ")
		_, length, err := block.readNumber(tag, treLengthWidth)
		if err != nil {
			return nil, err
		}
		if length > block.remaining() {
			return nil, newDecodeErrorf(ErrMalformedTLV, tag, entryStart, "length %d crosses block boundary by %d bytes", length, length-block.remaining())
		}
		v, _ := block.read(tag, length)
		value, binary := decodeTREValue(v)
		tres = append(tres, TRE{Tag: tag, Length: length, Value: value, Data: v, Binary: binary})
	}

	c.pos = block.pos
	return tres, nil
}

// readExtensionArea reads an overflow field followed by a TLV block.
// If lengthIncludesOverflow is set, the declared length counts the
// 3 byte overflow field, otherwise only the TLV payload.
func (c *cursor) readExtensionArea(fm *FieldMap, overflowTag string, declared int, lengthIncludesOverflow bool) ([]TRE, error) {
	start := c.pos
	ofl, err := c.readText(overflowTag, overflowWidth)
	if err != nil {
		return nil, err
	}
	fm.set(overflowTag, ofl)

	total := declared
	if lengthIncludesOverflow {
		total -= overflowWidth
		if total < 0 {
			return nil, newDecodeErrorf(ErrMalformedTLV, overflowTag, start, "declared length %d is shorter than the overflow field", declared)
		}
	}
	return c.readTLVBlock(overflowTag, total)
}

// decodeTREValue returns v as text with trailing whitespace removed,
// or reports that v is binary.
func decodeTREValue(v []byte) (string, bool) {
	for _, b := range v {
		if b == 0 || b == 0x7f || (b < 0x20 && b != '\n' && b != '\r' && b != '\t') {
			return "", true
		}
	}
	if utf8.Valid(v) {
		return strings.TrimRight(string(v), " \t\r\n"), false
	}

	var sb strings.Builder
	for _, b := range v {
		if b >= 0x80 && b < 0xa0 {
			// C1 controls are not used in ISO 8859-1 text.
			return "", true
		}
		sb.WriteRune(charmap.ISO8859_1.DecodeByte(b))
	}
	return strings.TrimRight(sb.String(), " \t\r\n"), false
}

func isValidTag(b []byte) bool {
	if isBlank(b) {
		return false
	}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

// EncodeTREs encodes tres as a TLV block.
// Data is written as is if set. Otherwise Value is written, space padded
// to Length; a zero Length means the length of Value.
func EncodeTREs(tres []TRE) ([]byte, error) {
	var buf bytes.Buffer
	for _, t := range tres {
		if t.Tag == "" || len(t.Tag) > treTagWidth {
			return nil, fmt.Errorf("nitfmeta: invalid tag %q", t.Tag)
		}

		value := t.Data
		if value != nil {
			if t.Length != 0 && t.Length != len(value) {
				return nil, fmt.Errorf("nitfmeta: data of %s is %d bytes, but its length is %d", t.Tag, len(value), t.Length)
			}
		} else {
			length := t.Length
			if length == 0 {
				length = len(t.Value)
			}
			if len(t.Value) > length {
				return nil, fmt.Errorf("nitfmeta: value of %s exceeds its length %d", t.Tag, length)
			}
			value = fmt.Appendf(nil, "%-*s", length, t.Value)
		}
		if len(value) > 99999 {
			return nil, fmt.Errorf("nitfmeta: value of %s too long: %d", t.Tag, len(value))
		}

		fmt.Fprintf(&buf, "%-6s%05d", t.Tag, len(value))
		buf.Write(value)
	}
	return buf.Bytes(), nil
}

// addTREs projects tres into fm keyed by tag.
// Tags already in fm belong to fixed fields and are skipped.
func addTREs(fm *FieldMap, tres []TRE, warnf func(string, ...any)) {
	fixed := make(map[string]bool, fm.Len())
	for _, k := range fm.Keys() {
		fixed[k] = true
	}
	for _, t := range tres {
		if fixed[t.Tag] {
			warnf("extension %s has the name of a fixed field, skipped", t.Tag)
			continue
		}
		v := t.Value
		if t.Binary {
			v = formatBinaryData(t.Data)
		}
		if fm.set(t.Tag, v) {
			warnf("duplicate extension %s, keeping the last value", t.Tag)
		}
	}
}
