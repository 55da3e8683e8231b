package nitfmeta

import "slices"

const (
	userDefinedLengthTag = "UDHDL"
	extendedLengthTag    = "XHDL"
	extensionLengthWidth = 5
)

type headerDecoder struct {
	*cursor
	header *FieldMap
	warnf  func(string, ...any)

	userDefined []TRE
	extended    []TRE
}

func newHeaderDecoder(buf []byte, warnf func(string, ...any)) *headerDecoder {
	return &headerDecoder{
		cursor: newCursor(buf, 0),
		header: newFieldMap(),
		warnf:  warnf,
	}
}

// decodeFixed reads the fixed fields and the segment length table.
func (d *headerDecoder) decodeFixed() error {
	if err := d.readFields(d.header, fileHeaderFields, d.warnf); err != nil {
		return err
	}

	for kind, layout := range segmentLayouts {
		if SegmentKind(kind) == Text {
			// NUMX, reserved for future use.
			numx, n, err := d.readNumber("NUMX", countWidth)
			if err != nil {
				return err
			}
			d.header.set("NUMX", numx)
			if n != 0 {
				d.warnf("NUMX is %d, expected 0", n)
			}
		}

		s, count, err := d.readNumber(layout.countTag, countWidth)
		if err != nil {
			return err
		}
		d.header.set(layout.countTag, s)

		for i := 1; i <= count; i++ {
			for _, f := range []struct {
				tag   string
				width int
			}{
				{lengthTag(layout.subheaderTag, i), layout.subheaderWidth},
				{lengthTag(layout.dataTag, i), layout.dataWidth},
			} {
				s, _, err := d.readNumber(f.tag, f.width)
				if err != nil {
					return err
				}
				d.header.set(f.tag, s)
			}
		}
	}

	return nil
}

// decodeExtensions reads the user-defined and extended header areas.
func (d *headerDecoder) decodeExtensions() error {
	var err error

	// UDHDL counts the TLV payload only.
	d.userDefined, err = d.readArea(userDefinedLengthTag, "UDHOFL", false)
	if err != nil {
		return err
	}
	// XHDL also counts its 3 byte overflow field.
	d.extended, err = d.readArea(extendedLengthTag, "XHOFL", true)
	if err != nil {
		return err
	}

	addTREs(d.header, slices.Concat(d.userDefined, d.extended), d.warnf)

	if hl, found := d.header.Get("HL"); found {
		if n, ok := parseDecimalString(hl); ok && n != d.pos {
			d.warnf("HL is %d, but the header ends at offset %d", n, d.pos)
		}
	}

	return nil
}

func (d *headerDecoder) readArea(lengthTag, overflowTag string, lengthIncludesOverflow bool) ([]TRE, error) {
	s, length, err := d.readNumber(lengthTag, extensionLengthWidth)
	if err != nil {
		return nil, err
	}
	d.header.set(lengthTag, s)
	if length == 0 {
		return nil, nil
	}
	return d.readExtensionArea(d.header, overflowTag, length, lengthIncludesOverflow)
}
