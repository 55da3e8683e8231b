package nitfmeta

import "fmt"

// subheaderDecoder decodes the subheader starting at offset in buf and
// returns its fields and the number of bytes read.
// Implementations must not modify buf and must be safe for concurrent use.
type subheaderDecoder func(buf []byte, offset int, warnf func(string, ...any)) (*FieldMap, int, error)

var subheaderDecoders = [numSegmentKinds]subheaderDecoder{
	Image: decodeImageSubheader,
	Graphic: fixedSubheaderDecoder([]fieldDef{
		required("SY", 2, fieldBCS),
		required("SID", 10, fieldBCS),
	}),
	Text: fixedSubheaderDecoder([]fieldDef{
		required("TE", 2, fieldBCS),
		required("TEXTID", 7, fieldBCS),
	}),
	DataExtension: fixedSubheaderDecoder([]fieldDef{
		required("DE", 2, fieldBCS),
		required("DESID", 25, fieldBCS),
	}),
	ReservedExtension: fixedSubheaderDecoder([]fieldDef{
		required("RE", 2, fieldBCS),
		required("RESID", 25, fieldBCS),
	}),
}

func fixedSubheaderDecoder(defs []fieldDef) subheaderDecoder {
	return func(buf []byte, offset int, warnf func(string, ...any)) (*FieldMap, int, error) {
		fm := newFieldMap()
		c := newCursor(buf, offset)
		if err := c.readFields(fm, defs, warnf); err != nil {
			return nil, 0, err
		}
		return fm, c.pos - offset, nil
	}
}

type imageSubheaderDecoder struct {
	*cursor
	fm    *FieldMap
	warnf func(string, ...any)
}

func decodeImageSubheader(buf []byte, offset int, warnf func(string, ...any)) (*FieldMap, int, error) {
	d := &imageSubheaderDecoder{
		cursor: newCursor(buf, offset),
		fm:     newFieldMap(),
		warnf:  warnf,
	}
	if err := d.decode(); err != nil {
		return nil, 0, err
	}
	return d.fm, d.pos - offset, nil
}

func (d *imageSubheaderDecoder) decode() error {
	if err := d.readFields(d.fm, imageSubheaderFields, d.warnf); err != nil {
		return err
	}

	icords, err := d.text("ICORDS", 1)
	if err != nil {
		return err
	}
	if icords != "" {
		// Corner coordinates are only present with a coordinate system.
		if _, err := d.text("IGEOLO", 60); err != nil {
			return err
		}
	}

	nicom, err := d.number("NICOM", 1)
	if err != nil {
		return err
	}
	for i := 1; i <= nicom; i++ {
		if err := d.readFields(d.fm, []fieldDef{optional(fmt.Sprintf("ICOM%d", i), 80, fieldECS)}, d.warnf); err != nil {
			return err
		}
	}

	ic, err := d.text("IC", 2)
	if err != nil {
		return err
	}
	if ic == "" {
		d.warnf("required field IC is blank")
	}
	if ic != "NC" && ic != "NM" {
		if _, err := d.text("COMRAT", 4); err != nil {
			return err
		}
	}

	nbands, err := d.number("NBANDS", 1)
	if err != nil {
		return err
	}
	if nbands == 0 {
		if nbands, err = d.number("XBANDS", 5); err != nil {
			return err
		}
	}
	for band := 1; band <= nbands; band++ {
		if err := d.decodeBand(band); err != nil {
			return err
		}
	}

	if err := d.readFields(d.fm, imageBlockingFields, d.warnf); err != nil {
		return err
	}

	// Both image extension lengths include their 3 byte overflow field.
	var tres []TRE
	for _, area := range []struct{ lengthTag, overflowTag string }{
		{"UDIDL", "UDOFL"},
		{"IXSHDL", "IXSOFL"},
	} {
		length, err := d.number(area.lengthTag, extensionLengthWidth)
		if err != nil {
			return err
		}
		if length == 0 {
			continue
		}
		entries, err := d.readExtensionArea(d.fm, area.overflowTag, length, true)
		if err != nil {
			return err
		}
		tres = append(tres, entries...)
	}
	addTREs(d.fm, tres, d.warnf)

	return nil
}

func (d *imageSubheaderDecoder) decodeBand(band int) error {
	tag := func(name string) string {
		return fmt.Sprintf("%s%d", name, band)
	}
	if err := d.readFields(d.fm, []fieldDef{
		optional(tag("IREPBAND"), 2, fieldBCS),
		optional(tag("ISUBCAT"), 6, fieldBCS),
		required(tag("IFC"), 1, fieldBCS),
		optional(tag("IMFLT"), 3, fieldBCS),
	}, d.warnf); err != nil {
		return err
	}

	nluts, err := d.number(tag("NLUTS"), 1)
	if err != nil {
		return err
	}
	if nluts == 0 {
		return nil
	}
	nelut, err := d.number(tag("NELUT"), 5)
	if err != nil {
		return err
	}
	for lut := 1; lut <= nluts; lut++ {
		lutTag := fmt.Sprintf("LUTD%d_%d", band, lut)
		b, err := d.read(lutTag, nelut)
		if err != nil {
			return err
		}
		d.fm.set(lutTag, formatBinaryData(b))
	}
	return nil
}

func (d *imageSubheaderDecoder) text(tag string, width int) (string, error) {
	s, err := d.readText(tag, width)
	if err != nil {
		return "", err
	}
	d.fm.set(tag, s)
	return s, nil
}

func (d *imageSubheaderDecoder) number(tag string, width int) (int, error) {
	s, n, err := d.readNumber(tag, width)
	if err != nil {
		return 0, err
	}
	d.fm.set(tag, s)
	return n, nil
}
