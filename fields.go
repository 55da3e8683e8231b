package nitfmeta

import "unicode/utf8"

type fieldType uint8

const (
	// Basic character set (ASCII).
	fieldBCS fieldType = iota + 1
	// Extended character set (ISO 8859-1).
	fieldECS
	// Zero padded decimal, stored as the raw digits.
	fieldNumber
	// CCYYMMDD.
	fieldDate
	// CCYYMMDDhhmmss.
	fieldDateTime
	// 3 binary bytes.
	fieldRGB
)

type fieldDef struct {
	tag      string
	width    int
	typ      fieldType
	optional bool
}

func required(tag string, width int, typ fieldType) fieldDef {
	return fieldDef{tag: tag, width: width, typ: typ}
}

func optional(tag string, width int, typ fieldType) fieldDef {
	return fieldDef{tag: tag, width: width, typ: typ, optional: true}
}

// Leading fixed fields of the file header, up to and including HL.
var fileHeaderFields = concatFields(
	[]fieldDef{
		required("FHDR", 4, fieldBCS),
		required("FVER", 5, fieldBCS),
		required("CLEVEL", 2, fieldBCS),
		required("STYPE", 4, fieldBCS),
		required("OSTAID", 10, fieldBCS),
		optional("FDT", 14, fieldDateTime),
		optional("FTITLE", 80, fieldECS),
	},
	securityFields("FS"),
	[]fieldDef{
		required("FSCOP", 5, fieldBCS),
		required("FSCPYS", 5, fieldBCS),
		required("ENCRYP", 1, fieldBCS),
		required("FBKGC", 3, fieldRGB),
		optional("ONAME", 24, fieldECS),
		optional("OPHONE", 18, fieldBCS),
		required("FL", 12, fieldNumber),
		required("HL", 6, fieldNumber),
	},
)

// Image subheader fields up to and including PJUST.
var imageSubheaderFields = concatFields(
	[]fieldDef{
		required("IM", 2, fieldBCS),
		required("IID1", 10, fieldBCS),
		optional("IDATIM", 14, fieldDateTime),
		optional("TGTID", 17, fieldBCS),
		optional("IID2", 80, fieldECS),
	},
	securityFields("IS"),
	[]fieldDef{
		required("ENCRYP", 1, fieldBCS),
		optional("ISORCE", 42, fieldECS),
		required("NROWS", 8, fieldNumber),
		required("NCOLS", 8, fieldNumber),
		required("PVTYPE", 3, fieldBCS),
		required("IREP", 8, fieldBCS),
		required("ICAT", 8, fieldBCS),
		required("ABPP", 2, fieldNumber),
		required("PJUST", 1, fieldBCS),
	},
)

// Image subheader fields from ISYNC to IMAG.
var imageBlockingFields = []fieldDef{
	required("ISYNC", 1, fieldNumber),
	required("IMODE", 1, fieldBCS),
	required("NBPR", 4, fieldNumber),
	required("NBPC", 4, fieldNumber),
	required("NPPBH", 4, fieldNumber),
	required("NPPBV", 4, fieldNumber),
	required("NBPP", 2, fieldNumber),
	required("IDLVL", 3, fieldNumber),
	required("IALVL", 3, fieldNumber),
	required("ILOC", 10, fieldBCS),
	required("IMAG", 4, fieldBCS),
}

// securityFields returns the security group shared by the file header (FS)
// and the segment subheaders (IS, SS, TS, DES).
func securityFields(prefix string) []fieldDef {
	return []fieldDef{
		required(prefix+"CLAS", 1, fieldBCS),
		optional(prefix+"CLSY", 2, fieldBCS),
		optional(prefix+"CODE", 11, fieldBCS),
		optional(prefix+"CTLH", 2, fieldBCS),
		optional(prefix+"REL", 20, fieldBCS),
		optional(prefix+"DCTP", 2, fieldBCS),
		optional(prefix+"DCDT", 8, fieldDate),
		optional(prefix+"DCXM", 4, fieldBCS),
		optional(prefix+"DG", 1, fieldBCS),
		optional(prefix+"DGDT", 8, fieldDate),
		optional(prefix+"CLTX", 43, fieldECS),
		optional(prefix+"CATP", 1, fieldBCS),
		optional(prefix+"CAUT", 40, fieldECS),
		optional(prefix+"CRSN", 1, fieldBCS),
		optional(prefix+"SRDT", 8, fieldDate),
		optional(prefix+"CTLN", 15, fieldBCS),
	}
}

func concatFields(groups ...[]fieldDef) []fieldDef {
	var all []fieldDef
	for _, g := range groups {
		all = append(all, g...)
	}
	return all
}

// readField reads one field as described by def.
// A blank field yields "".
func (c *cursor) readField(def fieldDef) (string, error) {
	switch def.typ {
	case fieldBCS:
		return c.readText(def.tag, def.width)
	case fieldECS:
		return c.readECS(def.tag, def.width)
	case fieldNumber:
		s, _, err := c.readNumber(def.tag, def.width)
		return s, err
	case fieldDate, fieldDateTime:
		start := c.pos
		b, err := c.read(def.tag, def.width)
		if err != nil {
			return "", err
		}
		if isBlank(b) {
			return "", nil
		}
		if !utf8.Valid(b) {
			return "", newDecodeError(ErrInvalidEncoding, def.tag, start)
		}
		if def.typ == fieldDate {
			return printableString(formatDate(b)), nil
		}
		return printableString(formatDateTime(b)), nil
	case fieldRGB:
		b, err := c.read(def.tag, def.width)
		if err != nil {
			return "", err
		}
		return formatRGB(b), nil
	default:
		panic("unknown field type")
	}
}

// readFields reads defs in order into fm.
// Blank optional fields are omitted, blank required fields are
// omitted and reported through warnf.
func (c *cursor) readFields(fm *FieldMap, defs []fieldDef, warnf func(string, ...any)) error {
	for _, def := range defs {
		start := c.pos
		v, err := c.readField(def)
		if err != nil {
			return err
		}
		if v == "" {
			if !def.optional {
				warnf("required field %s at offset %d is blank", def.tag, start)
			}
			continue
		}
		fm.set(def.tag, v)
	}
	return nil
}
