package nitfmeta

import "fmt"

const (
	// Image is the image segment kind.
	Image SegmentKind = iota
	// Graphic is the graphic segment kind.
	Graphic
	// Text is the text segment kind.
	Text
	// DataExtension is the data extension segment (DES) kind.
	DataExtension
	// ReservedExtension is the reserved extension segment (RES) kind.
	ReservedExtension

	numSegmentKinds
)

// SegmentKind is the kind of a NITF segment.
type SegmentKind int

func (k SegmentKind) String() string {
	if k < 0 || k >= numSegmentKinds {
		return fmt.Sprintf("SegmentKind(%d)", int(k))
	}
	return segmentLayouts[k].name
}

// SegmentKinds returns all segment kinds in file order.
func SegmentKinds() []SegmentKind {
	return []SegmentKind{Image, Graphic, Text, DataExtension, ReservedExtension}
}

// segmentLayout describes how a segment kind is recorded in the file header.
type segmentLayout struct {
	name string
	// Section name used when printing.
	section string

	countTag string

	subheaderTag   string
	subheaderWidth int
	dataTag        string
	dataWidth      int
}

const countWidth = 3

var segmentLayouts = [numSegmentKinds]segmentLayout{
	Image:             {name: "Image", section: "IMAGE", countTag: "NUMI", subheaderTag: "LISH", subheaderWidth: 6, dataTag: "LI", dataWidth: 10},
	Graphic:           {name: "Graphic", section: "GRAPHIC", countTag: "NUMS", subheaderTag: "LSSH", subheaderWidth: 4, dataTag: "LS", dataWidth: 6},
	Text:              {name: "Text", section: "TEXT", countTag: "NUMT", subheaderTag: "LTSH", subheaderWidth: 4, dataTag: "LT", dataWidth: 5},
	DataExtension:     {name: "DataExtension", section: "DES", countTag: "NUMDES", subheaderTag: "LDSH", subheaderWidth: 4, dataTag: "LD", dataWidth: 9},
	ReservedExtension: {name: "ReservedExtension", section: "RES", countTag: "NUMRES", subheaderTag: "LRESH", subheaderWidth: 4, dataTag: "LRE", dataWidth: 7},
}

func lengthTag(prefix string, index int) string {
	return fmt.Sprintf("%s%03d", prefix, index)
}

// SegmentDescriptor locates one segment in the file.
type SegmentDescriptor struct {
	Kind SegmentKind
	// Index is the 1-based ordinal within Kind.
	Index int
	// Offset is the absolute byte offset of the subheader.
	Offset          int
	SubheaderLength int
	DataLength      int
}

func (s SegmentDescriptor) String() string {
	return fmt.Sprintf("%s segment %d", s.Kind, s.Index)
}

// ResolveSegments computes the location of every segment from the
// length fields in a decoded file header.
// Segments are returned in file order: images, graphics, texts,
// data extensions and reserved extensions, each by ascending index.
func ResolveSegments(header *FieldMap) ([]SegmentDescriptor, error) {
	offset, err := headerNumber(header, "HL")
	if err != nil {
		return nil, err
	}

	var segs []SegmentDescriptor
	for kind, layout := range segmentLayouts {
		count, err := headerNumber(header, layout.countTag)
		if err != nil {
			return nil, err
		}
		for i := 1; i <= count; i++ {
			subheaderLength, err := headerNumber(header, lengthTag(layout.subheaderTag, i))
			if err != nil {
				return nil, err
			}
			if subheaderLength == 0 {
				return nil, newDecodeErrorf(ErrMalformedCount, lengthTag(layout.subheaderTag, i), -1, "zero subheader length")
			}
			dataLength, err := headerNumber(header, lengthTag(layout.dataTag, i))
			if err != nil {
				return nil, err
			}
			segs = append(segs, SegmentDescriptor{
				Kind:            SegmentKind(kind),
				Index:           i,
				Offset:          offset,
				SubheaderLength: subheaderLength,
				DataLength:      dataLength,
			})
			offset += subheaderLength + dataLength
		}
	}

	return segs, nil
}

func headerNumber(header *FieldMap, tag string) (int, error) {
	s, found := header.Get(tag)
	if !found {
		return 0, newDecodeErrorf(ErrMalformedCount, tag, -1, "field is missing")
	}
	n, ok := parseDecimalString(s)
	if !ok {
		return 0, newDecodeErrorf(ErrMalformedCount, tag, -1, "%q is not a decimal number", s)
	}
	return n, nil
}
