// Package nitftest builds synthetic NITF 2.1 files for tests.
package nitftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Offsets of fixed file header fields.
const (
	OffsetFHDR = 0
	OffsetFDT  = 25
	OffsetFL   = 342
	OffsetHL   = 354
	OffsetNUMI = 360
)

// TRE is a tagged record extension.
type TRE struct {
	Tag   string
	Value string
}

// Band is one image band.
type Band struct {
	Representation string
	Subcategory    string
	// LUTs must all have the same length.
	LUTs [][]byte
}

// Image is an image segment.
type Image struct {
	ID       string
	DateTime string
	TargetID string
	Title    string
	Source   string
	Rows     int
	Cols     int

	// Coordinates is ICORDS, Geolocation is IGEOLO (only written if Coordinates is set).
	Coordinates string
	Geolocation string

	Comments []string

	// Compression is IC, defaults to NC.
	Compression string
	// Rate is COMRAT, only written for compressed images.
	Rate string

	// Defaults to a single band.
	Bands []Band

	UserDefined []TRE
	Extended    []TRE

	Data []byte
}

// Segment is a graphic, text, data extension or reserved extension segment.
type Segment struct {
	ID   string
	Data []byte
	// Padding adds unread bytes to the end of the subheader.
	Padding int
}

// Builder describes a NITF file.
type Builder struct {
	StationID       string
	DateTime        string
	Title           string
	Classification  string
	ControlNumber   string
	Originator      string
	Phone           string
	BackgroundColor [3]byte

	UserDefined []TRE
	Extended    []TRE

	Images             []Image
	Graphics           []Segment
	Texts              []Segment
	DataExtensions     []Segment
	ReservedExtensions []Segment

	// FileLength overrides FL if set.
	FileLength int
}

type writer struct {
	bytes.Buffer
}

func (w *writer) text(s string, width int) {
	if len(s) > width {
		panic(fmt.Sprintf("%q is longer than %d", s, width))
	}
	w.WriteString(s)
	w.WriteString(strings.Repeat(" ", width-len(s)))
}

func (w *writer) number(n, width int) {
	s := fmt.Sprintf("%0*d", width, n)
	if len(s) > width {
		panic(fmt.Sprintf("%d does not fit in %d digits", n, width))
	}
	w.WriteString(s)
}

func (w *writer) security(classification, controlNumber string) {
	if classification == "" {
		classification = "U"
	}
	w.text(classification, 1)
	w.text("", 151)
	w.text(controlNumber, 15)
}

// EncodeTREs encodes tres as a TLV block.
func EncodeTREs(tres []TRE) []byte {
	var w writer
	for _, t := range tres {
		w.text(t.Tag, 6)
		w.number(len(t.Value), 5)
		w.WriteString(t.Value)
	}
	return w.Bytes()
}

// ImageSubheader encodes the subheader of img.
func ImageSubheader(img Image) []byte {
	var w writer
	w.text("IM", 2)
	w.text(img.ID, 10)
	w.text(img.DateTime, 14)
	w.text(img.TargetID, 17)
	w.text(img.Title, 80)
	w.security("U", "")
	w.text("0", 1)
	w.text(img.Source, 42)
	w.number(img.Rows, 8)
	w.number(img.Cols, 8)
	w.text("INT", 3)
	w.text("MONO", 8)
	w.text("VIS", 8)
	w.number(8, 2)
	w.text("R", 1)
	w.text(img.Coordinates, 1)
	if strings.TrimSpace(img.Coordinates) != "" {
		w.text(img.Geolocation, 60)
	}
	w.number(len(img.Comments), 1)
	for _, c := range img.Comments {
		w.text(c, 80)
	}
	ic := img.Compression
	if ic == "" {
		ic = "NC"
	}
	w.text(ic, 2)
	if ic != "NC" && ic != "NM" {
		w.text(img.Rate, 4)
	}

	bands := img.Bands
	if len(bands) == 0 {
		bands = []Band{{Representation: "M"}}
	}
	if len(bands) > 9 {
		w.number(0, 1)
		w.number(len(bands), 5)
	} else {
		w.number(len(bands), 1)
	}
	for _, b := range bands {
		w.text(b.Representation, 2)
		w.text(b.Subcategory, 6)
		w.text("N", 1)
		w.text("", 3)
		w.number(len(b.LUTs), 1)
		if len(b.LUTs) > 0 {
			w.number(len(b.LUTs[0]), 5)
			for _, lut := range b.LUTs {
				w.Write(lut)
			}
		}
	}

	w.text("0", 1)
	w.text("B", 1)
	w.number(1, 4)
	w.number(1, 4)
	w.number(img.Cols, 4)
	w.number(img.Rows, 4)
	w.number(8, 2)
	w.number(1, 3)
	w.number(0, 3)
	w.number(0, 10)
	w.text("1.0", 4)

	for _, tres := range [][]TRE{img.UserDefined, img.Extended} {
		if len(tres) == 0 {
			w.number(0, 5)
			continue
		}
		b := EncodeTREs(tres)
		w.number(len(b)+3, 5)
		w.number(0, 3)
		w.Write(b)
	}

	return w.Bytes()
}

func segmentSubheader(prefix string, idWidth int, s Segment) []byte {
	var w writer
	w.text(prefix, 2)
	w.text(s.ID, idWidth)
	w.text("", s.Padding)
	return w.Bytes()
}

type part struct {
	subheader []byte
	data      []byte
}

// Build encodes the file.
// It returns the file and the subheader offsets of all segments in
// file order.
func (b Builder) Build() ([]byte, []int) {
	var groups [5][]part
	for _, img := range b.Images {
		groups[0] = append(groups[0], part{ImageSubheader(img), img.Data})
	}
	for i, segs := range [][]Segment{b.Graphics, b.Texts, b.DataExtensions, b.ReservedExtensions} {
		prefix, width := []string{"SY", "TE", "DE", "RE"}[i], []int{10, 7, 25, 25}[i]
		for _, s := range segs {
			groups[i+1] = append(groups[i+1], part{segmentSubheader(prefix, width, s), s.Data})
		}
	}

	var h writer
	h.text("NITF", 4)
	h.text("02.10", 5)
	h.text("03", 2)
	h.text("BF01", 4)
	station := b.StationID
	if station == "" {
		station = "NITFMETA"
	}
	h.text(station, 10)
	h.text(b.DateTime, 14)
	h.text(b.Title, 80)
	h.security(b.Classification, b.ControlNumber)
	h.number(0, 5)
	h.number(0, 5)
	h.text("0", 1)
	h.Write(b.BackgroundColor[:])
	h.text(b.Originator, 24)
	h.text(b.Phone, 18)

	// FL and HL are patched below.
	h.number(0, 12)
	h.number(0, 6)

	widths := [5][2]int{{6, 10}, {4, 6}, {4, 5}, {4, 9}, {4, 7}}
	for i, g := range groups {
		if i == 2 {
			// NUMX
			h.number(0, 3)
		}
		h.number(len(g), 3)
		for _, p := range g {
			h.number(len(p.subheader), widths[i][0])
			h.number(len(p.data), widths[i][1])
		}
	}

	if len(b.UserDefined) == 0 {
		h.number(0, 5)
	} else {
		tres := EncodeTREs(b.UserDefined)
		h.number(len(tres), 5)
		h.number(0, 3)
		h.Write(tres)
	}
	if len(b.Extended) == 0 {
		h.number(0, 5)
	} else {
		tres := EncodeTREs(b.Extended)
		h.number(len(tres)+3, 5)
		h.number(0, 3)
		h.Write(tres)
	}

	hl := h.Len()
	out := h.Bytes()

	var offsets []int
	for _, g := range groups {
		for _, p := range g {
			offsets = append(offsets, len(out))
			out = append(out, p.subheader...)
			out = append(out, p.data...)
		}
	}

	fl := len(out)
	if b.FileLength != 0 {
		fl = b.FileLength
	}
	copy(out[OffsetFL:], fmt.Sprintf("%012d", fl))
	copy(out[OffsetHL:], fmt.Sprintf("%06d", hl))

	return out, offsets
}

// Sample returns a file with one segment of each kind and header extensions.
func Sample() Builder {
	return Builder{
		StationID:       "GONITF",
		DateTime:        "20240315123045",
		Title:           "Sample file",
		ControlNumber:   "CN-42",
		Originator:      "nitftest",
		Phone:           "555-0100",
		BackgroundColor: [3]byte{0x00, 0x80, 0xFF},
		UserDefined:     []TRE{{Tag: "USRTRE", Value: "user defined"}},
		Extended:        []TRE{{Tag: "XTRE01", Value: "first"}, {Tag: "XTRE02", Value: "second  "}},
		Images: []Image{
			{
				ID:          "IMAGE1",
				DateTime:    "20240315120000",
				TargetID:    "TGT1",
				Title:       "First image",
				Rows:        2,
				Cols:        3,
				Coordinates: "G",
				Geolocation: strings.Repeat("1", 60),
				Comments:    []string{"comment one"},
				Bands:       []Band{{Representation: "M", LUTs: [][]byte{{0, 1, 2, 3}}}},
				Extended:    []TRE{{Tag: "IXTRE1", Value: "image ext"}},
				Data:        make([]byte, 6),
			},
			{
				ID:   "IMAGE2",
				Rows: 1,
				Cols: 1,
				Data: make([]byte, 1),
			},
		},
		Graphics:           []Segment{{ID: "GRAPHIC1", Data: []byte("graphic"), Padding: 10}},
		Texts:              []Segment{{ID: "TEXT1", Data: []byte("hello text")}},
		DataExtensions:     []Segment{{ID: "TRE_OVERFLOW", Data: []byte("des")}},
		ReservedExtensions: []Segment{{ID: "RES1", Data: []byte("res")}},
	}
}
