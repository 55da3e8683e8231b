package nitfmeta_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-logr/logr/funcr"
	"github.com/gonitf/nitfmeta"
	"github.com/gonitf/nitfmeta/internal/nitftest"

	qt "github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp"
)

func TestDecodeSample(t *testing.T) {
	c := qt.New(t)

	data, offsets := nitftest.Sample().Build()
	f, warnings := decode(c, data)
	c.Assert(warnings, qt.HasLen, 0)

	header := f.Header
	c.Assert(get(header, "FHDR"), qt.Equals, "NITF")
	c.Assert(get(header, "FVER"), qt.Equals, "02.10")
	c.Assert(get(header, "OSTAID"), qt.Equals, "GONITF")
	c.Assert(get(header, "FDT"), qt.Equals, "2024/03/15 12:30:45")
	c.Assert(get(header, "FTITLE"), qt.Equals, "Sample file")
	c.Assert(get(header, "FSCLAS"), qt.Equals, "U")
	c.Assert(get(header, "FSCTLN"), qt.Equals, "CN-42")
	c.Assert(get(header, "FBKGC"), qt.Equals, "0x0080FF")
	c.Assert(get(header, "ONAME"), qt.Equals, "nitftest")
	c.Assert(get(header, "FL"), qt.Equals, fmt.Sprintf("%012d", len(data)))
	c.Assert(get(header, "HL"), qt.Equals, fmt.Sprintf("%06d", offsets[0]))
	c.Assert(get(header, "NUMI"), qt.Equals, "002")
	c.Assert(get(header, "NUMX"), qt.Equals, "000")
	c.Assert(get(header, "UDHOFL"), qt.Equals, "000")
	c.Assert(get(header, "USRTRE"), qt.Equals, "user defined")
	c.Assert(get(header, "XTRE01"), qt.Equals, "first")
	c.Assert(get(header, "XTRE02"), qt.Equals, "second")
	c.Assert(header.Has("FSCODE"), qt.IsFalse)

	c.Assert(f.UserDefinedTREs, qt.DeepEquals, []nitfmeta.TRE{{Tag: "USRTRE", Length: 12, Value: "user defined", Data: []byte("user defined")}})
	c.Assert(f.ExtendedTREs, qt.HasLen, 2)
	c.Assert(f.ExtendedTREs[1], qt.DeepEquals, nitfmeta.TRE{Tag: "XTRE02", Length: 8, Value: "second", Data: []byte("second  ")})

	c.Assert(f.Images, qt.HasLen, 2)
	c.Assert(f.Graphics, qt.HasLen, 1)
	c.Assert(f.Texts, qt.HasLen, 1)
	c.Assert(f.DataExtensions, qt.HasLen, 1)
	c.Assert(f.ReservedExtensions, qt.HasLen, 1)

	img := f.Images[0]
	c.Assert(get(img, "IM"), qt.Equals, "IM")
	c.Assert(get(img, "IID1"), qt.Equals, "IMAGE1")
	c.Assert(get(img, "IDATIM"), qt.Equals, "2024/03/15 12:00:00")
	c.Assert(get(img, "TGTID"), qt.Equals, "TGT1")
	c.Assert(get(img, "IID2"), qt.Equals, "First image")
	c.Assert(get(img, "NROWS"), qt.Equals, "00000002")
	c.Assert(get(img, "NCOLS"), qt.Equals, "00000003")
	c.Assert(get(img, "ICORDS"), qt.Equals, "G")
	c.Assert(get(img, "IGEOLO"), qt.Equals, strings.Repeat("1", 60))
	c.Assert(get(img, "NICOM"), qt.Equals, "1")
	c.Assert(get(img, "ICOM1"), qt.Equals, "comment one")
	c.Assert(get(img, "IC"), qt.Equals, "NC")
	c.Assert(get(img, "NBANDS"), qt.Equals, "1")
	c.Assert(get(img, "IREPBAND1"), qt.Equals, "M")
	c.Assert(get(img, "NLUTS1"), qt.Equals, "1")
	c.Assert(get(img, "NELUT1"), qt.Equals, "00004")
	c.Assert(get(img, "LUTD1_1"), qt.Equals, "(Binary data 4 bytes)")
	c.Assert(get(img, "IMODE"), qt.Equals, "B")
	c.Assert(get(img, "IMAG"), qt.Equals, "1.0")
	c.Assert(get(img, "UDIDL"), qt.Equals, "00000")
	c.Assert(get(img, "IXSOFL"), qt.Equals, "000")
	c.Assert(get(img, "IXTRE1"), qt.Equals, "image ext")

	img2 := f.Images[1]
	c.Assert(get(img2, "IID1"), qt.Equals, "IMAGE2")
	c.Assert(img2.Has("ICORDS"), qt.IsFalse)
	c.Assert(img2.Has("IGEOLO"), qt.IsFalse)
	c.Assert(img2.Has("IDATIM"), qt.IsFalse)
	c.Assert(img2.Has("NELUT1"), qt.IsFalse)

	c.Assert(f.Graphics[0].Map(), qt.DeepEquals, map[string]string{"SY": "SY", "SID": "GRAPHIC1"})
	c.Assert(f.Texts[0].Map(), qt.DeepEquals, map[string]string{"TE": "TE", "TEXTID": "TEXT1"})
	c.Assert(f.DataExtensions[0].Map(), qt.DeepEquals, map[string]string{"DE": "DE", "DESID": "TRE_OVERFLOW"})
	c.Assert(f.ReservedExtensions[0].Map(), qt.DeepEquals, map[string]string{"RE": "RE", "RESID": "RES1"})
}

func TestDecodeSegmentCounts(t *testing.T) {
	c := qt.New(t)

	countTags := map[nitfmeta.SegmentKind]string{
		nitfmeta.Image:             "NUMI",
		nitfmeta.Graphic:           "NUMS",
		nitfmeta.Text:              "NUMT",
		nitfmeta.DataExtension:     "NUMDES",
		nitfmeta.ReservedExtension: "NUMRES",
	}

	b := nitftest.Sample()
	b.Texts = append(b.Texts, nitftest.Segment{ID: "TEXT2"}, nitftest.Segment{ID: "TEXT3", Data: []byte("3")})
	b.Graphics = nil
	data, _ := b.Build()
	f, _ := decode(c, data)

	for _, kind := range nitfmeta.SegmentKinds() {
		want := 0
		fmt.Sscanf(get(f.Header, countTags[kind]), "%d", &want)
		c.Assert(f.Subheaders(kind), qt.HasLen, want, qt.Commentf("%s", kind))
	}
	c.Assert(get(f.Texts[2], "TEXTID"), qt.Equals, "TEXT3")
}

func TestDecodeNoExtensions(t *testing.T) {
	c := qt.New(t)

	data, _ := nitftest.Builder{}.Build()
	c.Assert(data, qt.HasLen, 388)

	f, warnings := decode(c, data)
	c.Assert(warnings, qt.HasLen, 0)
	c.Assert(get(f.Header, "HL"), qt.Equals, "000388")
	c.Assert(get(f.Header, "UDHDL"), qt.Equals, "00000")
	c.Assert(get(f.Header, "XHDL"), qt.Equals, "00000")
	c.Assert(f.Header.Has("UDHOFL"), qt.IsFalse)
	c.Assert(f.Header.Has("XHOFL"), qt.IsFalse)
	c.Assert(f.Header.Has("FDT"), qt.IsFalse)
	c.Assert(f.Header.Has("FTITLE"), qt.IsFalse)
	c.Assert(f.UserDefinedTREs, qt.HasLen, 0)
	for _, kind := range nitfmeta.SegmentKinds() {
		c.Assert(f.Subheaders(kind), qt.HasLen, 0)
	}
}

func TestDecodeNoBlankValues(t *testing.T) {
	c := qt.New(t)

	data, _ := nitftest.Sample().Build()
	f, _ := decode(c, data)

	all := []*nitfmeta.FieldMap{f.Header}
	for _, kind := range nitfmeta.SegmentKinds() {
		all = append(all, f.Subheaders(kind)...)
	}
	for _, fm := range all {
		c.Assert(fm.Len(), qt.Not(qt.Equals), 0)
		for _, field := range fm.Fields() {
			c.Assert(field.Value, qt.Not(qt.Equals), "", qt.Commentf("%s", field.Tag))
			c.Assert(field.Value, qt.Equals, strings.TrimSpace(field.Value), qt.Commentf("%s", field.Tag))
		}
	}
}

func TestDecodeDeterministic(t *testing.T) {
	c := qt.New(t)

	b := nitftest.Sample()
	for i := 0; i < 20; i++ {
		b.Images = append(b.Images, nitftest.Image{ID: fmt.Sprintf("IMG%d", i), Rows: i, Cols: i})
	}
	data, _ := b.Build()

	var outputs []string
	for _, workers := range []int{1, 3, 16, 1} {
		f, err := nitfmeta.Decode(nitfmeta.Options{Data: data, Workers: workers})
		c.Assert(err, qt.IsNil)
		c.Assert(f.Images, qt.HasLen, 22)
		c.Assert(get(f.Images[21], "IID1"), qt.Equals, "IMG19")
		outputs = append(outputs, f.String())
	}
	for _, s := range outputs[1:] {
		c.Assert(s, qt.Equals, outputs[0], qt.Commentf("%s", cmp.Diff(outputs[0], s)))
	}
}

func TestDecodeTruncated(t *testing.T) {
	c := qt.New(t)

	data, offsets := nitftest.Sample().Build()
	hl := offsets[0]

	for _, test := range []struct {
		name  string
		size  int
		phase nitfmeta.Phase
	}{
		{"Empty", 0, nitfmeta.PhaseFileHeader},
		{"In FDT", 30, nitfmeta.PhaseFileHeader},
		{"Before FL", nitftest.OffsetFL, nitfmeta.PhaseFileHeader},
		{"In length table", nitftest.OffsetNUMI + 5, nitfmeta.PhaseFileHeader},
		{"In extensions", hl - 1, nitfmeta.PhaseHeaderExtensions},
		{"In image subheader", offsets[0] + 50, nitfmeta.PhaseSubheaders},
	} {
		c.Run(test.name, func(c *qt.C) {
			_, err := nitfmeta.Decode(nitfmeta.Options{Data: data[:test.size], Warnf: func(string, ...any) {}})
			c.Assert(err, qt.IsNotNil)
			c.Assert(errors.Is(err, nitfmeta.ErrTruncatedInput), qt.IsTrue, qt.Commentf("%v", err))
			c.Assert(nitfmeta.IsInvalidFormat(err), qt.IsTrue)
			var de *nitfmeta.DecodeError
			c.Assert(errors.As(err, &de), qt.IsTrue)
			c.Assert(de.Phase, qt.Equals, test.phase)
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	c := qt.New(t)

	c.Run("Count", func(c *qt.C) {
		data, _ := nitftest.Builder{}.Build()
		copy(data[nitftest.OffsetNUMI:], "0X1")
		_, err := nitfmeta.Decode(nitfmeta.Options{Data: data})
		c.Assert(errors.Is(err, nitfmeta.ErrMalformedCount), qt.IsTrue)
		var de *nitfmeta.DecodeError
		c.Assert(errors.As(err, &de), qt.IsTrue)
		c.Assert(de.Phase, qt.Equals, nitfmeta.PhaseFileHeader)
		c.Assert(de.Field, qt.Equals, "NUMI")
		c.Assert(de.Offset, qt.Equals, nitftest.OffsetNUMI)
		c.Assert(err, qt.ErrorMatches, `nitfmeta: file header: field NUMI at offset 360: malformed count: "0X1" is not a decimal number`)
	})

	c.Run("TLV length", func(c *qt.C) {
		data, _ := nitftest.Builder{UserDefined: []nitftest.TRE{{Tag: "USRTRE", Value: "abc"}}}.Build()
		// UDHDL(5) UDHOFL(3) tag(6) then the length.
		lengthOffset := nitftest.OffsetNUMI + 18 + 5 + 3 + 6
		c.Assert(string(data[lengthOffset:lengthOffset+5]), qt.Equals, "00003")
		copy(data[lengthOffset:], "00009")
		_, err := nitfmeta.Decode(nitfmeta.Options{Data: data})
		c.Assert(errors.Is(err, nitfmeta.ErrMalformedTLV), qt.IsTrue)
		var de *nitfmeta.DecodeError
		c.Assert(errors.As(err, &de), qt.IsTrue)
		c.Assert(de.Phase, qt.Equals, nitfmeta.PhaseHeaderExtensions)
		c.Assert(err, qt.ErrorMatches, `.*crosses block boundary by 6 bytes`)
	})

	c.Run("Extended length shorter than overflow", func(c *qt.C) {
		data, _ := nitftest.Builder{}.Build()
		copy(data[len(data)-5:], "00002")
		data = append(data, "000"...)
		_, err := nitfmeta.Decode(nitfmeta.Options{Data: data, Warnf: func(string, ...any) {}})
		c.Assert(errors.Is(err, nitfmeta.ErrMalformedTLV), qt.IsTrue)
	})

	c.Run("Second image subheader", func(c *qt.C) {
		data, offsets := nitftest.Sample().Build()
		// NROWS follows IM, IID1, IDATIM, TGTID, IID2, the security group, ENCRYP and ISORCE.
		nrows := offsets[1] + 2 + 10 + 14 + 17 + 80 + 167 + 1 + 42
		c.Assert(string(data[nrows:nrows+8]), qt.Equals, "00000001")
		data[nrows+3] = 'X'
		f, err := nitfmeta.Decode(nitfmeta.Options{Data: data})
		c.Assert(f, qt.IsNil)
		c.Assert(errors.Is(err, nitfmeta.ErrMalformedCount), qt.IsTrue)
		var de *nitfmeta.DecodeError
		c.Assert(errors.As(err, &de), qt.IsTrue)
		c.Assert(de.Phase, qt.Equals, nitfmeta.PhaseSubheaders)
		c.Assert(de.Field, qt.Equals, "NROWS")
		c.Assert(de.Offset, qt.Equals, nrows)
		c.Assert(de.Segment, qt.IsNotNil)
		c.Assert(de.Segment.Kind, qt.Equals, nitfmeta.Image)
		c.Assert(de.Segment.Index, qt.Equals, 2)
		c.Assert(de.Segment.Offset, qt.Equals, offsets[1])
		c.Assert(err, qt.ErrorMatches, `nitfmeta: subheaders: Image segment 2 field NROWS at offset \d+: malformed count: .*`)
	})
}

func TestDecodeWarnings(t *testing.T) {
	c := qt.New(t)

	b := nitftest.Sample()
	b.FileLength = 99
	data, _ := b.Build()
	_, warnings := decode(c, data)
	c.Assert(warnings, qt.DeepEquals, []string{fmt.Sprintf("FL is 99, but the file is %d bytes", len(data))})

	// HL points past the end of the header.
	data, _ = nitftest.Builder{}.Build()
	copy(data[nitftest.OffsetHL:], "000390")
	_, warnings = decode(c, data)
	c.Assert(warnings, qt.DeepEquals, []string{"HL is 390, but the header ends at offset 388"})

	// Duplicate extension tags.
	data, _ = nitftest.Builder{Extended: []nitftest.TRE{{Tag: "DUPTRE", Value: "a"}, {Tag: "DUPTRE", Value: "b"}}}.Build()
	f, warnings := decode(c, data)
	c.Assert(warnings, qt.DeepEquals, []string{"duplicate extension DUPTRE, keeping the last value"})
	c.Assert(get(f.Header, "DUPTRE"), qt.Equals, "b")
	c.Assert(f.ExtendedTREs, qt.HasLen, 2)
}

func TestDecodeHeaderExtensions(t *testing.T) {
	c := qt.New(t)

	b := nitftest.Builder{
		UserDefined: []nitftest.TRE{
			{Tag: "LATIN1", Value: "caf\xe9"},
			{Tag: "BINARY", Value: "\x00\x01\x02"},
		},
		Extended: []nitftest.TRE{{Tag: "NUMT", Value: "002"}},
		Texts:    []nitftest.Segment{{ID: "TEXT1", Data: []byte("text")}},
	}
	data, _ := b.Build()
	f, warnings := decode(c, data)

	c.Assert(warnings, qt.DeepEquals, []string{"extension NUMT has the name of a fixed field, skipped"})
	c.Assert(get(f.Header, "NUMT"), qt.Equals, "001")
	c.Assert(f.Texts, qt.HasLen, 1)
	c.Assert(get(f.Texts[0], "TEXTID"), qt.Equals, "TEXT1")
	c.Assert(get(f.Header, "LATIN1"), qt.Equals, "café")
	c.Assert(get(f.Header, "BINARY"), qt.Equals, "(Binary data 3 bytes)")
	c.Assert(f.ExtendedTREs, qt.HasLen, 1)

	for _, area := range []struct {
		decoded []nitfmeta.TRE
		built   []nitftest.TRE
	}{
		{f.UserDefinedTREs, b.UserDefined},
		{f.ExtendedTREs, b.Extended},
	} {
		encoded, err := nitfmeta.EncodeTREs(area.decoded)
		c.Assert(err, qt.IsNil)
		c.Assert(encoded, qt.DeepEquals, nitftest.EncodeTREs(area.built))
	}
}

func TestDecodeLogger(t *testing.T) {
	c := qt.New(t)

	var (
		mu    sync.Mutex
		lines []string
	)
	logger := funcr.New(func(prefix, args string) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, args)
	}, funcr.Options{Verbosity: 2})

	data, _ := nitftest.Sample().Build()
	_, err := nitfmeta.Decode(nitfmeta.Options{Data: data, Logger: logger})
	c.Assert(err, qt.IsNil)

	all := strings.Join(lines, "\n")
	c.Assert(all, qt.Contains, `"msg"="decoded file header"`)
	c.Assert(all, qt.Contains, `"msg"="resolved segments" "count"=6`)
	c.Assert(strings.Count(all, `"msg"="decoded subheader"`), qt.Equals, 6)

	// Without Warnf, warnings go to the logger.
	lines = nil
	b := nitftest.Sample()
	b.FileLength = 1
	data, _ = b.Build()
	_, err = nitfmeta.Decode(nitfmeta.Options{Data: data, Logger: logger})
	c.Assert(err, qt.IsNil)
	c.Assert(strings.Join(lines, "\n"), qt.Contains, "warning: FL is 1")
}

func TestDecodeNoData(t *testing.T) {
	c := qt.New(t)

	_, err := nitfmeta.Decode(nitfmeta.Options{})
	c.Assert(err, qt.ErrorMatches, "nitfmeta: no data provided")
	c.Assert(nitfmeta.IsInvalidFormat(err), qt.IsFalse)
}

func TestDecodeFile(t *testing.T) {
	c := qt.New(t)

	data, _ := nitftest.Sample().Build()
	filename := filepath.Join(t.TempDir(), "sample.ntf")
	c.Assert(os.WriteFile(filename, data, 0o644), qt.IsNil)

	f, err := nitfmeta.DecodeFile(filename, nitfmeta.Options{})
	c.Assert(err, qt.IsNil)
	want, _ := decode(c, data)
	c.Assert(f.String(), qt.Equals, want.String())

	_, err = nitfmeta.DecodeFile(filepath.Join(t.TempDir(), "missing.ntf"), nitfmeta.Options{})
	c.Assert(errors.Is(err, os.ErrNotExist), qt.IsTrue)
}

func TestPrint(t *testing.T) {
	c := qt.New(t)

	data, _ := nitftest.Builder{
		Texts:  []nitftest.Segment{{ID: "T1"}, {ID: "T2"}},
		Images: []nitftest.Image{{ID: "MISSING"}},
	}.Build()
	f, _ := decode(c, data)

	s := f.String()
	c.Assert(s, qt.Contains, "NITF::FHDR: NITF\n")
	c.Assert(s, qt.Contains, "NITF::IMAGE000::IID1: MISSING\n")
	c.Assert(s, qt.Contains, "NITF::TEXT000::TEXTID: T1\n")
	c.Assert(s, qt.Contains, "NITF::TEXT001::TEXTID: T2\n")
	c.Assert(strings.HasPrefix(s, "NITF::FHDR: NITF\nNITF::FVER: 02.10\n"), qt.IsTrue)
	c.Assert(strings.Index(s, "NITF::IMAGE000::"), qt.Not(qt.Equals), -1)
	c.Assert(strings.Index(s, "NITF::IMAGE000::") < strings.Index(s, "NITF::TEXT000::"), qt.IsTrue)

	var sb strings.Builder
	err := f.Print(&sb, nitfmeta.PrintOptions{
		SortKeys:  true,
		FormatKey: func(s string) string { return "[" + s + "]" },
	})
	c.Assert(err, qt.IsNil)
	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	c.Assert(lines[0], qt.Equals, "[NITF::CLEVEL]: 03")
	c.Assert(lines[len(lines)-1], qt.Equals, "[NITF::TEXT001::TEXTID]: T2")
}

func BenchmarkDecode(b *testing.B) {
	sample := nitftest.Sample()
	for i := 0; i < 50; i++ {
		sample.Images = append(sample.Images, nitftest.Image{ID: fmt.Sprintf("IMG%d", i), Rows: 512, Cols: 512})
	}
	data, _ := sample.Build()

	for _, workers := range []int{1, 4} {
		b.Run(fmt.Sprintf("Workers %d", workers), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_, err := nitfmeta.Decode(nitfmeta.Options{Data: data, Workers: workers})
				if err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func decode(c *qt.C, data []byte) (*nitfmeta.File, []string) {
	c.Helper()
	var (
		mu       sync.Mutex
		warnings []string
	)
	f, err := nitfmeta.Decode(nitfmeta.Options{
		Data: data,
		Warnf: func(format string, args ...any) {
			mu.Lock()
			defer mu.Unlock()
			warnings = append(warnings, fmt.Sprintf(format, args...))
		},
	})
	c.Assert(err, qt.IsNil)
	return f, warnings
}

func get(fm *nitfmeta.FieldMap, tag string) string {
	v, _ := fm.Get(tag)
	return v
}
