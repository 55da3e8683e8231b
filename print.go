package nitfmeta

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// PrintOptions controls how a File is printed.
type PrintOptions struct {
	// SortKeys prints the fields of each section in lexical order
	// instead of file order.
	SortKeys bool

	// FormatKey, if set, is applied to every printed key, e.g. to add colors.
	FormatKey func(string) string
}

// Print writes one line per field to w, e.g.
//
//	NITF::FHDR: NITF
//	NITF::IMAGE000::IID1: MISSING
//
// Segment indices are 0-based.
func (f *File) Print(w io.Writer, opts PrintOptions) error {
	if opts.FormatKey == nil {
		opts.FormatKey = func(s string) string { return s }
	}
	bw := bufio.NewWriter(w)

	printSection := func(prefix string, fm *FieldMap) {
		keys := fm.Keys()
		if opts.SortKeys {
			keys = fm.SortedKeys()
		}
		for _, k := range keys {
			v, _ := fm.Get(k)
			fmt.Fprintf(bw, "%s: %s\n", opts.FormatKey(prefix+k), v)
		}
	}

	printSection("NITF::", f.Header)
	for _, kind := range SegmentKinds() {
		for i, fm := range f.Subheaders(kind) {
			printSection(fmt.Sprintf("NITF::%s%03d::", segmentLayouts[kind].section, i), fm)
		}
	}

	return bw.Flush()
}

// String returns all fields in file order, one per line.
func (f *File) String() string {
	var sb strings.Builder
	_ = f.Print(&sb, PrintOptions{})
	return sb.String()
}
