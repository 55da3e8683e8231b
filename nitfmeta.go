// Copyright 2026 The nitfmeta Authors
// SPDX-License-Identifier: MIT

// Package nitfmeta decodes the metadata headers of NITF
// (National Imagery Transmission Format) files.
package nitfmeta

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/go-logr/logr"
)

// File is a decoded NITF file.
type File struct {
	// Header holds the file header fields, including the fields of the
	// user-defined and extended header TREs keyed by their tag.
	Header *FieldMap

	Images             []*FieldMap
	Graphics           []*FieldMap
	Texts              []*FieldMap
	DataExtensions     []*FieldMap
	ReservedExtensions []*FieldMap

	// UserDefinedTREs and ExtendedTREs are the header extensions in file order.
	// Unlike Header, these preserve repeated tags.
	UserDefinedTREs []TRE
	ExtendedTREs    []TRE
}

// Subheaders returns the subheaders of the given kind.
func (f *File) Subheaders(kind SegmentKind) []*FieldMap {
	switch kind {
	case Image:
		return f.Images
	case Graphic:
		return f.Graphics
	case Text:
		return f.Texts
	case DataExtension:
		return f.DataExtensions
	case ReservedExtension:
		return f.ReservedExtensions
	default:
		return nil
	}
}

// Options contains the options for the Decode function.
type Options struct {
	// Data is the complete NITF file.
	// It is never modified, and it must not be modified during Decode.
	Data []byte

	// Workers is the maximum number of subheaders decoded in parallel.
	// Default value is runtime.GOMAXPROCS(0).
	Workers int

	// Warnf will be called for each warning, e.g. a header length that
	// does not match the decoded header.
	// It may be called from multiple goroutines.
	// If not set, warnings are logged to Logger.
	Warnf func(string, ...any)

	// Logger receives debug output. V(1) logs the decode phases,
	// V(2) every subheader.
	// If not set, nothing is logged.
	Logger logr.Logger
}

// Decode decodes the file header and all segment subheaders in opts.Data.
// Errors caused by malformed input are of type *DecodeError.
func Decode(opts Options) (f *File, err error) {
	defer func() {
		if err2 := errFromRecover(recover()); err2 != nil && err == nil {
			f, err = nil, err2
		}
	}()

	if opts.Data == nil {
		return nil, errors.New("nitfmeta: no data provided")
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Logger.GetSink() == nil {
		opts.Logger = logr.Discard()
	}
	if opts.Warnf == nil {
		logger := opts.Logger
		opts.Warnf = func(format string, args ...any) {
			logger.Info("warning: " + fmt.Sprintf(format, args...))
		}
	}

	log := opts.Logger.V(1)

	d := newHeaderDecoder(opts.Data, opts.Warnf)
	if err := d.decodeFixed(); err != nil {
		return nil, withPhase(err, PhaseFileHeader)
	}
	log.Info("decoded file header", "fields", d.header.Len(), "offset", d.pos)

	if fl, found := d.header.Get("FL"); found {
		if n, ok := parseDecimalString(fl); ok && n != len(opts.Data) {
			opts.Warnf("FL is %d, but the file is %d bytes", n, len(opts.Data))
		}
	}

	if err := d.decodeExtensions(); err != nil {
		return nil, withPhase(err, PhaseHeaderExtensions)
	}
	log.Info("decoded header extensions", "userDefined", len(d.userDefined), "extended", len(d.extended))

	segs, err := ResolveSegments(d.header)
	if err != nil {
		return nil, withPhase(err, PhaseOffsets)
	}
	log.Info("resolved segments", "count", len(segs))

	grouped, err := decodeSubheaders(opts.Data, segs, opts)
	if err != nil {
		return nil, withPhase(err, PhaseSubheaders)
	}

	f = &File{
		Header:             d.header,
		Images:             grouped[Image],
		Graphics:           grouped[Graphic],
		Texts:              grouped[Text],
		DataExtensions:     grouped[DataExtension],
		ReservedExtensions: grouped[ReservedExtension],
		UserDefinedTREs:    d.userDefined,
		ExtendedTREs:       d.extended,
	}

	return f, nil
}

// DecodeFile reads the named file and decodes it.
// opts.Data is ignored.
func DecodeFile(filename string, opts Options) (*File, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	opts.Data = b
	return Decode(opts)
}

func errFromRecover(r any) error {
	if r == nil {
		return nil
	}
	if err, ok := r.(error); ok {
		return fmt.Errorf("nitfmeta: internal error: %w", err)
	}
	return fmt.Errorf("nitfmeta: internal error: %v", r)
}
