// Copyright 2026 The nitfmeta Authors
// SPDX-License-Identifier: MIT

package nitfmeta

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncatedInput is returned when the buffer ends before a field's extent.
	ErrTruncatedInput = errors.New("truncated input")

	// ErrMalformedCount is returned when a decimal count or length field contains non-digits.
	ErrMalformedCount = errors.New("malformed count")

	// ErrMalformedTLV is returned when a TLV block does not add up to its declared length.
	ErrMalformedTLV = errors.New("malformed TLV block")

	// ErrInvalidEncoding is returned when field bytes are not valid text.
	ErrInvalidEncoding = errors.New("invalid encoding")
)

// Phase is the decode phase an error occurred in.
type Phase int

const (
	// PhaseFileHeader is the fixed-field part of the file header.
	PhaseFileHeader Phase = iota + 1
	// PhaseHeaderExtensions is the user-defined and extended header TLV areas.
	PhaseHeaderExtensions
	// PhaseOffsets is the segment offset resolution.
	PhaseOffsets
	// PhaseSubheaders is the per-segment subheader decoding.
	PhaseSubheaders
)

func (p Phase) String() string {
	switch p {
	case PhaseFileHeader:
		return "file header"
	case PhaseHeaderExtensions:
		return "header extensions"
	case PhaseOffsets:
		return "segment offsets"
	case PhaseSubheaders:
		return "subheaders"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// DecodeError describes a failed decode.
// Err is one of the Err* sentinels above, possibly wrapped.
type DecodeError struct {
	Phase Phase
	// Offset is the absolute byte offset of the offending field.
	Offset int
	// Field is the field tag being read, if known.
	Field string
	// Segment is set when the error happened inside a segment subheader.
	Segment *SegmentDescriptor
	Err     error
}

func (e *DecodeError) Error() string {
	var where string
	if e.Segment != nil {
		where = e.Segment.String() + " "
	}
	if e.Field != "" {
		where += "field " + e.Field + " "
	}
	return fmt.Sprintf("nitfmeta: %s: %sat offset %d: %v", e.Phase, where, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsInvalidFormat reports whether err is a decode error caused by malformed input.
func IsInvalidFormat(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

func newDecodeError(kind error, field string, offset int) *DecodeError {
	return &DecodeError{Field: field, Offset: offset, Err: kind}
}

func newDecodeErrorf(kind error, field string, offset int, format string, args ...any) *DecodeError {
	return &DecodeError{Field: field, Offset: offset, Err: fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))}
}

// withPhase stamps phase on err if it is a *DecodeError without one.
// Any other error is wrapped as a decode error at offset -1.
func withPhase(err error, phase Phase) error {
	if err == nil {
		return nil
	}
	var de *DecodeError
	if errors.As(err, &de) {
		if de.Phase == 0 {
			de.Phase = phase
		}
		return de
	}
	return &DecodeError{Phase: phase, Offset: -1, Err: err}
}

func withSegment(err error, seg SegmentDescriptor) error {
	if err == nil {
		return nil
	}
	err = withPhase(err, PhaseSubheaders)
	var de *DecodeError
	if errors.As(err, &de) && de.Segment == nil {
		de.Segment = &seg
	}
	return err
}
