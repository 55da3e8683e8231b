// Copyright 2026 The nitfmeta Authors
// SPDX-License-Identifier: MIT

package nitfmeta

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// parallelMap calls fn for every item using at most workers goroutines
// and returns the results in the order of items.
// The first error stops any work not yet started and is returned.
func parallelMap[T, R any](workers int, items []T, fn func(T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results, nil
	}

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(max(workers, 1))

	for i, item := range items {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() (err error) {
			if ctx.Err() != nil {
				return nil
			}
			defer func() {
				if err2 := errFromRecover(recover()); err2 != nil {
					err = err2
				}
			}()
			r, err := fn(item)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// decodeSubheaders decodes all segments concurrently and groups the
// results by kind, each group in ascending index order.
func decodeSubheaders(buf []byte, segs []SegmentDescriptor, opts Options) ([numSegmentKinds][]*FieldMap, error) {
	var grouped [numSegmentKinds][]*FieldMap

	fms, err := parallelMap(opts.Workers, segs, func(seg SegmentDescriptor) (*FieldMap, error) {
		fm, n, err := subheaderDecoders[seg.Kind](buf, seg.Offset, opts.Warnf)
		if err != nil {
			return nil, withSegment(err, seg)
		}
		switch {
		case n > seg.SubheaderLength:
			opts.Warnf("%s: subheader decoded %d bytes, but its length is %d", seg, n, seg.SubheaderLength)
		case seg.Kind == Image && n != seg.SubheaderLength:
			opts.Warnf("%s: subheader decoded %d bytes, but its length is %d", seg, n, seg.SubheaderLength)
		}
		opts.Logger.V(2).Info("decoded subheader", "segment", seg.String(), "offset", seg.Offset, "fields", fm.Len())
		return fm, nil
	})
	if err != nil {
		return grouped, err
	}

	for i, seg := range segs {
		grouped[seg.Kind] = append(grouped[seg.Kind], fms[i])
	}
	return grouped, nil
}
