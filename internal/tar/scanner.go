// Copyright Elliot Nunn. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tar

import (
	"fmt"
	"io"
	"iter"
	"os"
)

// Scan walks the archive in r from the start, yielding each member header
// in archive order without reading content. Every header carries its Offset.
//
// The walk stops at the first zero block, or quietly at EOF if the archive
// was truncated on a block boundary. An archive shorter than one block holds
// no members. Each call of the returned sequence starts over.
func Scan(r io.ReaderAt) iter.Seq2[*Header, error] {
	return func(yield func(*Header, error) bool) {
		var blk Block
		off := int64(0)
		for {
			n, err := r.ReadAt(blk[:], off)
			if n < BlockSize {
				switch {
				case err != io.EOF && err != nil:
					yield(nil, err)
				case n > 0 && off > 0:
					yield(nil, ErrMalformedArchive.New(archiveName(r), fmt.Sprintf("partial block at offset %d", off)))
				}
				return
			}
			if blk == zeroBlock {
				return
			}

			hdr, err := Decode(&blk)
			if err != nil {
				yield(nil, err)
				return
			}
			hdr.Offset = off
			if isHeaderOnlyType(hdr.Typeflag) {
				hdr.Size = 0
			}
			if !yield(hdr, nil) {
				return
			}
			off = hdr.dataOffset() + regionSize(hdr.Size)
		}
	}
}

// List returns the headers of the members in an archive file, in archive order,
// keeping only those selected by WithMatch.
func List(archive string, opts ...Option) ([]*Header, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(archive)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var list []*Header
	for hdr, err := range Scan(f) {
		if err != nil {
			return nil, err
		}
		if o.matches(hdr.Name) {
			list = append(list, hdr)
		}
	}
	return list, nil
}

func archiveName(r io.ReaderAt) string {
	if f, ok := r.(interface{ Name() string }); ok {
		return f.Name()
	}
	return fmt.Sprintf("%T", r)
}
