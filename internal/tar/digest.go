// Copyright Elliot Nunn. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tar

import (
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// A Digest is the xxhash64 of one member's content.
type Digest struct {
	*Header
	Sum uint64
}

// Sum hashes the content of every member selected by WithMatch, in archive order.
// Header-only members hash as empty content.
func Sum(archive string, opts ...Option) ([]Digest, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(archive)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var list []Digest
	for hdr, err := range Scan(f) {
		if err != nil {
			return nil, err
		}
		if !o.matches(hdr.Name) {
			continue
		}
		sum, err := SumMember(f, hdr)
		if err != nil {
			return nil, err
		}
		list = append(list, Digest{Header: hdr, Sum: sum})
	}
	return list, nil
}

// SumMember hashes the content of the member described by hdr, whose Offset locates it in r.
func SumMember(r io.ReaderAt, hdr *Header) (uint64, error) {
	var h xxhash.Digest
	h.Reset()
	n, err := io.Copy(&h, io.NewSectionReader(r, hdr.dataOffset(), hdr.Size))
	if err != nil {
		return 0, err
	}
	if n != hdr.Size {
		return 0, ErrMalformedArchive.New(archiveName(r), "content of "+hdr.Name+" is truncated")
	}
	return h.Sum64(), nil
}
