// Copyright Elliot Nunn. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package tar

import (
	"testing"

	"golang.org/x/sys/unix"
)

// Below 32 bits the masks agree with the kernel's own encoding.
func TestSplitDevMatchesKernel(t *testing.T) {
	for _, dev := range []uint64{0, 0x0801, 0x0103, 0x0880_0103, 0xffff_ffff, 0x1234_5678} {
		major, minor := splitDev(dev)
		if major != int64(unix.Major(dev)) || minor != int64(unix.Minor(dev)) {
			t.Errorf("splitDev(%#x) = (%d, %d), unix says (%d, %d)", dev, major, minor, unix.Major(dev), unix.Minor(dev))
		}
	}
}

func TestFileHeaderCharDevice(t *testing.T) {
	hdr, err := FileHeader("/dev/null", NumericIdentity())
	if err != nil {
		t.Skipf("no /dev/null: %v", err)
	}
	if hdr.Typeflag != TypeChar || hdr.Size != 0 {
		t.Errorf("expected an empty char device header, got %+v", hdr)
	}
	if hdr.Devmajor != 1 || hdr.Devminor != 3 {
		t.Errorf("expected /dev/null to be 1,3, got %d,%d", hdr.Devmajor, hdr.Devminor)
	}
}
