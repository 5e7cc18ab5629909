// Copyright Elliot Nunn. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tar

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLayoutOffsets(t *testing.T) {
	expect := map[string]int{
		"name": 0, "mode": 100, "uid": 108, "gid": 116, "size": 124, "mtime": 136,
		"chksum": 148, "typeflag": 156, "linkname": 157, "magic": 257, "version": 263,
		"uname": 265, "gname": 297, "devmajor": 329, "devminor": 337, "prefix": 345, "padding": 500,
	}
	for _, f := range layout {
		if f.off != expect[f.name] {
			t.Errorf("field %s at offset %d, expected %d", f.name, f.off, expect[f.name])
		}
	}
	require.Equal(t, "chksum", layout[fieldChksum].name)
	require.Equal(t, "magic", layout[fieldMagic].name)
}

func TestPadding(t *testing.T) {
	cases := []struct{ size, pad int64 }{
		{0, 512},
		{1, 511},
		{5, 507},
		{511, 1},
		{512, 512},
		{513, 511},
		{1024, 512},
	}
	for _, c := range cases {
		if got := padding(c.size); got != c.pad {
			t.Errorf("padding(%d) = %d, expected %d", c.size, got, c.pad)
		}
		if got := regionSize(c.size); got%BlockSize != 0 || got < c.size {
			t.Errorf("regionSize(%d) = %d is not a block multiple covering the content", c.size, got)
		}
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	require := require.New(t)
	t.Chdir(t.TempDir())
	require.NoError(os.WriteFile("hello.txt", []byte("hello, world\n"), 0o640))
	require.NoError(os.Chmod("hello.txt", 0o640))
	mtime := time.Unix(1700000000, 0)
	require.NoError(os.Chtimes("hello.txt", mtime, mtime))

	blk, hdr, err := EncodeFile("hello.txt", NumericIdentity())
	require.NoError(err)
	require.Equal(byte(TypeReg), hdr.Typeflag)

	got, err := Decode(blk)
	require.NoError(err)
	require.Equal("hello.txt", got.Name)
	require.Equal(int64(13), got.Size)
	require.Equal(int64(0o640), got.Mode)
	require.True(got.ModTime.Equal(mtime))
	require.Equal(hdr.Uid, got.Uid)
	require.Equal(hdr.Gid, got.Gid)
	require.Equal(hdr.Uname, got.Uname)

	require.Equal("ustar\x00", string(blk[257:263]))
	require.Equal("00", string(blk[263:265]))
	require.Equal(byte(0), blk[154], "checksum is followed by NUL")
	require.Equal(byte(' '), blk[155], "checksum ends with a space")
}

func TestDirectoryHeader(t *testing.T) {
	require := require.New(t)
	t.Chdir(t.TempDir())
	require.NoError(os.Mkdir("sub", 0o755))

	hdr, err := FileHeader("sub", NumericIdentity())
	require.NoError(err)
	require.Equal(byte(TypeDir), hdr.Typeflag)
	require.Zero(hdr.Size)
	require.True(hdr.FileInfo().IsDir())
}

func TestFileHeaderMissing(t *testing.T) {
	_, err := FileHeader(filepath.Join(t.TempDir(), "nothing"), NumericIdentity())
	require.True(t, ErrMetadata.Is(err), "got %v", err)
}

func TestLongNameSplit(t *testing.T) {
	require := require.New(t)
	dir := strings.Repeat("d", 80) + "/" + strings.Repeat("e", 60)
	name := dir + "/" + strings.Repeat("f", 90)

	blk, err := (&Header{Typeflag: TypeReg, Name: name, Mode: 0o644}).Encode()
	require.NoError(err)
	require.Equal(dir, strings.TrimRight(string(blk[345:500]), "\x00"))

	got, err := Decode(blk)
	require.NoError(err)
	require.Equal(name, got.Name)
}

func TestEncodeOverflow(t *testing.T) {
	cases := []*Header{
		{Typeflag: TypeReg, Name: "big", Size: 1 << 33},
		{Typeflag: TypeReg, Name: "old", ModTime: time.Unix(-1, 0)},
		{Typeflag: TypeReg, Name: strings.Repeat("x", 101)},
		{Typeflag: TypeReg, Name: "u", Uname: strings.Repeat("u", 33)},
		{Typeflag: TypeReg, Name: "id", Uid: 1 << 21},
	}
	for _, h := range cases {
		_, err := h.Encode()
		if !ErrEncoding.Is(err) {
			t.Errorf("encoding %+v: expected an encoding error, got %v", h, err)
		}
	}
}

func TestChecksumDetectsFlippedBytes(t *testing.T) {
	blk, err := (&Header{
		Typeflag: TypeReg,
		Name:     "flip.txt",
		Size:     42,
		Mode:     0o600,
		Uname:    "someone",
		Gname:    "staff",
		ModTime:  time.Unix(1234567890, 0),
	}).Encode()
	require.NoError(t, err)
	_, err = Decode(blk)
	require.NoError(t, err)

	chk := layout[fieldChksum]
	for i := range BlockSize {
		if i >= chk.off && i < chk.off+chk.size {
			continue
		}
		for _, mask := range []byte{0x01, 0x80, 0xff} {
			bad := *blk
			bad[i] ^= mask
			if _, err := Decode(&bad); !ErrCorruptHeader.Is(err) {
				t.Fatalf("byte %d ^ %#02x: expected corrupt header, got %v", i, mask, err)
			}
		}
	}
}

func TestDecodeRejectsNonUSTAR(t *testing.T) {
	blk, err := (&Header{Typeflag: TypeReg, Name: "v7"}).Encode()
	require.NoError(t, err)

	copy(blk.field(fieldMagic), "\x00\x00\x00\x00\x00\x00")
	var f formatter
	f.formatChecksum(blk.field(fieldChksum), blk.checksum())
	require.NoError(t, f.err)

	_, err = Decode(blk)
	require.True(t, ErrCorruptHeader.Is(err), "got %v", err)
}

func TestDecodeGNUMagic(t *testing.T) {
	require := require.New(t)
	blk, err := (&Header{Typeflag: TypeReg, Name: "gnu.txt", Size: 3, Mode: 0o644}).Encode()
	require.NoError(err)

	copy(blk.field(fieldMagic), magicGNU)
	copy(blk.field(fieldVersion), versionGNU)
	copy(blk[345:357], "14707362132\x00") // GNU atime in the prefix area
	var f formatter
	f.formatChecksum(blk.field(fieldChksum), blk.checksum())
	require.NoError(f.err)

	hdr, err := Decode(blk)
	require.NoError(err)
	require.Equal("gnu.txt", hdr.Name)
	require.Equal(int64(3), hdr.Size)
	require.Equal(TypeReg, hdr.Typeflag)
}

func TestDecodeLegacyRegular(t *testing.T) {
	require := require.New(t)
	for name, expect := range map[string]byte{"file": TypeReg, "dir/": TypeDir} {
		blk, err := (&Header{Typeflag: TypeRegA, Name: name}).Encode()
		require.NoError(err)
		got, err := Decode(blk)
		require.NoError(err)
		require.Equal(expect, got.Typeflag, name)
	}
}

func TestSplitDev(t *testing.T) {
	cases := []struct {
		dev          uint64
		major, minor int64
	}{
		{0x0000_0801, 8, 1},      // sda1
		{0x0000_0103, 1, 3},      // /dev/null
		{0x0880_0103, 1, 0x8803}, // minor spills into bits 20-31
		{0x000f_ff00, 0xfff, 0},
	}
	for _, c := range cases {
		major, minor := splitDev(c.dev)
		if major != c.major || minor != c.minor {
			t.Errorf("splitDev(%#x) = (%d, %d), expected (%d, %d)", c.dev, major, minor, c.major, c.minor)
		}
	}
}
