// Copyright Elliot Nunn. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tar reads and writes ustar archives of regular files.
//
// The archive is a flat run of 512-byte blocks: a header block per member,
// the member's content padded out to a block boundary, then zero blocks
// marking the end. Members are written, listed and extracted strictly in
// archive order, and every operation works on the whole archive.
package tar

import (
	"io/fs"
	"path"
	"time"

	"gopkg.in/src-d/go-errors.v1"
)

var (
	// ErrMetadata is returned when a source entry cannot be stat-ed or has an unsupported type.
	ErrMetadata = errors.NewKind("tar: cannot read metadata of %s")

	// ErrIdentityLookup is returned when a numeric owner or group has no name.
	ErrIdentityLookup = errors.NewKind("tar: cannot resolve %s id %d")

	// ErrEncoding is returned when a header field does not fit its width.
	ErrEncoding = errors.NewKind("tar: cannot encode %s: %s field overflows")

	// ErrCorruptHeader is returned when a header block fails its checksum or is not ustar.
	ErrCorruptHeader = errors.NewKind("tar: corrupt header: %s")

	// ErrMalformedArchive is returned when an archive is shorter than an operation requires
	// or does not end on a block boundary.
	ErrMalformedArchive = errors.NewKind("tar: malformed archive %s: %s")

	// ErrMembership is returned by Update when a requested path is not already archived.
	ErrMembership = errors.NewKind("tar: %s not found in %s")

	// ErrExtractionIO is returned when an extracted file cannot be created or written.
	ErrExtractionIO = errors.NewKind("tar: cannot extract %s")

	// ErrInsecurePath is returned when a member name would land outside the extraction root.
	ErrInsecurePath = errors.NewKind("tar: insecure member path %q")

	// ErrSizeChanged is returned in strict mode when a source file changed size while being archived.
	ErrSizeChanged = errors.NewKind("tar: %s changed size: header says %d, read %d")

	// ErrBadPattern is returned for a member pattern that doublestar cannot parse.
	ErrBadPattern = errors.NewKind("tar: bad member pattern %q")
)

// Type flags for Header.Typeflag.
const (
	// Type '0' indicates a regular file.
	TypeReg = '0'

	// Deprecated: pre-POSIX archives use NUL for regular files.
	TypeRegA = '\x00'

	// Header-only types. Their size is always zero.
	TypeChar  = '3' // Character device node
	TypeBlock = '4' // Block device node
	TypeDir   = '5' // Directory
)

// A Header describes one archive member.
type Header struct {
	Typeflag byte

	Name     string // Name of file entry, prefix and name fields joined
	Linkname string // Never set by this package, kept for decoding

	Size  int64  // Logical file size in bytes
	Mode  int64  // Permission and mode bits
	Uid   int    // User ID of owner
	Gid   int    // Group ID of owner
	Uname string // User name of owner
	Gname string // Group name of owner

	ModTime time.Time // Modification time, whole seconds

	Devmajor int64 // Major device number (valid for TypeChar or TypeBlock)
	Devminor int64 // Minor device number (valid for TypeChar or TypeBlock)

	// Offset is the position of the header block within the archive.
	// Only populated when scanning.
	Offset int64
}

// FileInfo returns an fs.FileInfo for the Header.
func (h *Header) FileInfo() fs.FileInfo {
	return headerFileInfo{h}
}

// dataOffset is the position of the member's first content byte.
func (h *Header) dataOffset() int64 {
	return h.Offset + BlockSize
}

// headerFileInfo implements fs.FileInfo.
type headerFileInfo struct {
	h *Header
}

func (fi headerFileInfo) Size() int64        { return fi.h.Size }
func (fi headerFileInfo) IsDir() bool        { return fi.Mode().IsDir() }
func (fi headerFileInfo) ModTime() time.Time { return fi.h.ModTime }
func (fi headerFileInfo) Sys() any           { return fi.h }

// Name returns the base name of the file.
func (fi headerFileInfo) Name() string {
	if fi.IsDir() {
		return path.Base(path.Clean(fi.h.Name))
	}
	return path.Base(fi.h.Name)
}

// Mode returns the permission and mode bits for the headerFileInfo.
func (fi headerFileInfo) Mode() (mode fs.FileMode) {
	mode = fs.FileMode(fi.h.Mode).Perm()

	if fi.h.Mode&c_ISUID != 0 {
		mode |= fs.ModeSetuid
	}
	if fi.h.Mode&c_ISGID != 0 {
		mode |= fs.ModeSetgid
	}
	if fi.h.Mode&c_ISVTX != 0 {
		mode |= fs.ModeSticky
	}

	switch fi.h.Typeflag {
	case TypeChar:
		mode |= fs.ModeDevice
		mode |= fs.ModeCharDevice
	case TypeBlock:
		mode |= fs.ModeDevice
	case TypeDir:
		mode |= fs.ModeDir
	}

	return mode
}

func (fi headerFileInfo) String() string {
	return fs.FormatFileInfo(fi)
}

const (
	// Mode constants from the USTAR spec:
	// See http://pubs.opengroup.org/onlinepubs/9699919799/utilities/pax.html#tag_20_92_13_06
	c_ISUID = 04000 // Set uid
	c_ISGID = 02000 // Set gid
	c_ISVTX = 01000 // Save text (sticky bit)
)

// isHeaderOnlyType checks if the given type flag is of the type that has no
// data section even if a size is specified.
func isHeaderOnlyType(flag byte) bool {
	switch flag {
	case TypeChar, TypeBlock, TypeDir:
		return true
	default:
		return false
	}
}
