// Copyright Elliot Nunn. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tar

import (
	"io/fs"
	"time"
)

type entryKind uint8

const (
	kindOther entryKind = iota
	kindRegular
	kindDir
	kindChar
	kindBlock
)

func (k entryKind) String() string {
	switch k {
	case kindRegular:
		return "regular"
	case kindDir:
		return "directory"
	case kindChar:
		return "char device"
	case kindBlock:
		return "block device"
	default:
		return "other"
	}
}

// entryStat is the subset of stat(2) that a header records.
type entryStat struct {
	kind     entryKind
	perm     int64 // permission, setuid, setgid and sticky bits
	uid, gid int
	size     int64
	mtime    time.Time

	devmajor, devminor int64
}

func kindOf(m fs.FileMode) entryKind {
	switch {
	case m.IsRegular():
		return kindRegular
	case m.IsDir():
		return kindDir
	case m&fs.ModeCharDevice != 0:
		return kindChar
	case m&fs.ModeDevice != 0:
		return kindBlock
	default:
		return kindOther
	}
}

// splitDev derives device numbers from a packed device id:
// major is bits 8-19, minor is bits 0-7 joined with bits 20-31.
func splitDev(dev uint64) (major, minor int64) {
	major = int64((dev >> 8) & 0xfff)
	minor = int64((dev & 0xff) | ((dev >> 12) & 0xfff00))
	return major, minor
}
