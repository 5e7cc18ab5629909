// Copyright Elliot Nunn. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package tar

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"
)

func statEntry(name string) (entryStat, error) {
	var st unix.Stat_t
	if err := unix.Stat(name, &st); err != nil {
		return entryStat{}, &fs.PathError{Op: "stat", Path: name, Err: err}
	}

	es := entryStat{
		perm:  int64(st.Mode & 07777),
		uid:   int(st.Uid),
		gid:   int(st.Gid),
		size:  st.Size,
		mtime: time.Unix(st.Mtim.Unix()),
	}
	switch st.Mode & unix.S_IFMT {
	case unix.S_IFREG:
		es.kind = kindRegular
	case unix.S_IFDIR:
		es.kind = kindDir
		es.size = 0
	case unix.S_IFCHR, unix.S_IFBLK:
		es.kind = kindBlock
		if st.Mode&unix.S_IFMT == unix.S_IFCHR {
			es.kind = kindChar
		}
		es.size = 0
		es.devmajor = int64(unix.Major(uint64(st.Rdev)))
		es.devminor = int64(unix.Minor(uint64(st.Rdev)))
	}
	return es, nil
}
