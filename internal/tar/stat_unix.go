// Copyright Elliot Nunn. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build unix && !linux

package tar

import (
	"os"
	"syscall"
)

func statEntry(name string) (entryStat, error) {
	fi, err := os.Stat(name)
	if err != nil {
		return entryStat{}, err
	}

	es := entryStat{
		kind:  kindOf(fi.Mode()),
		perm:  int64(fi.Mode().Perm()),
		mtime: fi.ModTime(),
	}
	if es.kind == kindRegular {
		es.size = fi.Size()
	}
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		es.uid, es.gid = int(st.Uid), int(st.Gid)
		es.perm = int64(st.Mode & 07777)
		if es.kind == kindChar || es.kind == kindBlock {
			es.devmajor, es.devminor = splitDev(uint64(st.Rdev))
		}
	}
	return es, nil
}
