// Copyright Elliot Nunn. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !unix

package tar

import "os"

// statEntry falls back on os.Stat: owner ids are zero and there are no device numbers.
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
	return es, nil
}
