// Copyright Elliot Nunn. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tar

import (
	"os"
	"path/filepath"
	"strings"
)

// Update appends fresh copies of members that the archive already holds.
// Every name must match an existing member exactly; otherwise nothing is
// written and ErrMembership is returned. The old copies stay in place and
// are superseded on extraction.
func Update(archive string, members []string, opts ...Option) error {
	o, err := newOptions(opts)
	if err != nil {
		return err
	}
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	have := make(map[string]bool)
	for hdr, err := range Scan(f) {
		if err != nil {
			f.Close()
			return err
		}
		have[hdr.Name] = true
	}
	f.Close()

	var missing []string
	for _, name := range members {
		if !have[filepath.ToSlash(name)] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return ErrMembership.New(strings.Join(missing, ", "), archive)
	}

	o.log.Debug("updateMembersFound", "archive", archive, "members", len(members))
	return Append(archive, members, opts...)
}
