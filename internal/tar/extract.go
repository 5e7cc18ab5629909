// Copyright Elliot Nunn. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tar

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Extract recreates the members of an archive beneath the WithDir root,
// in archive order, so the last of several members with one name wins.
// WithMatch restricts which members are written.
func Extract(archive string, opts ...Option) error {
	o, err := newOptions(opts)
	if err != nil {
		return err
	}
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	// Directory modes are applied last, so a read-only directory
	// can still receive the members stored after it.
	var dirs []dirMode
	n := 0
	for hdr, err := range Scan(f) {
		if err != nil {
			return err
		}
		if !o.matches(hdr.Name) {
			continue
		}
		if err := restore(f, hdr, o, &dirs); err != nil {
			return err
		}
		n++
	}
	for i := len(dirs) - 1; i >= 0; i-- {
		if err := setDirMode(dirs[i].path, dirs[i].hdr); err != nil {
			return err
		}
	}
	o.log.Info("archiveExtracted", "archive", archive, "members", n, "dir", o.dir)
	return nil
}

// ExtractMember recreates the single member described by hdr, whose Offset
// locates it in r.
func ExtractMember(r io.ReaderAt, hdr *Header, opts ...Option) error {
	o, err := newOptions(opts)
	if err != nil {
		return err
	}
	return restore(r, hdr, o, nil)
}

// restore writes one member. Directory modes are queued on dirs when it is
// non-nil and applied at once otherwise.
func restore(r io.ReaderAt, hdr *Header, o *options, dirs *[]dirMode) error {
	dest, err := destPath(o.dir, hdr.Name)
	if err != nil {
		return err
	}
	perm := fs.FileMode(hdr.Mode).Perm()

	switch hdr.Typeflag {
	case TypeDir:
		if err := os.MkdirAll(dest, 0o700); err != nil {
			return ErrExtractionIO.Wrap(err, hdr.Name)
		}
		if dirs != nil {
			*dirs = append(*dirs, dirMode{dest, hdr})
			return nil
		}
		return setDirMode(dest, hdr)
	case TypeReg:
	default:
		o.log.Warn("memberSkipped", "name", hdr.Name, "type", string(hdr.Typeflag))
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return ErrExtractionIO.Wrap(err, hdr.Name)
	}
	w, err := os.Create(dest)
	if os.IsPermission(err) {
		// An earlier member of the same name may have left a read-only file
		os.Remove(dest)
		w, err = os.Create(dest)
	}
	if err != nil {
		return ErrExtractionIO.Wrap(err, hdr.Name)
	}
	defer w.Close()

	n, err := io.Copy(w, io.NewSectionReader(r, hdr.dataOffset(), hdr.Size))
	if err != nil {
		return ErrExtractionIO.Wrap(err, hdr.Name)
	}
	if n != hdr.Size {
		return ErrMalformedArchive.New(archiveName(r), "content of "+hdr.Name+" is truncated")
	}
	if err := w.Close(); err != nil {
		return ErrExtractionIO.Wrap(err, hdr.Name)
	}

	if err := os.Chmod(dest, perm); err != nil {
		return ErrExtractionIO.Wrap(err, hdr.Name)
	}
	if err := os.Chtimes(dest, hdr.ModTime, hdr.ModTime); err != nil {
		return ErrExtractionIO.Wrap(err, hdr.Name)
	}
	o.log.Debug("memberExtracted", "name", hdr.Name, "size", hdr.Size)
	return nil
}

type dirMode struct {
	path string
	hdr  *Header
}

func setDirMode(dest string, hdr *Header) error {
	if err := os.Chmod(dest, fs.FileMode(hdr.Mode).Perm()); err != nil {
		return ErrExtractionIO.Wrap(err, hdr.Name)
	}
	if err := os.Chtimes(dest, hdr.ModTime, hdr.ModTime); err != nil {
		return ErrExtractionIO.Wrap(err, hdr.Name)
	}
	return nil
}

// destPath joins a member name onto the extraction root, refusing names that
// climb out of it. Leading slashes are dropped, so absolute names land
// relative to the root.
func destPath(root, name string) (string, error) {
	local := filepath.FromSlash(strings.Trim(name, "/"))
	if !filepath.IsLocal(local) {
		return "", ErrInsecurePath.New(name)
	}
	return filepath.Join(root, local), nil
}
