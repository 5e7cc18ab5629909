// Copyright Elliot Nunn. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tar

import (
	"bufio"
	"io"
	"os"
)

// A Writer lays members out one after another, each as a header block
// followed by its padded content, and finishes with the end marker.
type Writer struct {
	w *bufio.Writer
	o *options
	n int64 // bytes written so far
}

// NewWriter returns a Writer appending to w from its current position.
func NewWriter(w io.Writer, opts ...Option) (*Writer, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	return newWriter(w, o, 0), nil
}

// newWriter starts counting header offsets at start.
func newWriter(w io.Writer, o *options, start int64) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, 64*BlockSize), o: o, n: start}
}

// AddFile archives the named file or directory.
// Content is copied up to the size recorded in the header.
func (tw *Writer) AddFile(name string) (*Header, error) {
	blk, hdr, err := EncodeFile(name, tw.o.ids)
	if err != nil {
		return nil, err
	}
	hdr.Offset = tw.n

	var src *os.File
	if !isHeaderOnlyType(hdr.Typeflag) {
		src, err = os.Open(name)
		if err != nil {
			return nil, ErrMetadata.Wrap(err, name)
		}
		defer src.Close()
	}

	if err := tw.write(blk[:]); err != nil {
		return nil, err
	}
	if src != nil {
		if err := tw.copyContent(src, hdr); err != nil {
			return nil, err
		}
	}

	// Header-only members get a content region too, so every member
	// occupies regionSize bytes after its header.
	if err := tw.zeros(padding(hdr.Size)); err != nil {
		return nil, err
	}
	tw.o.log.Debug("memberWritten", "name", hdr.Name, "size", hdr.Size, "offset", hdr.Offset)
	return hdr, nil
}

// copyContent copies exactly hdr.Size bytes, zero filling a short read.
func (tw *Writer) copyContent(src io.Reader, hdr *Header) error {
	copied, err := io.Copy(tw.w, io.LimitReader(src, hdr.Size))
	tw.n += copied
	if err != nil {
		return err
	}
	if copied == hdr.Size && !(tw.o.strict && grew(src)) {
		return nil
	}

	if tw.o.strict {
		if copied == hdr.Size {
			copied++ // at least one byte more than the header says
		}
		return ErrSizeChanged.New(hdr.Name, hdr.Size, copied)
	}
	tw.o.log.Warn("memberShortRead", "name", hdr.Name, "size", hdr.Size, "read", copied)
	return tw.zeros(hdr.Size - copied)
}

// Close writes the end marker and flushes buffered data.
// It does not close the underlying writer.
func (tw *Writer) Close() error {
	if err := tw.zeros(tw.o.endMarkerSize()); err != nil {
		return err
	}
	return tw.w.Flush()
}

func (tw *Writer) write(p []byte) error {
	n, err := tw.w.Write(p)
	tw.n += int64(n)
	return err
}

func (tw *Writer) zeros(n int64) error {
	for n > 0 {
		chunk := min(n, BlockSize)
		if err := tw.write(zeroBlock[:chunk]); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

// grew reports whether r has bytes left after the copy.
func grew(r io.Reader) bool {
	var one [1]byte
	n, _ := r.Read(one[:])
	return n > 0
}

// Create writes a new archive holding members in the order given,
// replacing any file already at the archive path.
// A failure part way through leaves a truncated archive behind.
func Create(archive string, members []string, opts ...Option) error {
	o, err := newOptions(opts)
	if err != nil {
		return err
	}
	f, err := os.Create(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := writeMembers(f, 0, members, o); err != nil {
		return err
	}
	o.log.Info("archiveCreated", "archive", archive, "members", len(members))
	return f.Close()
}

// Append adds members after the last member of an existing archive.
// The end marker is stripped first and rewritten after the new members;
// existing member data is never touched.
func Append(archive string, members []string, opts ...Option) error {
	o, err := newOptions(opts)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(archive, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	end, err := stripEndMarker(f, archive)
	if err != nil {
		return err
	}
	if _, err := f.Seek(end, io.SeekStart); err != nil {
		return err
	}
	if err := writeMembers(f, end, members, o); err != nil {
		return err
	}
	o.log.Info("archiveAppended", "archive", archive, "members", len(members), "offset", end)
	return f.Close()
}

func writeMembers(f *os.File, start int64, members []string, o *options) error {
	self, err := f.Stat()
	if err != nil {
		return err
	}
	tw := newWriter(f, o, start)
	for _, name := range members {
		if fi, err := os.Stat(name); err == nil && os.SameFile(fi, self) {
			o.log.Warn("memberIsArchive", "name", name)
			continue
		}
		if _, err := tw.AddFile(name); err != nil {
			tw.w.Flush()
			return err
		}
	}
	return tw.Close()
}

// stripEndMarker finds the end of the last member by scanning, checks that
// only zero blocks follow it, truncates them away and returns the new length.
// The marker may be any number of blocks, whatever the archive was written with.
func stripEndMarker(f *os.File, archive string) (int64, error) {
	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	size := st.Size()
	if size%BlockSize != 0 {
		return 0, ErrMalformedArchive.New(archive, "not a whole number of blocks")
	}

	var end int64
	for hdr, err := range Scan(f) {
		if err != nil {
			return 0, ErrMalformedArchive.Wrap(err, archive, "unreadable member")
		}
		end = hdr.dataOffset() + regionSize(hdr.Size)
	}
	switch {
	case end > size:
		return 0, ErrMalformedArchive.New(archive, "last member is truncated")
	case size-end < BlockSize:
		return 0, ErrMalformedArchive.New(archive, "does not end with an end marker")
	}

	var blk Block
	for off := end; off < size; off += BlockSize {
		if _, err := f.ReadAt(blk[:], off); err != nil {
			return 0, err
		}
		if blk != zeroBlock {
			return 0, ErrMalformedArchive.New(archive, "data after the end marker")
		}
	}

	if err := f.Truncate(end); err != nil {
		return 0, err
	}
	return end, nil
}
