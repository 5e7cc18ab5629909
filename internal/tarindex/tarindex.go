// Copyright Elliot Nunn. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tarindex keeps a pebble database of where each member of an
// archive lives, so single members can be fetched without a scan.
package tarindex

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cockroachdb/pebble/v2"
	"github.com/elliotnunn/minitar/internal/tar"
	"gopkg.in/src-d/go-errors.v1"
)

var (
	// ErrNotIndexed is returned for a name, or a database, that holds no index.
	ErrNotIndexed = errors.NewKind("tarindex: %s is not indexed")

	// ErrStale is returned when the archive no longer agrees with the index.
	ErrStale = errors.NewKind("tarindex: index of %s is stale: %s")
)

const (
	memberPrefix = "m/"
	metaKey      = "meta"
)

// An Entry is the indexed location and summary of one member.
type Entry struct {
	Name     string
	Typeflag byte
	Offset   int64 // of the header block
	Size     int64
	Mode     int64
	ModTime  time.Time
	Sum      uint64 // xxhash64 of the content
}

const entrySize = 8*5 + 1

func (e *Entry) marshal() []byte {
	b := make([]byte, entrySize)
	binary.BigEndian.PutUint64(b[0:], uint64(e.Offset))
	binary.BigEndian.PutUint64(b[8:], uint64(e.Size))
	binary.BigEndian.PutUint64(b[16:], uint64(e.Mode))
	binary.BigEndian.PutUint64(b[24:], uint64(e.ModTime.Unix()))
	binary.BigEndian.PutUint64(b[32:], e.Sum)
	b[40] = e.Typeflag
	return b
}

func unmarshalEntry(name string, b []byte) (Entry, error) {
	if len(b) != entrySize {
		return Entry{}, fmt.Errorf("entry for %s is %d bytes, expected %d", name, len(b), entrySize)
	}
	return Entry{
		Name:     name,
		Offset:   int64(binary.BigEndian.Uint64(b[0:])),
		Size:     int64(binary.BigEndian.Uint64(b[8:])),
		Mode:     int64(binary.BigEndian.Uint64(b[16:])),
		ModTime:  time.Unix(int64(binary.BigEndian.Uint64(b[24:])), 0),
		Sum:      binary.BigEndian.Uint64(b[32:]),
		Typeflag: b[40],
	}, nil
}

// meta describes the archive as it was when indexed.
type meta struct {
	size    int64
	members int64
}

func (m meta) marshal() []byte {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[0:], uint64(m.size))
	binary.BigEndian.PutUint64(b[8:], uint64(m.members))
	return b
}

// An Index is an open member database.
type Index struct {
	db *pebble.DB
}

// Build scans archive and records every member in the database at dir,
// creating it if needed and replacing whatever it held before.
// When a name occurs more than once the last member wins, as on extraction.
func Build(archive, dir string) (*Index, error) {
	f, err := os.Open(archive)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}

	db, err := pebble.Open(dir, &pebble.Options{Logger: pebbleLogger{}})
	if err != nil {
		return nil, err
	}
	m, err := fill(db, f)
	if err != nil {
		db.Close()
		return nil, err
	}
	m.size = st.Size()
	if err := db.Set([]byte(metaKey), m.marshal(), pebble.Sync); err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("indexBuilt", "archive", archive, "db", dir, "members", m.members)
	return &Index{db: db}, nil
}

// fill replaces the member records in one batch.
func fill(db *pebble.DB, f *os.File) (meta, error) {
	b := db.NewBatch()
	defer b.Close()
	if err := b.DeleteRange([]byte(memberPrefix), prefixEnd(memberPrefix), nil); err != nil {
		return meta{}, err
	}

	var m meta
	for hdr, err := range tar.Scan(f) {
		if err != nil {
			return meta{}, err
		}
		sum, err := tar.SumMember(f, hdr)
		if err != nil {
			return meta{}, err
		}
		e := Entry{
			Name:     hdr.Name,
			Typeflag: hdr.Typeflag,
			Offset:   hdr.Offset,
			Size:     hdr.Size,
			Mode:     hdr.Mode,
			ModTime:  hdr.ModTime,
			Sum:      sum,
		}
		if err := b.Set([]byte(memberPrefix+hdr.Name), e.marshal(), nil); err != nil {
			return meta{}, err
		}
		m.members++
	}
	return m, b.Commit(pebble.Sync)
}

// Open opens an existing index database.
func Open(dir string) (*Index, error) {
	db, err := pebble.Open(dir, &pebble.Options{ErrorIfNotExists: true, Logger: pebbleLogger{}})
	if err != nil {
		return nil, ErrNotIndexed.Wrap(err, dir)
	}
	return &Index{db: db}, nil
}

func (idx *Index) Close() error {
	return idx.db.Close()
}

// Lookup returns the entry for the last member called name.
func (idx *Index) Lookup(name string) (Entry, error) {
	val, closer, err := idx.db.Get([]byte(memberPrefix + name))
	if err == pebble.ErrNotFound {
		return Entry{}, ErrNotIndexed.New(name)
	} else if err != nil {
		return Entry{}, err
	}
	defer closer.Close()
	return unmarshalEntry(name, val)
}

// Entries returns every indexed member, ordered by name.
func (idx *Index) Entries() ([]Entry, error) {
	it, err := idx.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(memberPrefix),
		UpperBound: prefixEnd(memberPrefix),
	})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var list []Entry
	for it.First(); it.Valid(); it.Next() {
		name := string(it.Key()[len(memberPrefix):])
		e, err := unmarshalEntry(name, it.Value())
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, it.Error()
}

// Fresh reports whether archive still has the length it had when indexed.
// Appending to an archive always changes its length.
func (idx *Index) Fresh(archive string) (bool, error) {
	m, err := idx.meta()
	if err != nil {
		return false, err
	}
	st, err := os.Stat(archive)
	if err != nil {
		return false, err
	}
	return st.Size() == m.size, nil
}

func (idx *Index) meta() (meta, error) {
	val, closer, err := idx.db.Get([]byte(metaKey))
	if err == pebble.ErrNotFound {
		return meta{}, ErrNotIndexed.New("archive")
	} else if err != nil {
		return meta{}, err
	}
	defer closer.Close()
	if len(val) != 16 {
		return meta{}, fmt.Errorf("meta record is %d bytes, expected 16", len(val))
	}
	return meta{
		size:    int64(binary.BigEndian.Uint64(val[0:])),
		members: int64(binary.BigEndian.Uint64(val[8:])),
	}, nil
}

// Extract recreates the named member straight from its indexed offset.
// The header found there is decoded again and the content hash checked,
// so a rewritten archive is reported as ErrStale rather than misread.
func (idx *Index) Extract(archive, name string, opts ...tar.Option) error {
	e, err := idx.Lookup(name)
	if err != nil {
		return err
	}
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	var blk tar.Block
	if _, err := f.ReadAt(blk[:], e.Offset); err != nil {
		return ErrStale.Wrap(err, archive, "no header at indexed offset")
	}
	hdr, err := tar.Decode(&blk)
	if err != nil {
		return ErrStale.Wrap(err, archive, "no header at indexed offset")
	}
	hdr.Offset = e.Offset
	if hdr.Name != e.Name || hdr.Size != e.Size {
		return ErrStale.New(archive, fmt.Sprintf("found %s (%d bytes) where %s was", hdr.Name, hdr.Size, e.Name))
	}
	sum, err := tar.SumMember(f, hdr)
	if err != nil {
		return err
	}
	if sum != e.Sum {
		return ErrStale.New(archive, "content of "+name+" changed")
	}
	return tar.ExtractMember(f, hdr, opts...)
}

// prefixEnd is the smallest key greater than every key starting with prefix.
func prefixEnd(prefix string) []byte {
	end := []byte(prefix)
	end[len(end)-1]++
	return end
}

type pebbleLogger struct{}

func (pebbleLogger) Infof(format string, args ...any) {
	slog.Debug("pebble", "msg", fmt.Sprintf(format, args...))
}

func (pebbleLogger) Errorf(format string, args ...any) {
	slog.Error("pebble", "msg", fmt.Sprintf(format, args...))
}

func (pebbleLogger) Fatalf(format string, args ...any) {
	slog.Error("pebbleFatal", "msg", fmt.Sprintf(format, args...))
	os.Exit(1)
}
