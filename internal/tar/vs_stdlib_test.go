// Copyright Elliot Nunn. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Compare this package against the canonical go one.
// Only unaligned regular files are used: for those the two agree on padding.

package tar

import (
	gotar "archive/tar"
	"bytes"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var interopFiles = []struct{ name, content string }{
	{"a.txt", "alpha"},
	{"dir/b.bin", strings.Repeat("\x00\xff", 700)},
	{strings.Repeat("p", 70) + "/" + strings.Repeat("q", 60) + "/long.txt", "prefix field in use"},
}

func TestStdlibReadsOurs(t *testing.T) {
	require := require.New(t)
	t.Chdir(t.TempDir())
	var members []string
	for _, f := range interopFiles {
		require.NoError(writeFile(f.name, f.content))
		members = append(members, f.name)
	}
	require.NoError(Create("ours.tar", members, testOpts()...))

	f, err := os.Open("ours.tar")
	require.NoError(err)
	defer f.Close()

	ourFiles, err := dumpOurImplementation(f)
	require.NoError(err)
	theirFiles, err := dumpStdlibImplementation(io.NewSectionReader(f, 0, 1<<40))
	require.NoError(err)
	compareDumps(t, theirFiles, ourFiles)
}

func TestWeReadStdlib(t *testing.T) {
	require := require.New(t)
	var buf bytes.Buffer
	tw := gotar.NewWriter(&buf)
	for _, f := range interopFiles {
		require.NoError(tw.WriteHeader(&gotar.Header{
			Typeflag: gotar.TypeReg,
			Name:     f.name,
			Size:     int64(len(f.content)),
			Mode:     0o644,
			Uname:    "someone",
			ModTime:  time.Unix(1600000000, 0),
			Format:   gotar.FormatUSTAR,
		}))
		_, err := tw.Write([]byte(f.content))
		require.NoError(err)
	}
	require.NoError(tw.Close())

	ourFiles, err := dumpOurImplementation(bytes.NewReader(buf.Bytes()))
	require.NoError(err)
	theirFiles, err := dumpStdlibImplementation(bytes.NewReader(buf.Bytes()))
	require.NoError(err)
	require.Len(ourFiles, len(interopFiles))
	compareDumps(t, theirFiles, ourFiles)

	for hdr, err := range Scan(bytes.NewReader(buf.Bytes())) {
		require.NoError(err)
		require.Equal("someone", hdr.Uname)
		require.Equal(int64(1600000000), hdr.ModTime.Unix())
	}
}

func compareDumps(t *testing.T, theirFiles, ourFiles map[string]string) {
	t.Helper()
	for name, theirValue := range theirFiles {
		ourValue, ok := ourFiles[name]
		if !ok {
			t.Errorf("our implementation missing a %s: %q", strings.SplitN(theirValue, "=", 2)[0], name)
		} else if theirValue != ourValue {
			if len(theirValue) > 100 {
				theirValue = theirValue[:100] + "..."
			}
			if len(ourValue) > 100 {
				ourValue = ourValue[:100] + "..."
			}
			t.Errorf("difference in %q\nexpect: %s\n   got: %s", name, theirValue, ourValue)
		}
	}
}

func dumpOurImplementation(r io.ReaderAt) (files map[string]string, err error) {
	files = make(map[string]string)
	for hdr, err := range Scan(r) {
		if err != nil {
			return nil, err
		}
		name := filepath.ToSlash(hdr.Name)
		switch hdr.Typeflag {
		case TypeDir:
			files[name] = "directory"
		case TypeReg:
			data, err := io.ReadAll(io.NewSectionReader(r, hdr.dataOffset(), hdr.Size))
			if err != nil {
				return nil, err
			}
			files[name] = "file=" + strconv.Itoa(int(hdr.Size)) + "=" + hex.EncodeToString(data)
		}
	}
	return files, nil
}

func dumpStdlibImplementation(r io.Reader) (files map[string]string, err error) {
	tar := gotar.NewReader(r)
	files = make(map[string]string)
	for {
		hdr, err := tar.Next()
		switch err {
		case io.EOF:
			return files, nil // done
		case nil:
			// ok
		default:
			return nil, err // uh oh
		}

		switch hdr.Typeflag {
		case gotar.TypeReg:
			data, err := io.ReadAll(tar)
			if err != nil {
				return nil, err
			}
			files[hdr.Name] = "file=" + strconv.Itoa(int(hdr.Size)) + "=" + hex.EncodeToString(data)
		case gotar.TypeDir:
			files[hdr.Name] = "directory"
		}
	}
}
