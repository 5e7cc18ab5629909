// Copyright Elliot Nunn. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tar

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errOctal = errors.New("invalid octal field")

// isASCII reports whether the input is an ASCII C-style string.
func isASCII(s string) bool {
	for _, c := range s {
		if c >= 0x80 || c == 0x00 {
			return false
		}
	}
	return true
}

type parser struct {
	err error // Last error seen
}

type formatter struct {
	err error // Last error seen
}

// parseString parses bytes as a NUL-terminated C-style string.
// If a NUL byte is not found then the whole slice is returned as a string.
func (*parser) parseString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// formatString copies s into b, NUL-terminating if possible.
func (f *formatter) formatString(name string, b []byte, s string) {
	if len(s) > len(b) {
		f.err = fmt.Errorf("%s: %d bytes do not fit in %d", name, len(s), len(b))
		return
	}
	copy(b, s)
	if len(s) < len(b) {
		b[len(s)] = 0
	}
}

// parseOctal parses a field of octal digits surrounded by spaces or NULs.
func (p *parser) parseOctal(b []byte) int64 {
	b = bytes.Trim(b, " \x00")
	if len(b) == 0 {
		return 0
	}
	x, perr := strconv.ParseUint(string(b), 8, 63)
	if perr != nil {
		p.err = errOctal
	}
	return int64(x)
}

// formatOctal writes x as zero-padded octal digits followed by a NUL.
func (f *formatter) formatOctal(name string, b []byte, x int64) {
	if !fitsInOctal(len(b), x) {
		f.err = fmt.Errorf("%s: %d does not fit in %d octal digits", name, x, len(b)-1)
		return
	}
	s := strconv.FormatInt(x, 8)
	if n := len(b) - len(s) - 1; n > 0 {
		s = strings.Repeat("0", n) + s
	}
	f.formatString(name, b, s)
}

// formatChecksum writes the checksum as six octal digits, a NUL and a space.
func (f *formatter) formatChecksum(b []byte, x int64) {
	s := fmt.Sprintf("%06o", x)
	if len(s) != len(b)-2 {
		f.err = fmt.Errorf("chksum: %d does not fit", x)
		return
	}
	copy(b, s)
	b[len(b)-2] = 0
	b[len(b)-1] = ' '
}

// fitsInOctal reports whether the integer x fits in a field n-bytes long
// using octal encoding with the appropriate NUL terminator.
func fitsInOctal(n int, x int64) bool {
	octBits := uint(n-1) * 3
	return x >= 0 && (n >= 22 || x < 1<<octBits)
}
