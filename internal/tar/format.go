// Copyright Elliot Nunn. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tar

import "fmt"

const (
	// BlockSize is the unit of every header, padding and end marker.
	BlockSize = 512

	nameSize   = 100 // Maximum length of the name field
	prefixSize = 155 // Maximum length of the prefix field

	magicUSTAR   = "ustar\x00"
	versionUSTAR = "00"
	magicGNU     = "ustar " // followed by version " \x00"
	versionGNU   = " \x00"
)

// Block is one 512-byte unit of an archive.
type Block [BlockSize]byte

var zeroBlock Block

type rule uint8

const (
	ruleText     rule = iota // NUL-padded bytes
	ruleOctal                // zero-padded octal digits, NUL terminated
	ruleChecksum             // six octal digits, NUL, space
	rulePad                  // always zero
)

// record is the flat field-by-field view of a header block.
// Header converts to and from it; the layout table addresses its fields.
type record struct {
	name, linkname, prefix string
	typeflag               string
	magic, version         string
	uname, gname           string

	mode, uid, gid     int64
	size, mtime        int64
	chksum             int64
	devmajor, devminor int64
}

type field struct {
	name string
	size int
	rule rule
	off  int // filled in by init

	text func(*record) *string
	num  func(*record) *int64
}

// layout is the ustar header, field by field, in block order.
// Offsets are derived by walking the table with a cursor.
var layout = [...]field{
	{name: "name", size: 100, rule: ruleText, text: func(r *record) *string { return &r.name }},
	{name: "mode", size: 8, rule: ruleOctal, num: func(r *record) *int64 { return &r.mode }},
	{name: "uid", size: 8, rule: ruleOctal, num: func(r *record) *int64 { return &r.uid }},
	{name: "gid", size: 8, rule: ruleOctal, num: func(r *record) *int64 { return &r.gid }},
	{name: "size", size: 12, rule: ruleOctal, num: func(r *record) *int64 { return &r.size }},
	{name: "mtime", size: 12, rule: ruleOctal, num: func(r *record) *int64 { return &r.mtime }},
	{name: "chksum", size: 8, rule: ruleChecksum, num: func(r *record) *int64 { return &r.chksum }},
	{name: "typeflag", size: 1, rule: ruleText, text: func(r *record) *string { return &r.typeflag }},
	{name: "linkname", size: 100, rule: ruleText, text: func(r *record) *string { return &r.linkname }},
	{name: "magic", size: 6, rule: ruleText, text: func(r *record) *string { return &r.magic }},
	{name: "version", size: 2, rule: ruleText, text: func(r *record) *string { return &r.version }},
	{name: "uname", size: 32, rule: ruleText, text: func(r *record) *string { return &r.uname }},
	{name: "gname", size: 32, rule: ruleText, text: func(r *record) *string { return &r.gname }},
	{name: "devmajor", size: 8, rule: ruleOctal, num: func(r *record) *int64 { return &r.devmajor }},
	{name: "devminor", size: 8, rule: ruleOctal, num: func(r *record) *int64 { return &r.devminor }},
	{name: "prefix", size: 155, rule: ruleText, text: func(r *record) *string { return &r.prefix }},
	{name: "padding", size: 12, rule: rulePad},
}

// Indexes into layout for the fields that are handled out of band.
const (
	fieldChksum  = 6
	fieldMagic   = 9
	fieldVersion = 10
)

func init() {
	cursor := 0
	for i := range layout {
		layout[i].off = cursor
		cursor += layout[i].size
	}
	if cursor != BlockSize {
		panic(fmt.Sprintf("tar: header layout covers %d bytes, not %d", cursor, BlockSize))
	}
}

func (b *Block) field(i int) []byte {
	f := &layout[i]
	return b[f.off:][:f.size]
}

// checksum sums the block as unsigned bytes with the checksum field read as spaces.
// The sum is taken over a scratch copy so b itself is never modified.
func (b *Block) checksum() int64 {
	scratch := *b
	chk := scratch.field(fieldChksum)
	for i := range chk {
		chk[i] = ' '
	}
	var sum int64
	for _, c := range scratch {
		sum += int64(c)
	}
	return sum
}

// padding is the number of zero bytes written after size bytes of content.
// Content ending exactly on a block boundary is followed by a whole zero block.
func padding(size int64) int64 {
	return BlockSize - size%BlockSize
}

// regionSize is the length of the content region that follows a header.
func regionSize(size int64) int64 {
	return size + padding(size)
}
