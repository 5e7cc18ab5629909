// Copyright Elliot Nunn. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tar

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// FileHeader stats the named entry and describes it as a header.
// Regular files, directories and device nodes are supported; the name is
// stored exactly as given, with slashes as separators.
func FileHeader(name string, ids *Identity) (*Header, error) {
	st, err := statEntry(name)
	if err != nil {
		return nil, ErrMetadata.Wrap(err, name)
	}

	hdr := &Header{
		Name:    filepath.ToSlash(name),
		Mode:    st.perm,
		Uid:     st.uid,
		Gid:     st.gid,
		ModTime: st.mtime,
	}
	switch st.kind {
	case kindRegular:
		hdr.Typeflag = TypeReg
		hdr.Size = st.size
	case kindDir:
		hdr.Typeflag = TypeDir
	case kindChar, kindBlock:
		hdr.Typeflag = TypeBlock
		if st.kind == kindChar {
			hdr.Typeflag = TypeChar
		}
		hdr.Devmajor, hdr.Devminor = st.devmajor, st.devminor
	default:
		return nil, ErrMetadata.Wrap(fmt.Errorf("unsupported file type %v", st.kind), name)
	}

	if hdr.Uname, err = ids.UserName(hdr.Uid); err != nil {
		return nil, err
	}
	if hdr.Gname, err = ids.GroupName(hdr.Gid); err != nil {
		return nil, err
	}
	return hdr, nil
}

// EncodeFile is FileHeader followed by Encode.
func EncodeFile(name string, ids *Identity) (*Block, *Header, error) {
	hdr, err := FileHeader(name, ids)
	if err != nil {
		return nil, nil, err
	}
	blk, err := hdr.Encode()
	if err != nil {
		return nil, nil, err
	}
	return blk, hdr, nil
}

// Encode lays the header out as a ustar block with a valid checksum.
func (h *Header) Encode() (*Block, error) {
	r, err := h.record()
	if err != nil {
		return nil, err
	}

	var f formatter
	blk := new(Block)
	for i := range layout {
		fl := &layout[i]
		switch fl.rule {
		case ruleText:
			f.formatString(fl.name, blk.field(i), *fl.text(&r))
		case ruleOctal:
			f.formatOctal(fl.name, blk.field(i), *fl.num(&r))
		}
		if f.err != nil {
			return nil, ErrEncoding.Wrap(f.err, h.Name, fl.name)
		}
	}

	f.formatChecksum(blk.field(fieldChksum), blk.checksum())
	if f.err != nil {
		return nil, ErrEncoding.Wrap(f.err, h.Name, "chksum")
	}
	return blk, nil
}

// record flattens h into field values, splitting long names into prefix and name.
func (h *Header) record() (record, error) {
	r := record{
		name:     h.Name,
		linkname: h.Linkname,
		typeflag: string([]byte{h.Typeflag}),
		magic:    magicUSTAR,
		version:  versionUSTAR,
		uname:    h.Uname,
		gname:    h.Gname,
		mode:     h.Mode,
		uid:      int64(h.Uid),
		gid:      int64(h.Gid),
		size:     h.Size,
		mtime:    h.ModTime.Unix(),
		devmajor: h.Devmajor,
		devminor: h.Devminor,
	}
	if isHeaderOnlyType(h.Typeflag) {
		r.size = 0
	}
	if h.ModTime.IsZero() {
		r.mtime = 0
	}

	if len(h.Name) > nameSize {
		prefix, suffix, ok := splitUSTARPath(h.Name)
		if !ok {
			return record{}, ErrEncoding.New(h.Name, "name")
		}
		r.prefix, r.name = prefix, suffix
	}
	return r, nil
}

// Decode verifies the checksum of blk and parses it back into a header.
// Both POSIX ustar and the GNU "ustar  \x00" magic are accepted; GNU
// base-256 numbers and long-name extension records are not.
// The returned header has a zero Offset.
func Decode(blk *Block) (*Header, error) {
	var p parser

	stored := p.parseOctal(blk.field(fieldChksum))
	if p.err != nil {
		return nil, ErrCorruptHeader.New(fmt.Sprintf("unreadable checksum %q", blk.field(fieldChksum)))
	}
	if sum := blk.checksum(); sum != stored {
		return nil, ErrCorruptHeader.New(fmt.Sprintf("checksum %o, computed %o", stored, sum))
	}
	magic := blk.field(fieldMagic)
	gnu := bytes.Equal(magic, []byte(magicGNU)) && bytes.Equal(blk.field(fieldVersion), []byte(versionGNU))
	if !gnu && !bytes.Equal(magic, []byte(magicUSTAR)) {
		return nil, ErrCorruptHeader.New(fmt.Sprintf("magic %q is not ustar", magic))
	}

	var r record
	for i := range layout {
		fl := &layout[i]
		switch fl.rule {
		case ruleText:
			*fl.text(&r) = p.parseString(blk.field(i))
		case ruleOctal:
			*fl.num(&r) = p.parseOctal(blk.field(i))
		}
		if p.err != nil {
			return nil, ErrCorruptHeader.New(fmt.Sprintf("%s field %q", fl.name, blk.field(i)))
		}
	}
	r.chksum = stored
	if gnu {
		r.prefix = "" // GNU keeps access and change times here
	}

	hdr := &Header{
		Name:     r.name,
		Linkname: r.linkname,
		Size:     r.size,
		Mode:     r.mode,
		Uid:      int(r.uid),
		Gid:      int(r.gid),
		Uname:    r.uname,
		Gname:    r.gname,
		ModTime:  time.Unix(r.mtime, 0),
		Devmajor: r.devmajor,
		Devminor: r.devminor,
	}
	if len(r.typeflag) > 0 {
		hdr.Typeflag = r.typeflag[0]
	}
	if r.prefix != "" {
		hdr.Name = r.prefix + "/" + hdr.Name
	}
	if hdr.Typeflag == TypeRegA {
		if strings.HasSuffix(hdr.Name, "/") {
			hdr.Typeflag = TypeDir // Legacy archives use trailing slash for directories
		} else {
			hdr.Typeflag = TypeReg
		}
	}
	return hdr, nil
}

// splitUSTARPath splits a path according to USTAR prefix and suffix rules.
// If the path is not splittable, then it will return ("", "", false).
func splitUSTARPath(name string) (prefix, suffix string, ok bool) {
	length := len(name)
	if length <= nameSize || !isASCII(name) {
		return "", "", false
	} else if length > prefixSize+1 {
		length = prefixSize + 1
	} else if name[length-1] == '/' {
		length--
	}

	i := strings.LastIndex(name[:length], "/")
	nlen := len(name) - i - 1 // nlen is length of suffix
	plen := i                 // plen is length of prefix
	if i <= 0 || nlen > nameSize || nlen == 0 || plen > prefixSize {
		return "", "", false
	}
	return name[:i], name[i+1:], true
}
