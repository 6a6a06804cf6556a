// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

package ldapcodec

import (
	"fmt"
	"io"
	"math"

	ber "github.com/go-asn1-ber/asn1-ber"
	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

const (
	constructedBit = 0x20
	maxDERDepth    = 64
)

// checkDER verifies data holds exactly one element with DER length
// encodings: definite, minimal lengths everywhere and no trailing bytes.
// The ber package accepts any BER, so this is what makes decoding strict.
func checkDER(data []byte) error {
	const op = "ldapcodec.checkDER"
	s := cryptobyte.String(data)
	var elem cryptobyte.String
	var tag cbasn1.Tag
	if !s.ReadAnyASN1Element(&elem, &tag) {
		return fmt.Errorf("%s: der: invalid element encoding at offset 0", op)
	}
	if !s.Empty() {
		return fmt.Errorf("%s: der: %d bytes of trailing data", op, len(s))
	}
	return checkDERElements(elem, 0, 0)
}

// checkDERElements walks the elements in data. base is the offset of data
// within the original message.
func checkDERElements(data []byte, base, depth int) error {
	const op = "ldapcodec.checkDERElements"
	if depth > maxDERDepth {
		return fmt.Errorf("%s: der: nesting deeper than %d at offset %d", op, maxDERDepth, base)
	}
	s := cryptobyte.String(data)
	for !s.Empty() {
		offset := base + len(data) - len(s)
		var content cryptobyte.String
		var tag cbasn1.Tag
		if !s.ReadAnyASN1(&content, &tag) {
			return fmt.Errorf("%s: der: invalid element encoding at offset %d", op, offset)
		}
		if tag&constructedBit == 0 {
			continue
		}
		elemLen := base + len(data) - len(s) - offset
		contentOffset := offset + elemLen - len(content)
		if err := checkDERElements(content, contentOffset, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// checkLengths walks the BER headers in data in the order ber.ReadPacket
// reads them and fails with io.ErrUnexpectedEOF at the first primitive
// element declaring more content than data holds. ber.ReadPacket allocates
// a primitive's declared length before reading its content. Headers the
// ber package rejects are left for it to report.
func checkLengths(data []byte) error {
	s := &lengthScanner{data: data}
	s.element()
	return s.err
}

type lengthScanner struct {
	data []byte
	off  int
	err  error
}

// element scans one element and returns the bytes it spans and whether it
// is an end-of-contents marker. ok is false once scanning stopped.
func (s *lengthScanner) element() (n int, eoc bool, ok bool) {
	start := s.off
	hdrLen, constructed, eocIdentifier, length, ok := berHeader(s.data[s.off:])
	if !ok {
		return 0, false, false
	}
	s.off += hdrLen
	if !constructed {
		if length < 0 || (ber.MaxPacketLengthBytes > 0 && int64(length) > ber.MaxPacketLengthBytes) {
			return 0, false, false
		}
		if length > len(s.data)-s.off {
			s.err = io.ErrUnexpectedEOF
			return 0, false, false
		}
		s.off += length
		return s.off - start, eocIdentifier && length == 0, true
	}
	contentRead := 0
	for {
		if length >= 0 {
			if contentRead == length {
				break
			}
			if contentRead > length {
				return 0, false, false
			}
		}
		childLen, childEOC, ok := s.element()
		if !ok {
			return 0, false, false
		}
		contentRead += childLen
		if childEOC {
			if length < 0 {
				break
			}
			return 0, false, false
		}
	}
	return s.off - start, false, true
}

// berHeader parses the identifier and length octets at the start of d.
// length is -1 for the indefinite form. ok is false when d doesn't start
// with a header ber.ReadPacket would accept.
func berHeader(d []byte) (hdrLen int, constructed, eoc bool, length int, ok bool) {
	if len(d) == 0 {
		return 0, false, false, 0, false
	}
	b := d[0]
	i := 1
	constructed = b&constructedBit != 0
	eoc = b == 0
	if b&0x1f == 0x1f {
		for n := 1; ; n++ {
			if i >= len(d) || n > 9 {
				return 0, false, false, 0, false
			}
			c := d[i]
			i++
			if n == 1 && c&0x7f == 0 {
				return 0, false, false, 0, false
			}
			if c&0x80 == 0 {
				break
			}
		}
	}
	if i >= len(d) {
		return 0, false, false, 0, false
	}
	l := d[i]
	i++
	switch {
	case l == 0xff:
		return 0, false, false, 0, false
	case l == 0x80:
		if !constructed {
			return 0, false, false, 0, false
		}
		length = -1
	case l&0x80 == 0:
		length = int(l)
	default:
		n := int(l & 0x7f)
		if n > 8 || i+n > len(d) {
			return 0, false, false, 0, false
		}
		var v uint64
		for _, c := range d[i : i+n] {
			v = v<<8 | uint64(c)
		}
		i += n
		if v > uint64(math.MaxInt) {
			return 0, false, false, 0, false
		}
		length = int(v)
	}
	return i, constructed, eoc, length, true
}
