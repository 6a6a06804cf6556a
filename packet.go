// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

package ldapcodec

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf8"

	ber "github.com/go-asn1-ber/asn1-ber"
)

const (
	minChildren = 2 // messageID packet + protocolOp packet
	maxChildren = 3 // + optional controls packet

	messageIDChildIdx  = 0
	protocolOpChildIdx = 1
	controlsChildIdx   = 2

	controlsTag = 0 // controls [0] Controls OPTIONAL

	maxMessageID = math.MaxInt32
)

type packet struct {
	*ber.Packet
	validated bool
}

// decodePacket parses exactly one BER element from data.
func decodePacket(data []byte) (*packet, error) {
	const op = "ldapcodec.decodePacket"
	if err := checkLengths(data); err != nil {
		return nil, newError(op, ErrMalformedMessage, err.Error(), err)
	}
	r := bytes.NewReader(data)
	berPacket, err := ber.ReadPacket(r)
	if err != nil {
		return nil, newError(op, ErrMalformedMessage, err.Error(), err)
	}
	if r.Len() > 0 {
		msg := fmt.Sprintf("%d bytes of trailing data after ldap message", r.Len())
		return nil, newError(op, ErrMalformedMessage, msg, nil)
	}
	return &packet{Packet: berPacket}, nil
}

// basicValidation checks the LDAPMessage envelope:
//
//	LDAPMessage ::= SEQUENCE {
//		messageID       MessageID,
//		protocolOp      CHOICE { ... },
//		controls       [0] Controls OPTIONAL }
func (p *packet) basicValidation() error {
	const op = "ldapcodec.(packet).basicValidation"
	if p.validated {
		return nil
	}
	if err := p.assert(ber.ClassUniversal, ber.TypeConstructed, withTag(ber.TagSequence), withMinChildren(minChildren), withMaxChildren(maxChildren)); err != nil {
		return fmt.Errorf("%s: invalid ldap message: %w", op, err)
	}
	if err := p.assert(ber.ClassUniversal, ber.TypePrimitive, withTag(ber.TagInteger), withAssertChild(messageIDChildIdx)); err != nil {
		return fmt.Errorf("%s: missing/invalid message id packet: %w", op, err)
	}
	id, ok := p.Children[messageIDChildIdx].Value.(int64)
	if !ok || id < 0 || id > maxMessageID {
		return fmt.Errorf("%s: message id %v is out of range", op, p.Children[messageIDChildIdx].Value)
	}
	// the protocol op is primitive for some operations (unbind, delete,
	// abandon), so only the class is asserted here.
	if err := p.assert(ber.ClassApplication, ber.TypeConstructed, withAnyType(), withAssertChild(protocolOpChildIdx)); err != nil {
		return fmt.Errorf("%s: missing/invalid protocol op packet: %w", op, err)
	}
	if len(p.Children) > controlsChildIdx {
		if err := p.assert(ber.ClassContext, ber.TypeConstructed, withTag(controlsTag), withAssertChild(controlsChildIdx)); err != nil {
			return fmt.Errorf("%s: invalid controls packet: %w", op, err)
		}
	}
	p.validated = true
	return nil
}

func (p *packet) messageID() (int64, error) {
	const op = "ldapcodec.(packet).messageID"
	if err := p.basicValidation(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return p.Children[messageIDChildIdx].Value.(int64), nil
}

func (p *packet) protocolOpPacket() (*packet, error) {
	const op = "ldapcodec.(packet).protocolOpPacket"
	if err := p.basicValidation(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &packet{Packet: p.Children[protocolOpChildIdx]}, nil
}

func (p *packet) protocolOp() (ProtocolOp, error) {
	const op = "ldapcodec.(packet).protocolOp"
	opPacket, err := p.protocolOpPacket()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	protocolOp := ProtocolOp(opPacket.Tag)
	if !protocolOp.Known() {
		return 0, fmt.Errorf("%s: unknown protocol operation tag %d", op, opPacket.Tag)
	}
	return protocolOp, nil
}

// controlsPacket returns the optional controls packet
func (p *packet) controlsPacket() (*packet, bool, error) {
	const op = "ldapcodec.(packet).controlsPacket"
	if err := p.basicValidation(); err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	if len(p.Children) <= controlsChildIdx {
		return nil, false, nil
	}
	return &packet{Packet: p.Children[controlsChildIdx]}, true, nil
}

// octetString returns the child at idx as text.  The child must be a
// primitive OCTET STRING holding valid UTF-8.
func (p *packet) octetString(idx int, field string) (string, error) {
	const op = "ldapcodec.(packet).octetString"
	if err := p.assert(ber.ClassUniversal, ber.TypePrimitive, withTag(ber.TagOctetString), withAssertChild(idx)); err != nil {
		return "", fmt.Errorf("%s: missing/invalid %s packet: %w", op, field, err)
	}
	return text(p.Children[idx].Data.Bytes(), field)
}

// text converts raw octets into a string, failing for invalid UTF-8
func text(b []byte, field string) (string, error) {
	const op = "ldapcodec.text"
	if !utf8.Valid(b) {
		return "", newError(op, ErrInvalidTextEncoding, fmt.Sprintf("invalid text encoding: %s is not valid utf-8", field), nil)
	}
	return string(b), nil
}

func (p *packet) enumerated(idx int, field string) (int64, error) {
	const op = "ldapcodec.(packet).enumerated"
	if err := p.assert(ber.ClassUniversal, ber.TypePrimitive, withTag(ber.TagEnumerated), withAssertChild(idx)); err != nil {
		return 0, fmt.Errorf("%s: missing/invalid %s packet: %w", op, field, err)
	}
	v, ok := p.Children[idx].Value.(int64)
	if !ok {
		return 0, fmt.Errorf("%s: invalid %s value %v", op, field, p.Children[idx].Value)
	}
	return v, nil
}

func (p *packet) assert(cl ber.Class, ty ber.Type, opt ...Option) error {
	const op = "ldapcodec.(packet).assert"
	opts := getMessageOpts(opt...)

	if opts.withLenChildren != nil {
		if len(p.Children) != *opts.withLenChildren {
			return fmt.Errorf("%s: not the correct number of children packets, expected %d but got %d", op, *opts.withLenChildren, len(p.Children))
		}
	}
	if opts.withMinChildren != nil {
		if len(p.Children) < *opts.withMinChildren {
			return fmt.Errorf("%s: not enough children packets, expected %d but got %d", op, *opts.withMinChildren, len(p.Children))
		}
	}
	if opts.withMaxChildren != nil {
		if len(p.Children) > *opts.withMaxChildren {
			return fmt.Errorf("%s: too many children packets, expected at most %d but got %d", op, *opts.withMaxChildren, len(p.Children))
		}
	}

	chkPacket := p.Packet
	if opts.withAssertChild != nil {
		if *opts.withAssertChild < 0 || *opts.withAssertChild >= len(p.Children) {
			return fmt.Errorf("%s: missing asserted child %d, but there are only %d", op, *opts.withAssertChild, len(p.Children))
		}
		chkPacket = p.Packet.Children[*opts.withAssertChild]
	}

	if chkPacket.ClassType != cl {
		return fmt.Errorf("%s: incorrect class, expected %v but got %v", op, ber.ClassMap[cl], ber.ClassMap[chkPacket.ClassType])
	}
	if !opts.withAnyType && chkPacket.TagType != ty {
		return fmt.Errorf("%s: incorrect type, expected %v but got %v", op, ber.TypeMap[ty], ber.TypeMap[chkPacket.TagType])
	}
	if opts.withTag != nil && chkPacket.Tag != *opts.withTag {
		return fmt.Errorf("%s: incorrect tag, expected %v but got %v", op, *opts.withTag, chkPacket.Tag)
	}
	return nil
}

// Log writes a human-readable dump of the packet tree to out.
func (p *packet) Log(out io.Writer, indent int, printBytes bool) {
	if indent < 0 {
		indent = 0
	}
	indentStr := strings.Repeat(" ", indent)
	classStr := ber.ClassMap[p.ClassType]
	tagTypeStr := ber.TypeMap[p.TagType]

	tagStr := fmt.Sprintf("0x%02X", p.Tag)
	switch p.ClassType {
	case ber.ClassUniversal:
		tagStr = tagMap[p.Tag]
	case ber.ClassApplication:
		tagStr = ProtocolOp(p.Tag).String()
	}

	value := fmt.Sprint(p.Value)
	description := ""

	if p.Description != "" {
		description = p.Description + ": "
	}

	fmt.Fprintf(out, "%s%s(%s, %s, %s) Len=%d %q\n", indentStr, description, classStr, tagTypeStr, tagStr, p.Data.Len(), value)

	if printBytes {
		ber.PrintBytes(out, p.Bytes(), indentStr)
	}

	for _, child := range p.Children {
		childPacket := packet{Packet: child}
		childPacket.Log(out, indent+1, printBytes)
	}
}

var tagMap = map[ber.Tag]string{
	ber.TagEOC:              "EOC (End-of-Content)",
	ber.TagBoolean:          "Boolean",
	ber.TagInteger:          "Integer",
	ber.TagBitString:        "Bit String",
	ber.TagOctetString:      "Octet String",
	ber.TagNULL:             "NULL",
	ber.TagObjectIdentifier: "Object Identifier",
	ber.TagObjectDescriptor: "Object Descriptor",
	ber.TagExternal:         "External",
	ber.TagRealFloat:        "Real (float)",
	ber.TagEnumerated:       "Enumerated",
	ber.TagEmbeddedPDV:      "Embedded PDV",
	ber.TagUTF8String:       "UTF8 String",
	ber.TagRelativeOID:      "Relative-OID",
	ber.TagSequence:         "Sequence and Sequence of",
	ber.TagSet:              "Set and Set OF",
	ber.TagNumericString:    "Numeric String",
	ber.TagPrintableString:  "Printable String",
	ber.TagT61String:        "T61 String",
	ber.TagVideotexString:   "Videotex String",
	ber.TagIA5String:        "IA5 String",
	ber.TagUTCTime:          "UTC Time",
	ber.TagGeneralizedTime:  "Generalized Time",
	ber.TagGraphicString:    "Graphic String",
	ber.TagVisibleString:    "Visible String",
	ber.TagGeneralString:    "General String",
	ber.TagUniversalString:  "Universal String",
	ber.TagCharacterString:  "Character String",
	ber.TagBMPString:        "BMP String",
}
