// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

package ldapcodec

import (
	"fmt"
	"strings"

	ber "github.com/go-asn1-ber/asn1-ber"
	"github.com/go-ldap/ldap/v3"
)

// Control is a message control (see RFC 4511 section 4.1.11)
type Control struct {
	// Type is the control's OID
	Type string
	// Criticality is the control's criticality
	Criticality bool
	// Decoded is the go-ldap representation of the control.
	Decoded ldap.Control
}

// String returns a human-readable description
func (c Control) String() string {
	if c.Decoded == nil {
		return fmt.Sprintf("Control Type: %q  Criticality: %t", c.Type, c.Criticality)
	}
	return strings.ToValidUTF8(c.Decoded.String(), "\uFFFD")
}

func encodeControls(controls []ldap.Control) *ber.Packet {
	packet := ber.Encode(ber.ClassContext, ber.TypeConstructed, controlsTag, nil, "Controls")
	for _, control := range controls {
		packet.AppendChild(control.Encode())
	}
	return packet
}

// controls parses the optional message controls:
//
//	Controls ::= SEQUENCE OF control Control
//
//	Control ::= SEQUENCE {
//		controlType             LDAPOID,
//		criticality             BOOLEAN DEFAULT FALSE,
//		controlValue            OCTET STRING OPTIONAL }
func (p *packet) controls() ([]Control, error) {
	const op = "ldapcodec.(packet).controls"
	controlsPacket, ok, err := p.controlsPacket()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil, nil
	}
	controls := make([]Control, 0, len(controlsPacket.Children))
	for idx, child := range controlsPacket.Children {
		c, err := decodeControl(child)
		if err != nil {
			return nil, fmt.Errorf("%s: control %d: %w", op, idx, err)
		}
		controls = append(controls, c)
	}
	return controls, nil
}

func decodeControl(pkt *ber.Packet) (Control, error) {
	const op = "ldapcodec.decodeControl"
	p := &packet{Packet: pkt}
	if err := p.assert(ber.ClassUniversal, ber.TypeConstructed, withTag(ber.TagSequence), withMinChildren(1), withMaxChildren(3)); err != nil {
		return Control{}, fmt.Errorf("%s: invalid control: %w", op, err)
	}
	controlType, err := p.octetString(0, "control type")
	if err != nil {
		return Control{}, fmt.Errorf("%s: %w", op, err)
	}
	var criticality bool
	switch len(p.Children) {
	case 2:
		// the second child is either the criticality or the value
		if b, ok := p.Children[1].Value.(bool); ok && p.Children[1].Tag == ber.TagBoolean {
			criticality = b
		} else if err := p.assert(ber.ClassUniversal, ber.TypePrimitive, withTag(ber.TagOctetString), withAssertChild(1)); err != nil {
			return Control{}, fmt.Errorf("%s: invalid control value: %w", op, err)
		}
	case 3:
		if err := p.assert(ber.ClassUniversal, ber.TypePrimitive, withTag(ber.TagBoolean), withAssertChild(1)); err != nil {
			return Control{}, fmt.Errorf("%s: invalid criticality: %w", op, err)
		}
		if err := p.assert(ber.ClassUniversal, ber.TypePrimitive, withTag(ber.TagOctetString), withAssertChild(2)); err != nil {
			return Control{}, fmt.Errorf("%s: invalid control value: %w", op, err)
		}
		criticality, _ = p.Children[1].Value.(bool)
	}

	c := Control{
		Type:        controlType,
		Criticality: criticality,
	}
	// the control value is an opaque octet string, so a value go-ldap can't
	// parse leaves the control undecoded rather than failing the message.
	if decoded, err := decodeControlValue(pkt); err == nil {
		c.Decoded = decoded
	}
	return c, nil
}

// decodeControlValue decodes pkt with go-ldap, which assumes well formed
// control values and may panic decoding them.
func decodeControlValue(pkt *ber.Packet) (decoded ldap.Control, err error) {
	const op = "ldapcodec.decodeControlValue"
	defer func() {
		if r := recover(); r != nil {
			decoded = nil
			err = fmt.Errorf("%s: unable to decode control value: %v", op, r)
		}
	}()
	decoded, err = ldap.DecodeControl(pkt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return decoded, nil
}
