// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

package ldapcodec

import (
	"fmt"
	"os"
	"strings"

	ber "github.com/go-asn1-ber/asn1-ber"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Entry represents an ldap entry carried by a search result entry message.
// Attributes are kept in wire order.
type Entry struct {
	// DN is the distinguished name of the entry
	DN string
	// Attributes are the returned attributes for the entry
	Attributes []*EntryAttribute
}

// NewEntry returns an Entry for the dn and attributes. Since a map has no
// order, the attributes are added sorted by name.
func NewEntry(dn string, attributes map[string][]string) *Entry {
	names := maps.Keys(attributes)
	slices.Sort(names)
	e := &Entry{DN: dn}
	for _, n := range names {
		e.Attributes = append(e.Attributes, NewEntryAttribute(n, attributes[n]))
	}
	return e
}

// GetAttributeValues returns the values for the named attribute, or an empty
// list
func (e *Entry) GetAttributeValues(attribute string) []string {
	for _, attr := range e.Attributes {
		if attr.Name == attribute {
			return attr.Values
		}
	}
	return []string{}
}

// AddAttribute appends an attribute to the entry.
func (e *Entry) AddAttribute(name string, values []string) {
	e.Attributes = append(e.Attributes, NewEntryAttribute(name, values))
}

// PrettyPrint outputs a human-readable description indenting.  Supported
// options: WithWriter
func (e *Entry) PrettyPrint(indent int, opt ...Option) {
	opts := getGeneralOpts(opt...)
	if isNil(opts.withWriter) {
		opts.withWriter = os.Stdout
	}
	fmt.Fprintf(opts.withWriter, "%sDN: %s\n", strings.Repeat(" ", indent), e.DN)
	for _, attr := range e.Attributes {
		attr.PrettyPrint(indent+2, opt...)
	}
}

// EntryAttribute holds a single attribute
type EntryAttribute struct {
	// Name is the name of the attribute
	Name string
	// Values contain the string values of the attribute
	Values []string
}

// NewEntryAttribute returns a new EntryAttribute with the desired key-value
// pair
func NewEntryAttribute(name string, values []string) *EntryAttribute {
	return &EntryAttribute{
		Name:   name,
		Values: values,
	}
}

// PrettyPrint outputs a human-readable description with indenting.  Supported
// options: WithWriter
func (e *EntryAttribute) PrettyPrint(indent int, opt ...Option) {
	opts := getGeneralOpts(opt...)
	if isNil(opts.withWriter) {
		opts.withWriter = os.Stdout
	}
	fmt.Fprintf(opts.withWriter, "%s%s: %s\n", strings.Repeat(" ", indent), e.Name, e.Values)
}

func (e *EntryAttribute) encode() *ber.Packet {
	seq := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, nil, "Attribute")
	seq.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, e.Name, "Type"))
	set := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSet, nil, "AttributeValue")
	for _, value := range e.Values {
		set.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, value, "Vals"))
	}
	seq.AppendChild(set)
	return seq
}

const (
	entryObjectNameIdx = 0
	entryAttributesIdx = 1

	attributeTypeIdx = 0
	attributeValsIdx = 1
)

// entry parses a SearchResultEntry:
//
//	SearchResultEntry ::= [APPLICATION 4] SEQUENCE {
//		objectName      LDAPDN,
//		attributes      PartialAttributeList }
//
//	PartialAttributeList ::= SEQUENCE OF partialAttribute PartialAttribute
//
//	PartialAttribute ::= SEQUENCE {
//		type       AttributeDescription,
//		vals       SET OF value AttributeValue }
func (p *packet) entry() (*Entry, error) {
	const op = "ldapcodec.(packet).entry"
	if err := p.assert(ber.ClassApplication, ber.TypeConstructed, withLenChildren(2)); err != nil {
		return nil, fmt.Errorf("%s: invalid search result entry: %w", op, err)
	}
	dn, err := p.octetString(entryObjectNameIdx, "entry_dn")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := p.assert(ber.ClassUniversal, ber.TypeConstructed, withTag(ber.TagSequence), withAssertChild(entryAttributesIdx)); err != nil {
		return nil, fmt.Errorf("%s: missing/invalid attributes packet: %w", op, err)
	}
	e := &Entry{DN: dn}
	for idx, child := range p.Children[entryAttributesIdx].Children {
		attrPacket := &packet{Packet: child}
		attr, err := attrPacket.entryAttribute()
		if err != nil {
			return nil, fmt.Errorf("%s: attribute %d: %w", op, idx, err)
		}
		e.Attributes = append(e.Attributes, attr)
	}
	return e, nil
}

func (p *packet) entryAttribute() (*EntryAttribute, error) {
	const op = "ldapcodec.(packet).entryAttribute"
	if err := p.assert(ber.ClassUniversal, ber.TypeConstructed, withTag(ber.TagSequence), withLenChildren(2)); err != nil {
		return nil, fmt.Errorf("%s: invalid partial attribute: %w", op, err)
	}
	name, err := p.octetString(attributeTypeIdx, "attribute type")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := p.assert(ber.ClassUniversal, ber.TypeConstructed, withTag(ber.TagSet), withAssertChild(attributeValsIdx)); err != nil {
		return nil, fmt.Errorf("%s: missing/invalid vals packet for %q: %w", op, name, err)
	}
	valsPacket := &packet{Packet: p.Children[attributeValsIdx]}
	values := make([]string, 0, len(valsPacket.Children))
	for idx := range valsPacket.Children {
		v, err := valsPacket.octetString(idx, fmt.Sprintf("value %d of attribute %q", idx, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		values = append(values, v)
	}
	return NewEntryAttribute(name, values), nil
}
