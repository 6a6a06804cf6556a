// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

package ldapcodec

import (
	ber "github.com/go-asn1-ber/asn1-ber"
	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/require"
)

// TestingT defines a very slim interface required by the test helpers in
// this package.
type TestingT interface {
	Errorf(format string, args ...interface{})
	FailNow()
	Log(...interface{})
}

// HelperT is an optional interface for TestingT implementations.
type HelperT interface {
	Helper()
}

// TestBindResponse returns a DER encoded bind response message.
//
// Options supported: WithResponseMessageID, WithResponseCode,
// WithMatchedDN, WithDiagnosticMessage, WithResponseReferrals,
// WithServerSaslCreds, WithResponseControls
func TestBindResponse(t TestingT, opt ...Option) []byte {
	if v, ok := interface{}(t).(HelperT); ok {
		v.Helper()
	}
	return TestResultMessage(t, BindResponse, opt...)
}

// TestSearchResultDone returns a DER encoded search result done message.
func TestSearchResultDone(t TestingT, opt ...Option) []byte {
	if v, ok := interface{}(t).(HelperT); ok {
		v.Helper()
	}
	return TestResultMessage(t, SearchResultDone, opt...)
}

// TestModifyResponse returns a DER encoded modify response message.
func TestModifyResponse(t TestingT, opt ...Option) []byte {
	if v, ok := interface{}(t).(HelperT); ok {
		v.Helper()
	}
	return TestResultMessage(t, ModifyResponse, opt...)
}

// TestResultMessage returns a DER encoded message for protocolOp with an
// LDAPResult as its content. It's useful for any response which is an
// LDAPResult (add, delete, compare, etc).
func TestResultMessage(t TestingT, protocolOp ProtocolOp, opt ...Option) []byte {
	if v, ok := interface{}(t).(HelperT); ok {
		v.Helper()
	}
	require := require.New(t)
	require.True(protocolOp.Known(), "unknown protocol op %d", protocolOp)
	opts := getResponseOpts(opt...)

	code := ldap.LDAPResultSuccess
	if opts.withResponseCode != nil {
		code = *opts.withResponseCode
	}
	resultPacket := ber.Encode(ber.ClassApplication, ber.TypeConstructed, ber.Tag(protocolOp), nil, protocolOp.String())
	resultPacket.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagEnumerated, int64(code), ResultCodeDescription(int64(code))))
	resultPacket.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, opts.withMatchedDN, "matchedDN"))
	resultPacket.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, opts.withDiagnosticMessage, "diagnosticMessage"))
	if len(opts.withReferrals) > 0 {
		refPacket := ber.Encode(ber.ClassContext, ber.TypeConstructed, referralTag, nil, "Referral")
		for _, uri := range opts.withReferrals {
			refPacket.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, uri, "URI"))
		}
		resultPacket.AppendChild(refPacket)
	}
	if opts.withServerSaslCreds != nil {
		resultPacket.AppendChild(ber.NewString(ber.ClassContext, ber.TypePrimitive, serverSaslCredsTag, string(opts.withServerSaslCreds), "serverSaslCreds"))
	}
	return TestMessage(t, resultPacket, opt...)
}

// TestSearchResultEntry returns a DER encoded search result entry message
// for e. Attributes are encoded in the order of e.Attributes.
func TestSearchResultEntry(t TestingT, e *Entry, opt ...Option) []byte {
	if v, ok := interface{}(t).(HelperT); ok {
		v.Helper()
	}
	require := require.New(t)
	require.NotNil(e, "missing entry")

	resultPacket := ber.Encode(ber.ClassApplication, ber.TypeConstructed, ber.Tag(SearchResultEntry), nil, SearchResultEntry.String())
	resultPacket.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, e.DN, "DN"))
	attributesPacket := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, nil, "Attributes")
	for _, a := range e.Attributes {
		attributesPacket.AppendChild(a.encode())
	}
	resultPacket.AppendChild(attributesPacket)
	return TestMessage(t, resultPacket, opt...)
}

// TestSearchResultReference returns a DER encoded search result reference
// message for the uris
func TestSearchResultReference(t TestingT, uris []string, opt ...Option) []byte {
	if v, ok := interface{}(t).(HelperT); ok {
		v.Helper()
	}
	resultPacket := ber.Encode(ber.ClassApplication, ber.TypeConstructed, ber.Tag(SearchResultReference), nil, SearchResultReference.String())
	for _, uri := range uris {
		resultPacket.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, uri, "URI"))
	}
	return TestMessage(t, resultPacket, opt...)
}

// TestMessage wraps protocolOp in an LDAPMessage envelope and returns its
// DER encoding.
//
// Options supported: WithResponseMessageID, WithResponseControls
func TestMessage(t TestingT, protocolOp *ber.Packet, opt ...Option) []byte {
	if v, ok := interface{}(t).(HelperT); ok {
		v.Helper()
	}
	require := require.New(t)
	require.NotNil(protocolOp, "missing protocol op packet")
	opts := getResponseOpts(opt...)

	p := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, nil, "LDAP Response")
	p.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, opts.withMessageID, "MessageID"))
	p.AppendChild(protocolOp)
	if len(opts.withControls) > 0 {
		p.AppendChild(encodeControls(opts.withControls))
	}
	return p.Bytes()
}
