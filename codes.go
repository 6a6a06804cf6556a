// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

package ldapcodec

import (
	"fmt"

	"github.com/go-ldap/ldap/v3"
)

// ProtocolOp identifies the LDAP protocol operation carried by a message. Its
// value is the operation's APPLICATION tag number (see RFC 4511 section 4.2)
type ProtocolOp int64

// LDAP protocol operations
const (
	BindRequest           ProtocolOp = ldap.ApplicationBindRequest
	BindResponse          ProtocolOp = ldap.ApplicationBindResponse
	UnbindRequest         ProtocolOp = ldap.ApplicationUnbindRequest
	SearchRequest         ProtocolOp = ldap.ApplicationSearchRequest
	SearchResultEntry     ProtocolOp = ldap.ApplicationSearchResultEntry
	SearchResultDone      ProtocolOp = ldap.ApplicationSearchResultDone
	ModifyRequest         ProtocolOp = ldap.ApplicationModifyRequest
	ModifyResponse        ProtocolOp = ldap.ApplicationModifyResponse
	AddRequest            ProtocolOp = ldap.ApplicationAddRequest
	AddResponse           ProtocolOp = ldap.ApplicationAddResponse
	DelRequest            ProtocolOp = ldap.ApplicationDelRequest
	DelResponse           ProtocolOp = ldap.ApplicationDelResponse
	ModifyDNRequest       ProtocolOp = ldap.ApplicationModifyDNRequest
	ModifyDNResponse      ProtocolOp = ldap.ApplicationModifyDNResponse
	CompareRequest        ProtocolOp = ldap.ApplicationCompareRequest
	CompareResponse       ProtocolOp = ldap.ApplicationCompareResponse
	AbandonRequest        ProtocolOp = ldap.ApplicationAbandonRequest
	SearchResultReference ProtocolOp = ldap.ApplicationSearchResultReference
	ExtendedRequest       ProtocolOp = ldap.ApplicationExtendedRequest
	ExtendedResponse      ProtocolOp = ldap.ApplicationExtendedResponse
	IntermediateResponse  ProtocolOp = 25
)

// ProtocolOps returns every known protocol operation in tag order.
func ProtocolOps() []ProtocolOp {
	return []ProtocolOp{
		BindRequest,
		BindResponse,
		UnbindRequest,
		SearchRequest,
		SearchResultEntry,
		SearchResultDone,
		ModifyRequest,
		ModifyResponse,
		AddRequest,
		AddResponse,
		DelRequest,
		DelResponse,
		ModifyDNRequest,
		ModifyDNResponse,
		CompareRequest,
		CompareResponse,
		AbandonRequest,
		SearchResultReference,
		ExtendedRequest,
		ExtendedResponse,
		IntermediateResponse,
	}
}

// Known returns true if the op is a protocol operation defined by RFC 4511
func (op ProtocolOp) Known() bool {
	if op == IntermediateResponse {
		return true
	}
	if op < 0 || op > 255 {
		return false
	}
	_, ok := ldap.ApplicationMap[uint8(op)]
	return ok
}

// String returns a human-readable name for the op.
func (op ProtocolOp) String() string {
	if op == IntermediateResponse {
		return "Intermediate Response"
	}
	if op.Known() {
		return ldap.ApplicationMap[uint8(op)]
	}
	return fmt.Sprintf("Unknown Protocol Operation (%d)", int64(op))
}

// ResultCodeDescription returns a human-readable description of an LDAP result
// code.
func ResultCodeDescription(code int64) string {
	if code >= 0 && code <= 0xffff {
		if d, ok := ldap.LDAPResultCodeMap[uint16(code)]; ok {
			return d
		}
	}
	return fmt.Sprintf("Unknown Result Code (%d)", code)
}
