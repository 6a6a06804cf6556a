// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

package ldapcodec

import (
	"fmt"

	ber "github.com/go-asn1-ber/asn1-ber"
)

const (
	resultCodeIdx        = 0
	resultMatchedDNIdx   = 1
	resultDiagMessageIdx = 2

	referralTag        = 3 // referral [3] Referral OPTIONAL
	serverSaslCredsTag = 7 // serverSaslCreds [7] OCTET STRING OPTIONAL
)

// Message defines a common interface for all decoded messages. The set of
// implementations is closed.
type Message interface {
	// GetID returns the message ID
	GetID() int64
	// GetProtocolOp returns the message's protocol operation
	GetProtocolOp() ProtocolOp
	// GetControls returns the message's controls
	GetControls() []Control
	message()
}

// BaseMessage defines a common base type for all messages (typically embedded)
type BaseMessage struct {
	ID       int64
	Controls []Control
}

// GetID returns the message ID
func (m BaseMessage) GetID() int64 { return m.ID }

// GetControls returns the message's controls
func (m BaseMessage) GetControls() []Control { return m.Controls }

func (BaseMessage) message() {}

// LDAPResult is the common result of most responses (see RFC 4511 section
// 4.1.9)
type LDAPResult struct {
	ResultCode        int64
	MatchedDN         string
	DiagnosticMessage string
	Referrals         []string
}

// BindResponseMessage is a bind response
type BindResponseMessage struct {
	BaseMessage
	LDAPResult
	ServerSaslCreds []byte
}

// GetProtocolOp returns BindResponse
func (*BindResponseMessage) GetProtocolOp() ProtocolOp { return BindResponse }

// SearchResultEntryMessage is a search result entry
type SearchResultEntryMessage struct {
	BaseMessage
	Entry *Entry
}

// GetProtocolOp returns SearchResultEntry
func (*SearchResultEntryMessage) GetProtocolOp() ProtocolOp { return SearchResultEntry }

// SearchResultDoneMessage is a search result done
type SearchResultDoneMessage struct {
	BaseMessage
	LDAPResult
}

// GetProtocolOp returns SearchResultDone
func (*SearchResultDoneMessage) GetProtocolOp() ProtocolOp { return SearchResultDone }

// ModifyResponseMessage is a modify response
type ModifyResponseMessage struct {
	BaseMessage
	LDAPResult
}

// GetProtocolOp returns ModifyResponse
func (*ModifyResponseMessage) GetProtocolOp() ProtocolOp { return ModifyResponse }

// newMessage will create a new typed message from the packet.
func newMessage(p *packet) (Message, error) {
	const op = "ldapcodec.newMessage"

	id, err := p.messageID()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	protocolOp, err := p.protocolOp()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	opPacket, err := p.protocolOpPacket()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	switch protocolOp {
	case BindResponse,
		SearchResultEntry,
		SearchResultDone,
		ModifyResponse:
	case SearchResultReference:
		return nil, newError(op, ErrNotImplemented, "decoder not yet implement: search result reference", fmt.Errorf("%s: %s", op, protocolOp))
	case BindRequest,
		UnbindRequest,
		SearchRequest,
		ModifyRequest,
		AddRequest,
		AddResponse,
		DelRequest,
		DelResponse,
		ModifyDNRequest,
		ModifyDNResponse,
		CompareRequest,
		CompareResponse,
		AbandonRequest,
		ExtendedRequest,
		ExtendedResponse,
		IntermediateResponse:
		return nil, newError(op, ErrNotImplemented, "decoder not yet implement", fmt.Errorf("%s: %s", op, protocolOp))
	default:
		return nil, fmt.Errorf("%s: unhandled protocol operation %s: %w", op, protocolOp, ErrInternal)
	}

	controls, err := p.controls()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	base := BaseMessage{ID: id, Controls: controls}

	switch protocolOp {
	case BindResponse:
		r, creds, err := opPacket.ldapResult(true)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid bind response: %w", op, err)
		}
		return &BindResponseMessage{BaseMessage: base, LDAPResult: r, ServerSaslCreds: creds}, nil
	case SearchResultEntry:
		e, err := opPacket.entry()
		if err != nil {
			return nil, fmt.Errorf("%s: invalid search result entry: %w", op, err)
		}
		return &SearchResultEntryMessage{BaseMessage: base, Entry: e}, nil
	case SearchResultDone:
		r, _, err := opPacket.ldapResult(false)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid search result done: %w", op, err)
		}
		return &SearchResultDoneMessage{BaseMessage: base, LDAPResult: r}, nil
	default: // ModifyResponse
		r, _, err := opPacket.ldapResult(false)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid modify response: %w", op, err)
		}
		return &ModifyResponseMessage{BaseMessage: base, LDAPResult: r}, nil
	}
}

// ldapResult parses an LDAPResult (and the optional serverSaslCreds when
// bind is true):
//
//	LDAPResult ::= SEQUENCE {
//		resultCode         ENUMERATED { ... },
//		matchedDN          LDAPDN,
//		diagnosticMessage  LDAPString,
//		referral           [3] Referral OPTIONAL }
func (p *packet) ldapResult(bind bool) (LDAPResult, []byte, error) {
	const op = "ldapcodec.(packet).ldapResult"
	maxLen := 4
	if bind {
		maxLen = 5
	}
	if err := p.assert(ber.ClassApplication, ber.TypeConstructed, withMinChildren(3), withMaxChildren(maxLen)); err != nil {
		return LDAPResult{}, nil, fmt.Errorf("%s: %w", op, err)
	}
	var r LDAPResult
	var err error
	if r.ResultCode, err = p.enumerated(resultCodeIdx, "result_code"); err != nil {
		return LDAPResult{}, nil, fmt.Errorf("%s: %w", op, err)
	}
	if r.MatchedDN, err = p.octetString(resultMatchedDNIdx, "matched_dn"); err != nil {
		return LDAPResult{}, nil, fmt.Errorf("%s: %w", op, err)
	}
	if r.DiagnosticMessage, err = p.octetString(resultDiagMessageIdx, "diagnostic_msg"); err != nil {
		return LDAPResult{}, nil, fmt.Errorf("%s: %w", op, err)
	}

	var creds []byte
	idx := resultDiagMessageIdx + 1
	if idx < len(p.Children) && p.Children[idx].ClassType == ber.ClassContext && p.Children[idx].Tag == referralTag {
		if err := p.assert(ber.ClassContext, ber.TypeConstructed, withTag(referralTag), withAssertChild(idx)); err != nil {
			return LDAPResult{}, nil, fmt.Errorf("%s: invalid referral packet: %w", op, err)
		}
		refPacket := &packet{Packet: p.Children[idx]}
		if len(refPacket.Children) == 0 {
			return LDAPResult{}, nil, fmt.Errorf("%s: referral must contain at least one uri", op)
		}
		for i := range refPacket.Children {
			uri, err := refPacket.octetString(i, "referral")
			if err != nil {
				return LDAPResult{}, nil, fmt.Errorf("%s: %w", op, err)
			}
			r.Referrals = append(r.Referrals, uri)
		}
		idx++
	}
	if bind && idx < len(p.Children) {
		if err := p.assert(ber.ClassContext, ber.TypePrimitive, withTag(serverSaslCredsTag), withAssertChild(idx)); err != nil {
			return LDAPResult{}, nil, fmt.Errorf("%s: invalid server sasl creds packet: %w", op, err)
		}
		creds = append([]byte{}, p.Children[idx].Data.Bytes()...)
		idx++
	}
	if idx != len(p.Children) {
		return LDAPResult{}, nil, fmt.Errorf("%s: unexpected packet at index %d", op, idx)
	}
	return r, creds, nil
}
