// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

package ldapcodec

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
)

// Result map keys
const (
	ProtocolOpKey    = "protocol_op"
	ResultCodeKey    = "result_code"
	MatchedDNKey     = "matched_dn"
	DiagnosticMsgKey = "diagnostic_msg"
	EntryDNKey       = "entry_dn"
	AttributesKey    = "attributes"
	MessageIDKey     = "message_id"
	ControlsKey      = "controls"
	ReferralsKey     = "referrals"

	ControlTypeKey        = "control_type"
	ControlCriticalityKey = "criticality"
	ControlDescriptionKey = "description"
)

// Decoder decodes DER encoded LDAP messages. A Decoder is immutable once
// created and is safe for concurrent use.
type Decoder struct {
	logger        hclog.Logger
	withMessageID bool
	withControls  bool
	withReferrals bool
	allowBER      bool
}

// NewDecoder creates a new Decoder.
//
// Options supported:
//
//	WithLogger allows you pass a logger with whatever hclog.Level you wish including hclog.Off to turn off all logging
//	WithMessageID adds the message id to results
//	WithControls adds decoded controls to results
//	WithReferrals adds referrals to results
//	WithAllowBER accepts BER instead of requiring DER
func NewDecoder(opt ...Option) (*Decoder, error) {
	opts := getDecoderOpts(opt...)
	if opts.withLogger == nil {
		opts.withLogger = hclog.New(&hclog.LoggerOptions{
			Name:  "Decoder-logger",
			Level: hclog.Error,
		})
	}
	return &Decoder{
		logger:        opts.withLogger,
		withMessageID: opts.withMessageID,
		withControls:  opts.withControls,
		withReferrals: opts.withReferrals,
		allowBER:      opts.withAllowBER,
	}, nil
}

// Decode decodes one LDAP message using a new Decoder created with opt.
func Decode(data []byte, opt ...Option) (Map, error) {
	const op = "ldapcodec.Decode"
	d, err := NewDecoder(opt...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return d.Decode(data)
}

// Decode decodes one LDAP message and projects it into a Map. Errors
// returned are always an *Error.
func (d *Decoder) Decode(data []byte) (Map, error) {
	const op = "ldapcodec.(Decoder).Decode"
	m, err := d.DecodeMessage(data)
	if err != nil {
		return nil, err
	}
	result, err := d.project(m)
	if err != nil {
		return nil, toError(op, err)
	}
	return result, nil
}

// DecodeValue is the host form of Decode: in must be a String or Bytes and
// the returned Result is either a Success with the decoded Map or a Failure
// with a diagnostic.
func (d *Decoder) DecodeValue(in Value) Result {
	const op = "ldapcodec.(Decoder).DecodeValue"
	var data []byte
	switch v := in.(type) {
	case String:
		data = []byte(v)
	case Bytes:
		data = v
	default:
		return Fail(newError(op, ErrWrongInputFormat, ErrWrongInputFormat.Error(), nil))
	}
	m, err := d.Decode(data)
	if err != nil {
		return Fail(err)
	}
	return Succeed(m)
}

// DecodeMessage decodes one LDAP message into its typed representation.
// Errors returned are always an *Error.
func (d *Decoder) DecodeMessage(data []byte) (m Message, retErr error) {
	const op = "ldapcodec.(Decoder).DecodeMessage"
	if d == nil {
		return nil, newError(op, ErrInvalidState, "missing decoder", nil)
	}
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("caught panic while decoding message", "op", op, "panic", fmt.Sprintf("%+v", r))
			m = nil
			retErr = newError(op, ErrInternal, fmt.Sprintf("internal error: %v", r), nil)
		}
	}()
	d.logger.Debug("decoding message", "op", op, "len", len(data))

	p, err := decodePacket(data)
	if err != nil {
		return nil, d.failed(op, err)
	}
	if !d.allowBER {
		if err := checkDER(data); err != nil {
			return nil, d.failed(op, err)
		}
	}
	if d.logger.IsDebug() {
		p.Log(d.logger.StandardWriter(&hclog.StandardLoggerOptions{}), 0, false)
	}
	m, err = newMessage(p)
	if err != nil {
		return nil, d.failed(op, err)
	}
	d.logger.Debug("message decoded", "op", op, "messageID", m.GetID(), "protocolOp", m.GetProtocolOp().String())
	return m, nil
}

func (d *Decoder) failed(op string, err error) *Error {
	e := toError(op, err)
	d.logger.Debug("decode failed", "op", op, "kind", e.Kind, "err", err.Error())
	return e
}

// toError returns the *Error in err's chain, or wraps err as a malformed
// message error.
func toError(op string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, ErrInternal) {
		return newError(op, ErrInternal, err.Error(), err)
	}
	return newError(op, ErrMalformedMessage, err.Error(), err)
}

// project builds the generic result for a typed message
func (d *Decoder) project(m Message) (Map, error) {
	const op = "ldapcodec.(Decoder).project"
	var result Map
	switch v := m.(type) {
	case *BindResponseMessage:
		result = d.projectResult(v.GetProtocolOp(), v.LDAPResult)
	case *SearchResultDoneMessage:
		result = d.projectResult(v.GetProtocolOp(), v.LDAPResult)
	case *ModifyResponseMessage:
		result = d.projectResult(v.GetProtocolOp(), v.LDAPResult)
	case *SearchResultEntryMessage:
		if v.Entry == nil {
			return nil, fmt.Errorf("%s: missing entry: %w", op, ErrInternal)
		}
		result = Map{
			ProtocolOpKey: Int(v.GetProtocolOp()),
			EntryDNKey:    String(v.Entry.DN),
			AttributesKey: projectAttributes(v.Entry.Attributes),
		}
	default:
		return nil, fmt.Errorf("%s: unhandled message type %T: %w", op, m, ErrInternal)
	}
	if d.withMessageID {
		result[MessageIDKey] = Int(m.GetID())
	}
	if d.withControls && len(m.GetControls()) > 0 {
		result[ControlsKey] = projectControls(m.GetControls())
	}
	return result, nil
}

func (d *Decoder) projectResult(protocolOp ProtocolOp, r LDAPResult) Map {
	d.logger.Debug("result", "protocolOp", protocolOp.String(), "resultCode", r.ResultCode, "description", ResultCodeDescription(r.ResultCode))
	result := Map{
		ProtocolOpKey:    Int(protocolOp),
		ResultCodeKey:    Int(r.ResultCode),
		MatchedDNKey:     String(r.MatchedDN),
		DiagnosticMsgKey: String(r.DiagnosticMessage),
	}
	if d.withReferrals && len(r.Referrals) > 0 {
		refs := make(List, 0, len(r.Referrals))
		for _, uri := range r.Referrals {
			refs = append(refs, String(uri))
		}
		result[ReferralsKey] = refs
	}
	return result
}

// projectAttributes groups values by attribute type, keeping wire order
// within each attribute. A repeated attribute type replaces the earlier one.
func projectAttributes(attrs []*EntryAttribute) Map {
	result := make(Map, len(attrs))
	for _, a := range attrs {
		vals := make(List, 0, len(a.Values))
		for _, v := range a.Values {
			vals = append(vals, String(v))
		}
		result[a.Name] = vals
	}
	return result
}

func projectControls(controls []Control) List {
	result := make(List, 0, len(controls))
	for _, c := range controls {
		var critical Int
		if c.Criticality {
			critical = 1
		}
		result = append(result, Map{
			ControlTypeKey:        String(c.Type),
			ControlCriticalityKey: critical,
			ControlDescriptionKey: String(c.String()),
		})
	}
	return result
}
