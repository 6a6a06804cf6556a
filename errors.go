// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

package ldapcodec

import "errors"

var (
	// ErrInvalidParameter is returned when a required parameter is missing or
	// invalid.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInvalidState is returned when a component is used before it's ready.
	ErrInvalidState = errors.New("invalid state")

	// ErrInternal is returned for unexpected internal failures (including
	// recovered panics).
	ErrInternal = errors.New("internal error")

	// ErrWrongInputFormat is returned when the decode input isn't a byte
	// sequence.
	ErrWrongInputFormat = errors.New("wrong format on input data")

	// ErrMalformedMessage is returned when the input isn't a valid DER
	// encoding of an LDAP message.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrNotImplemented is returned for operations (and protocol operation
	// kinds) which are not supported yet.
	ErrNotImplemented = errors.New("not yet implemented")

	// ErrInvalidTextEncoding is returned when an octet string that must be
	// text isn't valid UTF-8.
	ErrInvalidTextEncoding = errors.New("invalid text encoding")
)

// Error is the error type returned by the Decoder and the Encoder. Error()
// returns the diagnostic message which is handed back to callers across the
// host boundary. Callers should treat that text as opaque and use errors.Is
// with the Err* sentinels to classify failures.
type Error struct {
	// Op is the operation which failed.
	Op string
	// Kind is one of the package's Err* sentinels.
	Kind error
	// Msg is the diagnostic message.
	Msg string
	// Err is the underlying cause (if any)
	Err error
}

func newError(op string, kind error, msg string, cause error) *Error {
	return &Error{Op: op, Kind: kind, Msg: msg, Err: cause}
}

// Error returns the diagnostic message
func (e *Error) Error() string {
	switch {
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	case e.Kind != nil:
		return e.Kind.Error()
	default:
		return "unknown error"
	}
}

// Unwrap exposes both the error kind and the underlying cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Diagnostic returns the text which should be handed back to a caller for
// the err.
func Diagnostic(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return err.Error()
}
