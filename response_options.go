// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

package ldapcodec

import "github.com/go-ldap/ldap/v3"

type responseOptions struct {
	withMessageID         int64
	withResponseCode      *int
	withDiagnosticMessage string
	withMatchedDN         string
	withReferrals         []string
	withServerSaslCreds   []byte
	withControls          []ldap.Control
}

func responseDefaults() responseOptions {
	return responseOptions{
		withMessageID: 1,
	}
}

func getResponseOpts(opt ...Option) responseOptions {
	opts := responseDefaults()
	applyOpts(&opts, opt...)
	return opts
}

// WithResponseMessageID sets the message id of an encoded test response
// (default: 1)
func WithResponseMessageID(id int64) Option {
	return func(o interface{}) {
		if o, ok := o.(*responseOptions); ok {
			o.withMessageID = id
		}
	}
}

// WithResponseCode sets the result code of an encoded test response
// (default: ldap.LDAPResultSuccess)
func WithResponseCode(code int) Option {
	return func(o interface{}) {
		if o, ok := o.(*responseOptions); ok {
			o.withResponseCode = &code
		}
	}
}

// WithDiagnosticMessage sets the diagnostic message of an encoded test
// response
func WithDiagnosticMessage(msg string) Option {
	return func(o interface{}) {
		if o, ok := o.(*responseOptions); ok {
			o.withDiagnosticMessage = msg
		}
	}
}

// WithMatchedDN sets the matched DN of an encoded test response
func WithMatchedDN(dn string) Option {
	return func(o interface{}) {
		if o, ok := o.(*responseOptions); ok {
			o.withMatchedDN = dn
		}
	}
}

// WithResponseReferrals adds a referral to an encoded test response
func WithResponseReferrals(uris ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*responseOptions); ok {
			o.withReferrals = uris
		}
	}
}

// WithServerSaslCreds adds server sasl creds to an encoded test bind
// response
func WithServerSaslCreds(creds []byte) Option {
	return func(o interface{}) {
		if o, ok := o.(*responseOptions); ok {
			o.withServerSaslCreds = creds
		}
	}
}

// WithResponseControls adds message controls to an encoded test response
func WithResponseControls(controls ...ldap.Control) Option {
	return func(o interface{}) {
		if o, ok := o.(*responseOptions); ok {
			o.withControls = controls
		}
	}
}
