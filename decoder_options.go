// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

package ldapcodec

import "github.com/hashicorp/go-hclog"

type decoderOptions struct {
	withLogger    hclog.Logger
	withMessageID bool
	withControls  bool
	withReferrals bool
	withAllowBER  bool
}

func decoderDefaults() decoderOptions {
	return decoderOptions{}
}

// getDecoderOpts gets the defaults and applies the opt overrides passed
// in.
func getDecoderOpts(opt ...Option) decoderOptions {
	opts := decoderDefaults()
	applyOpts(&opts, opt...)
	return opts
}

// WithLogger provides the optional logger.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*decoderOptions); ok {
			o.withLogger = l
		}
	}
}

// WithMessageID adds the message_id field to decoded results.
func WithMessageID() Option {
	return func(o interface{}) {
		if o, ok := o.(*decoderOptions); ok {
			o.withMessageID = true
		}
	}
}

// WithControls adds the controls field to decoded results, when the message
// carries controls.
func WithControls() Option {
	return func(o interface{}) {
		if o, ok := o.(*decoderOptions); ok {
			o.withControls = true
		}
	}
}

// WithReferrals adds the referrals field to decoded results, when the
// result carries a referral.
func WithReferrals() Option {
	return func(o interface{}) {
		if o, ok := o.(*decoderOptions); ok {
			o.withReferrals = true
		}
	}
}

// WithAllowBER relaxes decoding to accept any BER encoding (indefinite and
// non-minimal lengths) instead of requiring DER.
func WithAllowBER() Option {
	return func(o interface{}) {
		if o, ok := o.(*decoderOptions); ok {
			o.withAllowBER = true
		}
	}
}
