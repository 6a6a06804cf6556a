// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

package host

import (
	"github.com/hashicorp/go-hclog"
	"github.com/jimlambrt/ldapcodec"
)

type tableOptions struct {
	withLogger               hclog.Logger
	withDisablePanicRecovery bool
}

func tableDefaults() tableOptions {
	return tableOptions{}
}

func getTableOpts(opt ...ldapcodec.Option) tableOptions {
	opts := tableDefaults()
	ldapcodec.ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger allows you pass a logger with whatever hclog.Level you wish
// including hclog.Off to turn off all logging
func WithLogger(l hclog.Logger) ldapcodec.Option {
	return func(o interface{}) {
		if o, ok := o.(*tableOptions); ok {
			o.withLogger = l
		}
	}
}

// WithDisablePanicRecovery will disable recovery from panics which occur
// when calling an export (default: false).
func WithDisablePanicRecovery() ldapcodec.Option {
	return func(o interface{}) {
		if o, ok := o.(*tableOptions); ok {
			o.withDisablePanicRecovery = true
		}
	}
}
