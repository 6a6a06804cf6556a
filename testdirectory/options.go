// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

package testdirectory

import (
	"github.com/hashicorp/go-hclog"
	"github.com/jimlambrt/ldapcodec"
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// applyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func applyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

type options struct {
	withLogger    hclog.Logger
	withDefaults  *Defaults
	withFirst     bool
	withControls  []ldapcodec.Option
	withMessageID int64
}

func defaults(t TestingT) options {
	if v, ok := interface{}(t).(HelperT); ok {
		v.Helper()
	}
	debugLogger := hclog.New(&hclog.LoggerOptions{
		Name:  "testdirectory-default-logger",
		Level: hclog.Error,
	})

	return options{
		withLogger:    debugLogger,
		withMessageID: 1,
		withDefaults: &Defaults{
			UserAttr:  DefaultUserAttr,
			GroupAttr: DefaultGroupAttr,
			UserDN:    DefaultUserDN,
			GroupDN:   DefaultGroupDN,
		},
	}
}

// Defaults define a type for composing all the defaults for Directory.New(...)
type Defaults struct {
	UserAttr string

	GroupAttr string

	// Users configures the user entries which are empty by default
	Users []*ldapcodec.Entry

	// Groups configures the group entries which are empty by default
	Groups []*ldapcodec.Entry

	// TokenGroups configures the tokenGroup entries which are empty be default
	TokenGroups map[string][]*ldapcodec.Entry

	// UserDN is the base distinguished name to use when searching for users
	// which is "ou=people,dc=example,dc=org" by default
	UserDN string

	// GroupDN is the base distinguished name to use when searching for groups
	// which is "ou=groups,dc=example,dc=org" by default
	GroupDN string

	// AllowAnonymousBind determines if anon binds are allowed
	AllowAnonymousBind bool

	// UPNDomain is the userPrincipalName domain, which enables a
	// userPrincipalDomain login with [username]@UPNDomain (optional)
	UPNDomain string
}

func getOpts(t TestingT, opt ...Option) options {
	if v, ok := interface{}(t).(HelperT); ok {
		v.Helper()
	}
	opts := defaults(t)
	applyOpts(&opts, opt...)
	return opts
}

// WithDefaults provides an option to provide a set of defaults to
// Directory.New(...) which make it much more composable.
func WithDefaults(t TestingT, defaults *Defaults) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			if defaults != nil {
				if defaults.AllowAnonymousBind {
					o.withDefaults.AllowAnonymousBind = true
				}
				if defaults.Users != nil {
					o.withDefaults.Users = defaults.Users
				}
				if defaults.Groups != nil {
					o.withDefaults.Groups = defaults.Groups
				}
				if defaults.UserDN != "" {
					o.withDefaults.UserDN = defaults.UserDN
				}
				if defaults.GroupDN != "" {
					o.withDefaults.GroupDN = defaults.GroupDN
				}
				if len(defaults.TokenGroups) > 0 {
					o.withDefaults.TokenGroups = defaults.TokenGroups
				}
				if defaults.UserAttr != "" {
					o.withDefaults.UserAttr = defaults.UserAttr
				}
				if defaults.GroupAttr != "" {
					o.withDefaults.GroupAttr = defaults.GroupAttr
				}
				if defaults.UPNDomain != "" {
					o.withDefaults.UPNDomain = defaults.UPNDomain
				}
			}
		}
	}
}

// WithLogger will optionally specify a logger
func WithLogger(t TestingT, l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			if l != nil {
				o.withLogger = l
			}
		}
	}
}

// WithStartMessageID sets the message id of the first transcript produced by
// the Directory (default: 1). Every operation uses the next id.
func WithStartMessageID(t TestingT, id int64) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withMessageID = id
		}
	}
}

// WithResponseOptions adds ldapcodec response options (typically
// ldapcodec.WithResponseControls) to every message in a transcript. It's
// ignored by New(...)
func WithResponseOptions(t TestingT, opt ...ldapcodec.Option) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withControls = append(o.withControls, opt...)
		}
	}
}

// withFirst will only return the first matching response
func withFirst(t TestingT) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withFirst = true
		}
	}
}
