// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

package testdirectory

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/jimlambrt/ldapcodec"
)

// TestingT defines a very slim interface required by a Directory test helper.
type TestingT interface {
	Errorf(format string, args ...interface{})
	FailNow()
	Log(...interface{})
}

// HelperT allows a test to optionally call Helper()
type HelperT interface {
	Helper()
}

// CleanupT allows a test to optionally register cleanup functions
type CleanupT interface {
	Cleanup(func())
}

// Logger wraps an hclog.Logger so it can be used as a TestingT outside of a
// test (a command generating fixtures, for example).
type Logger struct {
	Logger hclog.Logger
}

// NewLogger makes a new Logger
func NewLogger(logger hclog.Logger) (*Logger, error) {
	const op = "testdirectory.NewLogger"
	if logger == nil {
		return nil, fmt.Errorf("%s: missing logger: %w", op, ldapcodec.ErrInvalidParameter)
	}
	return &Logger{
		Logger: logger,
	}, nil
}

// Errorf will output the error to the log
func (l *Logger) Errorf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.Logger.Error(msg)
}

// Infof will output the info to the log
func (l *Logger) Infof(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.Logger.Info(msg)
}

// Log will output the args to the log
func (l *Logger) Log(args ...interface{}) {
	l.Logger.Info(fmt.Sprint(args...))
}

// FailNow will panic
func (l *Logger) FailNow() {
	panic("testing.T failed, see logs for output (if any)")
}

// NewUsers is a helper function to create the user entries for a Directory.
// Every user has the password "password".
//
// Options supported: WithDefaults
func NewUsers(t TestingT, userNames []string, opt ...Option) []*ldapcodec.Entry {
	if v, ok := interface{}(t).(HelperT); ok {
		v.Helper()
	}
	opts := getOpts(t, opt...)
	entries := make([]*ldapcodec.Entry, 0, len(userNames))
	for _, name := range userNames {
		attrs := map[string][]string{
			opts.withDefaults.UserAttr: {name},
			"name":                     {name},
			"email":                    {fmt.Sprintf("%s@example.com", name)},
			"password":                 {"password"},
		}
		if opts.withDefaults.UPNDomain != "" {
			attrs["userPrincipalName"] = []string{fmt.Sprintf("%s@%s", name, opts.withDefaults.UPNDomain)}
		}
		entries = append(entries, ldapcodec.NewEntry(userDN(name, opts), attrs))
	}
	return entries
}

// NewGroup creates a group entry for a Directory with the named members.
//
// Options supported: WithDefaults
func NewGroup(t TestingT, groupName string, memberNames []string, opt ...Option) *ldapcodec.Entry {
	if v, ok := interface{}(t).(HelperT); ok {
		v.Helper()
	}
	opts := getOpts(t, opt...)
	members := make([]string, 0, len(memberNames))
	for _, m := range memberNames {
		members = append(members, userDN(m, opts))
	}
	return ldapcodec.NewEntry(groupDN(groupName, opts), map[string][]string{
		opts.withDefaults.GroupAttr: {groupName},
		"member":                    members,
	})
}

// NewMemberOf creates memberOf attributes values which can be assigned to
// user entries.
//
// Options supported: WithDefaults
func NewMemberOf(t TestingT, groupNames []string, opt ...Option) []string {
	if v, ok := interface{}(t).(HelperT); ok {
		v.Helper()
	}
	opts := getOpts(t, opt...)
	DNs := make([]string, 0, len(groupNames))
	for _, n := range groupNames {
		DNs = append(DNs, groupDN(n, opts))
	}
	return DNs
}

func userDN(name string, opts options) string {
	return fmt.Sprintf("%s=%s,%s", opts.withDefaults.UserAttr, name, opts.withDefaults.UserDN)
}

func groupDN(name string, opts options) string {
	return fmt.Sprintf("%s=%s,%s", opts.withDefaults.GroupAttr, name, opts.withDefaults.GroupDN)
}
