// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

package testdirectory

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/go-hclog"
	"github.com/jimlambrt/ldapcodec"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	// DefaultUserAttr is the "username" attribute of the entry's DN and is
	// typically either the cn in ActiveDirectory or uid in openLDAP  (default:
	// cn)
	DefaultUserAttr = "cn"

	// DefaultGroupAttr for the ClientConfig.GroupAttr
	DefaultGroupAttr = "cn"

	// DefaultUserDN defines a default base distinguished name to use when
	// searching for users for the Directory
	DefaultUserDN = "ou=people,dc=example,dc=org"

	// DefaultGroupDN defines a default base distinguished name to use when
	// searching for groups for the Directory
	DefaultGroupDN = "ou=groups,dc=example,dc=org"
)

// Directory is a fake ldap directory which answers operations with the DER
// encoded responses a directory server would send, which makes writing
// decoder tests much easier.
//
// It's important to remember that the Directory is stateful (see any of its
// receiver functions that begin with Set*, and Modify)
//
// The following operations are supported and each returns a transcript: the
// concatenated response messages for the operation, all using the same
// message id.
//
//   - Bind
//   - Search
//   - Modify
//
// Transcripts can be read with an ldapcodec.MessageReader.
type Directory struct {
	t      TestingT
	logger hclog.Logger

	mu                 sync.Mutex
	nextID             int64
	users              []*ldapcodec.Entry
	groups             []*ldapcodec.Entry
	tokenGroups        map[string][]*ldapcodec.Entry // string == SID
	references         []string
	allowAnonymousBind bool
	upnDomain          string

	// userDN is the base distinguished name to use when searching for users
	userDN string
	// groupDN is the base distinguished name to use when searching for groups
	groupDN string
}

// New creates a Directory.
//
// Supported options: WithDefaults, WithLogger, WithStartMessageID
func New(t TestingT, opt ...Option) *Directory {
	if v, ok := interface{}(t).(HelperT); ok {
		v.Helper()
	}
	opts := getOpts(t, opt...)
	return &Directory{
		t:                  t,
		logger:             opts.withLogger,
		nextID:             opts.withMessageID,
		users:              opts.withDefaults.Users,
		groups:             opts.withDefaults.Groups,
		tokenGroups:        opts.withDefaults.TokenGroups,
		userDN:             opts.withDefaults.UserDN,
		groupDN:            opts.withDefaults.GroupDN,
		allowAnonymousBind: opts.withDefaults.AllowAnonymousBind,
		upnDomain:          opts.withDefaults.UPNDomain,
	}
}

// Bind returns the bind response transcript for a simple bind with the dn
// and password.
//
// Supported options: WithResponseOptions
func (d *Directory) Bind(dn, password string, opt ...Option) []byte {
	const op = "testdirectory.(Directory).Bind"
	if v, ok := interface{}(d.t).(HelperT); ok {
		v.Helper()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	id, respOpts := d.responseOpts(opt...)
	d.logger.Debug(op, "messageID", id, "dn", dn)

	code := ldap.LDAPResultInvalidCredentials
	switch {
	case password == "" && d.allowAnonymousBind:
		code = ldap.LDAPResultSuccess
	default:
		for _, u := range d.users {
			if u.DN != dn && !d.isUPN(u, dn) {
				continue
			}
			d.logger.Debug("found bind user", "op", op, "DN", u.DN)
			values := u.GetAttributeValues("password")
			if len(values) > 0 && password == values[0] {
				code = ldap.LDAPResultSuccess
			}
			break
		}
	}
	return ldapcodec.TestBindResponse(d.t, append(respOpts, ldapcodec.WithResponseCode(code))...)
}

func (d *Directory) isUPN(u *ldapcodec.Entry, name string) bool {
	if d.upnDomain == "" {
		return false
	}
	for _, v := range u.GetAttributeValues("userPrincipalName") {
		if v == name {
			return true
		}
	}
	return false
}

// Search returns the search transcript for the baseDN and filter: a search
// result entry message for each match, a search result reference for each
// continuation reference (see SetReferences) and finally a search result
// done message. When attributes is not empty, only the named attributes are
// returned for each entry.
//
// Supported options: WithResponseOptions
func (d *Directory) Search(baseDN, filter string, attributes []string, opt ...Option) []byte {
	const op = "testdirectory.(Directory).Search"
	if v, ok := interface{}(d.t).(HelperT); ok {
		v.Helper()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	id, respOpts := d.responseOpts(opt...)
	d.logger.Info("search request", "op", op, "messageID", id, "baseDN", baseDN, "filter", filter, "attributes", attributes)

	var transcript bytes.Buffer
	if _, err := ldap.CompileFilter(filter); err != nil {
		d.logger.Debug("invalid filter", "op", op, "err", err)
		transcript.Write(ldapcodec.TestSearchResultDone(d.t, append(respOpts,
			ldapcodec.WithResponseCode(ldap.LDAPResultProtocolError),
			ldapcodec.WithDiagnosticMessage(err.Error()),
		)...))
		return transcript.Bytes()
	}

	var entries []*ldapcodec.Entry
	var refs []string
	switch {
	case len(d.tokenGroups) > 0 && strings.HasPrefix(baseDN, "<SID="):
		// searching for tokenGroups
		sid := strings.TrimSuffix(strings.TrimPrefix(baseDN, "<SID="), ">")
		entries = d.tokenGroups[sid]
	case strings.EqualFold(baseDN, d.userDN):
		_, entries = find(d.t, filter, d.users)
	case strings.EqualFold(baseDN, d.groupDN):
		_, entries = d.findMembers(filter)
		_, groups := find(d.t, filter, d.groups)
		entries = append(entries, groups...)
	default:
		// a search base below the userDN is a search for a single user
		if strings.Contains(baseDN, d.userDN) {
			filter = fmt.Sprintf("(%s)", baseDN)
			d.logger.Debug("new filter", "op", op, "value", filter)
		}
		_, users := find(d.t, filter, d.users)
		_, groups := find(d.t, filter, d.groups)
		entries = append(users, groups...)
		refs = d.references
	}

	for _, e := range entries {
		transcript.Write(ldapcodec.TestSearchResultEntry(d.t, selectAttributes(e, attributes), respOpts...))
	}
	if len(refs) > 0 {
		transcript.Write(ldapcodec.TestSearchResultReference(d.t, refs, respOpts...))
	}

	code := ldap.LDAPResultNoSuchObject
	if len(entries) > 0 || len(refs) > 0 {
		d.logger.Debug("found entries", "op", op, "count", len(entries))
		code = ldap.LDAPResultSuccess
	}
	transcript.Write(ldapcodec.TestSearchResultDone(d.t, append(respOpts, ldapcodec.WithResponseCode(code))...))
	return transcript.Bytes()
}

// Modify replaces the attributes of the entry with the dn and returns the
// modify response transcript. An attribute with no values is removed from
// the entry.
//
// Supported options: WithResponseOptions
func (d *Directory) Modify(dn string, replace map[string][]string, opt ...Option) []byte {
	const op = "testdirectory.(Directory).Modify"
	if v, ok := interface{}(d.t).(HelperT); ok {
		v.Helper()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	id, respOpts := d.responseOpts(opt...)
	d.logger.Debug(op, "messageID", id, "dn", dn)

	var target *ldapcodec.Entry
	for _, e := range append(slices.Clone(d.users), d.groups...) {
		if strings.EqualFold(e.DN, dn) {
			target = e
			break
		}
	}
	if target == nil {
		return ldapcodec.TestModifyResponse(d.t, append(respOpts,
			ldapcodec.WithResponseCode(ldap.LDAPResultNoSuchObject),
			ldapcodec.WithDiagnosticMessage(fmt.Sprintf("%s not found", dn)),
		)...)
	}

	names := maps.Keys(replace)
	slices.Sort(names)
	for _, name := range names {
		values := replace[name]
		idx := slices.IndexFunc(target.Attributes, func(a *ldapcodec.EntryAttribute) bool {
			return strings.EqualFold(a.Name, name)
		})
		switch {
		case idx < 0 && len(values) > 0:
			target.AddAttribute(name, values)
		case idx >= 0 && len(values) == 0:
			target.Attributes = slices.Delete(target.Attributes, idx, idx+1)
		case idx >= 0:
			target.Attributes[idx].Values = values
		}
	}
	return ldapcodec.TestModifyResponse(d.t, append(respOpts, ldapcodec.WithResponseCode(ldap.LDAPResultSuccess))...)
}

// responseOpts allocates the message id for an operation. The caller must
// hold d.mu
func (d *Directory) responseOpts(opt ...Option) (int64, []ldapcodec.Option) {
	if v, ok := interface{}(d.t).(HelperT); ok {
		v.Helper()
	}
	opts := getOpts(d.t, opt...)
	id := d.nextID
	d.nextID++
	respOpts := []ldapcodec.Option{ldapcodec.WithResponseMessageID(id)}
	return id, append(respOpts, opts.withControls...)
}

func selectAttributes(e *ldapcodec.Entry, attributes []string) *ldapcodec.Entry {
	if len(attributes) == 0 {
		return e
	}
	selected := &ldapcodec.Entry{DN: e.DN}
	for _, a := range e.Attributes {
		if slices.ContainsFunc(attributes, func(name string) bool { return strings.EqualFold(name, a.Name) }) {
			selected.Attributes = append(selected.Attributes, a)
		}
	}
	return selected
}

func (d *Directory) findMembers(filter string, opt ...Option) (bool, []*ldapcodec.Entry) {
	opts := getOpts(d.t, opt...)
	var matches []*ldapcodec.Entry
	for _, e := range d.groups {
		members := e.GetAttributeValues("member")
		for _, m := range members {
			if ok, _ := match(filter, "member="+m); ok {
				matches = append(matches, e)
				if opts.withFirst {
					return true, matches
				}
				break
			}
		}
	}
	if len(matches) > 0 {
		return true, matches
	}
	return false, nil
}

func find(t TestingT, filter string, entries []*ldapcodec.Entry, opt ...Option) (bool, []*ldapcodec.Entry) {
	opts := getOpts(t, opt...)
	var matches []*ldapcodec.Entry
	for _, e := range entries {
		if ok, _ := match(filter, e.DN); ok {
			matches = append(matches, e)
			if opts.withFirst {
				return true, matches
			}
		}
	}
	if len(matches) > 0 {
		return true, matches
	}
	return false, nil
}

var filterElement = regexp.MustCompile(`\((.*?)\)`)

// match reports if any element of the filter is contained in attr. Wildcards
// are ignored, so (cn=*) matches every entry with a cn in its DN.
func match(filter string, attr string) (bool, error) {
	submatchall := filterElement.FindAllString(filter, -1)
	for _, element := range submatchall {
		element = strings.ReplaceAll(element, "*", "")
		element = strings.Trim(element, "|&(")
		element = strings.Trim(element, "(")
		element = strings.Trim(element, ")")
		element = strings.TrimSpace(element)
		if element == "" {
			continue
		}
		if strings.Contains(attr, element) {
			return true, nil
		}
	}
	return false, nil
}

// Transcript concatenates the transcripts of several operations, in order,
// as they'd be read from a single connection.
func Transcript(t TestingT, transcripts ...[]byte) []byte {
	if v, ok := interface{}(t).(HelperT); ok {
		v.Helper()
	}
	require.NotEmpty(t, transcripts, "missing transcripts")
	return bytes.Join(transcripts, nil)
}

// Users returns all the current user entries in the Directory
func (d *Directory) Users() []*ldapcodec.Entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.users
}

// SetUsers sets the user entries.
func (d *Directory) SetUsers(users ...*ldapcodec.Entry) {
	if v, ok := interface{}(d.t).(HelperT); ok {
		v.Helper()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users = users
}

// Groups returns all the current group entries in the Directory
func (d *Directory) Groups() []*ldapcodec.Entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.groups
}

// SetGroups sets the group entries.
func (d *Directory) SetGroups(groups ...*ldapcodec.Entry) {
	if v, ok := interface{}(d.t).(HelperT); ok {
		v.Helper()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.groups = groups
}

// SetTokenGroups will set the tokenGroup entries.
func (d *Directory) SetTokenGroups(tokenGroups map[string][]*ldapcodec.Entry) {
	if v, ok := interface{}(d.t).(HelperT); ok {
		v.Helper()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tokenGroups = tokenGroups
}

// TokenGroups will return the tokenGroup entries
func (d *Directory) TokenGroups() map[string][]*ldapcodec.Entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tokenGroups
}

// SetReferences sets the continuation references returned by searches which
// aren't below the user or group DNs.
func (d *Directory) SetReferences(uris ...string) {
	if v, ok := interface{}(d.t).(HelperT); ok {
		v.Helper()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.references = uris
}

// AllowAnonymousBind returns the allow anon bind setting
func (d *Directory) AllowAnonymousBind() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.allowAnonymousBind
}

// SetAllowAnonymousBind enables/disables anon binds
func (d *Directory) SetAllowAnonymousBind(enabled bool) {
	if v, ok := interface{}(d.t).(HelperT); ok {
		v.Helper()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.allowAnonymousBind = enabled
}
