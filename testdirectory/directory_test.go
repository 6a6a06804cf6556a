// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

package testdirectory_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/go-hclog"
	"github.com/jimlambrt/ldapcodec"
	"github.com/jimlambrt/ldapcodec/testdirectory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readTranscript decodes every message in the transcript. Messages which
// can't be decoded are returned as their diagnostic.
func readTranscript(t *testing.T, transcript []byte, opt ...ldapcodec.Option) []interface{} {
	t.Helper()
	require := require.New(t)
	dec, err := ldapcodec.NewDecoder(opt...)
	require.NoError(err)
	r, err := ldapcodec.NewMessageReader(bytes.NewReader(transcript), dec)
	require.NoError(err)
	var got []interface{}
	for {
		m, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			require.NoError(r.Err(), "stream should frame cleanly")
			got = append(got, err.Error())
			continue
		}
		got = append(got, m)
	}
	return got
}

func resultCode(t *testing.T, m interface{}) int64 {
	t.Helper()
	msg, ok := m.(ldapcodec.Map)
	require.True(t, ok, "expected a decoded message and got: %v", m)
	code, ok := msg.GetInt(ldapcodec.ResultCodeKey)
	require.True(t, ok)
	return code
}

func TestDirectory_Bind(t *testing.T) {
	t.Parallel()
	testLogger := hclog.New(&hclog.LoggerOptions{
		Name:  "test-logger",
		Level: hclog.Error,
	})
	users := testdirectory.NewUsers(t, []string{"alice"}, testdirectory.WithDefaults(t, &testdirectory.Defaults{
		UserAttr:  "uid",
		UPNDomain: "example.org",
	}))
	userDN := "uid=alice," + testdirectory.DefaultUserDN

	tests := []struct {
		name      string
		anonymous bool
		dn        string
		password  string
		wantCode  int64
	}{
		{
			name:     "valid",
			dn:       userDN,
			password: "password",
			wantCode: ldap.LDAPResultSuccess,
		},
		{
			name:     "upn",
			dn:       "alice@example.org",
			password: "password",
			wantCode: ldap.LDAPResultSuccess,
		},
		{
			name:     "bad-password",
			dn:       userDN,
			password: "bad",
			wantCode: ldap.LDAPResultInvalidCredentials,
		},
		{
			name:     "unknown-user",
			dn:       "uid=eve," + testdirectory.DefaultUserDN,
			password: "password",
			wantCode: ldap.LDAPResultInvalidCredentials,
		},
		{
			name:     "anon-not-allowed",
			wantCode: ldap.LDAPResultInvalidCredentials,
		},
		{
			name:      "anon-allowed",
			anonymous: true,
			wantCode:  ldap.LDAPResultSuccess,
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			td := testdirectory.New(t,
				testdirectory.WithLogger(t, testLogger),
				testdirectory.WithDefaults(t, &testdirectory.Defaults{Users: users, AllowAnonymousBind: tc.anonymous, UPNDomain: "example.org"}),
			)
			got := readTranscript(t, td.Bind(tc.dn, tc.password), ldapcodec.WithMessageID())
			require.Len(got, 1)
			assert.Equal(tc.wantCode, resultCode(t, got[0]))
			op, _ := got[0].(ldapcodec.Map).GetInt(ldapcodec.ProtocolOpKey)
			assert.Equal(int64(ldapcodec.BindResponse), op)
			id, _ := got[0].(ldapcodec.Map).GetInt(ldapcodec.MessageIDKey)
			assert.Equal(int64(1), id)
		})
	}
}

func TestDirectory_Search(t *testing.T) {
	t.Parallel()
	users := testdirectory.NewUsers(t, []string{"alice", "bob"})
	groups := []*ldapcodec.Entry{testdirectory.NewGroup(t, "admin", []string{"alice"})}
	tokenGroups := map[string][]*ldapcodec.Entry{
		"S-1-1": {testdirectory.NewGroup(t, "token", []string{"alice"})},
	}

	tests := []struct {
		name       string
		baseDN     string
		filter     string
		attributes []string
		references []string
		wantDNs    []string
		wantCode   int64
		wantRef    bool
	}{
		{
			name:     "users",
			baseDN:   testdirectory.DefaultUserDN,
			filter:   "(cn=alice)",
			wantDNs:  []string{"cn=alice," + testdirectory.DefaultUserDN},
			wantCode: ldap.LDAPResultSuccess,
		},
		{
			name:     "all-users",
			baseDN:   testdirectory.DefaultUserDN,
			filter:   "(|(cn=alice)(cn=bob))",
			wantDNs:  []string{"cn=alice," + testdirectory.DefaultUserDN, "cn=bob," + testdirectory.DefaultUserDN},
			wantCode: ldap.LDAPResultSuccess,
		},
		{
			name:     "group-members",
			baseDN:   testdirectory.DefaultGroupDN,
			filter:   "(member=cn=alice," + testdirectory.DefaultUserDN + ")",
			wantDNs:  []string{"cn=admin," + testdirectory.DefaultGroupDN},
			wantCode: ldap.LDAPResultSuccess,
		},
		{
			name:     "single-user-base",
			baseDN:   "cn=bob," + testdirectory.DefaultUserDN,
			filter:   "(objectClass=*)",
			wantDNs:  []string{"cn=bob," + testdirectory.DefaultUserDN},
			wantCode: ldap.LDAPResultSuccess,
		},
		{
			name:     "token-groups",
			baseDN:   "<SID=S-1-1>",
			filter:   "(objectClass=*)",
			wantDNs:  []string{"cn=token," + testdirectory.DefaultGroupDN},
			wantCode: ldap.LDAPResultSuccess,
		},
		{
			name:     "no-such-object",
			baseDN:   testdirectory.DefaultUserDN,
			filter:   "(cn=eve)",
			wantCode: ldap.LDAPResultNoSuchObject,
		},
		{
			name:     "invalid-filter",
			baseDN:   testdirectory.DefaultUserDN,
			filter:   "(cn=alice",
			wantCode: ldap.LDAPResultProtocolError,
		},
		{
			name:       "references",
			baseDN:     "dc=example,dc=org",
			filter:     "(cn=nobody)",
			references: []string{"ldap://other.example.org/dc=example,dc=org"},
			wantCode:   ldap.LDAPResultSuccess,
			wantRef:    true,
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			td := testdirectory.New(t, testdirectory.WithDefaults(t, &testdirectory.Defaults{
				Users:       users,
				Groups:      groups,
				TokenGroups: tokenGroups,
			}))
			td.SetReferences(tc.references...)

			got := readTranscript(t, td.Search(tc.baseDN, tc.filter, tc.attributes))
			wantLen := len(tc.wantDNs) + 1
			if tc.wantRef {
				wantLen++
			}
			require.Len(got, wantLen)
			for i, dn := range tc.wantDNs {
				m, ok := got[i].(ldapcodec.Map)
				require.True(ok)
				gotDN, _ := m.GetString(ldapcodec.EntryDNKey)
				assert.Equal(dn, gotDN)
			}
			if tc.wantRef {
				assert.Equal("decoder not yet implement: search result reference", got[len(got)-2])
			}
			done := got[len(got)-1]
			op, _ := done.(ldapcodec.Map).GetInt(ldapcodec.ProtocolOpKey)
			assert.Equal(int64(ldapcodec.SearchResultDone), op)
			assert.Equal(tc.wantCode, resultCode(t, done))
		})
	}
	t.Run("attributes", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		td := testdirectory.New(t, testdirectory.WithDefaults(t, &testdirectory.Defaults{Users: users}))
		got := readTranscript(t, td.Search(testdirectory.DefaultUserDN, "(cn=alice)", []string{"email"}))
		require.Len(got, 2)
		attrs, ok := got[0].(ldapcodec.Map).GetMap(ldapcodec.AttributesKey)
		require.True(ok)
		assert.Equal(ldapcodec.Map{"email": ldapcodec.List{ldapcodec.String("alice@example.com")}}, attrs)
	})
}

func TestDirectory_Modify(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	td := testdirectory.New(t, testdirectory.WithDefaults(t, &testdirectory.Defaults{
		Users: testdirectory.NewUsers(t, []string{"alice"}),
	}))
	aliceDN := "cn=alice," + testdirectory.DefaultUserDN

	got := readTranscript(t, td.Modify(aliceDN, map[string][]string{
		"email":       {"alice@example.org"},
		"password":    nil,
		"description": {"admin"},
	}))
	require.Len(got, 1)
	assert.Equal(int64(ldap.LDAPResultSuccess), resultCode(t, got[0]))

	alice := td.Users()[0]
	assert.Equal([]string{"alice@example.org"}, alice.GetAttributeValues("email"))
	assert.Equal([]string{"admin"}, alice.GetAttributeValues("description"))
	assert.Empty(alice.GetAttributeValues("password"))

	// the password was removed, so binding fails
	got = readTranscript(t, td.Bind(aliceDN, "password"))
	require.Len(got, 1)
	assert.Equal(int64(ldap.LDAPResultInvalidCredentials), resultCode(t, got[0]))

	got = readTranscript(t, td.Modify("cn=eve,"+testdirectory.DefaultUserDN, map[string][]string{"email": {"eve@example.org"}}))
	require.Len(got, 1)
	assert.Equal(int64(ldap.LDAPResultNoSuchObject), resultCode(t, got[0]))
	diag, _ := got[0].(ldapcodec.Map).GetString(ldapcodec.DiagnosticMsgKey)
	assert.Equal("cn=eve,"+testdirectory.DefaultUserDN+" not found", diag)
}

func TestDirectory_Transcript(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	td := testdirectory.New(t,
		testdirectory.WithStartMessageID(t, 10),
		testdirectory.WithDefaults(t, &testdirectory.Defaults{
			Users: testdirectory.NewUsers(t, []string{"alice"}),
		}),
	)
	transcript := testdirectory.Transcript(t,
		td.Bind("cn=alice,"+testdirectory.DefaultUserDN, "password"),
		td.Search(testdirectory.DefaultUserDN, "(cn=alice)", nil,
			testdirectory.WithResponseOptions(t, ldapcodec.WithResponseControls(ldap.NewControlManageDsaIT(true))),
		),
		td.Modify("cn=alice,"+testdirectory.DefaultUserDN, map[string][]string{"email": {"a@example.org"}}),
	)

	got := readTranscript(t, transcript, ldapcodec.WithMessageID(), ldapcodec.WithControls())
	require.Len(got, 4)
	wantOps := []ldapcodec.ProtocolOp{ldapcodec.BindResponse, ldapcodec.SearchResultEntry, ldapcodec.SearchResultDone, ldapcodec.ModifyResponse}
	wantIDs := []int64{10, 11, 11, 12}
	for i, m := range got {
		msg, ok := m.(ldapcodec.Map)
		require.True(ok)
		op, _ := msg.GetInt(ldapcodec.ProtocolOpKey)
		assert.Equal(int64(wantOps[i]), op)
		id, _ := msg.GetInt(ldapcodec.MessageIDKey)
		assert.Equal(wantIDs[i], id)
		_, hasControls := msg.GetList(ldapcodec.ControlsKey)
		assert.Equal(i == 1 || i == 2, hasControls)
	}
}

func TestDirectory_Setters(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	td := testdirectory.New(t)
	assert.Empty(td.Users())
	assert.Empty(td.Groups())
	assert.Empty(td.TokenGroups())
	assert.False(td.AllowAnonymousBind())

	users := testdirectory.NewUsers(t, []string{"alice"})
	td.SetUsers(users...)
	assert.Equal(users, td.Users())

	groups := []*ldapcodec.Entry{testdirectory.NewGroup(t, "admin", []string{"alice"})}
	td.SetGroups(groups...)
	assert.Equal(groups, td.Groups())

	tokenGroups := map[string][]*ldapcodec.Entry{"S-1-1": groups}
	td.SetTokenGroups(tokenGroups)
	assert.Equal(tokenGroups, td.TokenGroups())

	td.SetAllowAnonymousBind(true)
	assert.True(td.AllowAnonymousBind())
}
