// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

package ldapcodec

import (
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
)

func TestProtocolOp(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	// tag values are fixed by RFC 4511
	assert.EqualValues(1, BindResponse)
	assert.EqualValues(4, SearchResultEntry)
	assert.EqualValues(5, SearchResultDone)
	assert.EqualValues(7, ModifyResponse)
	assert.EqualValues(19, SearchResultReference)

	ops := ProtocolOps()
	assert.Len(ops, len(ldap.ApplicationMap)+1)
	for i, op := range ops {
		assert.True(op.Known(), "%d should be known", op)
		assert.NotContains(op.String(), "Unknown")
		if i > 0 {
			assert.Greater(op, ops[i-1])
		}
	}
	for _, op := range []ProtocolOp{-1, 17, 18, 20, 26, 256} {
		assert.False(op.Known(), "%d should not be known", op)
		assert.Contains(op.String(), "Unknown Protocol Operation")
	}
	assert.Equal("Bind Response", BindResponse.String())
	assert.Equal("Intermediate Response", IntermediateResponse.String())
}

func TestResultCodeDescription(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	assert.Equal("Success", ResultCodeDescription(ldap.LDAPResultSuccess))
	assert.Equal("No Such Object", ResultCodeDescription(ldap.LDAPResultNoSuchObject))
	assert.Equal("Unknown Result Code (-1)", ResultCodeDescription(-1))
	assert.Equal("Unknown Result Code (70000)", ResultCodeDescription(70000))
}
