// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

package ldapcodec

// Encode is reserved for building LDAP messages from a Value. It isn't
// implemented and always returns a Failure.
func Encode(_ Value) Result {
	const op = "ldapcodec.Encode"
	return Fail(newError(op, ErrNotImplemented, "not yet implemented", nil))
}
