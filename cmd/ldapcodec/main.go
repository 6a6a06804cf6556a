// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

// Command ldapcodec decodes DER encoded LDAP messages from a file or stdin
// and writes the results as JSON or msgpack frames.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
