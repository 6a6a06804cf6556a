//go:build tools

// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

// Package tools pins the versions of the tools used to develop this module,
// so `go run mvdan.cc/gofumpt` uses the version in go.mod.
package tools

import (
	_ "mvdan.cc/gofumpt"
)
