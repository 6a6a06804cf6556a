// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

package ldapcodec

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	t.Parallel()
	t.Run("kind-and-cause", func(t *testing.T) {
		assert := assert.New(t)
		err := newError("op", ErrMalformedMessage, io.ErrUnexpectedEOF.Error(), io.ErrUnexpectedEOF)
		assert.Equal("unexpected EOF", err.Error())
		assert.ErrorIs(err, ErrMalformedMessage)
		assert.ErrorIs(err, io.ErrUnexpectedEOF)
		assert.NotErrorIs(err, ErrNotImplemented)
	})
	t.Run("wrapped", func(t *testing.T) {
		assert := assert.New(t)
		err := fmt.Errorf("outer: %w", newError("op", ErrNotImplemented, "decoder not yet implement", nil))
		assert.ErrorIs(err, ErrNotImplemented)
		assert.Equal("decoder not yet implement", Diagnostic(err))
		var e *Error
		assert.True(errors.As(err, &e))
		assert.Equal("op", e.Op)
	})
	t.Run("no-kind", func(t *testing.T) {
		err := &Error{Msg: "msg"}
		assert.Empty(t, err.Unwrap())
	})
}

func TestDiagnostic(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	assert.Equal("", Diagnostic(nil))
	assert.Equal("plain", Diagnostic(errors.New("plain")))
	assert.Equal("outer: inner", Diagnostic(fmt.Errorf("outer: %w", &Error{Kind: ErrInternal, Err: errors.New("inner")})))
}
