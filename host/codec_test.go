// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

package host

import (
	"errors"
	"testing"

	"github.com/jimlambrt/ldapcodec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestNewCodec(t *testing.T) {
	t.Parallel()
	tests := []struct {
		format          string
		wantName        string
		wantErrContains string
	}{
		{format: "json", wantName: JSONFormat},
		{format: "msgpack", wantName: MsgpackFormat},
		{format: "protobuf", wantErrContains: `unsupported codec format "protobuf"`},
		{format: "", wantErrContains: "unsupported codec format"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.format, func(t *testing.T) {
			t.Parallel()
			c, err := NewCodec(tc.format)
			if tc.wantErrContains != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, ldapcodec.ErrInvalidParameter)
				assert.Contains(t, err.Error(), tc.wantErrContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantName, c.Name())
		})
	}
}

func TestCodec_values(t *testing.T) {
	t.Parallel()
	value := ldapcodec.Map{
		"null": ldapcodec.Null{},
		"str":  ldapcodec.String("hello"),
		"int":  ldapcodec.Int(-42),
		"big":  ldapcodec.Int(1 << 40),
		"list": ldapcodec.List{ldapcodec.String("a"), ldapcodec.Int(1)},
		"map":  ldapcodec.Map{"k": ldapcodec.List{}},
	}
	for _, format := range []string{JSONFormat, MsgpackFormat} {
		format := format
		t.Run(format, func(t *testing.T) {
			t.Parallel()
			c, err := NewCodec(format)
			require.NoError(t, err)
			b, err := c.MarshalValue(value)
			require.NoError(t, err)
			got, err := c.UnmarshalValue(b)
			require.NoError(t, err)
			assert.Equal(t, ldapcodec.Value(value), got)

			again, err := c.MarshalValue(value)
			require.NoError(t, err)
			assert.Equal(t, b, again, "encoding should be deterministic")
		})
	}
}

func TestCodec_msgpackNonASCII(t *testing.T) {
	t.Parallel()
	c, err := NewCodec(MsgpackFormat)
	require.NoError(t, err)
	for _, v := range []ldapcodec.Value{ldapcodec.String("héllo"), ldapcodec.Bytes{0x30, 0x81, 0x80, 0xff}} {
		b, err := c.MarshalValue(v)
		require.NoError(t, err)
		got, err := c.UnmarshalValue(b)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestCodec_MarshalResult(t *testing.T) {
	t.Parallel()
	success := ldapcodec.Succeed(ldapcodec.Map{ldapcodec.ProtocolOpKey: ldapcodec.Int(5)})
	failure := ldapcodec.Fail(errors.New("decoder not yet implement"))

	t.Run("json", func(t *testing.T) {
		c, err := NewCodec(JSONFormat)
		require.NoError(t, err)
		b, err := c.MarshalResult(success)
		require.NoError(t, err)
		assert.JSONEq(t, `[{"protocol_op": 5}, null]`, string(b))
		b, err = c.MarshalResult(failure)
		require.NoError(t, err)
		assert.JSONEq(t, `[null, "decoder not yet implement"]`, string(b))
	})
	t.Run("msgpack", func(t *testing.T) {
		c, err := NewCodec(MsgpackFormat)
		require.NoError(t, err)
		b, err := c.MarshalResult(failure)
		require.NoError(t, err)
		var got []interface{}
		require.NoError(t, msgpack.Unmarshal(b, &got))
		assert.Equal(t, []interface{}{nil, "decoder not yet implement"}, got)
	})
}

func TestCodec_UnmarshalValue_errors(t *testing.T) {
	t.Parallel()
	jsonCodec, err := NewCodec(JSONFormat)
	require.NoError(t, err)
	msgpackCodec, err := NewCodec(MsgpackFormat)
	require.NoError(t, err)
	trailing, err := msgpackCodec.MarshalValue(ldapcodec.Int(1))
	require.NoError(t, err)
	trailing = append(trailing, 0x01)
	boolean, err := msgpack.Marshal(true)
	require.NoError(t, err)

	tests := []struct {
		name            string
		c               Codec
		data            []byte
		wantErrIs       error
		wantErrContains string
	}{
		{name: "json-invalid", c: jsonCodec, data: []byte("{"), wantErrContains: "unexpected EOF"},
		{name: "json-trailing", c: jsonCodec, data: []byte(`1 2`), wantErrIs: ldapcodec.ErrInvalidParameter},
		{name: "json-float", c: jsonCodec, data: []byte(`1.5`), wantErrIs: ldapcodec.ErrInvalidParameter},
		{name: "json-bool", c: jsonCodec, data: []byte(`true`), wantErrContains: "unsupported type bool"},
		{name: "json-non-ascii", c: jsonCodec, data: []byte(`"\u00e9"`), wantErrIs: ldapcodec.ErrInvalidParameter, wantErrContains: "0xc3 at offset 0"},
		{name: "json-non-ascii-raw-utf8", c: jsonCodec, data: []byte("\"0\xc2\x80\""), wantErrIs: ldapcodec.ErrInvalidParameter, wantErrContains: "0xc2 at offset 1"},
		{name: "json-non-ascii-nested", c: jsonCodec, data: []byte(`[{"a":["ok","\u0080"]}]`), wantErrIs: ldapcodec.ErrInvalidParameter},
		{name: "json-non-ascii-key", c: jsonCodec, data: []byte(`{"\u00ff":1}`), wantErrIs: ldapcodec.ErrInvalidParameter, wantErrContains: "json key"},
		{name: "msgpack-empty", c: msgpackCodec, data: []byte{}, wantErrContains: "EOF"},
		{name: "msgpack-trailing", c: msgpackCodec, data: trailing, wantErrContains: "1 bytes of unexpected data"},
		{name: "msgpack-bool", c: msgpackCodec, data: boolean, wantErrIs: ldapcodec.ErrInvalidParameter},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := tc.c.UnmarshalValue(tc.data)
			require.Error(t, err)
			assert.Nil(t, got)
			if tc.wantErrIs != nil {
				assert.ErrorIs(t, err, tc.wantErrIs)
			}
			if tc.wantErrContains != "" {
				assert.Contains(t, err.Error(), tc.wantErrContains)
			}
		})
	}
}
