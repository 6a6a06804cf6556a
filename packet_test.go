// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

package ldapcodec

import (
	"strings"
	"testing"

	ber "github.com/go-asn1-ber/asn1-ber"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_decodePacket(t *testing.T) {
	t.Parallel()
	t.Run("valid", func(t *testing.T) {
		p, err := decodePacket(TestBindResponse(t))
		require.NoError(t, err)
		id, err := p.messageID()
		require.NoError(t, err)
		assert.Equal(t, int64(1), id)
		op, err := p.protocolOp()
		require.NoError(t, err)
		assert.Equal(t, BindResponse, op)
		_, ok, err := p.controlsPacket()
		require.NoError(t, err)
		assert.False(t, ok)
	})
	t.Run("parser-text-verbatim", func(t *testing.T) {
		_, err := decodePacket([]byte{0x30, 0xff})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedMessage)
		assert.Equal(t, "invalid length byte 0xff", err.Error())
	})
	t.Run("trailing", func(t *testing.T) {
		_, err := decodePacket(append(TestBindResponse(t), 0x01, 0x02))
		require.Error(t, err)
		assert.Equal(t, "2 bytes of trailing data after ldap message", err.Error())
	})
}

func Test_packet_basicValidation(t *testing.T) {
	t.Parallel()
	bigID := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, nil, "msg")
	bigID.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, int64(maxMessageID)+1, "MessageID"))
	bigID.AppendChild(ber.Encode(ber.ClassApplication, ber.TypeConstructed, ber.Tag(ModifyResponse), nil, "op"))

	tooMany := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, nil, "msg")
	tooMany.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, 1, "MessageID"))
	for i := 0; i < 3; i++ {
		tooMany.AppendChild(ber.Encode(ber.ClassApplication, ber.TypeConstructed, ber.Tag(ModifyResponse), nil, "op"))
	}

	idNotInt := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, nil, "msg")
	idNotInt.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "1", "MessageID"))
	idNotInt.AppendChild(ber.Encode(ber.ClassApplication, ber.TypeConstructed, ber.Tag(ModifyResponse), nil, "op"))

	tests := []struct {
		name            string
		data            []byte
		wantErrContains string
	}{
		{name: "max-message-id", data: TestModifyResponse(t, WithResponseMessageID(maxMessageID))},
		{name: "zero-message-id", data: TestModifyResponse(t, WithResponseMessageID(0))},
		{name: "message-id-too-large", data: bigID.Bytes(), wantErrContains: "message id 2147483648 is out of range"},
		{name: "too-many-children", data: tooMany.Bytes(), wantErrContains: "too many children packets"},
		{name: "message-id-not-integer", data: idNotInt.Bytes(), wantErrContains: "missing/invalid message id packet"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			p, err := decodePacket(tc.data)
			require.NoError(err)
			err = p.basicValidation()
			if tc.wantErrContains != "" {
				require.Error(err)
				assert.Contains(err.Error(), tc.wantErrContains)
				assert.False(p.validated)
				return
			}
			require.NoError(err)
			assert.True(p.validated)
			require.NoError(p.basicValidation())
		})
	}
}

func Test_packet_assert(t *testing.T) {
	t.Parallel()
	seq := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, nil, "seq")
	seq.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, 1, "int"))
	seq.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "s", "str"))
	p := &packet{Packet: seq}

	tests := []struct {
		name            string
		class           ber.Class
		typ             ber.Type
		opts            []Option
		wantErrContains string
	}{
		{name: "self", class: ber.ClassUniversal, typ: ber.TypeConstructed, opts: []Option{withTag(ber.TagSequence), withLenChildren(2)}},
		{name: "child", class: ber.ClassUniversal, typ: ber.TypePrimitive, opts: []Option{withTag(ber.TagOctetString), withAssertChild(1)}},
		{name: "any-type", class: ber.ClassUniversal, typ: ber.TypePrimitive, opts: []Option{withAnyType()}},
		{name: "len", class: ber.ClassUniversal, typ: ber.TypeConstructed, opts: []Option{withLenChildren(3)}, wantErrContains: "expected 3 but got 2"},
		{name: "min", class: ber.ClassUniversal, typ: ber.TypeConstructed, opts: []Option{withMinChildren(3)}, wantErrContains: "not enough children packets"},
		{name: "max", class: ber.ClassUniversal, typ: ber.TypeConstructed, opts: []Option{withMaxChildren(1)}, wantErrContains: "too many children packets"},
		{name: "missing-child", class: ber.ClassUniversal, typ: ber.TypePrimitive, opts: []Option{withAssertChild(2)}, wantErrContains: "missing asserted child 2"},
		{name: "negative-child", class: ber.ClassUniversal, typ: ber.TypePrimitive, opts: []Option{withAssertChild(-1)}, wantErrContains: "missing asserted child -1"},
		{name: "class", class: ber.ClassApplication, typ: ber.TypeConstructed, wantErrContains: "incorrect class"},
		{name: "type", class: ber.ClassUniversal, typ: ber.TypePrimitive, wantErrContains: "incorrect type"},
		{name: "tag", class: ber.ClassUniversal, typ: ber.TypePrimitive, opts: []Option{withTag(ber.TagBoolean), withAssertChild(0)}, wantErrContains: "incorrect tag"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := p.assert(tc.class, tc.typ, tc.opts...)
			if tc.wantErrContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErrContains)
				return
			}
			require.NoError(t, err)
		})
	}
}

func Test_packet_Log(t *testing.T) {
	t.Parallel()
	p, err := decodePacket(TestSearchResultDone(t, WithDiagnosticMessage("done")))
	require.NoError(t, err)
	var b strings.Builder
	p.Log(&b, 0, false)
	got := b.String()
	assert.Contains(t, got, "(Universal, Constructed, Sequence and Sequence of)")
	assert.Contains(t, got, "(Application, Constructed, Search Result Done)")
	assert.Contains(t, got, "  (Universal, Primitive, Octet String) Len=4 \"done\"")

	b.Reset()
	p.Log(&b, 0, true)
	assert.Greater(t, len(b.String()), len(got))

	b.Reset()
	p.Log(&b, 2, false)
	assert.True(t, strings.HasPrefix(b.String(), "  (Universal, Constructed,"))
	assert.Contains(t, b.String(), "\n    (Universal, Primitive, Octet String) Len=4 \"done\"")

	b.Reset()
	p.Log(&b, -1, false)
	assert.Equal(t, got, b.String())
}

func Test_text(t *testing.T) {
	t.Parallel()
	s, err := text([]byte("héllo"), "field")
	require.NoError(t, err)
	assert.Equal(t, "héllo", s)

	_, err = text([]byte{0xff}, "field")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTextEncoding)
	assert.Equal(t, "invalid text encoding: field is not valid utf-8", err.Error())
}
