// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

package host

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jimlambrt/ldapcodec"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec serializes Values and Results for a host on the far side of a
// process boundary. A Result is always marshaled as the two-slot frame
// [value, error] where exactly one slot is nil.
type Codec interface {
	// Name returns the codec's format name
	Name() string
	// MarshalResult marshals r as a two-slot frame
	MarshalResult(r ldapcodec.Result) ([]byte, error)
	// MarshalValue marshals v
	MarshalValue(v ldapcodec.Value) ([]byte, error)
	// UnmarshalValue unmarshals a single value
	UnmarshalValue(data []byte) (ldapcodec.Value, error)
}

// Supported codec formats
const (
	JSONFormat    = "json"
	MsgpackFormat = "msgpack"
)

// NewCodec creates a codec for the format: JSONFormat or MsgpackFormat.
func NewCodec(format string) (Codec, error) {
	const op = "host.NewCodec"
	switch format {
	case JSONFormat:
		return &jsonCodec{}, nil
	case MsgpackFormat:
		return &msgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("%s: unsupported codec format %q: %w", op, format, ldapcodec.ErrInvalidParameter)
	}
}

// frame returns the native two-slot form of r
func frame(r ldapcodec.Result) []interface{} {
	value, diag := ldapcodec.Slots(r)
	return []interface{}{ldapcodec.ToNative(value), ldapcodec.ToNative(diag)}
}

type jsonCodec struct{}

func (*jsonCodec) Name() string { return JSONFormat }

func (*jsonCodec) MarshalResult(r ldapcodec.Result) ([]byte, error) {
	const op = "host.(jsonCodec).MarshalResult"
	b, err := json.Marshal(frame(r))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

func (*jsonCodec) MarshalValue(v ldapcodec.Value) ([]byte, error) {
	const op = "host.(jsonCodec).MarshalValue"
	b, err := json.Marshal(ldapcodec.ToNative(v))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

// UnmarshalValue unmarshals JSON. JSON has no byte strings, so binary input
// must be sent as a string, and a string's bytes are taken as-is. Only ASCII
// strings are accepted: JSON text is UTF-8, so a byte >= 0x80 can't be
// represented without being re-encoded. Use MsgpackFormat for such input.
// Numbers must be integers.
func (*jsonCodec) UnmarshalValue(data []byte) (ldapcodec.Value, error) {
	const op = "host.(jsonCodec).UnmarshalValue"
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var i interface{}
	if err := dec.Decode(&i); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%s: unexpected data after value: %w", op, ldapcodec.ErrInvalidParameter)
	}
	v, err := ldapcodec.FromNative(i)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := checkASCII(v); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

// checkASCII returns ldapcodec.ErrInvalidParameter if any string in v (map
// keys included) has a byte >= 0x80.
func checkASCII(v ldapcodec.Value) error {
	switch t := v.(type) {
	case ldapcodec.String:
		if i := nonASCII(string(t)); i >= 0 {
			return fmt.Errorf("non-ascii byte 0x%02x at offset %d of json string: %w", t[i], i, ldapcodec.ErrInvalidParameter)
		}
	case ldapcodec.List:
		for _, e := range t {
			if err := checkASCII(e); err != nil {
				return err
			}
		}
	case ldapcodec.Map:
		for k, e := range t {
			if i := nonASCII(k); i >= 0 {
				return fmt.Errorf("non-ascii byte 0x%02x at offset %d of json key: %w", k[i], i, ldapcodec.ErrInvalidParameter)
			}
			if err := checkASCII(e); err != nil {
				return err
			}
		}
	}
	return nil
}

// nonASCII returns the offset of the first byte >= 0x80 in s, or -1.
func nonASCII(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return i
		}
	}
	return -1
}

type msgpackCodec struct{}

func (*msgpackCodec) Name() string { return MsgpackFormat }

func (c *msgpackCodec) MarshalResult(r ldapcodec.Result) ([]byte, error) {
	const op = "host.(msgpackCodec).MarshalResult"
	b, err := c.marshal(frame(r))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

func (c *msgpackCodec) MarshalValue(v ldapcodec.Value) ([]byte, error) {
	const op = "host.(msgpackCodec).MarshalValue"
	b, err := c.marshal(ldapcodec.ToNative(v))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

// marshal encodes with sorted map keys so equal values have equal
// encodings.
func (*msgpackCodec) marshal(i interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(i); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (*msgpackCodec) UnmarshalValue(data []byte) (ldapcodec.Value, error) {
	const op = "host.(msgpackCodec).UnmarshalValue"
	r := bytes.NewReader(data)
	dec := msgpack.NewDecoder(r)
	i, err := dec.DecodeInterface()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if r.Len() > 0 {
		return nil, fmt.Errorf("%s: %d bytes of unexpected data after value: %w", op, r.Len(), ldapcodec.ErrInvalidParameter)
	}
	v, err := ldapcodec.FromNative(i)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}
