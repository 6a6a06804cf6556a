// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

package ldapcodec

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Kind is the kind of a Value
type Kind int

const (
	NullKind Kind = iota
	StringKind
	BytesKind
	IntKind
	ListKind
	MapKind
)

func (k Kind) String() string {
	switch k {
	case NullKind:
		return "null"
	case StringKind:
		return "string"
	case BytesKind:
		return "bytes"
	case IntKind:
		return "int"
	case ListKind:
		return "list"
	case MapKind:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a generic, host-language-agnostic value. It's the representation
// used for everything which crosses the host boundary: decode input, decode
// results and diagnostics. The set of implementations is closed: Null,
// String, Bytes, Int, List and Map.
type Value interface {
	Kind() Kind
	value()
}

// Null is the absence of a value.
type Null struct{}

// String is a text value.
type String string

// Bytes is a raw byte sequence. It's only accepted as input.
type Bytes []byte

// Int is a 64-bit integer.
type Int int64

// List is an ordered sequence of values.
type List []Value

// Map is a string-keyed mapping of values.
type Map map[string]Value

func (Null) Kind() Kind   { return NullKind }
func (String) Kind() Kind { return StringKind }
func (Bytes) Kind() Kind  { return BytesKind }
func (Int) Kind() Kind    { return IntKind }
func (List) Kind() Kind   { return ListKind }
func (Map) Kind() Kind    { return MapKind }

func (Null) value()   {}
func (String) value() {}
func (Bytes) value()  {}
func (Int) value()    {}
func (List) value()   {}
func (Map) value()    {}

// Keys returns the map's keys in sorted order.
func (m Map) Keys() []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}

// GetString returns the String stored under key.
func (m Map) GetString(key string) (string, bool) {
	v, ok := m[key].(String)
	return string(v), ok
}

// GetInt returns the Int stored under key.
func (m Map) GetInt(key string) (int64, bool) {
	v, ok := m[key].(Int)
	return int64(v), ok
}

// GetList returns the List stored under key.
func (m Map) GetList(key string) (List, bool) {
	v, ok := m[key].(List)
	return v, ok
}

// GetMap returns the Map stored under key.
func (m Map) GetMap(key string) (Map, bool) {
	v, ok := m[key].(Map)
	return v, ok
}

// Strings returns the list as a []string, if every element is a String.
func (l List) Strings() ([]string, bool) {
	s := make([]string, 0, len(l))
	for _, v := range l {
		str, ok := v.(String)
		if !ok {
			return nil, false
		}
		s = append(s, string(str))
	}
	return s, true
}

// PrettyPrint will print the map to the writer (defaults to os.Stdout) with
// sorted keys.
//
// Options supported: WithWriter
func (m Map) PrettyPrint(indent int, opt ...Option) {
	opts := getGeneralOpts(opt...)
	if isNil(opts.withWriter) {
		opts.withWriter = os.Stdout
	}
	prettyPrint(opts.withWriter, m, indent)
}

func prettyPrint(w io.Writer, v Value, indent int) {
	pad := strings.Repeat(" ", indent)
	switch t := v.(type) {
	case Map:
		for _, k := range t.Keys() {
			switch child := t[k].(type) {
			case Map:
				fmt.Fprintf(w, "%s%s:\n", pad, k)
				prettyPrint(w, child, indent+2)
			case List:
				if s, ok := child.Strings(); ok {
					fmt.Fprintf(w, "%s%s: %v\n", pad, k, s)
					continue
				}
				fmt.Fprintf(w, "%s%s:\n", pad, k)
				prettyPrint(w, child, indent+2)
			default:
				fmt.Fprintf(w, "%s%s: %s\n", pad, k, scalarString(child))
			}
		}
	case List:
		for i, child := range t {
			switch child.(type) {
			case Map, List:
				fmt.Fprintf(w, "%s- [%d]\n", pad, i)
				prettyPrint(w, child, indent+2)
			default:
				fmt.Fprintf(w, "%s- %s\n", pad, scalarString(child))
			}
		}
	default:
		fmt.Fprintf(w, "%s%s\n", pad, scalarString(v))
	}
}

func scalarString(v Value) string {
	switch t := v.(type) {
	case nil, Null:
		return "null"
	case String:
		return fmt.Sprintf("%q", string(t))
	case Bytes:
		return fmt.Sprintf("% x", []byte(t))
	case Int:
		return fmt.Sprintf("%d", int64(t))
	default:
		return fmt.Sprintf("%v", t)
	}
}

// ToNative converts v into plain Go values: nil, string, []byte, int64,
// []interface{} and map[string]interface{}. It's what codecs serialize.
func ToNative(v Value) interface{} {
	switch t := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(t)
	case Bytes:
		return []byte(t)
	case Int:
		return int64(t)
	case List:
		l := make([]interface{}, 0, len(t))
		for _, e := range t {
			l = append(l, ToNative(e))
		}
		return l
	case Map:
		m := make(map[string]interface{}, len(t))
		for k, e := range t {
			m[k] = ToNative(e)
		}
		return m
	default:
		panic(fmt.Sprintf("ldapcodec.ToNative: unhandled value type %T", v))
	}
}

// FromNative converts plain Go values (as produced by encoding/json or
// msgpack decoders) into a Value.
func FromNative(i interface{}) (Value, error) {
	const op = "ldapcodec.FromNative"
	switch t := i.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case []byte:
		return Bytes(t), nil
	case int:
		return Int(t), nil
	case int8:
		return Int(t), nil
	case int16:
		return Int(t), nil
	case int32:
		return Int(t), nil
	case int64:
		return Int(t), nil
	case uint8:
		return Int(t), nil
	case uint16:
		return Int(t), nil
	case uint32:
		return Int(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return nil, fmt.Errorf("%s: integer %d overflows int64: %w", op, t, ErrInvalidParameter)
		}
		return Int(t), nil
	case float64:
		if t != math.Trunc(t) || t >= math.MaxInt64 || t < math.MinInt64 {
			return nil, fmt.Errorf("%s: %v is not an integer: %w", op, t, ErrInvalidParameter)
		}
		return Int(t), nil
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return nil, fmt.Errorf("%s: %s is not an integer: %w", op, t, ErrInvalidParameter)
		}
		return Int(n), nil
	case []interface{}:
		l := make(List, 0, len(t))
		for idx, e := range t {
			v, err := FromNative(e)
			if err != nil {
				return nil, fmt.Errorf("%s: list element %d: %w", op, idx, err)
			}
			l = append(l, v)
		}
		return l, nil
	case []string:
		l := make(List, 0, len(t))
		for _, e := range t {
			l = append(l, String(e))
		}
		return l, nil
	case map[string]interface{}:
		m := make(Map, len(t))
		for k, e := range t {
			v, err := FromNative(e)
			if err != nil {
				return nil, fmt.Errorf("%s: map key %q: %w", op, k, err)
			}
			m[k] = v
		}
		return m, nil
	case map[interface{}]interface{}:
		m := make(Map, len(t))
		for k, e := range t {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("%s: map key %v is not a string: %w", op, k, ErrInvalidParameter)
			}
			v, err := FromNative(e)
			if err != nil {
				return nil, fmt.Errorf("%s: map key %q: %w", op, key, err)
			}
			m[key] = v
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%s: unsupported type %T: %w", op, i, ErrInvalidParameter)
	}
}
