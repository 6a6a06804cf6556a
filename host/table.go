// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

// Package host exposes the ldapcodec operations to an embedding runtime as a
// table of named exports which exchange ldapcodec.Values.
package host

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/jimlambrt/ldapcodec"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Func is an exported operation. Funcs report every failure through the
// returned Result.
type Func func(ldapcodec.Value) ldapcodec.Result

// Export names registered by Module
const (
	DecodeExport = "decode"
	EncodeExport = "encode"
)

// Table is a namespace of exported operations. It is safe for concurrent
// use.
type Table struct {
	mu     sync.RWMutex
	funcs  map[string]Func
	logger hclog.Logger

	disablePanicRecovery bool
}

// NewTable creates an empty Table.
//
// Options supported: WithLogger, WithDisablePanicRecovery
func NewTable(opt ...ldapcodec.Option) (*Table, error) {
	opts := getTableOpts(opt...)
	if opts.withLogger == nil {
		opts.withLogger = hclog.New(&hclog.LoggerOptions{
			Name:  "Table-logger",
			Level: hclog.Error,
		})
	}
	return &Table{
		funcs:                map[string]Func{},
		logger:               opts.withLogger,
		disablePanicRecovery: opts.withDisablePanicRecovery,
	}, nil
}

// Module creates the Table an embedding runtime loads: exactly two exports,
// DecodeExport and EncodeExport. The opts are also used to create the
// Decoder behind DecodeExport, so decoder options like
// ldapcodec.WithControls may be passed here.
//
// Options supported: WithLogger, WithDisablePanicRecovery and all the
// ldapcodec.NewDecoder options
func Module(opt ...ldapcodec.Option) (*Table, error) {
	const op = "host.Module"
	t, err := NewTable(opt...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	decoderOpts := append([]ldapcodec.Option{ldapcodec.WithLogger(t.logger)}, opt...)
	d, err := ldapcodec.NewDecoder(decoderOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create decoder: %w", op, err)
	}
	if err := t.Register(DecodeExport, d.DecodeValue); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := t.Register(EncodeExport, ldapcodec.Encode); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

// Register adds an export. Names must be unique within the table.
func (t *Table) Register(name string, fn Func) error {
	const op = "host.(Table).Register"
	switch {
	case name == "":
		return fmt.Errorf("%s: missing name: %w", op, ldapcodec.ErrInvalidParameter)
	case fn == nil:
		return fmt.Errorf("%s: missing func for %q: %w", op, name, ldapcodec.ErrInvalidParameter)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.funcs[name]; ok {
		return fmt.Errorf("%s: %q is already registered: %w", op, name, ldapcodec.ErrInvalidParameter)
	}
	t.funcs[name] = fn
	t.logger.Debug("registered export", "op", op, "name", name)
	return nil
}

// Lookup returns the named export
func (t *Table) Lookup(name string) (Func, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	fn, ok := t.funcs[name]
	return fn, ok
}

// Names returns the sorted names of every export
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := maps.Keys(t.funcs)
	slices.Sort(names)
	return names
}

// Call invokes the named export with in. Unknown names and panics (unless
// panic recovery is disabled) are reported as a Failure.
func (t *Table) Call(name string, in ldapcodec.Value) (r ldapcodec.Result) {
	const op = "host.(Table).Call"
	fn, ok := t.Lookup(name)
	if !ok {
		return ldapcodec.Fail(fmt.Errorf("%s: unknown export %q: %w", op, name, ldapcodec.ErrInvalidParameter))
	}
	if !t.disablePanicRecovery {
		defer func() {
			if p := recover(); p != nil {
				t.logger.Error("caught panic while calling export", "op", op, "name", name, "panic", fmt.Sprintf("%+v", p))
				r = ldapcodec.Fail(fmt.Errorf("%s: panic calling %q: %v: %w", op, name, p, ldapcodec.ErrInternal))
			}
		}()
	}
	r = fn(in)
	if r == nil {
		return ldapcodec.Fail(fmt.Errorf("%s: %q returned no result: %w", op, name, ldapcodec.ErrInternal))
	}
	if t.logger.IsTrace() {
		t.logger.Trace("export called", "op", op, "name", name, "ok", r.Ok())
	}
	return r
}

// Invoke is Call for callers on the far side of a process boundary: payload
// is unmarshaled with c, the export is called and the Result is returned
// marshaled as a two-slot frame. A payload which can't be unmarshaled is
// reported as a Failure frame; an error is only returned when the frame
// itself can't be marshaled.
func (t *Table) Invoke(c Codec, name string, payload []byte) ([]byte, error) {
	const op = "host.(Table).Invoke"
	if c == nil {
		return nil, fmt.Errorf("%s: missing codec: %w", op, ldapcodec.ErrInvalidParameter)
	}
	var r ldapcodec.Result
	in, err := c.UnmarshalValue(payload)
	if err != nil {
		t.logger.Debug("unable to unmarshal payload", "op", op, "codec", c.Name(), "err", err.Error())
		r = ldapcodec.Fail(err)
	} else {
		r = t.Call(name, in)
	}
	frame, err := c.MarshalResult(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return frame, nil
}
