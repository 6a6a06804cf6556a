// Copyright (c) Jim Lambert
// SPDX-License-Identifier: MIT

package ldapcodec

// Result is the outcome of a host operation: either a Success carrying a
// value or a Failure carrying a diagnostic. The set of implementations is
// closed, so a Result can never be both or neither.
type Result interface {
	// Ok returns true for a Success
	Ok() bool
	result()
}

// Success is a successful Result
type Success struct {
	Value Map
}

// Failure is a failed Result
type Failure struct {
	Diagnostic string
	// Err is the error which caused the failure; it does not cross the host
	// boundary.
	Err error
}

func (Success) Ok() bool { return true }
func (Failure) Ok() bool { return false }

func (Success) result() {}
func (Failure) result() {}

// Succeed returns a Success for m.
func Succeed(m Map) Result {
	if m == nil {
		m = Map{}
	}
	return Success{Value: m}
}

// Fail returns a Failure for err.
func Fail(err error) Result {
	if err == nil {
		err = newError("ldapcodec.Fail", ErrInternal, "missing error", nil)
	}
	return Failure{Diagnostic: Diagnostic(err), Err: err}
}

// Slots returns the two-slot form of r used by host runtimes: (value, Null)
// for a Success and (Null, String diagnostic) for a Failure.
func Slots(r Result) (Value, Value) {
	switch v := r.(type) {
	case Success:
		return v.Value, Null{}
	case Failure:
		return Null{}, String(v.Diagnostic)
	default:
		return Null{}, String("internal error: missing result")
	}
}
