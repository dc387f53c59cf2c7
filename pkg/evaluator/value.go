// Package evaluator implements the uytin tree-walking evaluator.
package evaluator

import "strconv"

// Value is the interface for all uytin runtime values.
// Use the sealed marker method to restrict implementations to this package.
type Value interface {
	// String returns the text written by print.
	String() string
	value() // sealed marker
}

// Int is a signed 64-bit integer.
type Int struct {
	Value int64
}

func (Int) value()           {}
func (v Int) String() string { return strconv.FormatInt(v.Value, 10) }

// Str is a string with its quotes already removed.
type Str struct {
	Value string
}

func (Str) value()           {}
func (v Str) String() string { return v.Value }

// Bool is produced by comparisons.
type Bool struct {
	Value bool
}

func (Bool) value() {}
func (v Bool) String() string {
	if v.Value {
		return "true"
	}
	return "false"
}

// Nothing is the result of statements that produce no value: print,
// function declarations, an if whose branch did not run, empty blocks.
type Nothing struct{}

func (Nothing) value()         {}
func (Nothing) String() string { return "nothing" }

// NewInt creates an integer value.
func NewInt(n int64) Value {
	return Int{Value: n}
}

// NewStr creates a string value.
func NewStr(s string) Value {
	return Str{Value: s}
}

// NewBool creates a boolean value.
func NewBool(b bool) Value {
	return Bool{Value: b}
}

// NewNothing creates the "no value" marker.
func NewNothing() Value {
	return Nothing{}
}

// IsNothing reports whether v is absent or the "no value" marker.
func IsNothing(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Nothing)
	return ok
}

// Truthiness returns the condition interpretation of a value. Only
// booleans and integers are valid conditions; ok is false otherwise.
func Truthiness(v Value) (truthy bool, ok bool) {
	switch val := v.(type) {
	case Bool:
		return val.Value, true
	case Int:
		return val.Value != 0, true
	default:
		return false, false
	}
}

// Equal compares two values of the same type. ok is false when the types
// differ.
func Equal(a, b Value) (equal bool, ok bool) {
	switch av := a.(type) {
	case Int:
		bv, same := b.(Int)
		return same && av.Value == bv.Value, same
	case Str:
		bv, same := b.(Str)
		return same && av.Value == bv.Value, same
	case Bool:
		bv, same := b.(Bool)
		return same && av.Value == bv.Value, same
	case Nothing:
		_, same := b.(Nothing)
		return same, same
	}
	return false, false
}

// typeNameOf returns the type name used in error messages.
func typeNameOf(v Value) string {
	switch v.(type) {
	case Nothing:
		return "nothing"
	case Bool:
		return "boolean"
	case Int:
		return "integer"
	case Str:
		return "string"
	default:
		return "unknown"
	}
}
