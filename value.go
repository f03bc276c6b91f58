package tiny

import (
	"fmt"
	"math"
)

// Kind is the tag of the Value union described by the data model: a
// script value is always exactly one of these variants.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindConstString
	KindHeapString
	KindNative
	KindLightNative
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindConstString:
		return "const_string"
	case KindHeapString:
		return "heap_string"
	case KindNative:
		return "native"
	case KindLightNative:
		return "light_native"
	default:
		return "unknown"
	}
}

// Value is a tagged union of the seven runtime variants. It is kept as
// a plain struct rather than an interface so that numbers and bools,
// the hottest path through the VM's binary and relational opcodes,
// never need a heap allocation.
type Value struct {
	kind Kind

	b      bool
	n      float64
	strIdx int // pool index, valid when kind == KindConstString

	obj *HeapObject // valid when kind is KindHeapString or KindNative

	light any // valid when kind == KindLightNative
}

func Null() Value                       { return Value{kind: KindNull} }
func Bool(b bool) Value                  { return Value{kind: KindBool, b: b} }
func Number(n float64) Value             { return Value{kind: KindNumber, n: n} }
func constString(poolIdx int) Value      { return Value{kind: KindConstString, strIdx: poolIdx} }
func heapString(o *HeapObject) Value     { return Value{kind: KindHeapString, obj: o} }
func nativeValue(o *HeapObject) Value    { return Value{kind: KindNative, obj: o} }
func LightNative(addr any) Value         { return Value{kind: KindLightNative, light: addr} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Truthy reports whether v is Bool(true). Any non-Bool value is a
// runtime type error at the call site (LOG_NOT, LOG_AND, LOG_OR and
// GOTOZ all require an operand of kind Bool).
func (v Value) Truthy() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsBool returns the boolean payload of v, or false if v is not a
// Bool. Host-facing conversion accessors default rather than fail.
func (v Value) AsBool() bool {
	if v.kind == KindBool {
		return v.b
	}
	return false
}

// AsNumber returns the numeric payload of v, or 0 if v is not a
// Number.
func (v Value) AsNumber() float64 {
	if v.kind == KindNumber {
		return v.n
	}
	return 0
}

// AsString returns the string payload of a ConstString or HeapString
// value, or "" otherwise. Unlike Format, it never renders a
// human-readable fallback for other kinds, so a host can tell "v was
// empty string" apart from "v wasn't a string" by checking Kind first.
func (v Value) AsString(state *State) string {
	switch v.kind {
	case KindConstString:
		return state.strings.get(v.strIdx)
	case KindHeapString:
		if v.obj != nil {
			return v.obj.stringValue()
		}
	}
	return ""
}

// LightAddr returns the payload of a LightNative value, or nil.
func (v Value) LightAddr() any {
	if v.kind == KindLightNative {
		return v.light
	}
	return nil
}

// NativeAddr returns the host-owned payload of a Native value, or
// nil if v is not a Native.
func (v Value) NativeAddr() any {
	if v.kind == KindNative && v.obj != nil {
		return v.obj.addr
	}
	return nil
}

func i32trunc(n float64) int32 {
	if math.IsNaN(n) {
		return 0
	}
	return int32(int64(n))
}

// Format renders v the way the built-in PRINT instruction does:
// numbers without a trailing ".0" when they're integral, strings
// without quotes, booleans as "true"/"false", null as "null".
func (v Value) Format(state *State) string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		if v.n == math.Trunc(v.n) && !math.IsInf(v.n, 0) {
			return fmt.Sprintf("%d", int64(v.n))
		}
		return fmt.Sprintf("%g", v.n)
	case KindConstString:
		return state.strings.get(v.strIdx)
	case KindHeapString:
		if v.obj != nil {
			return v.obj.stringValue()
		}
		return ""
	case KindNative:
		if v.obj != nil && v.obj.vtable != nil {
			if s, ok := v.obj.vtable.ToString(v.obj.addr); ok {
				return s.Format(state)
			}
			return fmt.Sprintf("<native %s>", v.obj.vtable.Name())
		}
		return "<native>"
	case KindLightNative:
		return fmt.Sprintf("<light_native %v>", v.light)
	default:
		return "<unknown>"
	}
}
