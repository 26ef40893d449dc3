package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type ValueType uint8

const (
	TypeUndefined ValueType = iota
	TypeNull
	TypeBoolean
	TypeNumber
	TypeString
	TypeObject
)

// String returns a human-readable string representation of the ValueType
func (vt ValueType) String() string {
	switch vt {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBoolean:
		return "boolean"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a tagged value of the object model. The zero Value is undefined.
type Value struct {
	typ ValueType
	num float64 // number payload, or 1/0 for booleans
	str string
	obj Object
}

var (
	Undefined = Value{typ: TypeUndefined}
	Null      = Value{typ: TypeNull}
	True      = Value{typ: TypeBoolean, num: 1}
	False     = Value{typ: TypeBoolean, num: 0}
)

func BooleanValue(b bool) Value {
	if b {
		return True
	}
	return False
}

func NumberValue(f float64) Value {
	return Value{typ: TypeNumber, num: f}
}

func NewString(s string) Value {
	return Value{typ: TypeString, str: s}
}

// NewObjectValue wraps an object. A nil object, typed or not, yields null.
func NewObjectValue(o Object) Value {
	if o == nil {
		return Null
	}
	if r, ok := o.(*Record); ok && r == nil {
		return Null
	}
	return Value{typ: TypeObject, obj: o}
}

func (v Value) Type() ValueType { return v.typ }

func (v Value) IsUndefined() bool { return v.typ == TypeUndefined }
func (v Value) IsNull() bool      { return v.typ == TypeNull }
func (v Value) IsBoolean() bool   { return v.typ == TypeBoolean }
func (v Value) IsNumber() bool    { return v.typ == TypeNumber }
func (v Value) IsString() bool    { return v.typ == TypeString }
func (v Value) IsObject() bool    { return v.typ == TypeObject }

// IsCallable reports whether v is an object with a [[Call]] behavior.
func (v Value) IsCallable() bool {
	return v.typ == TypeObject && v.obj.IsCallable()
}

func (v Value) AsBoolean() bool {
	if v.typ != TypeBoolean {
		panic("value is not a boolean")
	}
	return v.num == 1
}

func (v Value) AsNumber() float64 {
	if v.typ != TypeNumber {
		panic("value is not a number")
	}
	return v.num
}

func (v Value) AsString() string {
	if v.typ != TypeString {
		panic("value is not a string")
	}
	return v.str
}

func (v Value) AsObject() Object {
	if v.typ != TypeObject {
		panic("value is not an object")
	}
	return v.obj
}

// AsRecord returns the backing record when v holds a plain *Record.
func (v Value) AsRecord() (*Record, bool) {
	if v.typ != TypeObject {
		return nil, false
	}
	r, ok := v.obj.(*Record)
	return r, ok
}

// --- Truthiness ---

// IsFalsey checks if the value is considered falsey according to ECMAScript rules.
// null, undefined, false, +0, -0, NaN and "" are falsey. Everything else is truthy.
func (v Value) IsFalsey() bool {
	switch v.typ {
	case TypeNull, TypeUndefined:
		return true
	case TypeBoolean:
		return v.num == 0
	case TypeNumber:
		return v.num == 0 || math.IsNaN(v.num)
	case TypeString:
		return v.str == ""
	default:
		return false
	}
}

// ToBoolean coerces a trap result the way `!!result` does.
func (v Value) ToBoolean() bool {
	return !v.IsFalsey()
}

// ToString converts primitives following ECMAScript ToString; objects render
// as "[object Object]" or "function" without invoking user code.
func (v Value) ToString() string {
	switch v.typ {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBoolean:
		if v.num == 1 {
			return "true"
		}
		return "false"
	case TypeNumber:
		return formatNumber(v.num)
	case TypeString:
		return v.str
	case TypeObject:
		if v.obj.IsCallable() {
			return "function"
		}
		return "[object Object]"
	default:
		return "<unknown>"
	}
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		// -0 prints as 0
		return "0"
	}
	abs := math.Abs(f)
	if abs < 1e-6 || abs >= 1e21 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		// "1e-07" -> "1e-7"
		if i := strings.IndexAny(s, "eE"); i >= 0 && i+2 < len(s) {
			exp := strings.TrimLeft(s[i+2:], "0")
			if exp == "" {
				exp = "0"
			}
			s = s[:i+2] + exp
		}
		return s
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Inspect renders a value for diagnostics. Unlike ToString it distinguishes
// strings from other primitives and shows -0.
func (v Value) Inspect() string {
	switch v.typ {
	case TypeString:
		return strconv.Quote(v.str)
	case TypeNumber:
		if v.num == 0 && math.Signbit(v.num) {
			return "-0"
		}
		return formatNumber(v.num)
	case TypeObject:
		if in, ok := v.obj.(interface{ Inspect() string }); ok {
			return in.Inspect()
		}
		return "[Object]"
	default:
		return v.ToString()
	}
}

func (v Value) String() string { return v.Inspect() }

// --- Equality ---

// SameValue implements the ECMAScript SameValue algorithm: +0 and -0 are
// different, NaN is the same as NaN, objects compare by identity.
func SameValue(a, b Value) bool {
	if a.typ != b.typ {
		return false
	}
	switch a.typ {
	case TypeUndefined, TypeNull:
		return true
	case TypeBoolean:
		return a.num == b.num
	case TypeNumber:
		if math.IsNaN(a.num) && math.IsNaN(b.num) {
			return true
		}
		if a.num == 0 && b.num == 0 {
			return math.Signbit(a.num) == math.Signbit(b.num)
		}
		return a.num == b.num
	case TypeString:
		return a.str == b.str
	case TypeObject:
		return a.obj == b.obj
	default:
		panic(fmt.Sprintf("Unhandled type in SameValue comparison: %v", a.typ))
	}
}
