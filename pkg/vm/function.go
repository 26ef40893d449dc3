package vm

import (
	"math"
	"strconv"
	"strings"

	errorsPkg "github.com/corbinu/harmony-reflect/pkg/errors"
)

// NativeFunc is the [[Call]] behavior of a native function.
type NativeFunc func(this Value, args []Value) (Value, error)

// NativeConstructor is an explicit [[Construct]] behavior.
type NativeConstructor func(args []Value, newTarget Value) (Value, error)

// NewFunction creates a callable record. It carries a fresh "prototype"
// object so it can also be used with Construct.
func NewFunction(name string, fn NativeFunc) *Record {
	r := NewRecord(nil)
	r.name = name
	r.call = fn
	r.DefineData("prototype", NewObjectValue(NewRecord(nil)), true, false, false)
	r.DefineData("name", NewString(name), false, false, true)
	return r
}

// NewConstructor creates a record with both call and construct behaviors.
// A nil fn makes a constructor that cannot be called without new.
func NewConstructor(name string, fn NativeFunc, construct NativeConstructor) *Record {
	r := NewFunction(name, fn)
	r.construct = construct
	if fn == nil {
		r.call = func(Value, []Value) (Value, error) {
			return Undefined, errorsPkg.NewTypeError("class constructor %s cannot be invoked without 'new'", name)
		}
	}
	return r
}

// Call invokes fn with the given this and arguments.
func Call(fn Value, this Value, args []Value) (Value, error) {
	if !fn.IsCallable() {
		return Undefined, &errorsPkg.NotCallableError{Operation: "apply", Msg: fn.Inspect() + " is not a function"}
	}
	return fn.obj.Call(this, args)
}

// Construct invokes fn as a constructor. An undefined newTarget means fn.
func Construct(fn Value, args []Value, newTarget Value) (Value, error) {
	if !fn.IsCallable() {
		return Undefined, &errorsPkg.NotCallableError{Operation: "construct", Msg: fn.Inspect() + " is not a constructor"}
	}
	if newTarget.IsUndefined() {
		newTarget = fn
	}
	return fn.obj.Construct(args, newTarget)
}

// --- Arrays ---

// NewArray creates an array-like record holding vals at "0".."n-1" and a
// non-enumerable "length".
func NewArray(vals ...Value) *Record {
	r := NewRecord(nil)
	for i, v := range vals {
		r.Put(strconv.Itoa(i), v)
	}
	r.DefineData("length", NumberValue(float64(len(vals))), true, false, false)
	return r
}

// NewStringArray is NewArray over string values.
func NewStringArray(names []string) *Record {
	vals := make([]Value, len(names))
	for i, n := range names {
		vals[i] = NewString(n)
	}
	return NewArray(vals...)
}

// ToList reads an array-like value: its "length", then each index.
func ToList(v Value) ([]Value, error) {
	if !v.IsObject() {
		return nil, errorsPkg.NewTypeError("expected an array-like object, given: %s", v.Inspect())
	}
	obj := v.obj
	lv, err := obj.Get("length", v)
	if err != nil {
		return nil, err
	}
	n := toLength(lv)
	out := make([]Value, 0, n)
	for i := 0; i < n; i++ {
		el, err := obj.Get(strconv.Itoa(i), v)
		if err != nil {
			return nil, err
		}
		out = append(out, el)
	}
	return out, nil
}

// ToStringList is ToList with each element converted by ToString.
func ToStringList(v Value) ([]string, error) {
	vals, err := ToList(v)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(vals))
	for i, el := range vals {
		out[i] = el.ToString()
	}
	return out, nil
}

// toLength approximates +value for lengths: numbers truncate, numeric
// strings parse, anything else is 0.
func toLength(v Value) int {
	var f float64
	switch v.typ {
	case TypeNumber:
		f = v.num
	case TypeString:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil {
			return 0
		}
		f = parsed
	case TypeBoolean:
		f = v.num
	default:
		return 0
	}
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}
