package proxy

import (
	errorsPkg "github.com/corbinu/harmony-reflect/pkg/errors"
	"github.com/corbinu/harmony-reflect/pkg/vm"
)

// Traps holds one optional function per structural operation. A nil field
// means the operation is forwarded to the target unchanged.
//
// Boolean answers are returned as values and coerced by truthiness, so a
// trap may answer with any value. Descriptors are returned as raw objects
// (or undefined) and normalized by the validator.
type Traps struct {
	GetOwnPropertyDescriptor func(target *vm.Record, name string) (vm.Value, error)
	DefineProperty           func(target *vm.Record, name string, desc vm.Descriptor) (vm.Value, error)
	DeleteProperty           func(target *vm.Record, name string) (vm.Value, error)

	GetOwnPropertyNames func(target *vm.Record) ([]string, error)
	Keys                func(target *vm.Record) ([]string, error)
	Enumerate           func(target *vm.Record) ([]string, error)

	Has    func(target *vm.Record, name string) (vm.Value, error)
	HasOwn func(target *vm.Record, name string) (vm.Value, error)
	Get    func(target *vm.Record, name string, receiver vm.Value) (vm.Value, error)
	Set    func(target *vm.Record, name string, value, receiver vm.Value) (vm.Value, error)

	IsExtensible      func(target *vm.Record) (vm.Value, error)
	IsSealed          func(target *vm.Record) (vm.Value, error)
	IsFrozen          func(target *vm.Record) (vm.Value, error)
	PreventExtensions func(target *vm.Record) (vm.Value, error)
	Seal              func(target *vm.Record) (vm.Value, error)
	Freeze            func(target *vm.Record) (vm.Value, error)

	GetPrototypeOf func(target *vm.Record) (vm.Value, error)
	SetPrototypeOf func(target *vm.Record, proto vm.Value) (vm.Value, error)

	Apply     func(target *vm.Record, this vm.Value, args []vm.Value) (vm.Value, error)
	Construct func(target *vm.Record, args []vm.Value, newTarget vm.Value) (vm.Value, error)
}

// TrapNames lists the handler property names TrapsFromObject looks up.
var TrapNames = []string{
	"getOwnPropertyDescriptor", "defineProperty", "deleteProperty",
	"getOwnPropertyNames", "keys", "enumerate",
	"has", "hasOwn", "get", "set",
	"isExtensible", "isSealed", "isFrozen",
	"preventExtensions", "seal", "freeze",
	"getPrototypeOf", "setPrototypeOf",
	"apply", "construct",
}

// TrapsFromObject adapts a handler object. Every trap is read once, here;
// an undefined trap means forwarding and any other non-callable value is
// an InvalidTrapError. Adapted traps are called with the handler as this
// and the target as their first argument.
func TrapsFromObject(handler vm.Object) (Traps, error) {
	self := vm.NewObjectValue(handler)
	fns := make(map[string]vm.Value, len(TrapNames))
	for _, name := range TrapNames {
		fn, err := handler.Get(name, self)
		if err != nil {
			return Traps{}, err
		}
		if fn.IsUndefined() {
			continue
		}
		if !fn.IsCallable() {
			return Traps{}, &errorsPkg.InvalidTrapError{Trap: name, Msg: name + " trap is not callable: " + fn.Inspect()}
		}
		fns[name] = fn
	}

	call := func(fn vm.Value, target *vm.Record, args ...vm.Value) (vm.Value, error) {
		return vm.Call(fn, self, append([]vm.Value{vm.NewObjectValue(target)}, args...))
	}
	unary := func(name string) func(*vm.Record) (vm.Value, error) {
		fn, ok := fns[name]
		if !ok {
			return nil
		}
		return func(target *vm.Record) (vm.Value, error) { return call(fn, target) }
	}
	named := func(name string) func(*vm.Record, string) (vm.Value, error) {
		fn, ok := fns[name]
		if !ok {
			return nil
		}
		return func(target *vm.Record, prop string) (vm.Value, error) {
			return call(fn, target, vm.NewString(prop))
		}
	}
	list := func(name string) func(*vm.Record) ([]string, error) {
		fn, ok := fns[name]
		if !ok {
			return nil
		}
		return func(target *vm.Record) ([]string, error) {
			res, err := call(fn, target)
			if err != nil {
				return nil, err
			}
			return vm.ToStringList(res)
		}
	}

	t := Traps{
		GetOwnPropertyDescriptor: named("getOwnPropertyDescriptor"),
		DeleteProperty:           named("deleteProperty"),
		GetOwnPropertyNames:      list("getOwnPropertyNames"),
		Keys:                     list("keys"),
		Enumerate:                list("enumerate"),
		Has:                      named("has"),
		HasOwn:                   named("hasOwn"),
		IsExtensible:             unary("isExtensible"),
		IsSealed:                 unary("isSealed"),
		IsFrozen:                 unary("isFrozen"),
		PreventExtensions:        unary("preventExtensions"),
		Seal:                     unary("seal"),
		Freeze:                   unary("freeze"),
		GetPrototypeOf:           unary("getPrototypeOf"),
	}
	if fn, ok := fns["defineProperty"]; ok {
		t.DefineProperty = func(target *vm.Record, name string, desc vm.Descriptor) (vm.Value, error) {
			return call(fn, target, vm.NewString(name), vm.NewObjectValue(vm.FromDescriptor(desc)))
		}
	}
	if fn, ok := fns["get"]; ok {
		t.Get = func(target *vm.Record, name string, receiver vm.Value) (vm.Value, error) {
			return call(fn, target, vm.NewString(name), receiver)
		}
	}
	if fn, ok := fns["set"]; ok {
		t.Set = func(target *vm.Record, name string, value, receiver vm.Value) (vm.Value, error) {
			return call(fn, target, vm.NewString(name), value, receiver)
		}
	}
	if fn, ok := fns["setPrototypeOf"]; ok {
		t.SetPrototypeOf = func(target *vm.Record, proto vm.Value) (vm.Value, error) {
			return call(fn, target, proto)
		}
	}
	if fn, ok := fns["apply"]; ok {
		t.Apply = func(target *vm.Record, this vm.Value, args []vm.Value) (vm.Value, error) {
			return call(fn, target, this, vm.NewObjectValue(vm.NewArray(args...)))
		}
	}
	if fn, ok := fns["construct"]; ok {
		t.Construct = func(target *vm.Record, args []vm.Value, newTarget vm.Value) (vm.Value, error) {
			return call(fn, target, vm.NewObjectValue(vm.NewArray(args...)), newTarget)
		}
	}
	return t, nil
}
