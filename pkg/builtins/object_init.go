package builtins

import (
	"github.com/corbinu/harmony-reflect/pkg/vm"
)

// NewObjectConstructor exposes the operations as native functions on an
// "Object" record, so handler objects and fixtures can call them.
func (o *ObjectOps) NewObjectConstructor() *vm.Record {
	ctor := vm.NewFunction("Object", func(_ vm.Value, args []vm.Value) (vm.Value, error) {
		if len(args) > 0 && args[0].IsObject() {
			return args[0], nil
		}
		return vm.NewObjectValue(vm.NewRecord(nil)), nil
	})

	define := func(name string, fn vm.NativeFunc) {
		ctor.DefineData(name, vm.NewObjectValue(vm.NewFunction(name, fn)), true, false, true)
	}
	subjectOp := func(op func(vm.Value) (vm.Value, error)) vm.NativeFunc {
		return func(_ vm.Value, args []vm.Value) (vm.Value, error) {
			return op(arg(args, 0))
		}
	}
	predicate := func(op func(vm.Value) (bool, error)) vm.NativeFunc {
		return func(_ vm.Value, args []vm.Value) (vm.Value, error) {
			b, err := op(arg(args, 0))
			return vm.BooleanValue(b), err
		}
	}
	names := func(op func(vm.Value) ([]string, error)) vm.NativeFunc {
		return func(_ vm.Value, args []vm.Value) (vm.Value, error) {
			list, err := op(arg(args, 0))
			if err != nil {
				return vm.Undefined, err
			}
			return vm.NewObjectValue(vm.NewStringArray(list)), nil
		}
	}

	define("preventExtensions", subjectOp(o.PreventExtensions))
	define("seal", subjectOp(o.Seal))
	define("freeze", subjectOp(o.Freeze))
	define("isExtensible", predicate(o.IsExtensible))
	define("isSealed", predicate(o.IsSealed))
	define("isFrozen", predicate(o.IsFrozen))
	define("getPrototypeOf", subjectOp(o.GetPrototypeOf))
	define("setPrototypeOf", func(_ vm.Value, args []vm.Value) (vm.Value, error) {
		return o.SetPrototypeOf(arg(args, 0), arg(args, 1))
	})
	define("getOwnPropertyDescriptor", func(_ vm.Value, args []vm.Value) (vm.Value, error) {
		return o.GetOwnPropertyDescriptor(arg(args, 0), arg(args, 1).ToString())
	})
	define("defineProperty", func(_ vm.Value, args []vm.Value) (vm.Value, error) {
		return o.DefineProperty(arg(args, 0), arg(args, 1).ToString(), arg(args, 2))
	})
	define("keys", names(o.Keys))
	define("getOwnPropertyNames", names(o.GetOwnPropertyNames))
	return ctor
}

// ObjectInitializer defines "Object". A nil Ops builds operations over the
// context's registry.
type ObjectInitializer struct {
	Ops *ObjectOps
}

func (o *ObjectInitializer) Name() string  { return "Object" }
func (o *ObjectInitializer) Priority() int { return PriorityObject }

func (o *ObjectInitializer) InitRuntime(ctx *RuntimeContext) error {
	ops := o.Ops
	if ops == nil {
		ops = NewObjectOps(ctx.Registry, WithLogger(ctx.Logger))
	}
	return ctx.DefineGlobal("Object", vm.NewObjectValue(ops.NewObjectConstructor()))
}

func arg(args []vm.Value, i int) vm.Value {
	if i < len(args) {
		return args[i]
	}
	return vm.Undefined
}
