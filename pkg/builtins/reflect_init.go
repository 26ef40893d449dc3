package builtins

import (
	errorsPkg "github.com/corbinu/harmony-reflect/pkg/errors"
	"github.com/corbinu/harmony-reflect/pkg/vm"
)

// NewReflect creates the "Reflect" record: one function per trap name, each
// performing the default behavior on its first argument and answering in
// the trap's own shape. A handler forwards by calling the function of the
// same name with its arguments unchanged. The integrity functions go through
// ops, so registered proxies answer through their validators. A nil ops
// consults no registry.
func NewReflect(ops *ObjectOps) *vm.Record {
	if ops == nil {
		ops = NewObjectOps(nil)
	}
	reflect := vm.NewRecord(nil)
	define := func(name string, fn func(target vm.Object, args []vm.Value) (vm.Value, error)) {
		native := vm.NewFunction(name, func(_ vm.Value, args []vm.Value) (vm.Value, error) {
			t := arg(args, 0)
			if !t.IsObject() {
				return vm.Undefined, errorsPkg.NewTypeError("Reflect.%s called on non-object: %s", name, t.Inspect())
			}
			if len(args) > 0 {
				args = args[1:]
			}
			return fn(t.AsObject(), args)
		})
		reflect.DefineData(name, vm.NewObjectValue(native), true, false, true)
	}
	boolean := func(ok bool, err error) (vm.Value, error) {
		return vm.BooleanValue(ok), err
	}
	list := func(names []string, err error) (vm.Value, error) {
		if err != nil {
			return vm.Undefined, err
		}
		return vm.NewObjectValue(vm.NewStringArray(names)), nil
	}
	// receiver defaults to the target itself
	receiver := func(target vm.Object, args []vm.Value, i int) vm.Value {
		if i < len(args) {
			return args[i]
		}
		return vm.NewObjectValue(target)
	}

	define("getOwnPropertyDescriptor", func(t vm.Object, args []vm.Value) (vm.Value, error) {
		d, ok, err := t.GetOwnProperty(arg(args, 0).ToString())
		if err != nil || !ok {
			return vm.Undefined, err
		}
		return vm.NewObjectValue(vm.FromDescriptor(d)), nil
	})
	define("defineProperty", func(t vm.Object, args []vm.Value) (vm.Value, error) {
		d, err := vm.ToPropertyDescriptor(arg(args, 1))
		if err != nil {
			return vm.Undefined, err
		}
		return boolean(t.DefineOwnProperty(arg(args, 0).ToString(), d))
	})
	define("deleteProperty", func(t vm.Object, args []vm.Value) (vm.Value, error) {
		return boolean(t.Delete(arg(args, 0).ToString()))
	})

	define("getOwnPropertyNames", func(t vm.Object, _ []vm.Value) (vm.Value, error) { return list(t.OwnKeys()) })
	define("keys", func(t vm.Object, _ []vm.Value) (vm.Value, error) { return list(t.Keys()) })
	define("enumerate", func(t vm.Object, _ []vm.Value) (vm.Value, error) { return list(t.Enumerate()) })

	define("has", func(t vm.Object, args []vm.Value) (vm.Value, error) {
		return boolean(t.HasProperty(arg(args, 0).ToString()))
	})
	define("hasOwn", func(t vm.Object, args []vm.Value) (vm.Value, error) {
		return boolean(t.HasOwnProperty(arg(args, 0).ToString()))
	})
	define("get", func(t vm.Object, args []vm.Value) (vm.Value, error) {
		return t.Get(arg(args, 0).ToString(), receiver(t, args, 1))
	})
	define("set", func(t vm.Object, args []vm.Value) (vm.Value, error) {
		return boolean(t.Set(arg(args, 0).ToString(), arg(args, 1), receiver(t, args, 2)))
	})

	define("isExtensible", func(t vm.Object, _ []vm.Value) (vm.Value, error) { return boolean(t.IsExtensible()) })
	define("isSealed", func(t vm.Object, _ []vm.Value) (vm.Value, error) {
		return boolean(ops.IsSealed(vm.NewObjectValue(t)))
	})
	define("isFrozen", func(t vm.Object, _ []vm.Value) (vm.Value, error) {
		return boolean(ops.IsFrozen(vm.NewObjectValue(t)))
	})
	define("preventExtensions", func(t vm.Object, _ []vm.Value) (vm.Value, error) { return boolean(t.PreventExtensions()) })
	define("seal", func(t vm.Object, _ []vm.Value) (vm.Value, error) {
		return boolean(ops.setIntegrity(vm.NewObjectValue(t), vm.IntegritySealed))
	})
	define("freeze", func(t vm.Object, _ []vm.Value) (vm.Value, error) {
		return boolean(ops.setIntegrity(vm.NewObjectValue(t), vm.IntegrityFrozen))
	})

	define("getPrototypeOf", func(t vm.Object, _ []vm.Value) (vm.Value, error) { return t.GetPrototypeOf() })
	define("setPrototypeOf", func(t vm.Object, args []vm.Value) (vm.Value, error) {
		return boolean(t.SetPrototypeOf(arg(args, 0)))
	})

	define("apply", func(t vm.Object, args []vm.Value) (vm.Value, error) {
		callArgs, err := argumentList(arg(args, 1))
		if err != nil {
			return vm.Undefined, err
		}
		return vm.Call(vm.NewObjectValue(t), arg(args, 0), callArgs)
	})
	define("construct", func(t vm.Object, args []vm.Value) (vm.Value, error) {
		callArgs, err := argumentList(arg(args, 0))
		if err != nil {
			return vm.Undefined, err
		}
		return vm.Construct(vm.NewObjectValue(t), callArgs, arg(args, 1))
	})
	return reflect
}

// argumentList accepts undefined as an empty list.
func argumentList(v vm.Value) ([]vm.Value, error) {
	if v.IsUndefined() {
		return nil, nil
	}
	return vm.ToList(v)
}

// ReflectInitializer defines "Reflect". A nil Ops builds operations over the
// context's registry.
type ReflectInitializer struct {
	Ops *ObjectOps
}

func (r *ReflectInitializer) Name() string  { return "Reflect" }
func (r *ReflectInitializer) Priority() int { return PriorityReflect }

func (r *ReflectInitializer) InitRuntime(ctx *RuntimeContext) error {
	ops := r.Ops
	if ops == nil {
		ops = NewObjectOps(ctx.Registry, WithLogger(ctx.Logger))
	}
	return ctx.DefineGlobal("Reflect", vm.NewObjectValue(NewReflect(ops)))
}
