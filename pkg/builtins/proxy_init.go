package builtins

import (
	errorsPkg "github.com/corbinu/harmony-reflect/pkg/errors"
	"github.com/corbinu/harmony-reflect/pkg/proxy"
	"github.com/corbinu/harmony-reflect/pkg/vm"
)

// ProxyInitializer defines Proxy(target, handler), callable with or without
// new, and Proxy.revocable. Every proxy it creates is registered.
type ProxyInitializer struct{}

func (p *ProxyInitializer) Name() string  { return "Proxy" }
func (p *ProxyInitializer) Priority() int { return PriorityProxy }

func (p *ProxyInitializer) InitRuntime(ctx *RuntimeContext) error {
	create := func(op string, args []vm.Value) (*proxy.Proxy, error) {
		if len(args) < 2 {
			return nil, errorsPkg.NewTypeError("%s requires target and handler arguments", op)
		}
		target, ok := args[0].AsRecord()
		if !ok {
			return nil, errorsPkg.NewTypeError("Proxy target must be a plain object or function, given: %s", args[0].Inspect())
		}
		if !args[1].IsObject() {
			return nil, errorsPkg.NewTypeError("Proxy handler must be an object, given: %s", args[1].Inspect())
		}
		return proxy.NewFromHandler(ctx.Registry, target, args[1].AsObject(), proxy.WithLogger(ctx.Logger))
	}

	call := func(_ vm.Value, args []vm.Value) (vm.Value, error) {
		px, err := create("Proxy", args)
		if err != nil {
			return vm.Undefined, err
		}
		return px.Value(), nil
	}
	ctor := vm.NewConstructor("Proxy", call, func(args []vm.Value, _ vm.Value) (vm.Value, error) {
		return call(vm.Undefined, args)
	})

	revocable := vm.NewFunction("revocable", func(_ vm.Value, args []vm.Value) (vm.Value, error) {
		px, err := create("Proxy.revocable", args)
		if err != nil {
			return vm.Undefined, err
		}
		revoke := vm.NewFunction("revoke", func(vm.Value, []vm.Value) (vm.Value, error) {
			px.Validator().Revoke()
			return vm.Undefined, nil
		})

		result := vm.NewRecord(nil)
		result.Put("proxy", px.Value())
		result.Put("revoke", vm.NewObjectValue(revoke))
		return vm.NewObjectValue(result), nil
	})
	ctor.DefineData("revocable", vm.NewObjectValue(revocable), true, false, true)

	return ctx.DefineGlobal("Proxy", vm.NewObjectValue(ctor))
}
