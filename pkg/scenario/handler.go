package scenario

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/corbinu/harmony-reflect/pkg/builtins"
	errorsPkg "github.com/corbinu/harmony-reflect/pkg/errors"
	"github.com/corbinu/harmony-reflect/pkg/proxy"
	"github.com/corbinu/harmony-reflect/pkg/vm"
)

// buildTarget creates the backing record and moves it to its integrity
// level.
func (e *env) buildTarget(spec TargetSpec) (*vm.Record, error) {
	var target *vm.Record
	if spec.Callable {
		target = vm.NewFunction("target", func(_ vm.Value, args []vm.Value) (vm.Value, error) {
			if len(args) > 0 {
				return args[0], nil
			}
			return vm.Undefined, nil
		})
	} else {
		target = vm.NewRecord(nil)
	}

	if present(&spec.Prototype) {
		proto, err := e.value(&spec.Prototype)
		if err != nil {
			return nil, fmt.Errorf("target prototype: %w", err)
		}
		if _, err := target.SetPrototypeOf(proto); err != nil {
			return nil, fmt.Errorf("target prototype: %w", err)
		}
	}

	props := &spec.Properties
	if present(props) {
		if props.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("line %d: target properties must be a mapping", props.Line)
		}
		for i := 0; i+1 < len(props.Content); i += 2 {
			name := props.Content[i].Value
			raw, err := e.value(props.Content[i+1])
			if err != nil {
				return nil, fmt.Errorf("property %s: %w", name, err)
			}
			d, err := vm.ToPropertyDescriptor(raw)
			if err != nil {
				return nil, fmt.Errorf("property %s: %w", name, err)
			}
			if ok, err := target.DefineOwnProperty(name, d); err != nil || !ok {
				return nil, fmt.Errorf("property %s: cannot be defined", name)
			}
		}
	}

	if spec.Extensible != nil && !*spec.Extensible {
		target.PreventExtensions()
	}
	switch spec.Integrity {
	case "", "none":
	case "non-extensible":
		target.PreventExtensions()
	case "sealed":
		target.Seal()
	case "frozen":
		target.Freeze()
	default:
		return nil, fmt.Errorf("unknown integrity level %q", spec.Integrity)
	}
	return target, nil
}

// buildHandler turns the trap specs into a handler object whose functions
// answer as described. Forwarding traps call the Reflect function of the
// same name, consulting reg like the installed Reflect would.
func (e *env) buildHandler(specs map[string]TrapSpec, reg *proxy.Registry) (*vm.Record, error) {
	reflect := builtins.NewReflect(builtins.NewObjectOps(reg))
	handler := vm.NewRecord(nil)

	names := make([]string, 0, len(specs))
	for name := range specs {
		if !slices.Contains(proxy.TrapNames, name) {
			return nil, fmt.Errorf("unknown trap %q", name)
		}
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		spec := specs[name]
		if present(&spec.Value) {
			v, err := e.value(&spec.Value)
			if err != nil {
				return nil, fmt.Errorf("trap %s: %w", name, err)
			}
			handler.Put(name, v)
			continue
		}

		forward, err := reflect.Get(name, vm.NewObjectValue(reflect))
		if err != nil {
			return nil, err
		}
		trap := func(this vm.Value, args []vm.Value) (vm.Value, error) {
			if spec.Throw != "" {
				return vm.Undefined, errorsPkg.NewTypeError("%s", spec.Throw)
			}
			if len(args) > 1 && args[1].IsString() {
				if n, ok := spec.Names[args[1].AsString()]; ok {
					return e.value(&n)
				}
			}
			if spec.Forward {
				return vm.Call(forward, this, args)
			}
			return e.value(&spec.Result)
		}
		handler.Put(name, vm.NewObjectValue(vm.NewFunction(name, trap)))
	}
	return handler, nil
}
