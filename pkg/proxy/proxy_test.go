package proxy

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errorsPkg "github.com/corbinu/harmony-reflect/pkg/errors"
	"github.com/corbinu/harmony-reflect/pkg/vm"
)

func TestNewRegistersProxy(t *testing.T) {
	reg := NewRegistry()
	p := New(reg, vm.NewRecord(nil), Traps{})

	v, ok := reg.Lookup(p)
	require.True(t, ok)
	assert.Same(t, p.Validator(), v)

	unregistered := New(nil, vm.NewRecord(nil), Traps{})
	_, ok = reg.Lookup(unregistered)
	assert.False(t, ok)
}

func TestRevocableProxy(t *testing.T) {
	p, revoke := NewRevocable(NewRegistry(), vm.NewRecord(nil), Traps{})
	_, err := p.Get("x", p.Value())
	require.NoError(t, err)

	revoke()
	for range 3 {
		_, err = p.Get("x", p.Value())
		var revoked *errorsPkg.RevokedProxyError
		require.ErrorAs(t, err, &revoked)
	}
}

func TestProxyAsPrototype(t *testing.T) {
	var receivers []vm.Value
	parent := New(nil, vm.NewRecord(nil), Traps{
		Get: func(_ *vm.Record, name string, receiver vm.Value) (vm.Value, error) {
			receivers = append(receivers, receiver)
			return vm.NewString("virtual " + name), nil
		},
		Has: answerNamed(vm.True),
	})
	child := vm.NewRecord(parent)
	self := vm.NewObjectValue(child)

	got, err := child.Get("color", self)
	require.NoError(t, err)
	assert.True(t, vm.SameValue(vm.NewString("virtual color"), got))
	require.Len(t, receivers, 1)
	assert.True(t, vm.SameValue(self, receivers[0]), "inherited get must see the original receiver")

	has, err := child.HasProperty("anything")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestSetOnProxyReceiverIsTrapped(t *testing.T) {
	var defined []string
	p := New(nil, vm.NewRecord(nil), Traps{
		DefineProperty: func(target *vm.Record, name string, d vm.Descriptor) (vm.Value, error) {
			defined = append(defined, name)
			ok, err := target.DefineOwnProperty(name, d)
			return vm.BooleanValue(ok), err
		},
	})

	// no set trap: the target's ordinary set defines on the proxy receiver
	ok, err := p.Set("x", vm.NumberValue(1), p.Value())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"x"}, defined)

	d, has, err := p.GetOwnProperty("x")
	require.NoError(t, err)
	require.True(t, has)
	assert.True(t, vm.SameValue(vm.NumberValue(1), d.Value()))

	// updating keeps the existing attributes, so the define stays configurable
	ok, err = p.Set("x", vm.NumberValue(2), p.Value())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"x", "x"}, defined)
	d, _, err = p.GetOwnProperty("x")
	require.NoError(t, err)
	assert.True(t, vm.SameValue(vm.NumberValue(2), d.Value()))
	assert.Equal(t, vm.FlagTrue, d.Configurable())
}

func TestReentrantTraps(t *testing.T) {
	target := vm.NewRecord(nil)
	target.DefineData("x", vm.NumberValue(1), false, true, false)
	var p *Proxy
	p = New(nil, target, Traps{
		Has: func(_ *vm.Record, name string) (vm.Value, error) {
			// consult the proxy itself through another operation
			_, ok, err := p.GetOwnProperty(name)
			return vm.BooleanValue(ok), err
		},
	})

	ok, err := p.HasProperty("x")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = p.HasProperty("y")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProxyIntegrityThroughGenericHelpers(t *testing.T) {
	target := vm.NewRecord(nil)
	target.Put("a", vm.True)
	var ops []string
	p := New(nil, target, Traps{
		PreventExtensions: func(r *vm.Record) (vm.Value, error) {
			ops = append(ops, "preventExtensions")
			ok, err := r.PreventExtensions()
			return vm.BooleanValue(ok), err
		},
		DefineProperty: func(r *vm.Record, name string, d vm.Descriptor) (vm.Value, error) {
			ops = append(ops, "defineProperty "+name)
			ok, err := r.DefineOwnProperty(name, d)
			return vm.BooleanValue(ok), err
		},
	})

	ok, err := vm.SetIntegrityLevel(p, vm.IntegrityFrozen)
	require.NoError(t, err)
	assert.True(t, ok)
	if diff := cmp.Diff([]string{"preventExtensions", "defineProperty a"}, ops); diff != "" {
		t.Errorf("trap order mismatch (-want +got):\n%s", diff)
	}
	frozen, err := vm.TestIntegrityLevel(p, vm.IntegrityFrozen)
	require.NoError(t, err)
	assert.True(t, frozen)
	assert.True(t, target.IsFrozen())
}

func TestProxyCallAndConstruct(t *testing.T) {
	fn := vm.NewFunction("f", func(this vm.Value, _ []vm.Value) (vm.Value, error) { return this, nil })
	var gotNewTarget vm.Value
	p := New(nil, fn, Traps{
		Construct: func(_ *vm.Record, _ []vm.Value, newTarget vm.Value) (vm.Value, error) {
			gotNewTarget = newTarget
			return vm.NewObjectValue(vm.NewRecord(nil)), nil
		},
	})
	require.True(t, p.IsCallable())

	res, err := vm.Call(p.Value(), vm.NewString("this"), nil)
	require.NoError(t, err)
	assert.True(t, vm.SameValue(vm.NewString("this"), res))

	_, err = vm.Construct(p.Value(), nil, vm.Undefined)
	require.NoError(t, err)
	assert.True(t, vm.SameValue(p.Value(), gotNewTarget))

	assert.False(t, New(nil, vm.NewRecord(nil), Traps{}).IsCallable())
}

// --- handler objects ---

func handlerObject(t *testing.T, traps map[string]vm.NativeFunc) *vm.Record {
	t.Helper()
	h := vm.NewRecord(nil)
	for name, fn := range traps {
		h.Put(name, vm.NewObjectValue(vm.NewFunction(name, fn)))
	}
	return h
}

func TestTrapsFromObject(t *testing.T) {
	var seenThis, seenTarget vm.Value
	target := vm.NewRecord(nil)
	target.DefineData("x", vm.NumberValue(1), false, true, false)
	handler := handlerObject(t, map[string]vm.NativeFunc{
		"getOwnPropertyDescriptor": func(this vm.Value, args []vm.Value) (vm.Value, error) {
			seenThis, seenTarget = this, args[0]
			return vm.Undefined, nil
		},
		"getOwnPropertyNames": func(vm.Value, []vm.Value) (vm.Value, error) {
			return vm.NewObjectValue(vm.NewStringArray([]string{"x", "y"})), nil
		},
		"defineProperty": func(_ vm.Value, args []vm.Value) (vm.Value, error) {
			d, err := vm.ToPropertyDescriptor(args[2])
			if err != nil {
				return vm.Undefined, err
			}
			return vm.BooleanValue(d.Configurable() == vm.FlagTrue), nil
		},
	})

	p, err := NewFromHandler(nil, target, handler)
	require.NoError(t, err)

	_, _, err = p.GetOwnProperty("x")
	requireReason(t, err, errorsPkg.ReasonSealedReportedAbsent)
	assert.True(t, vm.SameValue(vm.NewObjectValue(handler), seenThis), "traps run with the handler as this")
	assert.True(t, vm.SameValue(vm.NewObjectValue(target), seenTarget))

	names, err := p.OwnKeys()
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, names)

	ok, err := p.DefineOwnProperty("z", vm.DataProperty(vm.True, true, true, true))
	require.NoError(t, err)
	assert.True(t, ok, "descriptor should reach the handler as an object")
}

func TestTrapsFromObjectReadsTrapsOnce(t *testing.T) {
	calls := 0
	handler := handlerObject(t, map[string]vm.NativeFunc{
		"has": func(vm.Value, []vm.Value) (vm.Value, error) {
			calls++
			return vm.True, nil
		},
	})
	p, err := NewFromHandler(nil, vm.NewRecord(nil), handler)
	require.NoError(t, err)

	// replacing the trap afterwards has no effect
	handler.Put("has", vm.NewObjectValue(vm.NewFunction("has", func(vm.Value, []vm.Value) (vm.Value, error) {
		return vm.False, nil
	})))
	ok, err := p.HasProperty("a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, calls)
}

func TestTrapsFromObjectRejectsNonCallable(t *testing.T) {
	handler := vm.NewRecord(nil)
	handler.Put("get", vm.NumberValue(42))
	_, err := TrapsFromObject(handler)
	var invalid *errorsPkg.InvalidTrapError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "get", invalid.Trap)

	handler.Put("get", vm.Undefined)
	traps, err := TrapsFromObject(handler)
	require.NoError(t, err)
	assert.Nil(t, traps.Get, "undefined means no trap")
}

func TestHandlerObjectCanBeAProxy(t *testing.T) {
	// a handler whose trap lookups are themselves trapped
	meta := New(nil, vm.NewRecord(nil), Traps{
		Get: func(_ *vm.Record, name string, _ vm.Value) (vm.Value, error) {
			if name != "isExtensible" {
				return vm.Undefined, nil
			}
			return vm.NewObjectValue(vm.NewFunction(name, func(vm.Value, []vm.Value) (vm.Value, error) {
				return vm.True, nil
			})), nil
		},
	})
	p, err := NewFromHandler(nil, vm.NewRecord(nil), meta)
	require.NoError(t, err)
	ok, err := p.IsExtensible()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInspectRunsNoTrap(t *testing.T) {
	traps := Traps{Get: func(*vm.Record, string, vm.Value) (vm.Value, error) {
		t.Fatal("get trap ran")
		return vm.Undefined, nil
	}}
	p, revoke := NewRevocable(nil, vm.NewRecord(nil), traps)
	assert.Equal(t, "[Proxy]", p.Value().Inspect())

	fn := New(nil, vm.NewFunction("f", func(vm.Value, []vm.Value) (vm.Value, error) { return vm.Undefined, nil }), Traps{})
	assert.Equal(t, "[Proxy Function]", fn.Value().Inspect())

	revoke()
	assert.Equal(t, "[Proxy (revoked)]", p.Value().Inspect())
}
