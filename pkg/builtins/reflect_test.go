package builtins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errorsPkg "github.com/corbinu/harmony-reflect/pkg/errors"
	"github.com/corbinu/harmony-reflect/pkg/proxy"
	"github.com/corbinu/harmony-reflect/pkg/vm"
)

// A handler made of the Reflect functions forwards every operation.
func TestReflectAsHandler(t *testing.T) {
	target := vm.NewRecord(nil)
	target.Put("a", vm.NumberValue(1))
	target.DefineData("hidden", vm.True, true, false, true)

	p, err := proxy.NewFromHandler(nil, target, NewReflect(nil))
	require.NoError(t, err)
	self := p.Value()

	names, err := p.OwnKeys()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "hidden"}, names)
	keys, err := p.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, keys)

	v, err := p.Get("a", self)
	require.NoError(t, err)
	assert.True(t, vm.SameValue(vm.NumberValue(1), v))

	ok, err := p.Set("b", vm.NumberValue(2), self)
	require.NoError(t, err)
	assert.True(t, ok)
	d, has := target.OwnDescriptor("b")
	require.True(t, has, "set on the proxy receiver defines through the proxy")
	assert.True(t, vm.SameValue(vm.NumberValue(2), d.Value()))

	ok, err = p.DefineOwnProperty("c", vm.DataProperty(vm.True, false, false, false))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = p.Delete("c")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = vm.SetIntegrityLevel(p, vm.IntegrityFrozen)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, target.IsFrozen())

	proto, err := p.GetPrototypeOf()
	require.NoError(t, err)
	assert.True(t, proto.IsNull())
}

func TestReflectFunctions(t *testing.T) {
	reflect := NewReflect(nil)
	self := vm.NewObjectValue(reflect)
	call := func(name string, args ...vm.Value) (vm.Value, error) {
		fn, err := reflect.Get(name, self)
		require.NoError(t, err)
		return vm.Call(fn, self, args)
	}

	_, err := call("get", vm.NumberValue(1), vm.NewString("x"))
	var typeErr *errorsPkg.TypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Contains(t, typeErr.Msg, "Reflect.get called on non-object")

	fn := vm.NewFunction("sum", func(_ vm.Value, args []vm.Value) (vm.Value, error) {
		total := 0.0
		for _, a := range args {
			total += a.AsNumber()
		}
		return vm.NumberValue(total), nil
	})
	argList := vm.NewObjectValue(vm.NewArray(vm.NumberValue(1), vm.NumberValue(2)))
	res, err := call("apply", vm.NewObjectValue(fn), vm.Undefined, argList)
	require.NoError(t, err)
	assert.True(t, vm.SameValue(vm.NumberValue(3), res))

	res, err = call("construct", vm.NewObjectValue(fn), argList)
	require.NoError(t, err)
	require.True(t, res.IsObject(), "a primitive result yields the new instance")

	obj := vm.NewRecord(nil)
	desc := vm.NewRecord(nil)
	desc.Put("value", vm.NumberValue(7))
	desc.Put("configurable", vm.True)
	res, err = call("defineProperty", vm.NewObjectValue(obj), vm.NewString("k"), vm.NewObjectValue(desc))
	require.NoError(t, err)
	assert.True(t, vm.SameValue(vm.True, res))

	res, err = call("getOwnPropertyDescriptor", vm.NewObjectValue(obj), vm.NewString("k"))
	require.NoError(t, err)
	d, err := vm.ToPropertyDescriptor(res)
	require.NoError(t, err)
	assert.Equal(t, vm.FlagFalse, d.Writable())
	assert.Equal(t, vm.FlagTrue, d.Configurable())

	res, err = call("getOwnPropertyDescriptor", vm.NewObjectValue(obj), vm.NewString("nope"))
	require.NoError(t, err)
	assert.True(t, res.IsUndefined())

	res, err = call("isSealed", vm.NewObjectValue(obj))
	require.NoError(t, err)
	assert.True(t, vm.SameValue(vm.False, res))
}

// Registered proxies answer Reflect's integrity functions through their
// validators, so a lying trap is caught.
func TestReflectIntegrityConsultsRegistry(t *testing.T) {
	reg := proxy.NewRegistry()
	reflect := NewReflect(NewObjectOps(reg))
	self := vm.NewObjectValue(reflect)
	call := func(name string, args ...vm.Value) (vm.Value, error) {
		fn, err := reflect.Get(name, self)
		require.NoError(t, err)
		return vm.Call(fn, self, args)
	}

	target := vm.NewRecord(nil)
	target.Put("a", vm.True)
	calls := 0
	lying := func(*vm.Record) (vm.Value, error) {
		calls++
		return vm.True, nil
	}
	traps := proxy.Traps{IsFrozen: lying, Freeze: lying, IsSealed: lying, Seal: lying}
	p := proxy.New(reg, target, traps)

	var iv *errorsPkg.InvariantViolation
	_, err := call("isFrozen", p.Value())
	require.ErrorAs(t, err, &iv)
	assert.Equal(t, errorsPkg.ReasonStateMismatch, iv.Reason)

	_, err = call("isSealed", p.Value())
	require.ErrorAs(t, err, &iv)
	assert.Equal(t, errorsPkg.ReasonStateMismatch, iv.Reason)

	_, err = call("freeze", p.Value())
	require.ErrorAs(t, err, &iv)
	assert.Equal(t, errorsPkg.ReasonStateNotReached, iv.Reason)

	_, err = call("seal", p.Value())
	require.ErrorAs(t, err, &iv)
	assert.Equal(t, errorsPkg.ReasonStateNotReached, iv.Reason)
	assert.Equal(t, 4, calls)

	// unregistered: the generic helpers run over the proxy's internal methods
	unregistered := proxy.New(nil, target, traps)
	res, err := call("isFrozen", unregistered.Value())
	require.NoError(t, err)
	assert.True(t, vm.SameValue(vm.False, res))
	assert.Equal(t, 4, calls)
}

func TestReflectSealReportsRefusedDefine(t *testing.T) {
	target := vm.NewRecord(nil)
	target.Put("a", vm.True)
	p := proxy.New(nil, target, proxy.Traps{
		DefineProperty: func(*vm.Record, string, vm.Descriptor) (vm.Value, error) { return vm.False, nil },
	})

	reflect := NewReflect(nil)
	self := vm.NewObjectValue(reflect)
	fn, err := reflect.Get("seal", self)
	require.NoError(t, err)
	res, err := vm.Call(fn, self, []vm.Value{p.Value()})
	require.NoError(t, err)
	assert.True(t, vm.SameValue(vm.False, res))
}
