// Package builtins provides the global structural operations on objects
// (the Object.freeze family). Each operation first checks whether its
// subject is a registered proxy and, if so, asks that proxy's validator.
package builtins

import (
	"go.uber.org/zap"

	errorsPkg "github.com/corbinu/harmony-reflect/pkg/errors"
	"github.com/corbinu/harmony-reflect/pkg/proxy"
	"github.com/corbinu/harmony-reflect/pkg/vm"
)

// ObjectOps implements the global object operations over one registry.
type ObjectOps struct {
	reg    *proxy.Registry
	logger *zap.Logger
}

// Option configures ObjectOps.
type Option func(*ObjectOps)

func WithLogger(logger *zap.Logger) Option {
	return func(o *ObjectOps) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewObjectOps creates the operations. A nil registry treats every object
// as unregistered.
func NewObjectOps(reg *proxy.Registry, opts ...Option) *ObjectOps {
	o := &ObjectOps{reg: reg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Registry returns the registry the operations consult.
func (o *ObjectOps) Registry() *proxy.Registry { return o.reg }

// lookup returns the validator of a registered proxy.
func (o *ObjectOps) lookup(subject vm.Value) (*proxy.Validator, bool) {
	if o.reg == nil || !subject.IsObject() {
		return nil, false
	}
	p, ok := subject.AsObject().(*proxy.Proxy)
	if !ok {
		return nil, false
	}
	v, ok := o.reg.Lookup(p)
	if ok {
		o.logger.Debug("delegating to validator", zap.Stringer("proxy", v.ID()))
	}
	return v, ok
}

func requireObject(op string, subject vm.Value) (vm.Object, error) {
	if !subject.IsObject() {
		return nil, errorsPkg.NewTypeError("%s called on non-object: %s", op, subject.Inspect())
	}
	return subject.AsObject(), nil
}

// --- Extensibility and integrity ---

// PreventExtensions returns subject, or a TypeError when a proxy refuses.
// Primitives are returned unchanged.
func (o *ObjectOps) PreventExtensions(subject vm.Value) (vm.Value, error) {
	if !subject.IsObject() {
		return subject, nil
	}
	return rejectUnless("preventExtensions", subject, func() (bool, error) {
		if v, ok := o.lookup(subject); ok {
			return v.PreventExtensions()
		}
		return subject.AsObject().PreventExtensions()
	})
}

func (o *ObjectOps) Seal(subject vm.Value) (vm.Value, error) {
	if !subject.IsObject() {
		return subject, nil
	}
	return rejectUnless("seal", subject, func() (bool, error) {
		return o.setIntegrity(subject, vm.IntegritySealed)
	})
}

func (o *ObjectOps) Freeze(subject vm.Value) (vm.Value, error) {
	if !subject.IsObject() {
		return subject, nil
	}
	return rejectUnless("freeze", subject, func() (bool, error) {
		return o.setIntegrity(subject, vm.IntegrityFrozen)
	})
}

// setIntegrity moves an object to level and reports whether it got there.
func (o *ObjectOps) setIntegrity(subject vm.Value, level vm.IntegrityLevel) (bool, error) {
	if v, ok := o.lookup(subject); ok {
		if level == vm.IntegrityFrozen {
			return v.Freeze()
		}
		return v.Seal()
	}
	return vm.SetIntegrityLevel(subject.AsObject(), level)
}

func rejectUnless(op string, subject vm.Value, fn func() (bool, error)) (vm.Value, error) {
	ok, err := fn()
	if err != nil {
		return vm.Undefined, err
	}
	if !ok {
		return vm.Undefined, errorsPkg.NewTypeError("%s on %s rejected", op, subject.Inspect())
	}
	return subject, nil
}

// IsExtensible reports false for primitives.
func (o *ObjectOps) IsExtensible(subject vm.Value) (bool, error) {
	if v, ok := o.lookup(subject); ok {
		return v.IsExtensible()
	}
	if !subject.IsObject() {
		return false, nil
	}
	return subject.AsObject().IsExtensible()
}

// IsSealed reports true for primitives.
func (o *ObjectOps) IsSealed(subject vm.Value) (bool, error) {
	if v, ok := o.lookup(subject); ok {
		return v.IsSealed()
	}
	if !subject.IsObject() {
		return true, nil
	}
	return vm.TestIntegrityLevel(subject.AsObject(), vm.IntegritySealed)
}

// IsFrozen reports true for primitives.
func (o *ObjectOps) IsFrozen(subject vm.Value) (bool, error) {
	if v, ok := o.lookup(subject); ok {
		return v.IsFrozen()
	}
	if !subject.IsObject() {
		return true, nil
	}
	return vm.TestIntegrityLevel(subject.AsObject(), vm.IntegrityFrozen)
}

// --- Prototypes ---

func (o *ObjectOps) GetPrototypeOf(subject vm.Value) (vm.Value, error) {
	if v, ok := o.lookup(subject); ok {
		return v.GetPrototypeOf()
	}
	obj, err := requireObject("getPrototypeOf", subject)
	if err != nil {
		return vm.Undefined, err
	}
	return obj.GetPrototypeOf()
}

// SetPrototypeOf returns subject, or a TypeError when the change is refused.
func (o *ObjectOps) SetPrototypeOf(subject, proto vm.Value) (vm.Value, error) {
	if v, ok := o.lookup(subject); ok {
		ok, err := v.SetPrototypeOf(proto)
		if err != nil {
			return vm.Undefined, err
		}
		if !ok {
			return vm.Undefined, errorsPkg.NewTypeError("proxy rejected prototype mutation")
		}
		return subject, nil
	}
	obj, err := requireObject("setPrototypeOf", subject)
	if err != nil {
		return vm.Undefined, err
	}
	extensible, err := obj.IsExtensible()
	if err != nil {
		return vm.Undefined, err
	}
	ok, err := obj.SetPrototypeOf(proto)
	if err != nil {
		return vm.Undefined, err
	}
	if !ok {
		if !extensible {
			return vm.Undefined, errorsPkg.NewTypeError("can't set prototype on non-extensible object: %s", subject.Inspect())
		}
		return vm.Undefined, errorsPkg.NewTypeError("cyclic prototype value: %s", proto.Inspect())
	}
	return subject, nil
}

// --- Properties ---

// GetOwnPropertyDescriptor returns the descriptor reified as an object, or
// undefined when the property is absent.
func (o *ObjectOps) GetOwnPropertyDescriptor(subject vm.Value, name string) (vm.Value, error) {
	var (
		d   vm.Descriptor
		ok  bool
		err error
	)
	if v, registered := o.lookup(subject); registered {
		d, ok, err = v.GetOwnPropertyDescriptor(name)
	} else {
		obj, objErr := requireObject("getOwnPropertyDescriptor", subject)
		if objErr != nil {
			return vm.Undefined, objErr
		}
		d, ok, err = obj.GetOwnProperty(name)
	}
	if err != nil || !ok {
		return vm.Undefined, err
	}
	return vm.NewObjectValue(vm.FromDescriptor(d)), nil
}

// DefineProperty normalizes raw (without completing it) and defines name on
// subject. A refusal is a TypeError.
func (o *ObjectOps) DefineProperty(subject vm.Value, name string, raw vm.Value) (vm.Value, error) {
	desc, err := vm.ToPropertyDescriptor(raw)
	if err != nil {
		return vm.Undefined, err
	}
	var ok bool
	if v, registered := o.lookup(subject); registered {
		ok, err = v.DefineProperty(name, desc)
	} else {
		obj, objErr := requireObject("defineProperty", subject)
		if objErr != nil {
			return vm.Undefined, objErr
		}
		ok, err = obj.DefineOwnProperty(name, desc)
	}
	if err != nil {
		return vm.Undefined, err
	}
	if !ok {
		return vm.Undefined, errorsPkg.NewTypeError("can't redefine property '%s'", name)
	}
	return subject, nil
}

func (o *ObjectOps) Keys(subject vm.Value) ([]string, error) {
	if v, ok := o.lookup(subject); ok {
		return v.Keys()
	}
	obj, err := requireObject("keys", subject)
	if err != nil {
		return nil, err
	}
	return obj.Keys()
}

func (o *ObjectOps) GetOwnPropertyNames(subject vm.Value) ([]string, error) {
	if v, ok := o.lookup(subject); ok {
		return v.GetOwnPropertyNames()
	}
	obj, err := requireObject("getOwnPropertyNames", subject)
	if err != nil {
		return nil, err
	}
	return obj.OwnKeys()
}
