package proxy

import (
	"github.com/corbinu/harmony-reflect/pkg/registry"
	"github.com/corbinu/harmony-reflect/pkg/vm"
)

// Registry maps live proxies to their validators.
type Registry = registry.Registry[Proxy, *Validator]

// NewRegistry creates an empty proxy registry.
func NewRegistry() *Registry {
	return registry.New[Proxy, *Validator]()
}

// Proxy is a virtual object. Every internal method goes through its
// validator, so a proxy can stand anywhere a record can: as a prototype, a
// receiver, or the this of a getter.
type Proxy struct {
	validator *Validator
}

var _ vm.Object = (*Proxy)(nil)

// New creates a proxy for target and registers it in reg, if reg is not nil.
func New(reg *Registry, target *vm.Record, traps Traps, opts ...Option) *Proxy {
	p := &Proxy{validator: NewValidator(target, traps, opts...)}
	if reg != nil {
		reg.Register(p, p.validator)
	}
	return p
}

// NewRevocable is New plus a function that revokes the proxy.
func NewRevocable(reg *Registry, target *vm.Record, traps Traps, opts ...Option) (*Proxy, func()) {
	p := New(reg, target, traps, opts...)
	return p, p.validator.Revoke
}

// NewFromHandler creates a proxy whose traps are read from a handler object.
func NewFromHandler(reg *Registry, target *vm.Record, handler vm.Object, opts ...Option) (*Proxy, error) {
	traps, err := TrapsFromObject(handler)
	if err != nil {
		return nil, err
	}
	return New(reg, target, traps, opts...), nil
}

func (p *Proxy) Validator() *Validator { return p.validator }

// Value wraps the proxy as a value.
func (p *Proxy) Value() vm.Value { return vm.NewObjectValue(p) }

func (p *Proxy) GetPrototypeOf() (vm.Value, error) { return p.validator.GetPrototypeOf() }
func (p *Proxy) SetPrototypeOf(proto vm.Value) (bool, error) {
	return p.validator.SetPrototypeOf(proto)
}
func (p *Proxy) IsExtensible() (bool, error)      { return p.validator.IsExtensible() }
func (p *Proxy) PreventExtensions() (bool, error) { return p.validator.PreventExtensions() }

func (p *Proxy) GetOwnProperty(name string) (vm.Descriptor, bool, error) {
	return p.validator.GetOwnPropertyDescriptor(name)
}
func (p *Proxy) DefineOwnProperty(name string, d vm.Descriptor) (bool, error) {
	return p.validator.DefineProperty(name, d)
}
func (p *Proxy) Delete(name string) (bool, error) { return p.validator.Delete(name) }

func (p *Proxy) HasProperty(name string) (bool, error)    { return p.validator.Has(name) }
func (p *Proxy) HasOwnProperty(name string) (bool, error) { return p.validator.HasOwn(name) }

func (p *Proxy) Get(name string, receiver vm.Value) (vm.Value, error) {
	return p.validator.Get(receiver, name)
}
func (p *Proxy) Set(name string, v vm.Value, receiver vm.Value) (bool, error) {
	return p.validator.Set(receiver, name, v)
}

func (p *Proxy) OwnKeys() ([]string, error)   { return p.validator.GetOwnPropertyNames() }
func (p *Proxy) Keys() ([]string, error)      { return p.validator.Keys() }
func (p *Proxy) Enumerate() ([]string, error) { return p.validator.Enumerate() }

func (p *Proxy) IsCallable() bool { return p.validator.target.IsCallable() }

func (p *Proxy) Call(this vm.Value, args []vm.Value) (vm.Value, error) {
	return p.validator.Apply(this, args)
}

// Inspect renders the proxy without running any trap.
func (p *Proxy) Inspect() string {
	switch {
	case p.validator.Revoked():
		return "[Proxy (revoked)]"
	case p.IsCallable():
		return "[Proxy Function]"
	}
	return "[Proxy]"
}

// Construct defaults newTarget to the proxy itself.
func (p *Proxy) Construct(args []vm.Value, newTarget vm.Value) (vm.Value, error) {
	if newTarget.IsUndefined() {
		newTarget = p.Value()
	}
	return p.validator.Construct(args, newTarget)
}
