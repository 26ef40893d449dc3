package vm

import (
	"sort"
	"strconv"
	"strings"

	errorsPkg "github.com/corbinu/harmony-reflect/pkg/errors"
)

// Object is the set of internal methods every object of the model supports.
// Records answer from their own property table; proxies route each method
// through their validator. Methods that may run user code return an error.
type Object interface {
	GetPrototypeOf() (Value, error)
	SetPrototypeOf(proto Value) (bool, error)
	IsExtensible() (bool, error)
	PreventExtensions() (bool, error)

	// GetOwnProperty returns the complete descriptor of an own property.
	GetOwnProperty(name string) (Descriptor, bool, error)
	DefineOwnProperty(name string, d Descriptor) (bool, error)
	Delete(name string) (bool, error)

	HasProperty(name string) (bool, error)
	HasOwnProperty(name string) (bool, error)
	Get(name string, receiver Value) (Value, error)
	Set(name string, v Value, receiver Value) (bool, error)

	// OwnKeys lists every own property name, Keys only the enumerable ones,
	// and Enumerate the for-in names including inherited ones.
	OwnKeys() ([]string, error)
	Keys() ([]string, error)
	Enumerate() ([]string, error)

	IsCallable() bool
	Call(this Value, args []Value) (Value, error)
	Construct(args []Value, newTarget Value) (Value, error)
}

// Record is a concrete object: an ordered own-property table, a prototype
// and a one-way extensibility flag. It is the ground truth a validator
// checks trap answers against, and its methods are the default operations.
//
// Record operations never fail on their own; the error results exist for
// getters, setters and prototypes that may be proxies.
type Record struct {
	prototype  Value
	keys       []string // insertion order
	props      map[string]Descriptor
	extensible bool

	name      string
	call      NativeFunc
	construct NativeConstructor
}

// NewRecord creates an empty extensible record. A nil proto gives a record
// with a null prototype.
func NewRecord(proto Object) *Record {
	return &Record{
		prototype:  NewObjectValue(proto),
		props:      make(map[string]Descriptor),
		extensible: true,
	}
}

// --- Direct accessors (used by validators; they never run user code) ---

// OwnDescriptor returns the complete descriptor of an own property.
func (r *Record) OwnDescriptor(name string) (Descriptor, bool) {
	d, ok := r.props[name]
	return d, ok
}

// IsFixed reports whether name is an own property.
func (r *Record) IsFixed(name string) bool {
	_, ok := r.props[name]
	return ok
}

// IsSealedProperty reports whether name is an own non-configurable property.
func (r *Record) IsSealedProperty(name string) bool {
	d, ok := r.props[name]
	return ok && d.Sealed()
}

func (r *Record) Extensible() bool { return r.extensible }
func (r *Record) Prototype() Value { return r.prototype }
func (r *Record) Name() string     { return r.name }

// Names returns own property names: integer-like keys in ascending numeric
// order first, then the rest in insertion order.
func (r *Record) Names() []string {
	var indices []string
	var rest []string
	for _, k := range r.keys {
		if _, ok := arrayIndex(k); ok {
			indices = append(indices, k)
		} else {
			rest = append(rest, k)
		}
	}
	sort.Slice(indices, func(i, j int) bool {
		a, _ := arrayIndex(indices[i])
		b, _ := arrayIndex(indices[j])
		return a < b
	})
	return append(indices, rest...)
}

// EnumerableNames is Names restricted to enumerable properties.
func (r *Record) EnumerableNames() []string {
	names := r.Names()
	out := names[:0]
	for _, k := range names {
		if r.props[k].enumerable == FlagTrue {
			out = append(out, k)
		}
	}
	return out
}

// arrayIndex parses a canonical array index ("0", "17"; not "01" or "-1").
func arrayIndex(key string) (uint32, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(key, 10, 32)
	if err != nil || n == 1<<32-1 {
		return 0, false
	}
	return uint32(n), true
}

// --- Convenience mutators ---

// Put defines (or overwrites) an ordinary writable, enumerable, configurable
// data property, bypassing compatibility checks.
func (r *Record) Put(name string, v Value) {
	r.store(name, DataProperty(v, true, true, true))
}

// DefineData stores a complete data property, bypassing compatibility checks.
// Meant for building fixtures before the record is shared.
func (r *Record) DefineData(name string, v Value, writable, enumerable, configurable bool) {
	r.store(name, DataProperty(v, writable, enumerable, configurable))
}

// DefineAccessor stores a complete accessor property, bypassing
// compatibility checks.
func (r *Record) DefineAccessor(name string, get, set Value, enumerable, configurable bool) error {
	d, err := AccessorProperty(get, set, enumerable, configurable)
	if err != nil {
		return err
	}
	r.store(name, d)
	return nil
}

func (r *Record) store(name string, d Descriptor) {
	if _, ok := r.props[name]; !ok {
		r.keys = append(r.keys, name)
	}
	r.props[name] = d
}

func (r *Record) remove(name string) {
	delete(r.props, name)
	for i, k := range r.keys {
		if k == name {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			return
		}
	}
}

// Seal makes the record non-extensible and every own property
// non-configurable.
func (r *Record) Seal() bool {
	ok, _ := SetIntegrityLevel(r, IntegritySealed)
	return ok
}

// Freeze seals the record and makes every own data property non-writable.
func (r *Record) Freeze() bool {
	ok, _ := SetIntegrityLevel(r, IntegrityFrozen)
	return ok
}

func (r *Record) IsSealed() bool {
	ok, _ := TestIntegrityLevel(r, IntegritySealed)
	return ok
}

func (r *Record) IsFrozen() bool {
	ok, _ := TestIntegrityLevel(r, IntegrityFrozen)
	return ok
}

// --- Object implementation ---

func (r *Record) GetPrototypeOf() (Value, error) { return r.prototype, nil }

// SetPrototypeOf fails on a non-extensible record unless proto is the
// current prototype, and refuses to create a cycle of records.
func (r *Record) SetPrototypeOf(proto Value) (bool, error) {
	if !proto.IsObject() && !proto.IsNull() {
		return false, errorsPkg.NewTypeError("Object prototype may only be an Object or null: %s", proto.Inspect())
	}
	if SameValue(proto, r.prototype) {
		return true, nil
	}
	if !r.extensible {
		return false, nil
	}
	for p := proto; p.IsObject(); {
		rec, ok := p.obj.(*Record)
		if !ok {
			// the chain continues through an exotic object
			break
		}
		if rec == r {
			return false, nil
		}
		p = rec.prototype
	}
	r.prototype = proto
	return true, nil
}

func (r *Record) IsExtensible() (bool, error) { return r.extensible, nil }

func (r *Record) PreventExtensions() (bool, error) {
	r.extensible = false
	return true, nil
}

func (r *Record) GetOwnProperty(name string) (Descriptor, bool, error) {
	d, ok := r.props[name]
	return d, ok, nil
}

// DefineOwnProperty validates d against the current state with IsCompatible
// and applies it when legal.
func (r *Record) DefineOwnProperty(name string, d Descriptor) (bool, error) {
	current, ok := r.props[name]
	if !ok {
		if !IsCompatible(r.extensible, nil, d) {
			return false, nil
		}
		r.store(name, d.Complete())
		return true, nil
	}
	if !IsCompatible(r.extensible, &current, d) {
		return false, nil
	}
	r.props[name] = mergeDescriptor(current, d)
	return true, nil
}

func (r *Record) Delete(name string) (bool, error) {
	d, ok := r.props[name]
	if !ok {
		return true, nil
	}
	if d.Sealed() {
		return false, nil
	}
	r.remove(name)
	return true, nil
}

func (r *Record) HasOwnProperty(name string) (bool, error) {
	return r.IsFixed(name), nil
}

func (r *Record) HasProperty(name string) (bool, error) {
	if r.IsFixed(name) {
		return true, nil
	}
	if r.prototype.IsObject() {
		return r.prototype.obj.HasProperty(name)
	}
	return false, nil
}

// Get reads name, climbing the prototype chain. Getters run with receiver
// as this.
func (r *Record) Get(name string, receiver Value) (Value, error) {
	d, ok := r.props[name]
	if !ok {
		if r.prototype.IsObject() {
			return r.prototype.obj.Get(name, receiver)
		}
		return Undefined, nil
	}
	if d.IsData() {
		return d.value, nil
	}
	if d.getter.IsUndefined() {
		return Undefined, nil
	}
	return Call(d.getter, receiver, nil)
}

// Set assigns v to name. An inherited or missing data property is defined
// on receiver through receiver's own internal methods, so a proxy receiver
// observes the definition.
func (r *Record) Set(name string, v Value, receiver Value) (bool, error) {
	own, ok := r.props[name]
	if !ok {
		if r.prototype.IsObject() {
			return r.prototype.obj.Set(name, v, receiver)
		}
		own = DataProperty(Undefined, true, true, true)
	}

	if own.IsAccessor() {
		if own.setter.IsUndefined() {
			return false, nil
		}
		if _, err := Call(own.setter, receiver, []Value{v}); err != nil {
			return false, err
		}
		return true, nil
	}

	if own.writable != FlagTrue || !receiver.IsObject() {
		return false, nil
	}
	recv := receiver.obj
	existing, has, err := recv.GetOwnProperty(name)
	if err != nil {
		return false, err
	}
	if has {
		if existing.IsAccessor() || existing.writable != FlagTrue {
			return false, nil
		}
		return recv.DefineOwnProperty(name, DataProperty(v, true, existing.enumerable == FlagTrue, existing.configurable == FlagTrue))
	}
	return recv.DefineOwnProperty(name, DataProperty(v, true, true, true))
}

func (r *Record) OwnKeys() ([]string, error) { return r.Names(), nil }
func (r *Record) Keys() ([]string, error)    { return r.EnumerableNames(), nil }

// Enumerate lists enumerable own names followed by enumerable inherited
// names that are not shadowed by an own property.
func (r *Record) Enumerate() ([]string, error) {
	seen := make(map[string]bool, len(r.keys))
	var out []string
	for _, k := range r.Names() {
		seen[k] = true
		if r.props[k].enumerable == FlagTrue {
			out = append(out, k)
		}
	}
	if !r.prototype.IsObject() {
		return out, nil
	}
	inherited, err := r.prototype.obj.Enumerate()
	if err != nil {
		return nil, err
	}
	for _, k := range inherited {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out, nil
}

func (r *Record) IsCallable() bool { return r.call != nil || r.construct != nil }

func (r *Record) Call(this Value, args []Value) (Value, error) {
	if r.call == nil {
		return Undefined, &errorsPkg.NotCallableError{Operation: "apply", Msg: r.Inspect() + " is not a function"}
	}
	return r.call(this, args)
}

// Construct runs the record's constructor behavior. Without an explicit
// one, a fresh record inheriting newTarget.prototype is passed to the call
// behavior as this; an object result replaces it.
func (r *Record) Construct(args []Value, newTarget Value) (Value, error) {
	if r.construct != nil {
		return r.construct(args, newTarget)
	}
	if r.call == nil {
		return Undefined, &errorsPkg.NotCallableError{Operation: "construct", Msg: r.Inspect() + " is not a constructor"}
	}
	if !newTarget.IsObject() {
		newTarget = NewObjectValue(r)
	}
	proto, err := newTarget.obj.Get("prototype", newTarget)
	if err != nil {
		return Undefined, err
	}
	instance := &Record{prototype: Null, props: make(map[string]Descriptor), extensible: true}
	if proto.IsObject() {
		instance.prototype = proto
	}
	result, err := r.call(NewObjectValue(instance), args)
	if err != nil {
		return Undefined, err
	}
	if result.IsObject() {
		return result, nil
	}
	return NewObjectValue(instance), nil
}

// Inspect renders the record for diagnostics. Nested objects are not
// expanded.
func (r *Record) Inspect() string {
	if r.IsCallable() {
		if r.name == "" {
			return "[Function (anonymous)]"
		}
		return "[Function " + r.name + "]"
	}
	var sb strings.Builder
	sb.WriteString("{")
	for i, k := range r.Names() {
		if i > 0 {
			sb.WriteString(", ")
		}
		d := r.props[k]
		sb.WriteString(k)
		sb.WriteString(": ")
		switch {
		case d.IsAccessor():
			sb.WriteString("[Accessor]")
		case d.value.IsObject():
			if rec, ok := d.value.AsRecord(); ok && rec.IsCallable() {
				sb.WriteString(rec.Inspect())
			} else {
				sb.WriteString("[Object]")
			}
		default:
			sb.WriteString(d.value.Inspect())
		}
	}
	sb.WriteString("}")
	return sb.String()
}
