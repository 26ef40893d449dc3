package vm

import (
	"strings"

	errorsPkg "github.com/corbinu/harmony-reflect/pkg/errors"
)

// Flag is a tri-state boolean attribute of a property descriptor.
type Flag uint8

const (
	FlagNotSet Flag = iota
	FlagFalse
	FlagTrue
)

// ToFlag converts a boolean into a set Flag.
func ToFlag(b bool) Flag {
	if b {
		return FlagTrue
	}
	return FlagFalse
}

func (f Flag) IsSet() bool { return f != FlagNotSet }

// Bool reports whether the flag is set to true. An unset flag reads as false.
func (f Flag) Bool() bool { return f == FlagTrue }

func (f Flag) String() string {
	switch f {
	case FlagTrue:
		return "true"
	case FlagFalse:
		return "false"
	default:
		return "<not set>"
	}
}

// Descriptor describes the shape of one property. It is either generic
// (only enumerable/configurable), data (value/writable) or accessor
// (get/set); a descriptor mixing data and accessor attributes cannot be
// constructed.
//
// Attributes that were not supplied stay absent. A descriptor obtained from a
// Record, or through Complete, carries every attribute of its shape.
type Descriptor struct {
	value        Value
	hasValue     bool
	writable     Flag
	getter       Value
	hasGetter    bool
	setter       Value
	hasSetter    bool
	enumerable   Flag
	configurable Flag
}

// DescriptorFields is the input to NewDescriptor. A nil field means the
// attribute is absent.
type DescriptorFields struct {
	Value        *Value
	Writable     *bool
	Get          *Value
	Set          *Value
	Enumerable   *bool
	Configurable *bool
}

// NewDescriptor validates fields and builds a (possibly partial) descriptor.
func NewDescriptor(f DescriptorFields) (Descriptor, error) {
	var d Descriptor
	if f.Enumerable != nil {
		d.enumerable = ToFlag(*f.Enumerable)
	}
	if f.Configurable != nil {
		d.configurable = ToFlag(*f.Configurable)
	}
	if f.Value != nil {
		d.value, d.hasValue = *f.Value, true
	}
	if f.Writable != nil {
		d.writable = ToFlag(*f.Writable)
	}
	if f.Get != nil {
		if !f.Get.IsUndefined() && !f.Get.IsCallable() {
			return Descriptor{}, errorsPkg.NewDescriptorError("property descriptor 'get' attribute must be callable or undefined, given: %s", f.Get.Inspect())
		}
		d.getter, d.hasGetter = *f.Get, true
	}
	if f.Set != nil {
		if !f.Set.IsUndefined() && !f.Set.IsCallable() {
			return Descriptor{}, errorsPkg.NewDescriptorError("property descriptor 'set' attribute must be callable or undefined, given: %s", f.Set.Inspect())
		}
		d.setter, d.hasSetter = *f.Set, true
	}
	if (d.hasGetter || d.hasSetter) && (d.hasValue || d.writable.IsSet()) {
		return Descriptor{}, errorsPkg.NewDescriptorError("property descriptor cannot be both a data and an accessor descriptor")
	}
	return d, nil
}

// DataProperty returns a complete data descriptor.
func DataProperty(value Value, writable, enumerable, configurable bool) Descriptor {
	return Descriptor{
		value:        value,
		hasValue:     true,
		writable:     ToFlag(writable),
		enumerable:   ToFlag(enumerable),
		configurable: ToFlag(configurable),
	}
}

// AccessorProperty returns a complete accessor descriptor. get and set must
// each be undefined or callable.
func AccessorProperty(get, set Value, enumerable, configurable bool) (Descriptor, error) {
	e, c := enumerable, configurable
	return NewDescriptor(DescriptorFields{Get: &get, Set: &set, Enumerable: &e, Configurable: &c})
}

// GenericDescriptor returns a descriptor carrying only the common attributes.
func GenericDescriptor(enumerable, configurable Flag) Descriptor {
	return Descriptor{enumerable: enumerable, configurable: configurable}
}

func (d Descriptor) Value() Value       { return d.value }
func (d Descriptor) HasValue() bool     { return d.hasValue }
func (d Descriptor) Writable() Flag     { return d.writable }
func (d Descriptor) Getter() Value      { return d.getter }
func (d Descriptor) HasGetter() bool    { return d.hasGetter }
func (d Descriptor) Setter() Value      { return d.setter }
func (d Descriptor) HasSetter() bool    { return d.hasSetter }
func (d Descriptor) Enumerable() Flag   { return d.enumerable }
func (d Descriptor) Configurable() Flag { return d.configurable }

func (d Descriptor) IsAccessor() bool { return d.hasGetter || d.hasSetter }
func (d Descriptor) IsData() bool     { return d.hasValue || d.writable.IsSet() }
func (d Descriptor) IsGeneric() bool  { return !d.IsAccessor() && !d.IsData() }

// IsEmpty reports whether no attribute at all is present.
func (d Descriptor) IsEmpty() bool {
	return d.IsGeneric() && !d.enumerable.IsSet() && !d.configurable.IsSet()
}

// IsComplete reports whether every attribute of the descriptor's shape is present.
func (d Descriptor) IsComplete() bool {
	if !d.enumerable.IsSet() || !d.configurable.IsSet() {
		return false
	}
	if d.IsAccessor() {
		return d.hasGetter && d.hasSetter
	}
	return d.hasValue && d.writable.IsSet()
}

// Sealed reports whether a complete descriptor is non-configurable.
func (d Descriptor) Sealed() bool { return d.configurable == FlagFalse }

// Frozen reports whether a complete descriptor is a non-configurable,
// non-writable data property.
func (d Descriptor) Frozen() bool {
	return d.Sealed() && d.IsData() && d.writable == FlagFalse
}

// Complete fills every absent attribute with its default. Generic
// descriptors complete to data descriptors.
func (d Descriptor) Complete() Descriptor {
	if d.IsGeneric() || d.IsData() {
		if !d.hasValue {
			d.value, d.hasValue = Undefined, true
		}
		if !d.writable.IsSet() {
			d.writable = FlagFalse
		}
	} else {
		if !d.hasGetter {
			d.getter, d.hasGetter = Undefined, true
		}
		if !d.hasSetter {
			d.setter, d.hasSetter = Undefined, true
		}
	}
	if !d.enumerable.IsSet() {
		d.enumerable = FlagFalse
	}
	if !d.configurable.IsSet() {
		d.configurable = FlagFalse
	}
	return d
}

// String renders the present attributes, e.g. {value: 1, writable: false}.
func (d Descriptor) String() string {
	var parts []string
	if d.hasValue {
		parts = append(parts, "value: "+d.value.Inspect())
	}
	if d.writable.IsSet() {
		parts = append(parts, "writable: "+d.writable.String())
	}
	if d.hasGetter {
		parts = append(parts, "get: "+d.getter.Inspect())
	}
	if d.hasSetter {
		parts = append(parts, "set: "+d.setter.Inspect())
	}
	if d.enumerable.IsSet() {
		parts = append(parts, "enumerable: "+d.enumerable.String())
	}
	if d.configurable.IsSet() {
		parts = append(parts, "configurable: "+d.configurable.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// --- Normalization ---

// ToPropertyDescriptor converts a handler-supplied object into a descriptor
// containing exactly the attributes present on it. Attributes are looked up
// with HasProperty/Get, so inherited attributes count.
func ToPropertyDescriptor(raw Value) (Descriptor, error) {
	if !raw.IsObject() {
		return Descriptor{}, errorsPkg.NewDescriptorError("property descriptor should be an object, given: %s", raw.Inspect())
	}
	obj := raw.AsObject()

	lookup := func(name string) (*Value, error) {
		has, err := obj.HasProperty(name)
		if err != nil || !has {
			return nil, err
		}
		v, err := obj.Get(name, raw)
		if err != nil {
			return nil, err
		}
		return &v, nil
	}
	flag := func(name string) (*bool, error) {
		v, err := lookup(name)
		if err != nil || v == nil {
			return nil, err
		}
		b := v.ToBoolean()
		return &b, nil
	}

	var f DescriptorFields
	var err error
	if f.Enumerable, err = flag("enumerable"); err != nil {
		return Descriptor{}, err
	}
	if f.Configurable, err = flag("configurable"); err != nil {
		return Descriptor{}, err
	}
	if f.Value, err = lookup("value"); err != nil {
		return Descriptor{}, err
	}
	if f.Writable, err = flag("writable"); err != nil {
		return Descriptor{}, err
	}
	if f.Get, err = lookup("get"); err != nil {
		return Descriptor{}, err
	}
	if f.Set, err = lookup("set"); err != nil {
		return Descriptor{}, err
	}
	return NewDescriptor(f)
}

// ToCompleteDescriptor normalizes raw and fills in defaults.
func ToCompleteDescriptor(raw Value) (Descriptor, error) {
	d, err := ToPropertyDescriptor(raw)
	if err != nil {
		return Descriptor{}, err
	}
	return d.Complete(), nil
}

// FromDescriptor reifies a descriptor as a plain record holding one data
// property per present attribute.
func FromDescriptor(d Descriptor) *Record {
	r := NewRecord(nil)
	if d.hasValue {
		r.Put("value", d.value)
	}
	if d.writable.IsSet() {
		r.Put("writable", BooleanValue(d.writable.Bool()))
	}
	if d.hasGetter {
		r.Put("get", d.getter)
	}
	if d.hasSetter {
		r.Put("set", d.setter)
	}
	if d.enumerable.IsSet() {
		r.Put("enumerable", BooleanValue(d.enumerable.Bool()))
	}
	if d.configurable.IsSet() {
		r.Put("configurable", BooleanValue(d.configurable.Bool()))
	}
	return r
}

// Equivalent reports whether all six attributes are the same value. An
// absent value, get or set reads as undefined; absent flags only match
// absent flags.
func Equivalent(a, b Descriptor) bool {
	return SameValue(a.getter, b.getter) &&
		SameValue(a.setter, b.setter) &&
		SameValue(a.value, b.value) &&
		a.writable == b.writable &&
		a.enumerable == b.enumerable &&
		a.configurable == b.configurable
}

// mergeDescriptor applies the attributes present in d on top of the complete
// descriptor current. A shape change keeps only the common attributes of
// current.
func mergeDescriptor(current, d Descriptor) Descriptor {
	out := current
	switch {
	case d.IsGeneric():
	case current.IsData() && d.IsAccessor():
		out = Descriptor{getter: Undefined, hasGetter: true, setter: Undefined, hasSetter: true,
			enumerable: current.enumerable, configurable: current.configurable}
	case current.IsAccessor() && d.IsData():
		out = Descriptor{value: Undefined, hasValue: true, writable: FlagFalse,
			enumerable: current.enumerable, configurable: current.configurable}
	}
	if d.hasValue {
		out.value = d.value
	}
	if d.writable.IsSet() {
		out.writable = d.writable
	}
	if d.hasGetter {
		out.getter = d.getter
	}
	if d.hasSetter {
		out.setter = d.setter
	}
	if d.enumerable.IsSet() {
		out.enumerable = d.enumerable
	}
	if d.configurable.IsSet() {
		out.configurable = d.configurable
	}
	return out
}
