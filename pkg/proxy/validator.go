// Package proxy implements virtual objects whose structural operations are
// answered by user traps, with every answer checked against a backing record.
package proxy

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	errorsPkg "github.com/corbinu/harmony-reflect/pkg/errors"
	"github.com/corbinu/harmony-reflect/pkg/vm"
)

// Validator sits between a proxy and its traps. It forwards each operation
// to the trap (or to the target when there is none) and refuses any answer
// that contradicts the target's fixed properties or extensibility.
//
// The validator keeps no state of its own besides the revocation flag; all
// checks re-read the target after the trap returns, so traps may re-enter
// the proxy freely.
type Validator struct {
	id      uuid.UUID
	target  *vm.Record
	traps   Traps
	revoked bool
	logger  *zap.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the logger used for trap dispatch and violations.
func WithLogger(logger *zap.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewValidator creates a validator for target. The traps are captured as
// given; later changes to the caller's copy have no effect.
func NewValidator(target *vm.Record, traps Traps, opts ...Option) *Validator {
	v := &Validator{
		id:     uuid.New(),
		target: target,
		traps:  traps,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = v.logger.With(zap.Stringer("proxy", v.id))
	return v
}

func (v *Validator) ID() uuid.UUID       { return v.id }
func (v *Validator) Target() *vm.Record  { return v.target }
func (v *Validator) Revoked() bool       { return v.revoked }
func (v *Validator) Logger() *zap.Logger { return v.logger }

// Revoke permanently disables the validator. Every later operation fails
// with a RevokedProxyError.
func (v *Validator) Revoke() {
	if v.revoked {
		return
	}
	v.revoked = true
	v.traps = Traps{}
	v.logger.Info("proxy revoked")
}

func (v *Validator) enter(op string) error {
	if v.revoked {
		return &errorsPkg.RevokedProxyError{Operation: op}
	}
	return nil
}

func (v *Validator) forward(op string) {
	v.logger.Debug("forwarding to target", zap.String("op", op))
}

func (v *Validator) trap(op string, fields ...zap.Field) {
	v.logger.Debug("calling trap", append(fields, zap.String("op", op))...)
}

func (v *Validator) violation(err *errorsPkg.InvariantViolation) error {
	fields := []zap.Field{zap.String("op", err.Operation), zap.String("reason", string(err.Reason))}
	if err.HasProperty {
		fields = append(fields, zap.String("property", err.Property))
	}
	v.logger.Warn(err.Msg, fields...)
	return err
}

// --- Fundamental operations ---

// GetOwnPropertyDescriptor returns the complete descriptor the trap reports
// for name, or false when it reports the property as absent.
func (v *Validator) GetOwnPropertyDescriptor(name string) (vm.Descriptor, bool, error) {
	const op = "getOwnPropertyDescriptor"
	if err := v.enter(op); err != nil {
		return vm.Descriptor{}, false, err
	}
	if v.traps.GetOwnPropertyDescriptor == nil {
		v.forward(op)
		d, ok := v.target.OwnDescriptor(name)
		return d, ok, nil
	}

	v.trap(op, zap.String("property", name))
	raw, err := v.traps.GetOwnPropertyDescriptor(v.target, name)
	if err != nil {
		return vm.Descriptor{}, false, err
	}
	var desc vm.Descriptor
	present := !raw.IsUndefined()
	if present {
		if desc, err = vm.ToCompleteDescriptor(raw); err != nil {
			return vm.Descriptor{}, false, err
		}
	}

	targetDesc, fixed := v.target.OwnDescriptor(name)
	extensible := v.target.Extensible()

	if !present {
		if fixed && targetDesc.Sealed() {
			return vm.Descriptor{}, false, v.violation(errorsPkg.NewPropertyViolation(op, name, errorsPkg.ReasonSealedReportedAbsent,
				"cannot report non-configurable property '%s' as non-existent", name))
		}
		if !extensible && fixed {
			return vm.Descriptor{}, false, v.violation(errorsPkg.NewPropertyViolation(op, name, errorsPkg.ReasonFixedReportedAbsent,
				"cannot report existing own property '%s' as non-existent on a non-extensible object", name))
		}
		return vm.Descriptor{}, false, nil
	}

	if !extensible && !fixed {
		return vm.Descriptor{}, false, v.violation(errorsPkg.NewPropertyViolation(op, name, errorsPkg.ReasonNewPropertyOnNonExtensible,
			"cannot report a new own property '%s' on a non-extensible object", name))
	}
	if !vm.IsCompatible(extensible, currentOrNil(targetDesc, fixed), desc) {
		return vm.Descriptor{}, false, v.violation(errorsPkg.NewPropertyViolation(op, name, errorsPkg.ReasonIncompatibleDescriptor,
			"cannot report incompatible property descriptor for property '%s'", name))
	}
	if desc.Sealed() && !(fixed && targetDesc.Sealed()) {
		return vm.Descriptor{}, false, v.violation(errorsPkg.NewPropertyViolation(op, name, errorsPkg.ReasonNonConfigurableNotSealed,
			"cannot report a non-configurable descriptor for configurable or non-existent property '%s'", name))
	}
	return desc, true, nil
}

func currentOrNil(d vm.Descriptor, ok bool) *vm.Descriptor {
	if !ok {
		return nil
	}
	return &d
}

// DefineProperty asks the trap to define name with the (possibly partial)
// descriptor desc and checks a reported success against the target.
func (v *Validator) DefineProperty(name string, desc vm.Descriptor) (bool, error) {
	const op = "defineProperty"
	if err := v.enter(op); err != nil {
		return false, err
	}
	if v.traps.DefineProperty == nil {
		v.forward(op)
		return v.target.DefineOwnProperty(name, desc)
	}

	v.trap(op, zap.String("property", name), zap.Stringer("descriptor", desc))
	res, err := v.traps.DefineProperty(v.target, name, desc)
	if err != nil {
		return false, err
	}
	if !res.ToBoolean() {
		return false, nil
	}

	targetDesc, fixed := v.target.OwnDescriptor(name)
	extensible := v.target.Extensible()
	if !extensible && !fixed {
		return false, v.violation(errorsPkg.NewPropertyViolation(op, name, errorsPkg.ReasonNewPropertyOnNonExtensible,
			"cannot successfully add a new property '%s' to a non-extensible object", name))
	}
	if fixed && !vm.IsCompatible(extensible, &targetDesc, desc) {
		return false, v.violation(errorsPkg.NewPropertyViolation(op, name, errorsPkg.ReasonIncompatibleDescriptor,
			"cannot define incompatible property descriptor for property '%s'", name))
	}
	// an omitted configurable defaults to false for a new property
	if desc.Configurable() != vm.FlagTrue && !(fixed && targetDesc.Sealed()) {
		return false, v.violation(errorsPkg.NewPropertyViolation(op, name, errorsPkg.ReasonNonConfigurableNotSealed,
			"cannot successfully define a non-configurable descriptor for configurable or non-existent property '%s'", name))
	}
	return true, nil
}

// Delete asks the trap to delete name. Reporting success for a sealed
// property is a violation.
func (v *Validator) Delete(name string) (bool, error) {
	const op = "deleteProperty"
	if err := v.enter(op); err != nil {
		return false, err
	}
	if v.traps.DeleteProperty == nil {
		v.forward(op)
		return v.target.Delete(name)
	}

	v.trap(op, zap.String("property", name))
	res, err := v.traps.DeleteProperty(v.target, name)
	if err != nil {
		return false, err
	}
	if !res.ToBoolean() {
		return false, nil
	}
	if v.target.IsSealedProperty(name) {
		return false, v.violation(errorsPkg.NewPropertyViolation(op, name, errorsPkg.ReasonSealedDeleted,
			"property '%s' is non-configurable and can't be deleted", name))
	}
	return true, nil
}

// GetOwnPropertyNames returns a fresh, duplicate-free copy of the names the
// trap lists, after checking that no sealed property is missing and that a
// non-extensible target gains no names.
func (v *Validator) GetOwnPropertyNames() ([]string, error) {
	const op = "getOwnPropertyNames"
	if err := v.enter(op); err != nil {
		return nil, err
	}
	if v.traps.GetOwnPropertyNames == nil {
		v.forward(op)
		return v.target.Names(), nil
	}

	v.trap(op)
	names, err := v.traps.GetOwnPropertyNames(v.target)
	if err != nil {
		return nil, err
	}
	return v.checkNames(op, names, nameRules{rejectNew: true})
}

// Keys is GetOwnPropertyNames restricted to enumerable properties.
func (v *Validator) Keys() ([]string, error) {
	const op = "keys"
	if err := v.enter(op); err != nil {
		return nil, err
	}
	if v.traps.Keys == nil {
		v.forward(op)
		return v.target.EnumerableNames(), nil
	}

	v.trap(op)
	names, err := v.traps.Keys(v.target)
	if err != nil {
		return nil, err
	}
	return v.checkNames(op, names, nameRules{rejectNew: true, enumerableOnly: true, rejectHidden: true})
}

// Enumerate checks the trap's for-in names. Inherited names may appear, so
// only duplicates and omitted own enumerable properties are rejected.
func (v *Validator) Enumerate() ([]string, error) {
	const op = "enumerate"
	if err := v.enter(op); err != nil {
		return nil, err
	}
	if v.traps.Enumerate == nil {
		v.forward(op)
		return v.target.Enumerate()
	}

	v.trap(op)
	names, err := v.traps.Enumerate(v.target)
	if err != nil {
		return nil, err
	}
	return v.checkNames(op, names, nameRules{enumerableOnly: true})
}

type nameRules struct {
	rejectNew      bool // names not fixed on a non-extensible target
	enumerableOnly bool // only enumerable own properties must be listed
	rejectHidden   bool // sealed non-enumerable properties must not be listed
}

func (v *Validator) checkNames(op string, names []string, rules nameRules) ([]string, error) {
	seen := make(map[string]bool, len(names))
	result := make([]string, 0, len(names))
	for _, s := range names {
		if seen[s] {
			return nil, v.violation(errorsPkg.NewPropertyViolation(op, s, errorsPkg.ReasonDuplicateName,
				"%s trap cannot list a duplicate property '%s'", op, s))
		}
		if rules.rejectNew && !v.target.Extensible() && !v.target.IsFixed(s) {
			return nil, v.violation(errorsPkg.NewPropertyViolation(op, s, errorsPkg.ReasonNewPropertyOnNonExtensible,
				"%s trap cannot list a new property '%s' on a non-extensible object", op, s))
		}
		if rules.rejectHidden {
			if d, ok := v.target.OwnDescriptor(s); ok && d.Sealed() && d.Enumerable() != vm.FlagTrue {
				return nil, v.violation(errorsPkg.NewPropertyViolation(op, s, errorsPkg.ReasonSealedNonEnumerableListed,
					"%s trap cannot list non-configurable non-enumerable property '%s'", op, s))
			}
		}
		seen[s] = true
		result = append(result, s)
	}

	required := v.target.Names()
	if rules.enumerableOnly {
		required = v.target.EnumerableNames()
	}
	for _, own := range required {
		if seen[own] {
			continue
		}
		if v.target.IsSealedProperty(own) {
			return nil, v.violation(errorsPkg.NewPropertyViolation(op, own, errorsPkg.ReasonSealedOmitted,
				"%s trap failed to include non-configurable property '%s'", op, own))
		}
		if !v.target.Extensible() {
			return nil, v.violation(errorsPkg.NewPropertyViolation(op, own, errorsPkg.ReasonFixedOmitted,
				"cannot report existing own property '%s' as non-existent on a non-extensible object", own))
		}
	}
	return result, nil
}

// --- Derived operations ---

// Has reports whether name exists on the proxy or its prototype chain. A
// true answer is never checked: the name may be inherited.
func (v *Validator) Has(name string) (bool, error) {
	const op = "has"
	if err := v.enter(op); err != nil {
		return false, err
	}
	if v.traps.Has == nil {
		v.forward(op)
		return v.target.HasProperty(name)
	}

	v.trap(op, zap.String("property", name))
	res, err := v.traps.Has(v.target, name)
	if err != nil {
		return false, err
	}
	if res.ToBoolean() {
		return true, nil
	}
	return false, v.checkReportedAbsent(op, name)
}

// HasOwn is Has restricted to own properties; it additionally rejects a
// true answer for a new name on a non-extensible target.
func (v *Validator) HasOwn(name string) (bool, error) {
	const op = "hasOwn"
	if err := v.enter(op); err != nil {
		return false, err
	}
	if v.traps.HasOwn == nil {
		v.forward(op)
		return v.target.IsFixed(name), nil
	}

	v.trap(op, zap.String("property", name))
	res, err := v.traps.HasOwn(v.target, name)
	if err != nil {
		return false, err
	}
	if !res.ToBoolean() {
		return false, v.checkReportedAbsent(op, name)
	}
	if !v.target.Extensible() && !v.target.IsFixed(name) {
		return false, v.violation(errorsPkg.NewPropertyViolation(op, name, errorsPkg.ReasonNewPropertyOnNonExtensible,
			"cannot report a new own property '%s' on a non-extensible object", name))
	}
	return true, nil
}

func (v *Validator) checkReportedAbsent(op, name string) error {
	if v.target.IsSealedProperty(name) {
		return v.violation(errorsPkg.NewPropertyViolation(op, name, errorsPkg.ReasonSealedReportedAbsent,
			"cannot report existing non-configurable own property '%s' as a non-existent property", name))
	}
	if !v.target.Extensible() && v.target.IsFixed(name) {
		return v.violation(errorsPkg.NewPropertyViolation(op, name, errorsPkg.ReasonFixedReportedAbsent,
			"cannot report existing own property '%s' as non-existent on a non-extensible object", name))
	}
	return nil
}

// Get reads name on behalf of receiver. Frozen data properties must report
// their fixed value; sealed accessors without a getter must report undefined.
func (v *Validator) Get(receiver vm.Value, name string) (vm.Value, error) {
	const op = "get"
	if err := v.enter(op); err != nil {
		return vm.Undefined, err
	}
	if v.traps.Get == nil {
		v.forward(op)
		return v.target.Get(name, receiver)
	}

	v.trap(op, zap.String("property", name))
	res, err := v.traps.Get(v.target, name, receiver)
	if err != nil {
		return vm.Undefined, err
	}
	fixed, ok := v.target.OwnDescriptor(name)
	if !ok {
		return res, nil
	}
	if fixed.Frozen() {
		if !vm.SameValue(res, fixed.Value()) {
			return vm.Undefined, v.violation(errorsPkg.NewPropertyViolation(op, name, errorsPkg.ReasonFrozenValueMismatch,
				"cannot report inconsistent value for non-writable, non-configurable property '%s'", name))
		}
	} else if fixed.IsAccessor() && fixed.Sealed() && fixed.Getter().IsUndefined() && !res.IsUndefined() {
		return vm.Undefined, v.violation(errorsPkg.NewPropertyViolation(op, name, errorsPkg.ReasonGetterlessAccessorValue,
			"must report undefined for non-configurable accessor property '%s' without getter", name))
	}
	return res, nil
}

// Set assigns value to name on behalf of receiver and checks a reported
// success against frozen data properties and setterless sealed accessors.
func (v *Validator) Set(receiver vm.Value, name string, value vm.Value) (bool, error) {
	const op = "set"
	if err := v.enter(op); err != nil {
		return false, err
	}
	if v.traps.Set == nil {
		v.forward(op)
		return v.target.Set(name, value, receiver)
	}

	v.trap(op, zap.String("property", name))
	res, err := v.traps.Set(v.target, name, value, receiver)
	if err != nil {
		return false, err
	}
	if !res.ToBoolean() {
		return false, nil
	}
	fixed, ok := v.target.OwnDescriptor(name)
	if !ok {
		return true, nil
	}
	if fixed.Frozen() {
		if !vm.SameValue(value, fixed.Value()) {
			return false, v.violation(errorsPkg.NewPropertyViolation(op, name, errorsPkg.ReasonFrozenAssignment,
				"cannot successfully assign to a non-writable, non-configurable property '%s'", name))
		}
	} else if fixed.IsAccessor() && fixed.Sealed() && fixed.Setter().IsUndefined() {
		return false, v.violation(errorsPkg.NewPropertyViolation(op, name, errorsPkg.ReasonSetterlessAssignment,
			"setting a property '%s' that has only a getter", name))
	}
	return true, nil
}

// GetPropertyDescriptor synthesizes an accessor descriptor for name from
// the has, get and set operations, so inherited lookups through a proxy
// still reach its traps.
func (v *Validator) GetPropertyDescriptor(name string) (vm.Descriptor, bool, error) {
	has, err := v.Has(name)
	if err != nil || !has {
		return vm.Descriptor{}, false, err
	}
	get := vm.NewFunction("get "+name, func(this vm.Value, _ []vm.Value) (vm.Value, error) {
		return v.Get(this, name)
	})
	set := vm.NewFunction("set "+name, func(this vm.Value, args []vm.Value) (vm.Value, error) {
		val := vm.Undefined
		if len(args) > 0 {
			val = args[0]
		}
		ok, err := v.Set(this, name, val)
		if err != nil {
			return vm.Undefined, err
		}
		if !ok {
			return vm.Undefined, errorsPkg.NewTypeError("failed assignment to %s", name)
		}
		return val, nil
	})
	d, err := vm.AccessorProperty(vm.NewObjectValue(get), vm.NewObjectValue(set), true, true)
	if err != nil {
		return vm.Descriptor{}, false, err
	}
	return d, true, nil
}

// --- Object state ---

func (v *Validator) IsExtensible() (bool, error) {
	return v.checkState("isExtensible", v.traps.IsExtensible, v.target.Extensible,
		"cannot report non-extensible object as extensible: %s",
		"cannot report extensible object as non-extensible: %s")
}

func (v *Validator) IsSealed() (bool, error) {
	return v.checkState("isSealed", v.traps.IsSealed, v.target.IsSealed,
		"cannot report unsealed object as sealed: %s",
		"cannot report sealed object as unsealed: %s")
}

func (v *Validator) IsFrozen() (bool, error) {
	return v.checkState("isFrozen", v.traps.IsFrozen, v.target.IsFrozen,
		"cannot report unfrozen object as frozen: %s",
		"cannot report frozen object as unfrozen: %s")
}

// checkState requires the trap's answer to equal the target's state exactly.
func (v *Validator) checkState(op string, trap func(*vm.Record) (vm.Value, error), state func() bool, claimedTrue, claimedFalse string) (bool, error) {
	if err := v.enter(op); err != nil {
		return false, err
	}
	if trap == nil {
		v.forward(op)
		return state(), nil
	}

	v.trap(op)
	res, err := trap(v.target)
	if err != nil {
		return false, err
	}
	reported, actual := res.ToBoolean(), state()
	if reported != actual {
		msg := claimedFalse
		if reported {
			msg = claimedTrue
		}
		return false, v.violation(errorsPkg.NewInvariantViolation(op, errorsPkg.ReasonStateMismatch, msg, v.target.Inspect()))
	}
	return actual, nil
}

func (v *Validator) PreventExtensions() (bool, error) {
	return v.checkTransition("preventExtensions", v.traps.PreventExtensions,
		func() (bool, error) { return v.target.PreventExtensions() },
		func() bool { return !v.target.Extensible() },
		"can't report extensible object as non-extensible: %s")
}

func (v *Validator) Seal() (bool, error) {
	return v.checkTransition("seal", v.traps.Seal,
		func() (bool, error) { return v.target.Seal(), nil },
		v.target.IsSealed,
		"can't report non-sealed object as sealed: %s")
}

func (v *Validator) Freeze() (bool, error) {
	return v.checkTransition("freeze", v.traps.Freeze,
		func() (bool, error) { return v.target.Freeze(), nil },
		v.target.IsFrozen,
		"can't report non-frozen object as frozen: %s")
}

// checkTransition runs a state-changing trap. The trap must have moved the
// target itself (through the record's mutators) before reporting success.
func (v *Validator) checkTransition(op string, trap func(*vm.Record) (vm.Value, error), fallback func() (bool, error), reached func() bool, msg string) (bool, error) {
	if err := v.enter(op); err != nil {
		return false, err
	}
	if trap == nil {
		v.forward(op)
		return fallback()
	}

	v.trap(op)
	res, err := trap(v.target)
	if err != nil {
		return false, err
	}
	if !res.ToBoolean() {
		return false, nil
	}
	if !reached() {
		return false, v.violation(errorsPkg.NewInvariantViolation(op, errorsPkg.ReasonStateNotReached, msg, v.target.Inspect()))
	}
	return true, nil
}

// GetPrototypeOf returns the trap's prototype, which must match the
// target's once the target is non-extensible.
func (v *Validator) GetPrototypeOf() (vm.Value, error) {
	const op = "getPrototypeOf"
	if err := v.enter(op); err != nil {
		return vm.Undefined, err
	}
	if v.traps.GetPrototypeOf == nil {
		v.forward(op)
		return v.target.Prototype(), nil
	}

	v.trap(op)
	alleged, err := v.traps.GetPrototypeOf(v.target)
	if err != nil {
		return vm.Undefined, err
	}
	if !v.target.Extensible() && !vm.SameValue(alleged, v.target.Prototype()) {
		return vm.Undefined, v.violation(errorsPkg.NewInvariantViolation(op, errorsPkg.ReasonPrototypeMismatch,
			"prototype value does not match: %s", v.target.Inspect()))
	}
	return alleged, nil
}

func (v *Validator) SetPrototypeOf(proto vm.Value) (bool, error) {
	const op = "setPrototypeOf"
	if err := v.enter(op); err != nil {
		return false, err
	}
	if v.traps.SetPrototypeOf == nil {
		v.forward(op)
		return v.target.SetPrototypeOf(proto)
	}

	v.trap(op)
	res, err := v.traps.SetPrototypeOf(v.target, proto)
	if err != nil {
		return false, err
	}
	if !res.ToBoolean() {
		return false, nil
	}
	if !v.target.Extensible() && !vm.SameValue(proto, v.target.Prototype()) {
		return false, v.violation(errorsPkg.NewInvariantViolation(op, errorsPkg.ReasonPrototypeMismatch,
			"prototype value does not match: %s", v.target.Inspect()))
	}
	return true, nil
}

// --- Call and construct ---

func (v *Validator) Apply(this vm.Value, args []vm.Value) (vm.Value, error) {
	const op = "apply"
	if err := v.enter(op); err != nil {
		return vm.Undefined, err
	}
	if !v.target.IsCallable() {
		return vm.Undefined, &errorsPkg.NotCallableError{Operation: op, Msg: "apply: " + v.target.Inspect() + " is not a function"}
	}
	if v.traps.Apply == nil {
		v.forward(op)
		return v.target.Call(this, args)
	}
	v.trap(op)
	return v.traps.Apply(v.target, this, args)
}

// Construct requires a callable target; a trap must answer with an object.
func (v *Validator) Construct(args []vm.Value, newTarget vm.Value) (vm.Value, error) {
	const op = "construct"
	if err := v.enter(op); err != nil {
		return vm.Undefined, err
	}
	if !v.target.IsCallable() {
		return vm.Undefined, &errorsPkg.NotCallableError{Operation: op, Msg: "new: " + v.target.Inspect() + " is not a function"}
	}
	if v.traps.Construct == nil {
		v.forward(op)
		return v.target.Construct(args, newTarget)
	}

	v.trap(op)
	res, err := v.traps.Construct(v.target, args, newTarget)
	if err != nil {
		return vm.Undefined, err
	}
	if !res.IsObject() {
		return vm.Undefined, v.violation(errorsPkg.NewInvariantViolation(op, errorsPkg.ReasonConstructResultNotObject,
			"construct trap must return an object, got: %s", res.Inspect()))
	}
	return res, nil
}
