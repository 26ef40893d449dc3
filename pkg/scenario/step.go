package scenario

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gopkg.in/yaml.v3"

	errorsPkg "github.com/corbinu/harmony-reflect/pkg/errors"
	"github.com/corbinu/harmony-reflect/pkg/proxy"
	"github.com/corbinu/harmony-reflect/pkg/vm"
)

// errorKinds maps expectation names to HarmonyError kinds.
var errorKinds = map[string]string{
	"invariant":          "Invariant",
	"revoked":            "Revoked",
	"not-callable":       "NotCallable",
	"invalid-descriptor": "Descriptor",
	"invalid-trap":       "InvalidTrap",
	"type":               "Type",
}

// outcome is what one step produced.
type outcome struct {
	value    vm.Value
	names    []string
	hasNames bool
	desc     vm.Descriptor
	hasDesc  bool
	absent   bool
}

func valueOutcome(v vm.Value, err error) (outcome, error) {
	return outcome{value: v}, err
}

func boolOutcome(b bool, err error) (outcome, error) {
	return outcome{value: vm.BooleanValue(b)}, err
}

func namesOutcome(names []string, err error) (outcome, error) {
	return outcome{names: names, hasNames: true, value: vm.NewObjectValue(vm.NewStringArray(names))}, err
}

func descOutcome(d vm.Descriptor, ok bool, err error) (outcome, error) {
	if !ok {
		return outcome{absent: true}, err
	}
	return outcome{desc: d, hasDesc: true, value: vm.NewObjectValue(vm.FromDescriptor(d))}, err
}

// run holds the live objects of one scenario.
type run struct {
	env    *env
	proxy  *proxy.Proxy
	revoke func()
	target *vm.Record
	object vm.Value // the installed Object constructor
}

func (r *run) descriptor(s *Step) (vm.Descriptor, error) {
	raw, err := r.env.value(&s.Descriptor)
	if err != nil {
		return vm.Descriptor{}, err
	}
	return vm.ToPropertyDescriptor(raw)
}

// receiver defaults to the proxy.
func (r *run) receiver(s *Step) (vm.Value, error) {
	if !present(&s.Receiver) {
		return r.proxy.Value(), nil
	}
	return r.env.value(&s.Receiver)
}

func (r *run) exec(s *Step) (outcome, error) {
	switch {
	case strings.HasPrefix(s.Op, "target."):
		return r.execTarget(s, strings.TrimPrefix(s.Op, "target."))
	case strings.HasPrefix(s.Op, "Object."):
		return r.execObject(s, strings.TrimPrefix(s.Op, "Object."))
	}

	v := r.proxy.Validator()
	switch s.Op {
	case "getOwnPropertyDescriptor":
		return descOutcome(v.GetOwnPropertyDescriptor(s.Name))
	case "getPropertyDescriptor":
		return descOutcome(v.GetPropertyDescriptor(s.Name))
	case "defineProperty":
		d, err := r.descriptor(s)
		if err != nil {
			return outcome{}, err
		}
		return boolOutcome(v.DefineProperty(s.Name, d))
	case "delete", "deleteProperty":
		return boolOutcome(v.Delete(s.Name))
	case "getOwnPropertyNames":
		return namesOutcome(v.GetOwnPropertyNames())
	case "keys":
		return namesOutcome(v.Keys())
	case "enumerate":
		return namesOutcome(v.Enumerate())
	case "has":
		return boolOutcome(v.Has(s.Name))
	case "hasOwn":
		return boolOutcome(v.HasOwn(s.Name))
	case "get":
		recv, err := r.receiver(s)
		if err != nil {
			return outcome{}, err
		}
		return valueOutcome(v.Get(recv, s.Name))
	case "set":
		recv, err := r.receiver(s)
		if err != nil {
			return outcome{}, err
		}
		val, err := r.env.value(&s.Value)
		if err != nil {
			return outcome{}, err
		}
		return boolOutcome(v.Set(recv, s.Name, val))
	case "isExtensible":
		return boolOutcome(v.IsExtensible())
	case "isSealed":
		return boolOutcome(v.IsSealed())
	case "isFrozen":
		return boolOutcome(v.IsFrozen())
	case "preventExtensions":
		return boolOutcome(v.PreventExtensions())
	case "seal":
		return boolOutcome(v.Seal())
	case "freeze":
		return boolOutcome(v.Freeze())
	case "getPrototypeOf":
		return valueOutcome(v.GetPrototypeOf())
	case "setPrototypeOf":
		proto, err := r.env.value(&s.Proto)
		if err != nil {
			return outcome{}, err
		}
		return boolOutcome(v.SetPrototypeOf(proto))
	case "apply":
		this, err := r.env.value(&s.This)
		if err != nil {
			return outcome{}, err
		}
		args, err := r.env.values(&s.Args)
		if err != nil {
			return outcome{}, err
		}
		return valueOutcome(v.Apply(this, args))
	case "construct":
		args, err := r.env.values(&s.Args)
		if err != nil {
			return outcome{}, err
		}
		return valueOutcome(r.proxy.Construct(args, r.proxy.Value()))
	case "revoke":
		r.revoke()
		return outcome{value: vm.Undefined}, nil
	}
	return outcome{}, fmt.Errorf("unknown op %q", s.Op)
}

// execTarget changes the backing record behind the proxy's back.
func (r *run) execTarget(s *Step, op string) (outcome, error) {
	t := r.target
	switch op {
	case "preventExtensions":
		return boolOutcome(t.PreventExtensions())
	case "seal":
		return boolOutcome(t.Seal(), nil)
	case "freeze":
		return boolOutcome(t.Freeze(), nil)
	case "defineProperty":
		d, err := r.descriptor(s)
		if err != nil {
			return outcome{}, err
		}
		return boolOutcome(t.DefineOwnProperty(s.Name, d))
	case "delete", "deleteProperty":
		return boolOutcome(t.Delete(s.Name))
	case "set":
		val, err := r.env.value(&s.Value)
		if err != nil {
			return outcome{}, err
		}
		return boolOutcome(t.Set(s.Name, val, r.env.target))
	}
	return outcome{}, fmt.Errorf("unknown target op %q", op)
}

// execObject calls a function of the installed Object constructor with the
// proxy as subject, followed by whichever of name, descriptor and proto the
// step sets.
func (r *run) execObject(s *Step, op string) (outcome, error) {
	obj := r.object.AsObject()
	fn, err := obj.Get(op, r.object)
	if err != nil {
		return outcome{}, err
	}
	if !fn.IsCallable() {
		return outcome{}, fmt.Errorf("unknown op %q", s.Op)
	}

	args := []vm.Value{r.proxy.Value()}
	if s.Name != "" {
		args = append(args, vm.NewString(s.Name))
	}
	for _, n := range []*yaml.Node{&s.Descriptor, &s.Proto} {
		if present(n) {
			v, err := r.env.value(n)
			if err != nil {
				return outcome{}, err
			}
			args = append(args, v)
		}
	}

	res, err := vm.Call(fn, r.object, args)
	if err != nil {
		return outcome{}, err
	}
	switch op {
	case "keys", "getOwnPropertyNames":
		return namesOutcome(vm.ToStringList(res))
	case "getOwnPropertyDescriptor":
		if res.IsUndefined() {
			return outcome{absent: true}, nil
		}
		d, err := vm.ToPropertyDescriptor(res)
		return descOutcome(d, true, err)
	}
	return outcome{value: res}, nil
}

// check compares a step's result with its expectation.
func (r *run) check(exp *Expect, got outcome, err error) error {
	if exp.Error != "" {
		return checkError(exp, err)
	}
	if err != nil {
		return fmt.Errorf("unexpected error: %w", err)
	}

	if present(&exp.Result) {
		want, err := r.env.value(&exp.Result)
		if err != nil {
			return err
		}
		ok, err := matches(got.value, want, &exp.Result)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("result = %s, want %s", got.value.Inspect(), want.Inspect())
		}
	}
	if exp.Absent != nil && *exp.Absent != got.absent {
		return fmt.Errorf("absent = %t, want %t", got.absent, *exp.Absent)
	}
	if exp.Names != nil {
		if !got.hasNames {
			return fmt.Errorf("operation does not produce names")
		}
		if diff := cmp.Diff(*exp.Names, got.names, cmpopts.EquateEmpty()); diff != "" {
			return fmt.Errorf("names mismatch (-want +got):\n%s", diff)
		}
	}
	if present(&exp.Descriptor) {
		raw, err := r.env.value(&exp.Descriptor)
		if err != nil {
			return err
		}
		want, err := vm.ToCompleteDescriptor(raw)
		if err != nil {
			return err
		}
		if !got.hasDesc {
			return fmt.Errorf("descriptor absent, want %s", want)
		}
		if !vm.Equivalent(got.desc, want) {
			return fmt.Errorf("descriptor = %s, want %s", got.desc, want)
		}
	}
	return nil
}

func checkError(exp *Expect, err error) error {
	if err == nil {
		return fmt.Errorf("expected %s error, got none", exp.Error)
	}
	kind, ok := errorKinds[exp.Error]
	if !ok {
		return fmt.Errorf("unknown error kind %q", exp.Error)
	}
	var he errorsPkg.HarmonyError
	if !errors.As(err, &he) || he.Kind() != kind {
		return fmt.Errorf("expected %s error, got: %w", exp.Error, err)
	}
	if exp.Reason != "" {
		var iv *errorsPkg.InvariantViolation
		if !errors.As(err, &iv) {
			return fmt.Errorf("expected reason %s, got: %w", exp.Reason, err)
		}
		if string(iv.Reason) != exp.Reason {
			return fmt.Errorf("reason = %s, want %s", iv.Reason, exp.Reason)
		}
	}
	return nil
}
