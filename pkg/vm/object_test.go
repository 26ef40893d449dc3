package vm

import (
	"errors"
	"reflect"
	"testing"

	errorsPkg "github.com/corbinu/harmony-reflect/pkg/errors"
)

func TestRecordBasic(t *testing.T) {
	r := NewRecord(nil)
	if r.IsFixed("foo") {
		t.Errorf("expected foo to be absent on a new record")
	}
	r.Put("foo", NumberValue(42))
	d, ok := r.OwnDescriptor("foo")
	if !ok {
		t.Fatalf("expected foo after Put")
	}
	if !d.IsComplete() || d.Writable() != FlagTrue || d.Enumerable() != FlagTrue || d.Configurable() != FlagTrue {
		t.Errorf("Put should create an ordinary data property, got %s", d)
	}
	v, err := r.Get("foo", NewObjectValue(r))
	if err != nil || !SameValue(v, NumberValue(42)) {
		t.Errorf("Get(foo) = %s, %v; want 42", v.Inspect(), err)
	}
}

func TestRecordKeyOrder(t *testing.T) {
	r := NewRecord(nil)
	for _, k := range []string{"b", "10", "a", "2", "01", "0"} {
		r.Put(k, True)
	}
	r.DefineData("hidden", True, true, false, true)

	want := []string{"0", "2", "10", "b", "a", "01", "hidden"}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	keys, _ := r.Keys()
	if len(keys) != len(want)-1 || keys[len(keys)-1] != "01" {
		t.Errorf("Keys() should omit non-enumerable names, got %v", keys)
	}
}

func TestRecordDefineOwnProperty(t *testing.T) {
	r := NewRecord(nil)
	ok, _ := r.DefineOwnProperty("x", partial(t, DescriptorFields{Value: ptr(NumberValue(1))}))
	if !ok {
		t.Fatalf("expected define on extensible record to succeed")
	}
	d, _ := r.OwnDescriptor("x")
	if !Equivalent(d, DataProperty(NumberValue(1), false, false, false)) {
		t.Errorf("new property should be completed with defaults, got %s", d)
	}

	// x is now frozen: changing the value must fail, same value is fine
	if ok, _ := r.DefineOwnProperty("x", partial(t, DescriptorFields{Value: ptr(NumberValue(2))})); ok {
		t.Errorf("expected redefinition of frozen property to fail")
	}
	if ok, _ := r.DefineOwnProperty("x", partial(t, DescriptorFields{Value: ptr(NumberValue(1))})); !ok {
		t.Errorf("expected same-value redefinition to succeed")
	}

	r.DefineData("y", NumberValue(1), true, true, true)
	getter := noop()
	if ok, _ := r.DefineOwnProperty("y", partial(t, DescriptorFields{Get: &getter})); !ok {
		t.Fatalf("expected configurable data property to become an accessor")
	}
	d, _ = r.OwnDescriptor("y")
	if !d.IsAccessor() || !d.Setter().IsUndefined() || d.Enumerable() != FlagTrue || d.Configurable() != FlagTrue {
		t.Errorf("shape change should keep common attributes, got %s", d)
	}

	r.PreventExtensions()
	if ok, _ := r.DefineOwnProperty("z", DataProperty(True, true, true, true)); ok {
		t.Errorf("expected define on non-extensible record to fail")
	}
}

func TestRecordDelete(t *testing.T) {
	r := NewRecord(nil)
	r.Put("a", True)
	r.DefineData("b", True, true, true, false)
	if ok, _ := r.Delete("a"); !ok || r.IsFixed("a") {
		t.Errorf("expected configurable property to be deleted")
	}
	if ok, _ := r.Delete("b"); ok || !r.IsFixed("b") {
		t.Errorf("expected non-configurable property to survive delete")
	}
	if ok, _ := r.Delete("missing"); !ok {
		t.Errorf("deleting a missing property should succeed")
	}
	if got := r.Names(); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("Names() after delete = %v", got)
	}
}

func TestRecordPrototypeChain(t *testing.T) {
	proto := NewRecord(nil)
	proto.Put("inherited", NewString("p"))
	proto.DefineData("readonly", NewString("r"), false, true, true)
	child := NewRecord(proto)
	child.Put("own", True)
	self := NewObjectValue(child)

	if has, _ := child.HasProperty("inherited"); !has {
		t.Errorf("expected inherited property via HasProperty")
	}
	if has, _ := child.HasOwnProperty("inherited"); has {
		t.Errorf("inherited property should not be own")
	}
	v, _ := child.Get("inherited", self)
	if !SameValue(v, NewString("p")) {
		t.Errorf("Get(inherited) = %s", v.Inspect())
	}

	// assignment to an inherited writable property shadows it on the receiver
	if ok, _ := child.Set("inherited", NewString("c"), self); !ok {
		t.Fatalf("expected Set to succeed")
	}
	if d, ok := child.OwnDescriptor("inherited"); !ok || !SameValue(d.Value(), NewString("c")) {
		t.Errorf("expected shadowing own property, got %s (ok=%v)", d, ok)
	}
	if d, _ := proto.OwnDescriptor("inherited"); !SameValue(d.Value(), NewString("p")) {
		t.Errorf("prototype should be untouched, got %s", d)
	}

	if ok, _ := child.Set("readonly", NewString("x"), self); ok {
		t.Errorf("assignment to inherited non-writable property should fail")
	}

	names, _ := child.Enumerate()
	if want := []string{"own", "inherited", "readonly"}; !reflect.DeepEqual(names, want) {
		t.Errorf("Enumerate() = %v, want %v", names, want)
	}
}

func TestRecordAccessors(t *testing.T) {
	r := NewRecord(nil)
	var seenThis Value
	var stored Value
	get := NewObjectValue(NewFunction("get", func(this Value, _ []Value) (Value, error) {
		seenThis = this
		return NewString("got"), nil
	}))
	set := NewObjectValue(NewFunction("set", func(_ Value, args []Value) (Value, error) {
		stored = args[0]
		return Undefined, nil
	}))
	if err := r.DefineAccessor("p", get, set, true, true); err != nil {
		t.Fatalf("DefineAccessor: %v", err)
	}
	receiver := NewObjectValue(NewRecord(nil))
	v, err := r.Get("p", receiver)
	if err != nil || !SameValue(v, NewString("got")) {
		t.Errorf("Get(p) = %s, %v", v.Inspect(), err)
	}
	if !SameValue(seenThis, receiver) {
		t.Errorf("getter should run with the receiver as this")
	}
	if ok, _ := r.Set("p", NumberValue(7), receiver); !ok || !SameValue(stored, NumberValue(7)) {
		t.Errorf("setter not invoked, stored=%s", stored.Inspect())
	}

	if err := r.DefineAccessor("ro", get, Undefined, true, true); err != nil {
		t.Fatalf("DefineAccessor: %v", err)
	}
	if ok, _ := r.Set("ro", True, receiver); ok {
		t.Errorf("assignment to getter-only accessor should fail")
	}
}

func TestRecordSealAndFreeze(t *testing.T) {
	r := NewRecord(nil)
	r.Put("a", NumberValue(1))
	if err := r.DefineAccessor("b", noop(), Undefined, true, true); err != nil {
		t.Fatalf("DefineAccessor: %v", err)
	}

	if r.IsSealed() || r.IsFrozen() {
		t.Fatalf("fresh record should be neither sealed nor frozen")
	}
	if !r.Seal() {
		t.Fatalf("Seal failed")
	}
	if !r.IsSealed() || r.IsFrozen() || r.Extensible() {
		t.Errorf("after Seal: sealed=%v frozen=%v extensible=%v", r.IsSealed(), r.IsFrozen(), r.Extensible())
	}
	if !r.Freeze() {
		t.Fatalf("Freeze failed")
	}
	if !r.IsFrozen() {
		t.Errorf("expected frozen record")
	}
	d, _ := r.OwnDescriptor("a")
	if !d.Frozen() {
		t.Errorf("expected a to be frozen, got %s", d)
	}

	empty := NewRecord(nil)
	empty.PreventExtensions()
	if !empty.IsSealed() || !empty.IsFrozen() {
		t.Errorf("an empty non-extensible record is both sealed and frozen")
	}
}

func TestRecordSetPrototypeOf(t *testing.T) {
	a := NewRecord(nil)
	b := NewRecord(a)
	if ok, _ := a.SetPrototypeOf(NewObjectValue(b)); ok {
		t.Errorf("expected prototype cycle to be rejected")
	}
	if ok, _ := b.SetPrototypeOf(Null); !ok {
		t.Errorf("expected prototype change on extensible record to succeed")
	}
	b.PreventExtensions()
	if ok, _ := b.SetPrototypeOf(NewObjectValue(a)); ok {
		t.Errorf("expected prototype change on non-extensible record to fail")
	}
	if ok, _ := b.SetPrototypeOf(Null); !ok {
		t.Errorf("setting the same prototype should succeed")
	}
	_, err := b.SetPrototypeOf(NumberValue(1))
	var typeErr *errorsPkg.TypeError
	if !errors.As(err, &typeErr) {
		t.Errorf("expected TypeError for primitive prototype, got %v", err)
	}
}

func TestRecordCallAndConstruct(t *testing.T) {
	plain := NewRecord(nil)
	_, err := Call(NewObjectValue(plain), Undefined, nil)
	var notCallable *errorsPkg.NotCallableError
	if !errors.As(err, &notCallable) {
		t.Errorf("expected NotCallableError, got %v", err)
	}

	point := NewFunction("Point", func(this Value, args []Value) (Value, error) {
		self := this.AsObject()
		if _, err := self.Set("x", args[0], this); err != nil {
			return Undefined, err
		}
		return Undefined, nil
	})
	fn := NewObjectValue(point)
	inst, err := Construct(fn, []Value{NumberValue(3)}, Undefined)
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	rec, ok := inst.AsRecord()
	if !ok {
		t.Fatalf("expected record instance, got %s", inst.Inspect())
	}
	protoVal, _ := point.Get("prototype", fn)
	if !SameValue(rec.Prototype(), protoVal) {
		t.Errorf("instance should inherit Point.prototype")
	}
	if x, _ := rec.Get("x", inst); !SameValue(x, NumberValue(3)) {
		t.Errorf("instance.x = %s, want 3", x.Inspect())
	}

	override := NewObjectValue(NewRecord(nil))
	factory := NewFunction("factory", func(Value, []Value) (Value, error) { return override, nil })
	got, err := Construct(NewObjectValue(factory), nil, Undefined)
	if err != nil || !SameValue(got, override) {
		t.Errorf("object result should replace the instance, got %s, %v", got.Inspect(), err)
	}
}

func TestToStringList(t *testing.T) {
	arr := NewArray(NewString("a"), NumberValue(1), True)
	got, err := ToStringList(NewObjectValue(arr))
	if err != nil {
		t.Fatalf("ToStringList: %v", err)
	}
	if want := []string{"a", "1", "true"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ToStringList = %v, want %v", got, want)
	}

	arrayLike := NewRecord(nil)
	arrayLike.Put("length", NewString("2"))
	arrayLike.Put("0", NewString("x"))
	got, _ = ToStringList(NewObjectValue(arrayLike))
	if want := []string{"x", "undefined"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ToStringList(array-like) = %v, want %v", got, want)
	}

	if _, err := ToStringList(NumberValue(1)); err == nil {
		t.Errorf("expected error for non-object list")
	}
}
