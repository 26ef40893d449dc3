package scenario

import (
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/corbinu/harmony-reflect/pkg/vm"
)

// env resolves literals for one scenario run.
type env struct {
	fns    map[string]*vm.Record
	proxy  vm.Value
	target vm.Value
}

func newEnv() *env {
	return &env{fns: make(map[string]*vm.Record), proxy: vm.Undefined, target: vm.Undefined}
}

func present(n *yaml.Node) bool { return n.Kind != 0 }

// function returns the shared function called name. Calling it returns its
// own name, so a getter built from it has an observable value.
func (e *env) function(name string) *vm.Record {
	if fn, ok := e.fns[name]; ok {
		return fn
	}
	fn := vm.NewFunction(name, func(vm.Value, []vm.Value) (vm.Value, error) {
		return vm.NewString(name), nil
	})
	e.fns[name] = fn
	return fn
}

// value converts a YAML node. Plain scalars keep their YAML type; custom
// tags cover values YAML has no spelling for. Mappings become fresh records
// and sequences fresh arrays.
func (e *env) value(n *yaml.Node) (vm.Value, error) {
	switch n.Kind {
	case 0:
		return vm.Undefined, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return vm.Undefined, nil
		}
		return e.value(n.Content[0])
	case yaml.AliasNode:
		return e.value(n.Alias)
	case yaml.MappingNode:
		r := vm.NewRecord(nil)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := e.value(n.Content[i+1])
			if err != nil {
				return vm.Undefined, err
			}
			r.Put(n.Content[i].Value, v)
		}
		return vm.NewObjectValue(r), nil
	case yaml.SequenceNode:
		vals := make([]vm.Value, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := e.value(c)
			if err != nil {
				return vm.Undefined, err
			}
			vals = append(vals, v)
		}
		return vm.NewObjectValue(vm.NewArray(vals...)), nil
	}

	switch tag := n.ShortTag(); tag {
	case "!undefined":
		return vm.Undefined, nil
	case "!nan":
		return vm.NumberValue(math.NaN()), nil
	case "!inf":
		return vm.NumberValue(math.Inf(1)), nil
	case "!neginf":
		return vm.NumberValue(math.Inf(-1)), nil
	case "!fn":
		if n.Value == "" {
			return vm.Undefined, fmt.Errorf("line %d: !fn needs a name", n.Line)
		}
		return vm.NewObjectValue(e.function(n.Value)), nil
	case "!proxy":
		return e.proxy, nil
	case "!target":
		return e.target, nil
	case "!!null":
		return vm.Null, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return vm.Undefined, err
		}
		return vm.BooleanValue(b), nil
	case "!!int", "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return vm.Undefined, err
		}
		if f == 0 && strings.HasPrefix(strings.TrimSpace(n.Value), "-") {
			f = math.Copysign(0, -1)
		}
		return vm.NumberValue(f), nil
	case "!!str":
		return vm.NewString(n.Value), nil
	default:
		return vm.Undefined, fmt.Errorf("line %d: unsupported tag %s", n.Line, tag)
	}
}

// values converts a sequence node; an absent node is an empty list.
func (e *env) values(n *yaml.Node) ([]vm.Value, error) {
	if !present(n) {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: expected a sequence", n.Line)
	}
	out := make([]vm.Value, 0, len(n.Content))
	for _, c := range n.Content {
		v, err := e.value(c)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// matches compares an outcome with an expected literal. Objects built from
// mapping or sequence literals match structurally against any object with
// the same own names and matching values; everything else uses SameValue.
func matches(got, want vm.Value, wantNode *yaml.Node) (bool, error) {
	if vm.SameValue(got, want) {
		return true, nil
	}
	if !got.IsObject() || !want.IsObject() || wantNode == nil {
		return false, nil
	}
	node := wantNode
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	if node.Kind != yaml.MappingNode && node.Kind != yaml.SequenceNode {
		return false, nil
	}

	gotObj, wantObj := got.AsObject(), want.AsObject()
	gotNames, err := gotObj.OwnKeys()
	if err != nil {
		return false, err
	}
	wantNames, err := wantObj.OwnKeys()
	if err != nil {
		return false, err
	}
	if len(gotNames) != len(wantNames) {
		return false, nil
	}
	for i, name := range wantNames {
		if gotNames[i] != name {
			return false, nil
		}
		gv, err := gotObj.Get(name, got)
		if err != nil {
			return false, err
		}
		wv, err := wantObj.Get(name, want)
		if err != nil {
			return false, err
		}
		ok, err := matches(gv, wv, childNode(node, name, i))
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// childNode finds the literal a nested value came from, or nil.
func childNode(n *yaml.Node, name string, i int) *yaml.Node {
	switch n.Kind {
	case yaml.MappingNode:
		for j := 0; j+1 < len(n.Content); j += 2 {
			if n.Content[j].Value == name {
				return n.Content[j+1]
			}
		}
	case yaml.SequenceNode:
		// arrays list their indices, then "length"
		if i < len(n.Content) {
			return n.Content[i]
		}
	}
	return nil
}
