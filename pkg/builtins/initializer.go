package builtins

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/corbinu/harmony-reflect/pkg/proxy"
	"github.com/corbinu/harmony-reflect/pkg/vm"
)

// Initializer is implemented by each builtin module
type Initializer interface {
	// Name returns the global it defines (e.g., "Object", "Proxy")
	Name() string

	// Priority returns initialization order (lower = earlier)
	Priority() int

	// InitRuntime creates the runtime value and defines it on the global
	InitRuntime(ctx *RuntimeContext) error
}

// RuntimeContext provides everything needed for runtime initialization
type RuntimeContext struct {
	Global *vm.Record

	// Proxies created by builtins are registered here
	Registry *proxy.Registry
	Logger   *zap.Logger

	// Define a global value
	DefineGlobal func(name string, value vm.Value) error
}

// Priority constants for initialization order
const (
	PriorityObject  = 0
	PriorityReflect = 104
	PriorityProxy   = 105
)

// Standard returns the initializers for Object, Reflect and Proxy.
func Standard() []Initializer {
	return []Initializer{&ObjectInitializer{}, &ReflectInitializer{}, &ProxyInitializer{}}
}

// NewGlobal creates a global record and runs inits on it in priority order.
// With no inits, the Standard set is used.
func NewGlobal(reg *proxy.Registry, logger *zap.Logger, inits ...Initializer) (*vm.Record, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(inits) == 0 {
		inits = Standard()
	}
	sorted := append([]Initializer(nil), inits...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority() < sorted[j].Priority() })

	global := vm.NewRecord(nil)
	ctx := &RuntimeContext{
		Global:   global,
		Registry: reg,
		Logger:   logger,
		DefineGlobal: func(name string, value vm.Value) error {
			if _, exists := global.OwnDescriptor(name); exists {
				return fmt.Errorf("global %s already defined", name)
			}
			global.DefineData(name, value, true, false, true)
			return nil
		},
	}
	for _, b := range sorted {
		if err := b.InitRuntime(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize %s: %w", b.Name(), err)
		}
		logger.Debug("initialized builtin", zap.String("name", b.Name()))
	}
	return global, nil
}
