// Package registry provides a weak side-table keyed by object identity.
package registry

import (
	"runtime"
	"sync"
	"weak"
)

type entry[V any] struct {
	value   V
	cleanup runtime.Cleanup
}

// Registry associates values with keys without keeping the keys alive.
// Once a key becomes unreachable its entry is removed by a runtime cleanup.
//
// Values are held strongly: a value that references its own key keeps the
// key reachable and the entry is never dropped.
//
// The mutex only guards against cleanups, which run on a runtime goroutine.
type Registry[K, V any] struct {
	mu      sync.Mutex
	entries map[weak.Pointer[K]]*entry[V]
}

// New creates an empty registry.
func New[K, V any]() *Registry[K, V] {
	return &Registry[K, V]{entries: make(map[weak.Pointer[K]]*entry[V])}
}

// Register associates v with k, replacing any previous value.
func (r *Registry[K, V]) Register(k *K, v V) {
	wp := weak.Make(k)
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[wp]; ok {
		e.value = v
		return
	}
	e := &entry[V]{value: v}
	e.cleanup = runtime.AddCleanup(k, r.forget, wp)
	r.entries[wp] = e
}

// Lookup returns the value registered for k.
func (r *Registry[K, V]) Lookup(k *K) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[weak.Make(k)]; ok {
		return e.value, true
	}
	var zero V
	return zero, false
}

// Delete removes the entry for k, if any.
func (r *Registry[K, V]) Delete(k *K) {
	wp := weak.Make(k)
	r.mu.Lock()
	e, ok := r.entries[wp]
	delete(r.entries, wp)
	r.mu.Unlock()
	if ok {
		e.cleanup.Stop()
	}
}

// Len reports the number of live entries.
func (r *Registry[K, V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry[K, V]) forget(wp weak.Pointer[K]) {
	r.mu.Lock()
	delete(r.entries, wp)
	r.mu.Unlock()
}
