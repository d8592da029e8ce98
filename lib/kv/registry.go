package kv

import (
	"github.com/colorful-bubbles/idb-keyval/lib/db"
	"github.com/puzpuzpuz/xsync/v3"
)

// Registry holds one key-value instance per database name with explicit
// lifecycle management. It replaces first-access-wins process globals: the
// owner of a Registry decides when databases open and close.
//
// Thread-safety: all methods are safe for concurrent use.
type Registry struct {
	instances *xsync.MapOf[string, IKeyVal]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		instances: xsync.NewMapOf[string, IKeyVal](),
	}
}

// Open returns the instance registered under name, creating it with the
// factory and options on first use. Concurrent Open calls for the same name
// return the same instance; at most one factory invocation wins.
func (r *Registry) Open(name string, factory db.Factory, opts *Options) (IKeyVal, error) {
	if existing, ok := r.instances.Load(name); ok {
		return existing, nil
	}

	database, err := factory()
	if err != nil {
		return nil, NewError(RetCInternalError, "open database "+name+": "+err.Error())
	}

	instance := New(database, opts)
	actual, loaded := r.instances.LoadOrStore(name, instance)
	if loaded {
		// another goroutine won the race, discard ours
		_ = instance.Close()
		return actual, nil
	}
	return instance, nil
}

// Get returns the instance registered under name, if any.
func (r *Registry) Get(name string) (IKeyVal, bool) {
	return r.instances.Load(name)
}

// Close closes and removes the instance registered under name.
// Closing an unknown name is a no-op success.
func (r *Registry) Close(name string) error {
	instance, ok := r.instances.LoadAndDelete(name)
	if !ok {
		return nil
	}
	return instance.Close()
}

// CloseAll closes and removes every registered instance, returning the first
// error encountered.
func (r *Registry) CloseAll() error {
	var firstErr error
	r.instances.Range(func(name string, _ IKeyVal) bool {
		if err := r.Close(name); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	return firstErr
}
