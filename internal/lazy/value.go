// Package lazy provides lazily computed, concurrency-safe values.
//
// A Value is computed on first access and then served without locking. A
// Memo keeps a bounded set of Values keyed by an arbitrary comparable key.
package lazy

import (
	"sync"
	"sync/atomic"
)

// Value holds a value computed on first access.
//
// Concurrent first callers block on a mutex and the compute function runs at
// most once; once populated, reads are a single atomic load. Failed
// computations are not cached.
type Value[T any] struct {
	mu sync.Mutex
	p  atomic.Pointer[T]
	fn func() (T, error)
}

// New creates a Value computed by fn.
func New[T any](fn func() (T, error)) *Value[T] {
	return &Value[T]{fn: fn}
}

// Of creates a Value computed by an infallible fn.
func Of[T any](fn func() T) *Value[T] {
	return New(func() (T, error) { return fn(), nil })
}

// Get returns the value, computing it if needed.
func (v *Value[T]) Get() (T, error) {
	val, _, err := v.load()
	return val, err
}

// MustGet returns the value and panics if computing it fails.
func (v *Value[T]) MustGet() T {
	val, err := v.Get()
	if err != nil {
		panic(err)
	}
	return val
}

// load returns the value and whether this call computed it.
func (v *Value[T]) load() (T, bool, error) {
	if p := v.p.Load(); p != nil {
		return *p, false, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	// Another caller may have stored it while we waited.
	if p := v.p.Load(); p != nil {
		return *p, false, nil
	}

	val, err := v.fn()
	if err != nil {
		var zero T
		return zero, true, err
	}
	v.p.Store(&val)
	return val, true, nil
}

// Peek returns the value without computing it.
func (v *Value[T]) Peek() (T, bool) {
	if p := v.p.Load(); p != nil {
		return *p, true
	}
	var zero T
	return zero, false
}

// Set overrides the value. Subsequent reads return val without computing.
func (v *Value[T]) Set(val T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.p.Store(&val)
}

// Reset discards the value so the next Get recomputes it.
func (v *Value[T]) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.p.Store(nil)
}

// Loaded reports whether the value is populated.
func (v *Value[T]) Loaded() bool {
	return v.p.Load() != nil
}
