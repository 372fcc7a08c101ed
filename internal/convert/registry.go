package convert

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrUnknownConverter indicates no converter is registered under a name.
	ErrUnknownConverter = errors.New("unknown converter")

	// ErrAlreadyRegistered indicates an attempt to register a duplicate name.
	ErrAlreadyRegistered = errors.New("converter already registered")
)

// Registry maps converter names to converters. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	converters map[string]Converter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{converters: make(map[string]Converter)}
}

// NewDefault creates a registry with the built-in converters.
func NewDefault() *Registry {
	r := NewRegistry()
	r.registerDefaults()
	return r
}

// Register adds a converter under name.
// Returns an error if the name is already taken.
func (r *Registry) Register(name string, c Converter) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrUnknownConverter)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.converters[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}
	r.converters[name] = c
	return nil
}

// MustRegister registers a converter and panics on error.
func (r *Registry) MustRegister(name string, c Converter) {
	if err := r.Register(name, c); err != nil {
		panic(err)
	}
}

// Lookup returns the converter registered under name. A leading "as_" is
// accepted, so "as_bool" finds "bool".
func (r *Registry) Lookup(name string) (Converter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.converters[name]; ok {
		return c, nil
	}
	if trimmed, ok := strings.CutPrefix(name, "as_"); ok {
		if c, ok := r.converters[trimmed]; ok {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownConverter, name)
}

// Has reports whether name resolves to a converter.
func (r *Registry) Has(name string) bool {
	_, err := r.Lookup(name)
	return err == nil
}

// Names returns all registered names sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.converters))
	for name := range r.converters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) registerDefaults() {
	r.MustRegister("bool", Bool)
	r.MustRegister("int", Int)
	r.MustRegister("float", Float)
	r.MustRegister("str", String)
	r.MustRegister("string", String)
	r.MustRegister("duration", Duration)
	r.MustRegister("list", List)
	r.MustRegister("tuple", List)
	r.MustRegister("seq", List)
	r.MustRegister("lines", Lines)
	r.MustRegister("json", Identity)
	r.MustRegister("list_of_int", SeqOf(Int, ""))
	r.MustRegister("list_of_float", SeqOf(Float, ""))
	r.MustRegister("list_of_bool", SeqOf(Bool, ""))
}

var defaultRegistry = NewDefault()

// Default returns the shared registry of built-in converters.
func Default() *Registry {
	return defaultRegistry
}

// Lookup finds a converter in the default registry.
func Lookup(name string) (Converter, error) {
	return defaultRegistry.Lookup(name)
}
