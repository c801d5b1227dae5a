package plugin

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"vividfusion/internal/clients"
)

var errorType = reflect.TypeFor[error]()

type registered struct {
	md   Metadata
	ctor any
}

// Registry is the compile-time table of built-in extensions, keyed by class
// name. Constructors are stored untyped and validated when loaded: a valid
// constructor takes no arguments and returns the instance, optionally
// followed by an error.
type Registry struct {
	mu      sync.RWMutex
	classes map[string]registered
	order   []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{classes: make(map[string]registered)}
}

// Register adds a built-in class. md.ClassName is the lookup key; Path and
// ImportType are overwritten.
func (r *Registry) Register(md Metadata, ctor any) {
	md.ImportType = BuiltIn
	md.Path = ""
	if md.ID == "" {
		md.ID = md.ClassName
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.classes[md.ClassName]; !ok {
		r.order = append(r.order, md.ClassName)
	}
	r.classes[md.ClassName] = registered{md: md, ctor: ctor}
}

// Builtins returns the Metadata of every registered class in registration
// order.
func (r *Registry) Builtins() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Metadata, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.classes[name].md)
	}
	return out
}

// Classes returns the registered class names, sorted.
func (r *Registry) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := slices.Clone(r.order)
	slices.Sort(names)
	return names
}

// Load instantiates md.ClassName. The kind is not consulted; capability
// checks happen in Cast.
func (r *Registry) Load(md Metadata, _ clients.ExtensionType) (any, error) {
	r.mu.RLock()
	reg, ok := r.classes[md.ClassName]
	r.mu.RUnlock()
	if !ok {
		return nil, classErr(md, ErrClassNotFound)
	}
	v, err := construct(reg.ctor)
	if err != nil {
		return nil, classErr(md, err)
	}
	return v, nil
}

func construct(ctor any) (any, error) {
	fn := reflect.ValueOf(ctor)
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() {
		return nil, ErrNoConstructor
	}
	t := fn.Type()
	if t.NumIn() != 0 || t.IsVariadic() {
		return nil, fmt.Errorf("%w: constructor takes %d arguments", ErrNoConstructor, t.NumIn())
	}
	switch {
	case t.NumOut() == 1 && t.Out(0) != errorType:
	case t.NumOut() == 2 && t.Out(1) == errorType:
	default:
		return nil, fmt.Errorf("%w: constructor must return (T) or (T, error)", ErrNoConstructor)
	}

	out := fn.Call(nil)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}
