package reflection

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/relatekit/relate/internal/orm/record"
)

// accessor is one entry of a type's relationship-access capability table.
type accessor struct {
	ref   *Reflection
	read  func(ctx context.Context, owner *record.Record, forceReload bool) (interface{}, error)
	write func(ctx context.Context, owner *record.Record, value interface{}) error
}

// Type describes one entity type: its declared attributes, its relationship
// reflections, and the access capability table populated by the Builder.
//
// A derived type's reflection and accessor maps are built by copying the
// parent's entries at definition time. There is no shared mutable state
// between a type and its subtypes: declaring a relationship on a parent
// after a subtype was defined does not retroactively extend the subtype.
type Type struct {
	name       string
	parent     *Type
	attributes map[string]struct{}

	mu          sync.RWMutex
	reflections map[string]*Reflection
	accessors   map[string]*accessor
}

// Name returns the type name.
func (t *Type) Name() string { return t.name }

// Parent returns the parent type, or nil for a root type.
func (t *Type) Parent() *Type { return t.parent }

// IsA reports whether t is other or a subtype of other.
func (t *Type) IsA(other *Type) bool {
	for cur := t; cur != nil; cur = cur.parent {
		if cur == other {
			return true
		}
	}
	return false
}

// HasAttribute reports whether the type declares an attribute with the given
// name.
func (t *Type) HasAttribute(name string) bool {
	_, ok := t.attributes[name]
	return ok
}

// Reflection returns the reflection declared under the given name, including
// entries copied from ancestor types.
func (t *Type) Reflection(name string) (*Reflection, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ref, ok := t.reflections[name]
	return ref, ok
}

// Reflections returns all relationship reflections of the type in name
// order.
func (t *Type) Reflections() []*Reflection {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.reflections))
	for name := range t.reflections {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*Reflection, 0, len(names))
	for _, name := range names {
		out = append(out, t.reflections[name])
	}
	return out
}

// HasAccessor reports whether a relationship accessor is installed under the
// given name.
func (t *Type) HasAccessor(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.accessors[name]
	return ok
}

// ReadRelation resolves the named relationship for the given owner instance
// through the capability table.
func (t *Type) ReadRelation(ctx context.Context, owner *record.Record, name string, forceReload bool) (interface{}, error) {
	t.mu.RLock()
	acc, ok := t.accessors[name]
	t.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrNoAccessor, t.name, name)
	}
	return acc.read(ctx, owner, forceReload)
}

// WriteRelation replaces the named relationship's value for the given owner
// instance through the capability table.
func (t *Type) WriteRelation(ctx context.Context, owner *record.Record, name string, value interface{}) error {
	t.mu.RLock()
	acc, ok := t.accessors[name]
	t.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrNoAccessor, t.name, name)
	}
	return acc.write(ctx, owner, value)
}

// addReflection installs a reflection and, optionally, its accessor entry.
// Called by the Builder only.
func (t *Type) addReflection(ref *Reflection, acc *accessor) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.reflections[ref.name]; ok && existing.owner == t {
		return &ConfigurationError{
			Owner:  t.name,
			Name:   ref.name,
			Detail: "relationship already declared",
		}
	}
	t.reflections[ref.name] = ref
	if acc != nil {
		t.accessors[ref.name] = acc
	}
	return nil
}

// Registry manages all entity types of the application. Types are defined
// once at startup; the registry is never extended at runtime.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*Type
}

// NewRegistry creates an empty type registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*Type)}
}

// Define registers a new entity type. parent may be nil for a root type;
// when set, the new type starts with a copy of the parent's attributes,
// reflections, and accessors.
func (r *Registry) Define(name string, parent *Type, attributes ...string) (*Type, error) {
	if !isIdentifier(name) {
		return nil, fmt.Errorf("invalid type name %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[name]; exists {
		return nil, fmt.Errorf("type %s is already defined", name)
	}

	t := &Type{
		name:        name,
		parent:      parent,
		attributes:  make(map[string]struct{}),
		reflections: make(map[string]*Reflection),
		accessors:   make(map[string]*accessor),
	}

	if parent != nil {
		for attr := range parent.attributes {
			t.attributes[attr] = struct{}{}
		}
		parent.mu.RLock()
		for n, ref := range parent.reflections {
			t.reflections[n] = ref
		}
		for n, acc := range parent.accessors {
			t.accessors[n] = acc
		}
		parent.mu.RUnlock()
	}

	for _, attr := range attributes {
		t.attributes[attr] = struct{}{}
	}

	r.types[name] = t
	return t, nil
}

// Get retrieves a type by name.
func (r *Registry) Get(name string) (*Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// TypeOf returns the registered type of a record.
func (r *Registry) TypeOf(rec *record.Record) (*Type, error) {
	t, ok := r.Get(rec.Resource())
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, rec.Resource())
	}
	return t, nil
}

// List returns the names of all defined types in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of defined types.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}
