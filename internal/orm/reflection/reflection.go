package reflection

// Reflection is the immutable metadata describing one declared relationship.
// It is created once at declaration time and shared read-only by every
// association runtime built against it.
type Reflection struct {
	kind    Kind
	name    string
	options Options
	owner   *Type
	related string
	reg     *Registry
}

// Kind returns the relationship kind.
func (r *Reflection) Kind() Kind { return r.kind }

// Name returns the relationship name as declared on the owner type.
func (r *Reflection) Name() string { return r.name }

// Owner returns the type the relationship is declared on.
func (r *Reflection) Owner() *Type { return r.owner }

// Collection reports whether the relationship is collection-valued.
func (r *Reflection) Collection() bool { return r.kind == ToMany }

// Option returns the declared option value for the given key.
func (r *Reflection) Option(key string) (interface{}, bool) {
	v, ok := r.options[key]
	return v, ok
}

// Options returns a copy of the declared options.
func (r *Reflection) Options() Options {
	out := make(Options, len(r.options))
	for k, v := range r.options {
		out[k] = v
	}
	return out
}

// RelatedName returns the name of the related type.
func (r *Reflection) RelatedName() string { return r.related }

// RelatedType resolves the related type against the registry. Resolution is
// deferred to declaration-order independence: the related type may be
// defined after the relationship that points at it.
func (r *Reflection) RelatedType() (*Type, bool) {
	return r.reg.Get(r.related)
}

// ForeignKey returns the foreign-key attribute name linking the two sides.
// For a collection the key lives on the related type and points back at the
// owner; for a single-valued relationship it lives on the owner.
func (r *Reflection) ForeignKey() string {
	if r.kind == ToMany {
		return toSnakeCase(r.owner.Name()) + "_id"
	}
	return toSnakeCase(r.name) + "_id"
}

// InverseName returns the reference name used to link a related record back
// to its owner.
func (r *Reflection) InverseName() string {
	return toSnakeCase(r.owner.Name())
}

// TypeMatches reports whether a record of the given resource type may be a
// member of this relationship: the declared related type or any of its
// subtypes.
func (r *Reflection) TypeMatches(resource string) bool {
	if resource == r.related {
		return true
	}
	t, ok := r.reg.Get(resource)
	if !ok {
		return false
	}
	related, ok := r.reg.Get(r.related)
	if !ok {
		return false
	}
	return t.IsA(related)
}
