// Package record provides the runtime entity representation shared by the
// reflection and association layers: a typed-by-name attribute map with a
// persistence lifecycle, per-record validation errors, and a side table for
// per-relationship association state owned by the parent instance.
package record

import (
	"fmt"
)

// Record is one in-memory entity instance. A record is owned by a single
// logical call sequence; it does not guard its state against concurrent
// mutation from multiple goroutines.
type Record struct {
	resource  string
	attrs     map[string]interface{}
	persisted bool
	destroyed bool

	// destroyedBy is set when a cascade destroys this record through a
	// relationship, for downstream bookkeeping.
	destroyedBy string

	errors []FieldError

	// assocState holds per-relationship runtime state keyed by relationship
	// name. Association runtimes are rebuilt on every access, so anything
	// that must survive across accesses lives here on the owner instance.
	assocState map[string]interface{}

	// references holds inverse links to other records (e.g. a comment's
	// "post" back-reference), keyed by reference name.
	references map[string]*Record

	// baseline is the attribute snapshot last synchronized with storage;
	// change tracking diffs against it.
	baseline map[string]interface{}
}

// New creates an unsaved record of the given resource type. The attribute
// map is copied.
func New(resource string, attrs map[string]interface{}) *Record {
	r := &Record{
		resource: resource,
		attrs:    make(map[string]interface{}, len(attrs)),
	}
	for k, v := range attrs {
		r.attrs[k] = v
	}
	return r
}

// NewPersisted creates a record that is already backed by storage. Used by
// stores when materializing fetched rows.
func NewPersisted(resource string, attrs map[string]interface{}) *Record {
	r := New(resource, attrs)
	r.persisted = true
	r.AcceptChanges()
	return r
}

// Resource returns the record's resource type name.
func (r *Record) Resource() string { return r.resource }

// Get returns the named attribute and whether it is set.
func (r *Record) Get(name string) (interface{}, bool) {
	v, ok := r.attrs[name]
	return v, ok
}

// Set assigns the named attribute.
func (r *Record) Set(name string, value interface{}) {
	r.attrs[name] = value
}

// Unset removes the named attribute.
func (r *Record) Unset(name string) {
	delete(r.attrs, name)
}

// Attributes returns a copy of the record's attributes.
func (r *Record) Attributes() map[string]interface{} {
	out := make(map[string]interface{}, len(r.attrs))
	for k, v := range r.attrs {
		out[k] = v
	}
	return out
}

// ID returns the record's identity key, or nil if it has none yet.
func (r *Record) ID() interface{} {
	return r.attrs["id"]
}

// SetID assigns the record's identity key.
func (r *Record) SetID(id interface{}) {
	r.attrs["id"] = id
}

// IsNewRecord reports whether the record has never been persisted.
func (r *Record) IsNewRecord() bool { return !r.persisted }

// IsPersisted reports whether the record is backed by storage and has not
// been destroyed.
func (r *Record) IsPersisted() bool { return r.persisted && !r.destroyed }

// MarkPersisted transitions the record to the persisted state after a
// successful insert. The written attributes become the change-tracking
// baseline.
func (r *Record) MarkPersisted() {
	r.persisted = true
	r.AcceptChanges()
}

// MarkNew reverts the record to the unsaved state. Used when a transaction
// that inserted the record rolls back.
func (r *Record) MarkNew() { r.persisted = false }

// IsDestroyed reports whether the record has been destroyed.
func (r *Record) IsDestroyed() bool { return r.destroyed }

// MarkDestroyed transitions the record to the destroyed state.
func (r *Record) MarkDestroyed() { r.destroyed = true }

// MarkDestroyedBy records that a cascade through the named relationship
// destroyed this record, then marks it destroyed.
func (r *Record) MarkDestroyedBy(relationship string) {
	r.destroyedBy = relationship
	r.destroyed = true
}

// DestroyedBy returns the relationship name a cascade destroyed this record
// through, or "" if it was not destroyed by a cascade.
func (r *Record) DestroyedBy() string { return r.destroyedBy }

// SameIdentity reports whether two records refer to the same stored entity.
// Unsaved records only match themselves.
func (r *Record) SameIdentity(other *Record) bool {
	if other == nil {
		return false
	}
	if r == other {
		return true
	}
	if r.IsNewRecord() || other.IsNewRecord() {
		return false
	}
	return r.resource == other.resource && r.ID() != nil && r.ID() == other.ID()
}

// AddError records a validation error against the named field.
func (r *Record) AddError(field, message string) {
	r.errors = append(r.errors, FieldError{Field: field, Message: message})
}

// Errors returns the validation errors recorded on this record.
func (r *Record) Errors() []FieldError {
	out := make([]FieldError, len(r.errors))
	copy(out, r.errors)
	return out
}

// HasErrors reports whether any validation errors are recorded.
func (r *Record) HasErrors() bool { return len(r.errors) > 0 }

// ClearErrors discards all recorded validation errors.
func (r *Record) ClearErrors() { r.errors = nil }

// AssociationState returns the association state stored under the given
// relationship name.
func (r *Record) AssociationState(name string) (interface{}, bool) {
	v, ok := r.assocState[name]
	return v, ok
}

// SetAssociationState stores association state under the given relationship
// name, replacing any previous state.
func (r *Record) SetAssociationState(name string, state interface{}) {
	if r.assocState == nil {
		r.assocState = make(map[string]interface{})
	}
	r.assocState[name] = state
}

// ClearAssociationState removes the association state stored under the given
// relationship name.
func (r *Record) ClearAssociationState(name string) {
	delete(r.assocState, name)
}

// SetReference stores an inverse link to another record under the given name.
func (r *Record) SetReference(name string, target *Record) {
	if r.references == nil {
		r.references = make(map[string]*Record)
	}
	r.references[name] = target
}

// Reference returns the inverse link stored under the given name.
func (r *Record) Reference(name string) (*Record, bool) {
	t, ok := r.references[name]
	return t, ok
}

// String implements fmt.Stringer for debug output.
func (r *Record) String() string {
	state := "new"
	switch {
	case r.destroyed:
		state = "destroyed"
	case r.persisted:
		state = "persisted"
	}
	return fmt.Sprintf("%s(%v, %s)", r.resource, r.ID(), state)
}
