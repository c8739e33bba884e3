// Package scope provides the deferred-query collaborator consumed by the
// association runtime: a Scope is "all records related to one owner through
// one relationship", not yet executed. Implementations answer cheap
// questions (existence, single-column projection) without materializing
// full records whenever the backend allows it.
package scope

import (
	"context"

	"github.com/relatekit/relate/internal/orm/record"
)

// Scope is a deferred query over the related records of one relationship.
type Scope interface {
	// ToList executes the scope and returns the related records.
	ToList(ctx context.Context) ([]*record.Record, error)

	// Pluck projects a single column without materializing full records.
	Pluck(ctx context.Context, field string) ([]interface{}, error)

	// ExistsBy reports whether a related record exists. A nil id asks
	// whether any related record exists at all.
	ExistsBy(ctx context.Context, id interface{}) (bool, error)

	// ScopeForCreate returns the default attribute values implied by the
	// relationship, applied when building new members.
	ScopeForCreate() map[string]interface{}
}

// Factory builds scopes. The association runtime asks for a scope on every
// access; implementations must be cheap to call.
type Factory interface {
	// For returns the scope over the given resource where foreignKey equals
	// key.
	For(resource, foreignKey string, key interface{}) Scope
}

// nullScope is the explicitly empty scope returned when the owner's
// identity is not yet established. It never touches the backend; issuing a
// real fetch there could wrongly return another entity's children.
type nullScope struct{}

// Null returns the always-empty scope.
func Null() Scope { return nullScope{} }

// IsNull reports whether s is the always-empty scope.
func IsNull(s Scope) bool {
	_, ok := s.(nullScope)
	return ok
}

func (nullScope) ToList(ctx context.Context) ([]*record.Record, error) { return nil, nil }

func (nullScope) Pluck(ctx context.Context, field string) ([]interface{}, error) {
	return nil, nil
}

func (nullScope) ExistsBy(ctx context.Context, id interface{}) (bool, error) {
	return false, nil
}

func (nullScope) ScopeForCreate() map[string]interface{} { return map[string]interface{}{} }

// fixedScope serves a declared virtual value: a fixed record set substituted
// for a real lookup.
type fixedScope struct {
	records []*record.Record
}

// Fixed returns a scope over a fixed record set.
func Fixed(records []*record.Record) Scope {
	return fixedScope{records: records}
}

func (f fixedScope) ToList(ctx context.Context) ([]*record.Record, error) {
	return append([]*record.Record(nil), f.records...), nil
}

func (f fixedScope) Pluck(ctx context.Context, field string) ([]interface{}, error) {
	out := make([]interface{}, 0, len(f.records))
	for _, rec := range f.records {
		if v, ok := rec.Get(field); ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f fixedScope) ExistsBy(ctx context.Context, id interface{}) (bool, error) {
	if id == nil {
		return len(f.records) > 0, nil
	}
	for _, rec := range f.records {
		if rec.ID() == id {
			return true, nil
		}
	}
	return false, nil
}

func (f fixedScope) ScopeForCreate() map[string]interface{} { return map[string]interface{}{} }
