// Package association implements the relationship runtime: per-access
// objects bound to one (owner instance, reflection) pair that resolve
// relationships lazily, merge fetched records with locally built ones, and
// execute mutations with transactional and cascade semantics.
package association

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/relatekit/relate/internal/orm/record"
	"github.com/relatekit/relate/internal/orm/reflection"
	"github.com/relatekit/relate/internal/orm/scope"
	"github.com/relatekit/relate/internal/orm/store"
)

// Env bundles the external collaborators the runtime depends on. One Env is
// shared by every runtime of an application.
type Env struct {
	Registry *reflection.Registry
	Scopes   scope.Factory
	Store    store.Store
	Logger   *zap.Logger
}

func (e Env) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// base carries the shared behavior of both relationship kinds: scope
// construction and staleness detection against the owner's linking
// attribute.
type base struct {
	owner *record.Record
	ref   *reflection.Reflection
	env   Env
}

// linkKey returns the owner attribute value the relationship is resolved
// through: the owner's identity for a collection, the foreign-key attribute
// for a single-valued relationship.
func (b *base) linkKey() interface{} {
	if b.ref.Collection() {
		return b.owner.ID()
	}
	v, _ := b.owner.Get(b.ref.ForeignKey())
	return v
}

// NullScope reports whether the owner has no usable linking value, in which
// case resolution must not issue a fetch: an absent key could match
// unrelated rows and wrongly return another entity's children.
func (b *base) NullScope() bool {
	if b.ref.Collection() && b.owner.IsNewRecord() {
		return true
	}
	return isBlankKey(b.linkKey())
}

// Scope asks the external collaborator for the deferred query over this
// relationship's records. A declared virtual value substitutes a fixed
// record set for the real lookup.
func (b *base) Scope() scope.Scope {
	if v, ok := b.ref.Option(reflection.OptVirtualValue); ok {
		switch fixed := v.(type) {
		case []*record.Record:
			return scope.Fixed(fixed)
		case *record.Record:
			return scope.Fixed([]*record.Record{fixed})
		}
	}
	if b.NullScope() {
		return scope.Null()
	}
	if b.ref.Collection() {
		return b.env.Scopes.For(b.ref.RelatedName(), b.ref.ForeignKey(), b.linkKey())
	}
	return b.env.Scopes.For(b.ref.RelatedName(), "id", b.linkKey())
}

// linkInverse wires a member record back to its owner before it becomes
// visible through the target list.
func (b *base) linkInverse(rec *record.Record) {
	rec.SetReference(b.ref.InverseName(), b.owner)
	if b.ref.Collection() && !b.owner.IsNewRecord() {
		rec.Set(b.ref.ForeignKey(), b.owner.ID())
	}
}

// checkType verifies a candidate member against the declared related type.
func (b *base) checkType(rec *record.Record) error {
	if !b.ref.TypeMatches(rec.Resource()) {
		return &TypeMismatchError{
			Relationship: b.ref.Name(),
			Expected:     b.ref.RelatedName(),
			Got:          rec.Resource(),
		}
	}
	return nil
}

// isBlankKey reports whether a linking value is unusable.
func isBlankKey(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	return false
}

// Factory returns the runtime factory wired into the reflection Builder.
// The relationship kind selects the concrete runtime; the set of kinds is
// closed.
func Factory(env Env) reflection.RuntimeFactory {
	return func(owner *record.Record, ref *reflection.Reflection) reflection.Runtime {
		switch ref.Kind() {
		case reflection.ToMany:
			return collectionRuntime{NewCollection(owner, ref, env)}
		default:
			return singularRuntime{NewSingular(owner, ref, env)}
		}
	}
}

// collectionRuntime adapts a Collection to the capability interface the
// accessor table delegates to.
type collectionRuntime struct {
	c *Collection
}

func (r collectionRuntime) ReadValue(ctx context.Context, forceReload bool) (interface{}, error) {
	return r.c.Reader(ctx, forceReload)
}

func (r collectionRuntime) WriteValue(ctx context.Context, value interface{}) error {
	records, err := coerceRecordList(value)
	if err != nil {
		return fmt.Errorf("relationship %s: %w", r.c.ref.Name(), err)
	}
	return r.c.Writer(ctx, records)
}

// singularRuntime adapts a Singular association to the capability
// interface.
type singularRuntime struct {
	s *Singular
}

func (r singularRuntime) ReadValue(ctx context.Context, forceReload bool) (interface{}, error) {
	return r.s.Reader(ctx, forceReload)
}

func (r singularRuntime) WriteValue(ctx context.Context, value interface{}) error {
	if value == nil {
		return r.s.Writer(ctx, nil)
	}
	rec, ok := value.(*record.Record)
	if !ok {
		return fmt.Errorf("relationship %s: expected *record.Record, got %T", r.s.ref.Name(), value)
	}
	return r.s.Writer(ctx, rec)
}

func coerceRecordList(value interface{}) ([]*record.Record, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []*record.Record:
		return v, nil
	case *record.Record:
		return []*record.Record{v}, nil
	default:
		return nil, fmt.Errorf("expected []*record.Record, got %T", value)
	}
}
