// Package store provides the persistence collaborator consumed by the
// association runtime: a Store contract plus a SQL implementation and an
// in-memory implementation with snapshot transactions.
package store

import (
	"context"

	"github.com/relatekit/relate/internal/orm/record"
)

// Validator inspects a record before it is written and records any
// validation errors on the record itself.
type Validator func(rec *record.Record)

// Store is the persistence contract the association runtime depends on.
// Find makes no ordering guarantee; callers that need a specific order must
// reorder the result themselves.
type Store interface {
	// Insert writes a new record. A missing identity key is generated. A
	// validation failure is recorded on the record and returned as a
	// *record.ValidationError; the record is not written.
	Insert(ctx context.Context, rec *record.Record) error

	// Update rewrites an existing record's attributes.
	Update(ctx context.Context, rec *record.Record) error

	// Save inserts or updates depending on the record's lifecycle state.
	Save(ctx context.Context, rec *record.Record) error

	// Find fetches the records of the given resource with the given
	// identity keys. Missing ids are skipped, not errored. Ordering is
	// unspecified.
	Find(ctx context.Context, resource string, ids []interface{}) ([]*record.Record, error)

	// Delete removes a single record and marks it destroyed.
	Delete(ctx context.Context, rec *record.Record) error

	// DeleteWhere bulk-deletes records matching field = value without
	// materializing them, returning the number of rows removed.
	DeleteWhere(ctx context.Context, resource, field string, value interface{}) (int64, error)

	// Exists reports whether a record of the resource with the given
	// identity key is stored.
	Exists(ctx context.Context, resource string, id interface{}) (bool, error)

	// RunInTransaction executes fn inside a single transaction; any error
	// from fn rolls the transaction back.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// isBlank reports whether an identity key is unusable.
func isBlank(id interface{}) bool {
	if id == nil {
		return true
	}
	if s, ok := id.(string); ok {
		return s == ""
	}
	return false
}
