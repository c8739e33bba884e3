package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relatekit/relate/internal/orm/record"
)

// memTxKey carries the active in-memory transaction through the context.
type memTxKey struct{}

// memTx tracks the rollback journal of one in-memory transaction.
type memTx struct {
	snapshot map[string]map[interface{}]map[string]interface{}
	order    map[string][]interface{}
	inserted []*record.Record
}

// MemStore is a mutex-guarded in-memory Store. It backs tests and the
// memory scope; transactions are implemented as whole-store snapshots, which
// is adequate at in-memory scale.
type MemStore struct {
	mu         sync.RWMutex
	tables     map[string]map[interface{}]map[string]interface{}
	order      map[string][]interface{}
	validators map[string][]Validator
	logger     *zap.Logger
}

// NewMemStore creates an empty in-memory store. logger may be nil.
func NewMemStore(logger *zap.Logger) *MemStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemStore{
		tables:     make(map[string]map[interface{}]map[string]interface{}),
		order:      make(map[string][]interface{}),
		validators: make(map[string][]Validator),
		logger:     logger,
	}
}

// RegisterValidator adds a validator run before every insert or update of
// the given resource.
func (s *MemStore) RegisterValidator(resource string, v Validator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validators[resource] = append(s.validators[resource], v)
}

// validate runs the registered validators and returns a ValidationError if
// any recorded an error on the record.
func (s *MemStore) validate(rec *record.Record) error {
	s.mu.RLock()
	validators := s.validators[rec.Resource()]
	s.mu.RUnlock()

	rec.ClearErrors()
	for _, v := range validators {
		v(rec)
	}
	if rec.HasErrors() {
		return record.NewValidationError(rec)
	}
	return nil
}

// Insert implements Store.
func (s *MemStore) Insert(ctx context.Context, rec *record.Record) error {
	if err := s.validate(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if isBlank(rec.ID()) {
		rec.SetID(uuid.New().String())
	}

	table := s.tables[rec.Resource()]
	if table == nil {
		table = make(map[interface{}]map[string]interface{})
		s.tables[rec.Resource()] = table
	}
	if _, exists := table[rec.ID()]; !exists {
		s.order[rec.Resource()] = append(s.order[rec.Resource()], rec.ID())
	}
	table[rec.ID()] = rec.Attributes()
	rec.MarkPersisted()

	if tx, ok := ctx.Value(memTxKey{}).(*memTx); ok {
		tx.inserted = append(tx.inserted, rec)
	}

	s.logger.Debug("inserted record",
		zap.String("resource", rec.Resource()),
		zap.Any("id", rec.ID()))
	return nil
}

// Update implements Store.
func (s *MemStore) Update(ctx context.Context, rec *record.Record) error {
	if err := s.validate(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	table := s.tables[rec.Resource()]
	if table == nil {
		return ErrNotFound
	}
	if _, exists := table[rec.ID()]; !exists {
		return ErrNotFound
	}
	table[rec.ID()] = rec.Attributes()
	rec.AcceptChanges()
	return nil
}

// Save implements Store.
func (s *MemStore) Save(ctx context.Context, rec *record.Record) error {
	if rec.IsNewRecord() {
		return s.Insert(ctx, rec)
	}
	return s.Update(ctx, rec)
}

// Find implements Store. Missing ids are skipped; ordering follows the
// store's insertion order, which callers must not rely on.
func (s *MemStore) Find(ctx context.Context, resource string, ids []interface{}) ([]*record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[interface{}]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	var out []*record.Record
	for _, id := range s.order[resource] {
		if _, ok := wanted[id]; !ok {
			continue
		}
		if attrs, ok := s.tables[resource][id]; ok {
			out = append(out, record.NewPersisted(resource, attrs))
		}
	}
	return out, nil
}

// Where returns all records of the resource whose field equals value, in
// insertion order.
func (s *MemStore) Where(ctx context.Context, resource, field string, value interface{}) ([]*record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*record.Record
	for _, id := range s.order[resource] {
		attrs, ok := s.tables[resource][id]
		if !ok {
			continue
		}
		if attrs[field] == value {
			out = append(out, record.NewPersisted(resource, attrs))
		}
	}
	return out, nil
}

// Delete implements Store.
func (s *MemStore) Delete(ctx context.Context, rec *record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	table := s.tables[rec.Resource()]
	if table == nil {
		return ErrNotFound
	}
	if _, exists := table[rec.ID()]; !exists {
		return ErrNotFound
	}
	delete(table, rec.ID())
	s.order[rec.Resource()] = removeID(s.order[rec.Resource()], rec.ID())
	rec.MarkDestroyed()
	return nil
}

// DeleteWhere implements Store.
func (s *MemStore) DeleteWhere(ctx context.Context, resource, field string, value interface{}) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table := s.tables[resource]
	var removed int64
	for _, id := range append([]interface{}(nil), s.order[resource]...) {
		attrs, ok := table[id]
		if !ok {
			continue
		}
		if attrs[field] == value {
			delete(table, id)
			s.order[resource] = removeID(s.order[resource], id)
			removed++
		}
	}
	return removed, nil
}

// Exists implements Store.
func (s *MemStore) Exists(ctx context.Context, resource string, id interface{}) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	table := s.tables[resource]
	if table == nil {
		return false, nil
	}
	_, ok := table[id]
	return ok, nil
}

// RunInTransaction implements Store with a whole-store snapshot. On error
// the snapshot is restored and records inserted inside the transaction are
// reverted to the unsaved state.
func (s *MemStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, nested := ctx.Value(memTxKey{}).(*memTx); nested {
		// Already inside a transaction; join it.
		return fn(ctx)
	}

	tx := &memTx{}
	s.mu.RLock()
	tx.snapshot = snapshotTables(s.tables)
	tx.order = snapshotOrder(s.order)
	s.mu.RUnlock()

	err := fn(context.WithValue(ctx, memTxKey{}, tx))
	if err == nil {
		return nil
	}

	s.mu.Lock()
	s.tables = tx.snapshot
	s.order = tx.order
	s.mu.Unlock()
	for _, rec := range tx.inserted {
		rec.MarkNew()
	}
	s.logger.Debug("rolled back in-memory transaction", zap.Error(err))
	return err
}

func removeID(ids []interface{}, id interface{}) []interface{} {
	out := ids[:0]
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}

func snapshotTables(tables map[string]map[interface{}]map[string]interface{}) map[string]map[interface{}]map[string]interface{} {
	out := make(map[string]map[interface{}]map[string]interface{}, len(tables))
	for resource, table := range tables {
		tcopy := make(map[interface{}]map[string]interface{}, len(table))
		for id, attrs := range table {
			acopy := make(map[string]interface{}, len(attrs))
			for k, v := range attrs {
				acopy[k] = v
			}
			tcopy[id] = acopy
		}
		out[resource] = tcopy
	}
	return out
}

func snapshotOrder(order map[string][]interface{}) map[string][]interface{} {
	out := make(map[string][]interface{}, len(order))
	for resource, ids := range order {
		out[resource] = append([]interface{}(nil), ids...)
	}
	return out
}
