package scope

import (
	"context"

	"github.com/relatekit/relate/internal/orm/record"
	"github.com/relatekit/relate/internal/orm/store"
)

// MemoryFactory builds scopes over an in-memory store.
type MemoryFactory struct {
	store *store.MemStore
}

// NewMemoryFactory creates a scope factory over the given in-memory store.
func NewMemoryFactory(s *store.MemStore) *MemoryFactory {
	return &MemoryFactory{store: s}
}

// For implements Factory.
func (f *MemoryFactory) For(resource, foreignKey string, key interface{}) Scope {
	return &memoryScope{
		store:      f.store,
		resource:   resource,
		foreignKey: foreignKey,
		key:        key,
	}
}

type memoryScope struct {
	store      *store.MemStore
	resource   string
	foreignKey string
	key        interface{}
}

func (s *memoryScope) ToList(ctx context.Context) ([]*record.Record, error) {
	return s.store.Where(ctx, s.resource, s.foreignKey, s.key)
}

func (s *memoryScope) Pluck(ctx context.Context, field string) ([]interface{}, error) {
	records, err := s.store.Where(ctx, s.resource, s.foreignKey, s.key)
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, 0, len(records))
	for _, rec := range records {
		if v, ok := rec.Get(field); ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *memoryScope) ExistsBy(ctx context.Context, id interface{}) (bool, error) {
	records, err := s.store.Where(ctx, s.resource, s.foreignKey, s.key)
	if err != nil {
		return false, err
	}
	if id == nil {
		return len(records) > 0, nil
	}
	for _, rec := range records {
		if rec.ID() == id {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryScope) ScopeForCreate() map[string]interface{} {
	return map[string]interface{}{s.foreignKey: s.key}
}
