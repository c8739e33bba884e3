package association

import (
	"context"

	"github.com/relatekit/relate/internal/orm/record"
)

// Proxy is the thin forwarding façade handed to callers: relationship
// access reads like plain attribute access while every operation delegates
// to the underlying collection runtime. The proxy itself holds no state, so
// it stays valid across mutations made through it.
type Proxy struct {
	assoc *Collection
}

// NewProxy wraps a collection runtime.
func NewProxy(assoc *Collection) *Proxy {
	return &Proxy{assoc: assoc}
}

// Association exposes the underlying collection runtime.
func (p *Proxy) Association() *Collection { return p.assoc }

// Records resolves and returns the members.
func (p *Proxy) Records(ctx context.Context) ([]*record.Record, error) {
	return p.assoc.LoadTarget(ctx)
}

// Each resolves the members and calls fn for each in target-list order.
func (p *Proxy) Each(ctx context.Context, fn func(*record.Record) error) error {
	records, err := p.assoc.LoadTarget(ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

// Size delegates to the collection.
func (p *Proxy) Size(ctx context.Context) (int, error) { return p.assoc.Size(ctx) }

// Empty delegates to the collection.
func (p *Proxy) Empty(ctx context.Context) (bool, error) { return p.assoc.Empty(ctx) }

// Any delegates to the collection.
func (p *Proxy) Any(ctx context.Context) (bool, error) { return p.assoc.Any(ctx) }

// Many delegates to the collection.
func (p *Proxy) Many(ctx context.Context) (bool, error) { return p.assoc.Many(ctx) }

// Includes delegates to the collection.
func (p *Proxy) Includes(ctx context.Context, rec *record.Record) (bool, error) {
	return p.assoc.Includes(ctx, rec)
}

// IDs delegates to the collection.
func (p *Proxy) IDs(ctx context.Context) ([]interface{}, error) { return p.assoc.IDs(ctx) }

// Loaded delegates to the collection.
func (p *Proxy) Loaded() bool { return p.assoc.Loaded() }

// Reload delegates to the collection.
func (p *Proxy) Reload(ctx context.Context) ([]*record.Record, error) {
	return p.assoc.Reload(ctx)
}

// Build delegates to the collection.
func (p *Proxy) Build(attrs map[string]interface{}) *record.Record {
	return p.assoc.Build(attrs)
}

// Create delegates to the collection.
func (p *Proxy) Create(ctx context.Context, attrs map[string]interface{}) (*record.Record, error) {
	return p.assoc.Create(ctx, attrs)
}

// Concat delegates to the collection.
func (p *Proxy) Concat(ctx context.Context, records ...*record.Record) (bool, error) {
	return p.assoc.Concat(ctx, records...)
}
