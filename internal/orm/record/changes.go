package record

import (
	"reflect"
	"sort"
)

// FieldChange describes one attribute modification since the record was last
// synchronized with storage.
type FieldChange struct {
	Field string
	From  interface{}
	To    interface{}
}

// AcceptChanges marks the current attribute values as the storage-backed
// baseline. Stores call this after a successful write; fetched records start
// with an accepted baseline.
func (r *Record) AcceptChanges() {
	r.baseline = make(map[string]interface{}, len(r.attrs))
	for k, v := range r.attrs {
		r.baseline[k] = v
	}
}

// HasChanges reports whether any attribute differs from the baseline.
func (r *Record) HasChanges() bool {
	return len(r.Changes()) > 0
}

// Changed reports whether the named attribute differs from the baseline.
func (r *Record) Changed(field string) bool {
	base, inBase := r.baseline[field]
	cur, inCur := r.attrs[field]
	if inBase != inCur {
		return true
	}
	return !reflect.DeepEqual(base, cur)
}

// Changes returns the attribute modifications since the baseline, ordered by
// field name. A record without a baseline reports every attribute as
// changed.
func (r *Record) Changes() []FieldChange {
	fields := make(map[string]struct{}, len(r.attrs)+len(r.baseline))
	for k := range r.attrs {
		fields[k] = struct{}{}
	}
	for k := range r.baseline {
		fields[k] = struct{}{}
	}

	var out []FieldChange
	for field := range fields {
		if !r.Changed(field) {
			continue
		}
		out = append(out, FieldChange{
			Field: field,
			From:  r.baseline[field],
			To:    r.attrs[field],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}
