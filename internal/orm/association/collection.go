package association

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/relatekit/relate/internal/orm/record"
	"github.com/relatekit/relate/internal/orm/reflection"
)

// collectionState is the cross-access state of one collection relationship.
// Runtimes are rebuilt on every access, so this lives on the owner record's
// association side table.
type collectionState struct {
	target   []*record.Record
	state    LoadState
	snapshot interface{}
}

// Collection is the collection-valued association runtime. It holds the
// mutable target list, resolves membership lazily, merges fetched records
// with locally built unsaved ones, and executes mutations with
// transactional semantics.
//
// A Collection is owned by a single logical call sequence; it does not
// protect the target list against concurrent mutation.
type Collection struct {
	base
}

// NewCollection binds a collection runtime to one owner instance and one
// ToMany reflection.
func NewCollection(owner *record.Record, ref *reflection.Reflection, env Env) *Collection {
	return &Collection{base{owner: owner, ref: ref, env: env}}
}

// Owner returns the owner instance the collection is bound to.
func (c *Collection) Owner() *record.Record { return c.owner }

// Reflection returns the relationship metadata the collection is bound to.
func (c *Collection) Reflection() *reflection.Reflection { return c.ref }

// st returns the owner-held state, applying the staleness check on every
// access: a loaded cache whose snapshot no longer matches the owner's
// linking attribute transitions to Stale.
func (c *Collection) st() *collectionState {
	if v, ok := c.owner.AssociationState(c.ref.Name()); ok {
		if st, ok := v.(*collectionState); ok {
			if st.state == Loaded && st.snapshot != c.linkKey() {
				st.state = nextState(st.state, eventKeyChanged)
			}
			return st
		}
	}
	st := &collectionState{state: NotLoaded}
	c.owner.SetAssociationState(c.ref.Name(), st)
	return st
}

// fresh returns the owner-held state with any stale persisted membership
// already discarded. Unsaved members survive the discard; stale is
// corrected silently, never surfaced as an error.
func (c *Collection) fresh() *collectionState {
	st := c.st()
	if st.state == Stale {
		st.target = unsavedOnly(st.target)
		st.state = nextState(st.state, eventReset)
	}
	return st
}

// State returns the collection's current load state.
func (c *Collection) State() LoadState { return c.st().state }

// Loaded reports whether the target list is the full known membership.
func (c *Collection) Loaded() bool { return c.st().state == Loaded }

// Target returns a copy of the current target list without triggering a
// load.
func (c *Collection) Target() []*record.Record {
	return append([]*record.Record(nil), c.st().target...)
}

// LoadTarget resolves the collection: fetches related persisted records,
// links each one's inverse reference back to the owner, and merges the
// fetched set with the current target list. A locally built unsaved record
// always survives the merge and is never duplicated against a fetched row
// for the same entity.
func (c *Collection) LoadTarget(ctx context.Context) ([]*record.Record, error) {
	st := c.fresh()

	if st.state == Loaded {
		return append([]*record.Record(nil), st.target...), nil
	}

	fetched, err := c.Scope().ToList(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range fetched {
		c.linkInverse(rec)
	}

	st.target = mergeTargets(fetched, st.target)
	st.state = nextState(st.state, eventLoaded)
	st.snapshot = c.linkKey()

	c.env.logger().Debug("loaded collection target",
		zap.String("relationship", c.ref.Name()),
		zap.Int("size", len(st.target)))

	return append([]*record.Record(nil), st.target...), nil
}

// Reload discards the cached persisted membership (unsaved members
// survive) and resolves again.
func (c *Collection) Reload(ctx context.Context) ([]*record.Record, error) {
	st := c.st()
	st.target = unsavedOnly(st.target)
	st.state = nextState(st.state, eventReset)
	return c.LoadTarget(ctx)
}

// Reader returns the collection proxy, reloading first when forceReload is
// set or the cached resolution is stale. Otherwise resolution stays lazy:
// the proxy loads on first touch.
func (c *Collection) Reader(ctx context.Context, forceReload bool) (*Proxy, error) {
	if forceReload || c.st().state == Stale {
		if _, err := c.Reload(ctx); err != nil {
			return nil, err
		}
	}
	return NewProxy(c), nil
}

// Writer sets the membership to exactly records. Equivalent to Replace.
func (c *Collection) Writer(ctx context.Context, records []*record.Record) error {
	return c.Replace(ctx, records)
}

// Replace diffs the new membership against the current one: removed members
// are detached or deleted per the configured removal policy, added members
// are linked and, when the owner is persisted, written.
func (c *Collection) Replace(ctx context.Context, records []*record.Record) error {
	for _, rec := range records {
		if err := c.checkType(rec); err != nil {
			return err
		}
	}

	current, err := c.LoadTarget(ctx)
	if err != nil {
		return err
	}

	var removed []*record.Record
	for _, cur := range current {
		if !containsRecord(records, cur) {
			removed = append(removed, cur)
		}
	}
	var added []*record.Record
	for _, rec := range records {
		if !containsRecord(current, rec) {
			added = append(added, rec)
		}
	}

	if c.owner.IsPersisted() {
		err := c.env.Store.RunInTransaction(ctx, func(ctx context.Context) error {
			for _, rec := range removed {
				if err := c.removeMember(ctx, rec); err != nil {
					return err
				}
			}
			for _, rec := range added {
				c.linkInverse(rec)
				if err := c.env.Store.Save(ctx, rec); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	} else {
		for _, rec := range added {
			c.linkInverse(rec)
		}
	}

	st := c.st()
	st.target = append([]*record.Record(nil), records...)
	st.state = nextState(st.state, eventLoaded)
	st.snapshot = c.linkKey()
	return nil
}

// removeMember handles a record removed by Replace. An explicitly declared
// destructive policy deletes the record; otherwise it is detached by
// clearing the foreign key, leaving the row in place.
func (c *Collection) removeMember(ctx context.Context, rec *record.Record) error {
	if rec.IsNewRecord() {
		return nil
	}
	if _, declared := c.ref.Option(reflection.OptDependent); declared {
		switch c.Policy() {
		case PolicyDestroy, PolicyDeleteAll:
			return c.env.Store.Delete(ctx, rec)
		}
	}
	rec.Set(c.ref.ForeignKey(), nil)
	return c.env.Store.Update(ctx, rec)
}

// IDs returns each member's identity key in target-list order when loaded.
// When not loaded it issues a single-column projection instead of
// materializing full records.
func (c *Collection) IDs(ctx context.Context) ([]interface{}, error) {
	st := c.st()
	if st.state == Loaded {
		var ids []interface{}
		for _, rec := range st.target {
			if !isBlankKey(rec.ID()) {
				ids = append(ids, rec.ID())
			}
		}
		return ids, nil
	}
	return c.Scope().Pluck(ctx, "id")
}

// SetIDs replaces the membership with the persisted records matching ids,
// preserving the order of the supplied ids rather than fetch order. Blank
// ids are silently dropped, not errored; callers relying on strict
// validation must pre-validate. Duplicate ids are collapsed to their first
// occurrence.
func (c *Collection) SetIDs(ctx context.Context, ids []interface{}) error {
	seen := make(map[interface{}]struct{}, len(ids))
	normalized := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		if isBlankKey(id) {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		normalized = append(normalized, id)
	}

	fetched, err := c.env.Store.Find(ctx, c.ref.RelatedName(), normalized)
	if err != nil {
		return err
	}

	// Find makes no ordering guarantee; reorder per the supplied ids.
	byID := make(map[interface{}]*record.Record, len(fetched))
	for _, rec := range fetched {
		byID[rec.ID()] = rec
	}
	ordered := make([]*record.Record, 0, len(normalized))
	for _, id := range normalized {
		if rec, ok := byID[id]; ok {
			ordered = append(ordered, rec)
		}
	}

	return c.Replace(ctx, ordered)
}

// Reset clears the target list and marks the collection not loaded. Storage
// is unaffected.
func (c *Collection) Reset() {
	c.owner.ClearAssociationState(c.ref.Name())
}

// SelectFields projects the given fields from the membership. A single
// field on an unloaded collection delegates to the scope's projection;
// otherwise the loaded target is projected in memory.
func (c *Collection) SelectFields(ctx context.Context, fields ...string) ([]map[string]interface{}, error) {
	st := c.st()
	if len(fields) == 1 && st.state != Loaded {
		values, err := c.Scope().Pluck(ctx, fields[0])
		if err != nil {
			return nil, err
		}
		out := make([]map[string]interface{}, 0, len(values))
		for _, v := range values {
			out = append(out, map[string]interface{}{fields[0]: v})
		}
		return out, nil
	}

	records, err := c.LoadTarget(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]interface{}, 0, len(records))
	for _, rec := range records {
		row := make(map[string]interface{}, len(fields))
		for _, f := range fields {
			if v, ok := rec.Get(f); ok {
				row[f] = v
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// SelectFunc filters the fully loaded target list in memory.
func (c *Collection) SelectFunc(ctx context.Context, pred func(*record.Record) bool) ([]*record.Record, error) {
	records, err := c.LoadTarget(ctx)
	if err != nil {
		return nil, err
	}
	var out []*record.Record
	for _, rec := range records {
		if pred(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Build constructs a new unsaved member with the given attributes, links it
// to its would-be owner, and appends it to the target list. The new record
// is a member immediately, before the collection is ever resolved.
func (c *Collection) Build(attrs map[string]interface{}) *record.Record {
	merged := c.Scope().ScopeForCreate()
	for k, v := range attrs {
		merged[k] = v
	}

	rec := record.New(c.ref.RelatedName(), merged)
	c.linkInverse(rec)

	st := c.st()
	st.target = append(st.target, rec)
	return rec
}

// BuildMany constructs one unsaved member per attribute map, in order.
func (c *Collection) BuildMany(attrsList []map[string]interface{}) []*record.Record {
	out := make([]*record.Record, 0, len(attrsList))
	for _, attrs := range attrsList {
		out = append(out, c.Build(attrs))
	}
	return out
}

// Create builds and persists a new member inside a transaction. A failed
// validation is swallowed: the unsaved record is returned with its errors
// attached and a nil error. The call fails with RecordNotSavedError before
// building anything when the owner itself is not persisted; a collection
// cannot accept persisted children of an unpersisted parent.
func (c *Collection) Create(ctx context.Context, attrs map[string]interface{}) (*record.Record, error) {
	return c.create(ctx, attrs, false)
}

// MustCreate is the strict variant of Create: a failed validation is
// returned as a RecordNotSavedError and the transaction rolls back.
func (c *Collection) MustCreate(ctx context.Context, attrs map[string]interface{}) (*record.Record, error) {
	return c.create(ctx, attrs, true)
}

func (c *Collection) create(ctx context.Context, attrs map[string]interface{}, strict bool) (*record.Record, error) {
	if !c.owner.IsPersisted() {
		return nil, &RecordNotSavedError{Resource: c.owner.Resource(), Op: "create " + c.ref.Name()}
	}

	rec := c.Build(attrs)
	err := c.env.Store.RunInTransaction(ctx, func(ctx context.Context) error {
		return c.env.Store.Insert(ctx, rec)
	})
	if err != nil {
		var ve *record.ValidationError
		if errors.As(err, &ve) {
			if strict {
				return rec, &RecordNotSavedError{Resource: rec.Resource(), Op: "create " + c.ref.Name(), Err: ve}
			}
			return rec, nil
		}
		return nil, err
	}
	return rec, nil
}

// Concat appends records to the collection. With an unsaved owner the
// records only join the in-memory target (the existing target is loaded
// first so a later save of the owner can cascade them); no insert is
// attempted since there is no parent identity to attach yet. With a
// persisted owner the whole batch executes inside one transaction and the
// result is an aggregated boolean: false means at least one insert failed
// validation and the transaction rolled back, with per-record detail left
// on each record's own error state. A wrong-typed record aborts the call
// with a TypeMismatchError.
func (c *Collection) Concat(ctx context.Context, records ...*record.Record) (bool, error) {
	for _, rec := range records {
		if err := c.checkType(rec); err != nil {
			return false, err
		}
	}

	if c.owner.IsNewRecord() {
		if _, err := c.LoadTarget(ctx); err != nil {
			return false, err
		}
		st := c.st()
		for _, rec := range records {
			c.linkInverse(rec)
			st.target = append(st.target, rec)
		}
		return true, nil
	}

	err := c.env.Store.RunInTransaction(ctx, func(ctx context.Context) error {
		failed := false
		for _, rec := range records {
			c.linkInverse(rec)
			if err := c.env.Store.Save(ctx, rec); err != nil {
				var ve *record.ValidationError
				if errors.As(err, &ve) {
					failed = true
					continue
				}
				return err
			}
		}
		if failed {
			return errConcatFailed
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errConcatFailed) {
			return false, nil
		}
		return false, err
	}

	st := c.st()
	st.target = append(st.target, records...)
	return true, nil
}

// Empty reports whether the collection has no members. When not loaded the
// answer is computed without a full fetch: a locally built unsaved member
// makes the collection non-empty even though storage has nothing yet, so
// both the in-memory target and the existence-check query are consulted.
func (c *Collection) Empty(ctx context.Context) (bool, error) {
	st := c.fresh()
	if st.state == Loaded {
		return len(st.target) == 0, nil
	}
	if len(st.target) > 0 {
		return false, nil
	}
	exists, err := c.Scope().ExistsBy(ctx, nil)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// Any reports whether the collection has at least one member.
func (c *Collection) Any(ctx context.Context) (bool, error) {
	empty, err := c.Empty(ctx)
	if err != nil {
		return false, err
	}
	return !empty, nil
}

// AnyFunc forces a full load and reports whether any member satisfies the
// predicate.
func (c *Collection) AnyFunc(ctx context.Context, pred func(*record.Record) bool) (bool, error) {
	records, err := c.LoadTarget(ctx)
	if err != nil {
		return false, err
	}
	for _, rec := range records {
		if pred(rec) {
			return true, nil
		}
	}
	return false, nil
}

// Size returns the number of members, counting locally built unsaved
// records. An unloaded collection is sized with an identity projection
// rather than a full fetch.
func (c *Collection) Size(ctx context.Context) (int, error) {
	st := c.fresh()
	if st.state == Loaded {
		return len(st.target), nil
	}

	ids, err := c.Scope().Pluck(ctx, "id")
	if err != nil {
		return 0, err
	}
	seen := make(map[interface{}]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	count := len(seen)
	for _, rec := range st.target {
		if rec.IsNewRecord() {
			count++
		} else if _, ok := seen[rec.ID()]; !ok {
			count++
		}
	}
	return count, nil
}

// Many forces a load and reports whether the collection has more than one
// member.
func (c *Collection) Many(ctx context.Context) (bool, error) {
	records, err := c.LoadTarget(ctx)
	if err != nil {
		return false, err
	}
	return len(records) > 1, nil
}

// ManyFunc forces a load and reports whether more than one member satisfies
// the predicate.
func (c *Collection) ManyFunc(ctx context.Context, pred func(*record.Record) bool) (bool, error) {
	records, err := c.LoadTarget(ctx)
	if err != nil {
		return false, err
	}
	count := 0
	for _, rec := range records {
		if pred(rec) {
			count++
			if count > 1 {
				return true, nil
			}
		}
	}
	return false, nil
}

// Includes reports membership of a candidate record. A candidate of the
// wrong type is false outright without any resolution call. An unsaved
// candidate is checked against the in-memory target only. A persisted
// candidate is checked against the loaded target, or by an identity
// existence query when not loaded; membership never forces a full load.
func (c *Collection) Includes(ctx context.Context, candidate *record.Record) (bool, error) {
	if candidate == nil {
		return false, nil
	}
	if !c.ref.TypeMatches(candidate.Resource()) {
		return false, nil
	}

	st := c.fresh()
	if candidate.IsNewRecord() {
		for _, rec := range st.target {
			if rec == candidate {
				return true, nil
			}
		}
		return false, nil
	}

	if st.state == Loaded {
		for _, rec := range st.target {
			if rec.SameIdentity(candidate) {
				return true, nil
			}
		}
		return false, nil
	}

	return c.Scope().ExistsBy(ctx, candidate.ID())
}

// SaveUnsavedMembers persists the locally built members of a freshly saved
// owner, attaching the owner's identity to each first. Called by SaveOwner
// after the owner itself is written.
func (c *Collection) SaveUnsavedMembers(ctx context.Context) error {
	st := c.st()
	for _, rec := range st.target {
		if !rec.IsNewRecord() {
			continue
		}
		rec.Set(c.ref.ForeignKey(), c.owner.ID())
		if err := c.env.Store.Insert(ctx, rec); err != nil {
			return err
		}
	}
	// The snapshot was taken against the pre-save linking value.
	if st.state == Loaded {
		st.snapshot = c.linkKey()
	}
	return nil
}

// unsavedOnly filters the target down to locally built unsaved members.
func unsavedOnly(target []*record.Record) []*record.Record {
	var out []*record.Record
	for _, rec := range target {
		if rec.IsNewRecord() {
			out = append(out, rec)
		}
	}
	return out
}

// mergeTargets merges a fresh fetch with the current target list. Fetched
// entities come first in fetch order, but a local instance referring to the
// same stored entity wins over its fetched copy; unsaved locals and
// persisted locals missing from the fetch are appended in local order. No
// entity appears twice.
func mergeTargets(fetched, current []*record.Record) []*record.Record {
	merged := make([]*record.Record, 0, len(fetched)+len(current))
	seen := make(map[interface{}]struct{})

	for _, f := range fetched {
		use := f
		for _, l := range current {
			if l.SameIdentity(f) {
				use = l
				break
			}
		}
		if id := use.ID(); id != nil {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
		}
		merged = append(merged, use)
	}

	for _, l := range current {
		if l.IsNewRecord() {
			merged = append(merged, l)
			continue
		}
		if id := l.ID(); id != nil {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
		}
		merged = append(merged, l)
	}

	return merged
}

// containsRecord reports whether list holds rec, by pointer for unsaved
// records and by identity for persisted ones.
func containsRecord(list []*record.Record, rec *record.Record) bool {
	for _, candidate := range list {
		if candidate == rec || candidate.SameIdentity(rec) {
			return true
		}
	}
	return false
}
