package association

import (
	"context"

	"github.com/relatekit/relate/internal/orm/record"
	"github.com/relatekit/relate/internal/orm/reflection"
)

// singularState is the cross-access state of one single-valued
// relationship.
type singularState struct {
	target   *record.Record
	state    LoadState
	snapshot interface{}
}

// Singular is the single-valued association runtime (belongs-to). It shares
// the staleness and null-scope rules of the collection runtime but caches
// at most one target.
type Singular struct {
	base
}

// NewSingular binds a singular runtime to one owner instance and one ToOne
// reflection.
func NewSingular(owner *record.Record, ref *reflection.Reflection, env Env) *Singular {
	return &Singular{base{owner: owner, ref: ref, env: env}}
}

func (s *Singular) st() *singularState {
	if v, ok := s.owner.AssociationState(s.ref.Name()); ok {
		if st, ok := v.(*singularState); ok {
			if st.state == Loaded && st.snapshot != s.linkKey() {
				st.state = nextState(st.state, eventKeyChanged)
			}
			return st
		}
	}
	st := &singularState{state: NotLoaded}
	s.owner.SetAssociationState(s.ref.Name(), st)
	return st
}

// Loaded reports whether the target has been resolved.
func (s *Singular) Loaded() bool { return s.st().state == Loaded }

// Reader resolves the related record, reloading when forceReload is set or
// the owner's foreign key changed since the cached resolution. A nil result
// with a nil error means the relationship is unset.
func (s *Singular) Reader(ctx context.Context, forceReload bool) (*record.Record, error) {
	st := s.st()
	if forceReload || st.state == Stale {
		st.target = nil
		st.state = nextState(st.state, eventReset)
	}
	if st.state == Loaded {
		return st.target, nil
	}

	records, err := s.Scope().ToList(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) > 0 {
		st.target = records[0]
		st.target.SetReference(s.ref.InverseName(), s.owner)
	} else {
		st.target = nil
	}
	st.state = nextState(st.state, eventLoaded)
	st.snapshot = s.linkKey()
	return st.target, nil
}

// Writer replaces the related record: the owner's foreign-key attribute is
// set to the new target's identity (or cleared for nil) and the cache is
// primed with the new value.
func (s *Singular) Writer(ctx context.Context, rec *record.Record) error {
	if rec != nil {
		if err := s.checkType(rec); err != nil {
			return err
		}
	}

	st := s.st()
	if rec == nil {
		s.owner.Set(s.ref.ForeignKey(), nil)
		st.target = nil
	} else {
		s.owner.Set(s.ref.ForeignKey(), rec.ID())
		rec.SetReference(s.ref.InverseName(), s.owner)
		st.target = rec
	}
	st.state = nextState(st.state, eventLoaded)
	st.snapshot = s.linkKey()
	return nil
}

// Reset clears the cached target and marks the relationship not loaded.
func (s *Singular) Reset() {
	s.owner.ClearAssociationState(s.ref.Name())
}
