package association

import (
	"context"
	"errors"

	"github.com/relatekit/relate/internal/orm/record"
	"github.com/relatekit/relate/internal/orm/reflection"
)

// SaveOwner persists the owner and cascades the save to every locally built
// member of its collection relationships, all inside one transaction. The
// members' foreign keys are attached once the owner's identity exists.
func SaveOwner(ctx context.Context, env Env, owner *record.Record) error {
	t, err := env.Registry.TypeOf(owner)
	if err != nil {
		return err
	}

	return env.Store.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := env.Store.Save(ctx, owner); err != nil {
			return err
		}
		for _, ref := range t.Reflections() {
			if !ref.Collection() {
				continue
			}
			col := NewCollection(owner, ref, env)
			if err := col.SaveUnsavedMembers(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// DestroyOwner destroys the owner after executing the declared cascade
// policy of each of its collection relationships, all inside one
// transaction. The returned boolean is false when a restrict_with_error
// cascade blocked the destruction; the blocking reason is recorded on the
// owner as a validation error. A restrict_with_exception cascade surfaces
// as a DeleteRestrictionError.
func DestroyOwner(ctx context.Context, env Env, owner *record.Record) (bool, error) {
	t, err := env.Registry.TypeOf(owner)
	if err != nil {
		return false, err
	}

	err = env.Store.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, ref := range t.Reflections() {
			if !ref.Collection() {
				continue
			}
			col := NewCollection(owner, ref, env)
			if err := col.HandleDependent(ctx); err != nil {
				return err
			}
		}
		return env.Store.Delete(ctx, owner)
	})
	if err != nil {
		if errors.Is(err, errRestricted) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Access resolves a relationship by name through the owner type's
// capability table; the convenience entry point callers use when they hold
// a record rather than a runtime.
func Access(ctx context.Context, env Env, owner *record.Record, name string, forceReload bool) (interface{}, error) {
	t, err := env.Registry.TypeOf(owner)
	if err != nil {
		return nil, err
	}
	return t.ReadRelation(ctx, owner, name, forceReload)
}

// Assign replaces a relationship's value by name through the owner type's
// capability table.
func Assign(ctx context.Context, env Env, owner *record.Record, name string, value interface{}) error {
	t, err := env.Registry.TypeOf(owner)
	if err != nil {
		return err
	}
	return t.WriteRelation(ctx, owner, name, value)
}

// CollectionFor binds a collection runtime for the named relationship of
// the owner. It fails when the name is unknown or not collection-valued.
func CollectionFor(env Env, owner *record.Record, name string) (*Collection, error) {
	t, err := env.Registry.TypeOf(owner)
	if err != nil {
		return nil, err
	}
	ref, ok := t.Reflection(name)
	if !ok {
		return nil, errors.New("unknown relationship " + t.Name() + "." + name)
	}
	if ref.Kind() != reflection.ToMany {
		return nil, errors.New("relationship " + t.Name() + "." + name + " is not a collection")
	}
	return NewCollection(owner, ref, env), nil
}
