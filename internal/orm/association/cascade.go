package association

import (
	"context"

	"go.uber.org/zap"

	"github.com/relatekit/relate/internal/orm/reflection"
)

// Policy is the cascade rule applied to a collection's members when the
// owner is destroyed. Selection is declared through the dependent option,
// never inferred.
type Policy int

const (
	// PolicyDeleteAll bulk-deletes the members without loading each one;
	// the default when no per-record destroy bookkeeping matters.
	PolicyDeleteAll Policy = iota
	// PolicyDestroy loads the full collection and destroys each member,
	// marking it destroyed-through-this-relationship first.
	PolicyDestroy
	// PolicyRestrictWithException fails fast while the collection is
	// non-empty, blocking the owner's own destruction.
	PolicyRestrictWithException
	// PolicyRestrictWithError records a user-facing validation error on the
	// owner and signals failure without raising.
	PolicyRestrictWithError
)

// String returns the declaration spelling of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyDestroy:
		return "destroy"
	case PolicyRestrictWithException:
		return "restrict_with_exception"
	case PolicyRestrictWithError:
		return "restrict_with_error"
	default:
		return "delete_all"
	}
}

// ParsePolicy converts a declared dependent option value to a Policy.
func ParsePolicy(s string) (Policy, bool) {
	switch s {
	case "delete_all", "":
		return PolicyDeleteAll, true
	case "destroy":
		return PolicyDestroy, true
	case "restrict_with_exception":
		return PolicyRestrictWithException, true
	case "restrict_with_error":
		return PolicyRestrictWithError, true
	default:
		return PolicyDeleteAll, false
	}
}

// Policy returns the declared cascade policy of the collection.
func (c *Collection) Policy() Policy {
	v, ok := c.ref.Option(reflection.OptDependent)
	if !ok {
		return PolicyDeleteAll
	}
	s, _ := v.(string)
	p, _ := ParsePolicy(s)
	return p
}

// HandleDependent executes the collection's cascade policy as part of the
// owner's destruction.
func (c *Collection) HandleDependent(ctx context.Context) error {
	policy := c.Policy()
	logger := c.env.logger()

	switch policy {
	case PolicyRestrictWithException:
		any, err := c.Any(ctx)
		if err != nil {
			return err
		}
		if any {
			return &DeleteRestrictionError{Relationship: c.ref.Name()}
		}
		return nil

	case PolicyRestrictWithError:
		any, err := c.Any(ctx)
		if err != nil {
			return err
		}
		if any {
			c.owner.AddError(c.ref.Name(),
				"cannot delete record because dependent "+c.ref.Name()+" exist")
			return errRestricted
		}
		return nil

	case PolicyDestroy:
		records, err := c.LoadTarget(ctx)
		if err != nil {
			return err
		}
		for _, rec := range records {
			rec.MarkDestroyedBy(c.ref.Name())
			if rec.IsNewRecord() {
				continue
			}
			if err := c.env.Store.Delete(ctx, rec); err != nil {
				return err
			}
		}
		logger.Debug("destroyed dependent members",
			zap.String("relationship", c.ref.Name()),
			zap.Int("count", len(records)))
		return nil

	default:
		// Bulk path: no per-member load, no per-member hooks.
		removed, err := c.env.Store.DeleteWhere(ctx,
			c.ref.RelatedName(), c.ref.ForeignKey(), c.owner.ID())
		if err != nil {
			return err
		}
		logger.Debug("bulk-deleted dependent members",
			zap.String("relationship", c.ref.Name()),
			zap.Int64("count", removed))
		return nil
	}
}
