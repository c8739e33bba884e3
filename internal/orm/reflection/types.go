// Package reflection provides the declaration layer of the relationship
// engine: immutable per-relationship metadata (Reflection), a per-type
// registry with explicit parent composition, and a builder that validates
// declared options against a fixed allow-list and installs the relationship
// access capability table on the owner type.
package reflection

import (
	"context"

	"github.com/relatekit/relate/internal/orm/record"
)

// Kind represents the kind of a declared relationship. It is a closed set:
// every runtime capability is implemented per kind, never resolved
// dynamically.
type Kind int

const (
	// ToOne is a single-valued relationship (belongs-to).
	ToOne Kind = iota
	// ToMany is a collection-valued relationship (has-many).
	ToMany
)

// String returns the string representation of the relationship kind.
func (k Kind) String() string {
	switch k {
	case ToOne:
		return "to_one"
	case ToMany:
		return "to_many"
	default:
		return "unknown"
	}
}

// ParseKind converts a declaration string to a Kind. Both the internal names
// and the conventional declaration spellings are accepted.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "to_one", "belongs_to", "has_one":
		return ToOne, true
	case "to_many", "has_many":
		return ToMany, true
	default:
		return 0, false
	}
}

// Options holds the declared options of a relationship.
type Options map[string]interface{}

// Declaration option keys. The base set applies to every kind; ToMany
// relationships additionally accept OptEachSerializer and OptDependent.
const (
	OptVirtualValue   = "virtual_value"
	OptEmbed          = "embed"
	OptExcept         = "except"
	OptOnly           = "only"
	OptSerializer     = "serializer"
	OptEachSerializer = "each_serializer"
	OptDependent      = "dependent"
)

// Runtime is the capability surface an association runtime exposes through
// the accessor table. The association package implements it per kind.
type Runtime interface {
	// ReadValue resolves the relationship value, reloading first when
	// forceReload is set or the cached resolution is stale.
	ReadValue(ctx context.Context, forceReload bool) (interface{}, error)
	// WriteValue replaces the relationship value.
	WriteValue(ctx context.Context, value interface{}) error
}

// RuntimeFactory constructs the runtime bound to one (owner instance,
// reflection) pair. Runtimes are cheap and rebuilt on every access; state
// that must survive across accesses lives on the owner record.
type RuntimeFactory func(owner *record.Record, ref *Reflection) Runtime
