package reflection

import (
	"context"
	"fmt"

	"github.com/relatekit/relate/internal/orm/record"
)

// baseOptions is the option allow-list shared by every relationship kind.
var baseOptions = map[string]struct{}{
	OptVirtualValue: {},
	OptEmbed:        {},
	OptExcept:       {},
	OptOnly:         {},
	OptSerializer:   {},
}

// toManyOptions extends the base allow-list for collection relationships.
var toManyOptions = map[string]struct{}{
	OptEachSerializer: {},
	OptDependent:      {},
}

// dependentPolicies are the recognized values of the dependent option.
var dependentPolicies = map[string]struct{}{
	"delete_all":              {},
	"destroy":                 {},
	"restrict_with_exception": {},
	"restrict_with_error":     {},
}

// Builder validates relationship declarations, constructs reflections, and
// wires the access capability table onto the owner type. The runtime factory
// is injected so the declaration layer carries no dependency on the
// association runtime.
type Builder struct {
	reg     *Registry
	factory RuntimeFactory
}

// NewBuilder creates a Builder against the given registry. factory may be
// nil, in which case reflections are registered without accessors (useful
// for validation-only tooling).
func NewBuilder(reg *Registry, factory RuntimeFactory) *Builder {
	return &Builder{reg: reg, factory: factory}
}

// Build declares a relationship on the owner type. The name must be a plain
// identifier and every option key must be in the allow-list for the kind;
// violations fail with a ConfigurationError at declaration time, before any
// instance exists.
//
// A reader/writer accessor pair is installed on the owner type unless the
// type already declares an attribute of the same name, in which case the
// pre-existing attribute wins and only the reflection is registered.
func (b *Builder) Build(owner *Type, name string, kind Kind, opts Options) (*Reflection, error) {
	if owner == nil {
		return nil, &ConfigurationError{Name: name, Detail: "owner type is nil"}
	}
	if !isIdentifier(name) {
		return nil, &ConfigurationError{
			Owner:  owner.Name(),
			Name:   name,
			Detail: "name must be a plain identifier",
		}
	}
	if err := b.checkOptions(owner, name, kind, opts); err != nil {
		return nil, err
	}

	related, err := relatedName(owner, name, kind, opts)
	if err != nil {
		return nil, err
	}

	ref := &Reflection{
		kind:    kind,
		name:    name,
		options: copyOptions(opts),
		owner:   owner,
		related: related,
		reg:     b.reg,
	}

	var acc *accessor
	if b.factory != nil && !owner.HasAttribute(name) {
		acc = b.buildAccessor(ref)
	}

	if err := owner.addReflection(ref, acc); err != nil {
		return nil, err
	}
	return ref, nil
}

// checkOptions validates the declared options against the allow-list for the
// kind.
func (b *Builder) checkOptions(owner *Type, name string, kind Kind, opts Options) error {
	for key, value := range opts {
		if _, ok := baseOptions[key]; ok {
			continue
		}
		if kind == ToMany {
			if _, ok := toManyOptions[key]; ok {
				if key == OptDependent {
					if err := checkDependent(owner, name, value); err != nil {
						return err
					}
				}
				continue
			}
		}
		return &ConfigurationError{
			Owner:  owner.Name(),
			Name:   name,
			Detail: fmt.Sprintf("unknown option %q for %s relationship", key, kind),
		}
	}
	return nil
}

// checkDependent validates the cascade policy value of the dependent option.
func checkDependent(owner *Type, name string, value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return &ConfigurationError{
			Owner:  owner.Name(),
			Name:   name,
			Detail: fmt.Sprintf("dependent must be a string, got %T", value),
		}
	}
	if _, ok := dependentPolicies[s]; !ok {
		return &ConfigurationError{
			Owner:  owner.Name(),
			Name:   name,
			Detail: fmt.Sprintf("unknown dependent policy %q", s),
		}
	}
	return nil
}

// relatedName derives the related type name from the relationship name:
// "comments" -> "Comment", "author" -> "Author". A serializer option naming
// a type directly takes precedence.
func relatedName(owner *Type, name string, kind Kind, opts Options) (string, error) {
	if v, ok := opts[OptSerializer]; ok {
		if s, ok := v.(string); ok && s != "" {
			return typeNameFromSerializer(s), nil
		}
	}
	if v, ok := opts[OptEachSerializer]; ok {
		if s, ok := v.(string); ok && s != "" {
			return typeNameFromSerializer(s), nil
		}
	}

	base := name
	if kind == ToMany {
		base = singularize(name)
	}
	if base == "" {
		return "", &ConfigurationError{
			Owner:  owner.Name(),
			Name:   name,
			Detail: "cannot derive related type name",
		}
	}
	return toCamelCase(base), nil
}

// buildAccessor wires the reader/writer closures that delegate to a freshly
// constructed runtime on every access.
func (b *Builder) buildAccessor(ref *Reflection) *accessor {
	return &accessor{
		ref: ref,
		read: func(ctx context.Context, owner *record.Record, forceReload bool) (interface{}, error) {
			return b.factory(owner, ref).ReadValue(ctx, forceReload)
		},
		write: func(ctx context.Context, owner *record.Record, value interface{}) error {
			return b.factory(owner, ref).WriteValue(ctx, value)
		},
	}
}

func copyOptions(opts Options) Options {
	out := make(Options, len(opts))
	for k, v := range opts {
		out[k] = v
	}
	return out
}

// typeNameFromSerializer strips a "Serializer" suffix: "CommentSerializer"
// -> "Comment".
func typeNameFromSerializer(s string) string {
	const suffix = "Serializer"
	if len(s) > len(suffix) && s[len(s)-len(suffix):] == suffix {
		return s[:len(s)-len(suffix)]
	}
	return s
}

// singularize applies the naive English plural rules used for relationship
// names: "comments" -> "comment", "stories" -> "story".
func singularize(s string) string {
	switch {
	case len(s) > 3 && s[len(s)-3:] == "ies":
		return s[:len(s)-3] + "y"
	case len(s) > 2 && s[len(s)-2:] == "es" && !endsInVowelE(s):
		return s[:len(s)-2]
	case len(s) > 1 && s[len(s)-1] == 's':
		return s[:len(s)-1]
	default:
		return s
	}
}

// endsInVowelE distinguishes "notes" (note + s) from "boxes" (box + es).
func endsInVowelE(s string) bool {
	if len(s) < 3 {
		return false
	}
	switch s[len(s)-3] {
	case 'x', 's', 'z', 'h':
		return false
	}
	return true
}

// toCamelCase converts a snake_case relationship name to a CamelCase type
// name.
func toCamelCase(s string) string {
	var result []rune
	upper := true
	for _, r := range s {
		if r == '_' {
			upper = true
			continue
		}
		if upper && r >= 'a' && r <= 'z' {
			r = r - ('a' - 'A')
		}
		upper = false
		result = append(result, r)
	}
	return string(result)
}
