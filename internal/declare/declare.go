// Package declare loads relationship declarations from YAML files and
// applies them to a reflection registry through the Builder, so that
// schemas can be defined and validated outside Go code.
package declare

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/relatekit/relate/internal/orm/reflection"
)

// File is the top-level structure of a declaration file.
type File struct {
	Resources []Resource `yaml:"resources"`
}

// Resource declares one entity type. A parent must be declared earlier in
// the same file.
type Resource struct {
	Name          string         `yaml:"name"`
	Parent        string         `yaml:"parent,omitempty"`
	Attributes    []string       `yaml:"attributes,omitempty"`
	Relationships []Relationship `yaml:"relationships,omitempty"`
}

// Relationship declares one relationship of a resource.
type Relationship struct {
	Name    string                 `yaml:"name"`
	Kind    string                 `yaml:"kind"`
	Options map[string]interface{} `yaml:"options,omitempty"`
}

// Load reads and parses a declaration file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read declaration file: %w", err)
	}
	return Parse(data)
}

// Parse parses declaration file contents.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse declaration file: %w", err)
	}
	return &f, nil
}

// Apply defines every resource and builds every relationship against the
// registry. Declaration errors carry the offending resource and
// relationship; the first error stops the application, matching the
// fail-fast contract of the Builder.
func Apply(f *File, reg *reflection.Registry, b *reflection.Builder) error {
	for _, res := range f.Resources {
		var parent *reflection.Type
		if res.Parent != "" {
			p, ok := reg.Get(res.Parent)
			if !ok {
				return fmt.Errorf("resource %s: parent %s is not declared", res.Name, res.Parent)
			}
			parent = p
		}

		t, err := reg.Define(res.Name, parent, res.Attributes...)
		if err != nil {
			return fmt.Errorf("resource %s: %w", res.Name, err)
		}

		for _, rel := range res.Relationships {
			kind, ok := reflection.ParseKind(rel.Kind)
			if !ok {
				return &reflection.ConfigurationError{
					Owner:  res.Name,
					Name:   rel.Name,
					Detail: fmt.Sprintf("unknown relationship kind %q", rel.Kind),
				}
			}
			if _, err := b.Build(t, rel.Name, kind, rel.Options); err != nil {
				return err
			}
		}
	}
	return nil
}
