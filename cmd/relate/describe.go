package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/relatekit/relate/internal/declare"
	"github.com/relatekit/relate/internal/orm/reflection"
)

var describeCmd = &cobra.Command{
	Use:   "describe [schema file]",
	Short: "Describe the relationships declared in a schema file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := schemaPath(args)

		f, err := declare.Load(path)
		if err != nil {
			return err
		}

		reg := reflection.NewRegistry()
		b := reflection.NewBuilder(reg, nil)
		if err := declare.Apply(f, reg, b); err != nil {
			return err
		}

		heading := color.New(color.Bold, color.FgCyan)
		for _, name := range reg.List() {
			t, _ := reg.Get(name)
			heading.Printf("%s\n", name)
			for _, ref := range t.Reflections() {
				inherited := ""
				if ref.Owner() != t {
					inherited = fmt.Sprintf(" (inherited from %s)", ref.Owner().Name())
				}
				fmt.Printf("  %-20s %-8s -> %s%s\n",
					ref.Name(), ref.Kind(), ref.RelatedName(), inherited)
				if opts := formatOptions(ref.Options()); opts != "" {
					fmt.Printf("  %-20s %s\n", "", opts)
				}
			}
		}
		return nil
	},
}

func formatOptions(opts reflection.Options) string {
	if len(opts) == 0 {
		return ""
	}
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, opts[k]))
	}
	return strings.Join(parts, ", ")
}
