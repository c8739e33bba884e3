package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/relatekit/relate/internal/declare"
	"github.com/relatekit/relate/internal/orm/reflection"
)

var validateCmd = &cobra.Command{
	Use:   "validate [schema file]",
	Short: "Validate a relationship declaration file",
	Long: `Validate parses a declaration file and applies every resource and
relationship through the builder. Declaration errors (malformed names,
unknown options, unknown cascade policies) are reported with their owning
resource and relationship.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := schemaPath(args)

		f, err := declare.Load(path)
		if err != nil {
			return err
		}

		reg := reflection.NewRegistry()
		b := reflection.NewBuilder(reg, nil)
		if err := declare.Apply(f, reg, b); err != nil {
			color.Red("✗ %s: %v", path, err)
			os.Exit(1)
		}

		relationships := 0
		for _, name := range reg.List() {
			t, _ := reg.Get(name)
			relationships += len(t.Reflections())
		}

		color.Green("✓ %s is valid", path)
		fmt.Printf("  %d resources, %d relationships\n", reg.Count(), relationships)
		return nil
	},
}
