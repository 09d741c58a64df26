package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/gameflow/internal/cli"
	"github.com/aretw0/gameflow/internal/presentation/tui"
	"github.com/aretw0/gameflow/pkg/codec"
	"github.com/aretw0/gameflow/pkg/registry"
	"github.com/aretw0/gameflow/pkg/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate [graph...]",
	Short: "Check graphs for consistency",
	Long: `Reports fatal issues (missing entry, broken links, type mismatches, unknown
behaviors) and warnings (unreachable nodes, dead ends, loops without exit) for
each graph file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths := args
		if len(paths) == 0 {
			path, err := cli.GraphPath(nil, appConfig)
			if err != nil {
				return err
			}
			paths = []string{path}
		}

		out := cmd.OutOrStdout()
		render := markdownRenderer(out)
		behaviors := registry.NewWithBuiltins()
		failed := 0
		for _, path := range paths {
			g, err := codec.ReadGraphFile(path)
			if err != nil {
				return err
			}
			report := validator.Validate(g, validator.WithBehaviors(behaviors))
			text, err := render(tui.ValidationReport(path, g, report))
			if err != nil {
				return err
			}
			fmt.Fprint(out, text)
			if !report.Valid() {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("validation failed for %d of %d graph(s)", failed, len(paths))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
