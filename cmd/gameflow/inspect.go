package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/gameflow/internal/cli"
	"github.com/aretw0/gameflow/internal/presentation/tui"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [graph]",
	Short: "Describe a compiled flow",
	Long: `Prints the compiled node table with its indices, variables and events.
With --instance, the stored instance cursor and variables are shown as well.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := cli.GraphPath(args, appConfig)
		if err != nil {
			return err
		}
		engine, err := cli.LoadEngine(cmd.Context(), path, appConfig, logger)
		if err != nil {
			return err
		}
		id, _ := cmd.Flags().GetString("instance")
		state, err := loadInstance(cmd, id)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		text, err := markdownRenderer(out)(tui.FlowReport(engine.Flow(), state))
		if err != nil {
			return err
		}
		fmt.Fprint(out, text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringP("instance", "i", "", "Include a stored instance")
}
