package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/gameflow/internal/cli"
	"github.com/aretw0/gameflow/internal/presentation/graph"
	"github.com/aretw0/gameflow/pkg/domain"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [graph]",
	Short: "Export the flow graph visualization",
	Long: `Compiles the graph and outputs a Mermaid diagram (graph TD). With
--instance, the visited and current nodes of a stored instance are highlighted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path, err := cli.GraphPath(args, appConfig)
		if err != nil {
			return err
		}
		engine, err := cli.LoadEngine(ctx, path, appConfig, logger)
		if err != nil {
			return err
		}

		id, _ := cmd.Flags().GetString("instance")
		state, err := loadInstance(cmd, id)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(engine.Flow(), graph.OverlayOf(state)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("instance", "i", "", "Highlight the path of a stored instance")
}

// loadInstance reads a stored instance from the configured store. An empty
// id yields a nil state.
func loadInstance(cmd *cobra.Command, id string) (*domain.FlowState, error) {
	if id == "" {
		return nil, nil
	}
	backend, err := cli.OpenStore(cmd.Context(), appConfig.Store, logger)
	if err != nil {
		return nil, err
	}
	defer backend.Close()
	return backend.Store.Load(cmd.Context(), id)
}
