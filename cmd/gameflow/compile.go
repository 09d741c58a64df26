package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/gameflow"
	"github.com/aretw0/gameflow/pkg/codec"
)

var compileCmd = &cobra.Command{
	Use:   "compile <graph>...",
	Short: "Compile graphs into flow JSON",
	Long: `Validates and compiles each graph. A single graph is written to stdout
unless --out is set; several graphs are written next to their sources (or into
--out) as <name>.flow.json.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outDir, _ := cmd.Flags().GetString("out")
		toStdout := len(args) == 1 && outDir == ""

		results := make([][]byte, len(args))
		eg, ctx := errgroup.WithContext(cmd.Context())
		eg.SetLimit(runtime.NumCPU())
		for i, path := range args {
			eg.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				data, err := compileFile(path)
				if err != nil {
					return err
				}
				if toStdout {
					results[i] = data
					return nil
				}
				target := flowPath(path, outDir)
				if err := os.WriteFile(target, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", target, err)
				}
				logger.Info("compiled", "graph", path, "flow", target)
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
		if toStdout {
			fmt.Fprintln(cmd.OutOrStdout(), string(results[0]))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().StringP("out", "o", "", "Directory for compiled flows")
}

func compileFile(path string) ([]byte, error) {
	graph, err := codec.ReadGraphFile(path)
	if err != nil {
		return nil, err
	}
	engine, err := gameflow.Compile(graph)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return codec.MarshalFlow(engine.Flow())
}

// flowPath maps quests/intro.yaml to quests/intro.flow.json, or into dir.
func flowPath(path, dir string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".flow.json"
	if dir == "" {
		dir = filepath.Dir(path)
	}
	return filepath.Join(dir, base)
}
