package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/aretw0/gameflow"
	"github.com/aretw0/gameflow/internal/cli"
	"github.com/aretw0/gameflow/internal/presentation/tui"
	"github.com/aretw0/gameflow/pkg/codec"
	"github.com/aretw0/gameflow/pkg/domain"
	"github.com/aretw0/gameflow/pkg/ports"
	"github.com/aretw0/gameflow/pkg/runner"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [graph]",
	Short: "Run a flow instance interactively",
	Long: `Starts (or resumes) an instance of the graph and feeds it one event per
input line, e.g. "bribe amount=12". An empty line sends a tick. With --json the
input and output are NDJSON. With --watch the graph is recompiled on save and
the instance carries over when its node still exists.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := cli.GraphPath(args, appConfig)
		if err != nil {
			return err
		}
		jsonMode, _ := cmd.Flags().GetBool("json")
		watchMode, _ := cmd.Flags().GetBool("watch")
		auto, _ := cmd.Flags().GetBool("auto")
		fresh, _ := cmd.Flags().GetBool("fresh")
		instanceID, _ := cmd.Flags().GetString("instance")
		rawBindings, _ := cmd.Flags().GetString("bindings")

		live := watchMode || appConfig.Engine.LiveCompile
		if live && auto {
			return errors.New("--watch and --auto cannot be used together")
		}

		var bindings map[string]any
		if rawBindings != "" {
			if err := sonic.UnmarshalString(rawBindings, &bindings); err != nil {
				return fmt.Errorf("error parsing --bindings JSON: %w", err)
			}
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		backend, err := cli.OpenStore(sigCtx, appConfig.Store, logger)
		if err != nil {
			return err
		}
		defer backend.Close()

		engine, err := cli.LoadEngine(sigCtx, path, appConfig, logger)
		if err != nil {
			return err
		}
		if live && instanceID == "" {
			instanceID = cli.WatchInstanceID(path)
		}
		if instanceID == "" {
			instanceID = runner.DefaultInstanceID
		}

		out := cmd.OutOrStdout()
		if auto {
			return runUnattended(sigCtx, out, engine, backend.Store, instanceID, bindings, fresh)
		}

		var handler runner.IOHandler
		if jsonMode {
			handler = runner.NewJSONHandler(cmd.InOrStdin(), out)
		} else {
			if f, ok := out.(*os.File); ok && f == os.Stdout {
				tui.PrintBanner(out)
			}
			text := runner.NewTextHandler(cmd.InOrStdin(), out)
			text.Renderer = runner.ContentRenderer(markdownRenderer(out))
			handler = text
		}

		opts := []runner.Option{
			runner.WithEngine(engine),
			runner.WithStore(backend.Store),
			runner.WithLogger(logger),
			runner.WithHandler(handler),
			runner.WithInstanceID(instanceID),
			runner.WithBindings(bindings),
			runner.WithFresh(fresh),
			runner.WithInputLimits(runner.InputLimits{
				MaxLineSize: appConfig.Runner.MaxInputSize,
				MaxFields:   appConfig.Runner.MaxEventFields,
			}),
		}
		if live {
			changes, err := engine.Watch(sigCtx)
			if err != nil {
				return err
			}
			opts = append(opts, runner.WithReload(changes))
			if !jsonMode {
				printSystemMessage(out, "Watching '%s' as instance '%s'.", path, instanceID)
			}
		}

		r := runner.NewRunner(opts...)
		state, err := r.Run(sigCtx)
		if jsonMode {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		return reportCompletion(out, r.Engine(), state, err, sigCtx.Signal())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")
	runCmd.Flags().BoolP("watch", "w", false, "Recompile the graph when its file changes")
	runCmd.Flags().Bool("auto", false, "Advance with ticks until the flow terminates, then print the state")
	runCmd.Flags().Bool("fresh", false, "Discard the stored instance and start over")
	runCmd.Flags().StringP("instance", "i", "", "Instance id used as the persistence key")
	runCmd.Flags().String("bindings", "", "Initial variables as a JSON object")
}

func reportCompletion(w io.Writer, engine *gameflow.Engine, state *domain.FlowState, err error, sig os.Signal) error {
	name := "?"
	if state != nil {
		if node, ok := engine.Node(state); ok {
			name = node.Name
		}
	}
	switch {
	case err == nil:
		printSystemMessage(w, "Finished at '%s' node.", name)
		return nil
	case errors.Is(err, context.Canceled):
		if sig != nil && sig != os.Interrupt {
			printSystemMessage(w, "Terminated at '%s' node.", name)
		} else {
			printSystemMessage(w, "Interrupted at '%s' node.", name)
		}
		return nil
	default:
		return err
	}
}

// runUnattended advances an instance with ticks and prints its final state.
// Event-driven nodes that reject ticks stop the run with an error.
func runUnattended(ctx context.Context, w io.Writer, engine *gameflow.Engine, store ports.StateStore, id string, bindings map[string]any, fresh bool) error {
	if fresh {
		if err := store.Delete(ctx, id); err != nil {
			return err
		}
	}
	state, err := store.Load(ctx, id)
	switch {
	case errors.Is(err, domain.ErrInstanceNotFound) || (err == nil && state.Flow != engine.Flow().Name):
		state, err = engine.Start(ctx, id, bindings)
		if err != nil {
			return err
		}
	case err != nil:
		return err
	}

	next, err := engine.Advance(ctx, state, appConfig.Engine.MaxSteps)
	if next != nil {
		state = next
	}
	if serr := store.Save(ctx, id, state); serr != nil {
		return serr
	}
	if err != nil {
		return err
	}
	data, err := codec.MarshalState(state)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}
