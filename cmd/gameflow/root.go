package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/gameflow/internal/config"
	"github.com/aretw0/gameflow/internal/logging"
	"github.com/aretw0/gameflow/internal/presentation/tui"
)

var (
	appConfig *config.Config
	logger    = logging.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "gameflow",
	Short: "GameFlow compiles and runs event-driven flow graphs",
	Long: `GameFlow turns node graphs written in YAML, HCL or JSON into compiled
flows and drives their instances from the terminal or over HTTP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(path, !cmd.Flags().Changed("config"))
		if err != nil {
			return err
		}
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			cfg.LogLevel = "debug"
		}
		appConfig = cfg
		logger = logging.NewWithFormat(cmd.ErrOrStderr(), cfg.Level(), cfg.LogFormat)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "gameflow.yaml", "Configuration file")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging on stderr")
}

// markdownRenderer styles markdown with glamour when w is a terminal.
func markdownRenderer(w io.Writer) tui.Renderer {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return tui.Plain
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}
	r, err := tui.NewRenderer(width)
	if err != nil {
		logger.Warn("falling back to plain output", "error", err)
		return tui.Plain
	}
	return r
}

// printSystemMessage prints a standardized system message to w.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}
