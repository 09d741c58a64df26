package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/gameflow"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of gameflow",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "gameflow version %s\n", strings.TrimSpace(gameflow.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
