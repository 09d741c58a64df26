package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/gameflow/internal/cli"
	"github.com/aretw0/gameflow/pkg/codec"
)

var instancesCmd = &cobra.Command{
	Use:     "instances",
	Aliases: []string{"instance"},
	Short:   "Manage stored flow instances",
	Long:    `List, show and remove the instances kept by the configured state store.`,
}

var instancesLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored instances",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := cli.OpenStore(cmd.Context(), appConfig.Store, logger)
		if err != nil {
			return err
		}
		defer backend.Close()

		ids, err := backend.Store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list instances: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No stored instances found.")
			return nil
		}
		fmt.Fprintln(out, "Stored Instances:")
		for _, id := range ids {
			fmt.Fprintln(out, "- "+id)
		}
		return nil
	},
}

var instancesShowCmd = &cobra.Command{
	Use:   "show <instance-id>",
	Short: "Print the state of an instance as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := loadInstance(cmd, args[0])
		if err != nil {
			return fmt.Errorf("load instance '%s': %w", args[0], err)
		}
		data, err := codec.MarshalState(state)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var instancesRmCmd = &cobra.Command{
	Use:   "rm <instance-id>...",
	Short: "Remove one or more instances",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := cli.OpenStore(cmd.Context(), appConfig.Store, logger)
		if err != nil {
			return err
		}
		defer backend.Close()

		var errs []error
		for _, id := range args {
			if err := backend.Store.Delete(cmd.Context(), id); err != nil {
				errs = append(errs, fmt.Errorf("remove '%s': %w", id, err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed instance '%s'\n", id)
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(instancesCmd)
	instancesCmd.AddCommand(instancesLsCmd)
	instancesCmd.AddCommand(instancesShowCmd)
	instancesCmd.AddCommand(instancesRmCmd)
}
