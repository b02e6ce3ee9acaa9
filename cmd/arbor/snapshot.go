package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage saved snapshots",
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved snapshots",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(ctx context.Context, cmd *cobra.Command, rt *cli.Runtime, args []string) error {
		names, err := rt.Engine.ListSnapshots(ctx)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	}),
}

var snapshotSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save the layout's tree under a name",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, cmd *cobra.Command, rt *cli.Runtime, args []string) error {
		if err := rt.Engine.SaveSnapshot(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Snapshot '%s' saved.\n", args[0])
		return nil
	}),
}

var snapshotDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, cmd *cobra.Command, rt *cli.Runtime, args []string) error {
		if err := rt.Engine.DeleteSnapshot(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Snapshot '%s' deleted.\n", args[0])
		return nil
	}),
}

func withRuntime(fn func(ctx context.Context, cmd *cobra.Command, rt *cli.Runtime, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		rt, err := cli.NewRuntime(ctx, cfg, os.Stderr)
		if err != nil {
			return fmt.Errorf("error initializing arbor: %w", err)
		}
		defer rt.Close(ctx)
		return fn(ctx, cmd, rt, args)
	}
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotListCmd, snapshotSaveCmd, snapshotDeleteCmd)
}
