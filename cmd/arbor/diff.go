package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff <a> <b>",
	Short: "Compare two snapshots",
	Long: `Compares two trees line by line. Each argument is a layout or snapshot file,
or the name of a snapshot saved in the configured store.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		exitCode, _ := cmd.Flags().GetBool("exit-code")

		ctx := context.Background()
		rt, err := cli.NewRuntime(ctx, cfg, os.Stderr)
		if err != nil {
			return fmt.Errorf("error initializing arbor: %w", err)
		}
		defer rt.Close(ctx)

		a, err := rt.ResolveSnapshot(ctx, args[0])
		if err != nil {
			return err
		}
		b, err := rt.ResolveSnapshot(ctx, args[1])
		if err != nil {
			return err
		}

		out, changed, err := cli.Diff(a, b)
		if err != nil {
			return err
		}
		if !changed {
			fmt.Fprintln(cmd.OutOrStdout(), "No differences.")
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		if exitCode {
			rt.Close(ctx)
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().Bool("exit-code", false, "Exit with status 1 when the trees differ")
}
