package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the tree",
	Long: `Bootstraps the canvas from the layout (or loads a saved snapshot) and prints the tree
as a markdown outline, a Mermaid diagram (graph TD), JSON or YAML.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		snapshot, _ := cmd.Flags().GetString("snapshot")

		ctx := context.Background()
		rt, err := cli.NewRuntime(ctx, cfg, os.Stderr)
		if err != nil {
			return fmt.Errorf("error initializing arbor: %w", err)
		}
		defer rt.Close(ctx)

		title := cfg.Layout
		if snapshot != "" {
			if err := rt.Engine.LoadSnapshot(ctx, snapshot); err != nil {
				return err
			}
			title = snapshot
		}

		out, err := cli.Render(title, rt.Engine.Tree(), format)
		if err != nil {
			return err
		}
		if format == cli.FormatOutline {
			render := tui.RendererFor(cmd.OutOrStdout())
			if out, err = render(out); err != nil {
				return err
			}
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringP("format", "f", cli.FormatOutline, "Output format: outline, mermaid, json or yaml")
	inspectCmd.Flags().StringP("snapshot", "s", "", "Inspect a saved snapshot instead of the layout")
}
