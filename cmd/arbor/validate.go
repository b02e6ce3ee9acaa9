package main

import (
	"fmt"

	"github.com/aretw0/arbor/pkg/adapters/layout"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/palette"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [layout]",
	Short: "Check a layout file for consistency",
	Long: `Parses the layout and reports missing or duplicate ids, unknown keys and
templates without a type.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Layout
		if len(args) > 0 {
			path = args[0]
		}
		if path == "" {
			return fmt.Errorf("no layout given: pass a path or set --layout")
		}

		f, err := layout.New(path).Read()
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		if err := palette.NewRegistry().Register(f.Palette...); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		root := domain.Node{ID: domain.RootID, Fields: f.Elements}
		fmt.Fprintf(cmd.OutOrStdout(), "Layout is valid! ✅ (%d elements, %d templates)\n", root.Count()-1, len(f.Palette))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
