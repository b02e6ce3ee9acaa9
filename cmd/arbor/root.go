package main

import (
	"fmt"
	"os"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	cfg     cli.Config
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Arbor is a tree state engine for drag-and-drop builders",
	Long: `Arbor keeps the nested element tree of a drag-and-drop builder in sync with
the containers that edit it, and serves it over HTTP, SSE and MCP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := cli.LoadConfig(v, cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default ./arbor.yaml)")
	flags.String("layout", "", "Layout file (YAML or JSON) that bootstraps the canvas")
	flags.String("store", "memory", "Snapshot store: memory, file, redis or sqlite")
	flags.String("store-path", "", "Snapshot directory (file) or database file (sqlite)")
	flags.String("redis-addr", "", "Redis address (redis store)")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.Bool("log-json", false, "Write logs as JSON")
	flags.String("trace", "none", "Span exporter: none or stdout")

	_ = v.BindPFlag("layout", flags.Lookup("layout"))
	_ = v.BindPFlag("store.driver", flags.Lookup("store"))
	_ = v.BindPFlag("store.path", flags.Lookup("store-path"))
	_ = v.BindPFlag("store.redis_addr", flags.Lookup("redis-addr"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("log.json", flags.Lookup("log-json"))
	_ = v.BindPFlag("telemetry.exporter", flags.Lookup("trace"))
}
