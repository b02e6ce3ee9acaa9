package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/presentation/tui"
	httpAdapter "github.com/aretw0/arbor/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the Arbor engine in server mode, exposing the tree as a JSON API over HTTP,
bus events as Server-Sent Events on /events and Prometheus metrics on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sigCtx, stop := cli.NewSignalContext(context.Background())
		defer stop()

		rt, err := cli.NewRuntime(sigCtx, cfg, os.Stderr)
		if err != nil {
			return fmt.Errorf("error initializing arbor: %w", err)
		}
		defer rt.Close(context.Background())

		if tui.IsTerminal(os.Stdout) {
			tui.PrintBanner(os.Stdout)
		}

		opts := []httpAdapter.Option{httpAdapter.WithLogger(rt.Logger)}
		if rt.Registry != nil {
			opts = append(opts, httpAdapter.WithGatherer(rt.Registry))
		}
		srv := &http.Server{
			Addr:    cfg.Addr,
			Handler: httpAdapter.NewHandler(rt.Engine, opts...),
		}

		if cfg.Watch {
			go func() {
				if err := cli.WatchLayout(sigCtx, rt, os.Stdout); err != nil {
					rt.Logger.Error("Layout watcher stopped", "err", err)
				}
			}()
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting Arbor Server on %s\n", srv.Addr)
			if cfg.Layout != "" {
				fmt.Printf("Layout: %s\n", cfg.Layout)
			}
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-sigCtx.Done():
			fmt.Printf("\nStart shutdown... Signal: %v\n", cli.Signal(sigCtx))

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Arbor Server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on")
	serveCmd.Flags().BoolP("watch", "w", false, "Reload the layout when the file changes")
	_ = v.BindPFlag("addr", serveCmd.Flags().Lookup("addr"))
	_ = v.BindPFlag("watch", serveCmd.Flags().Lookup("watch"))
}
