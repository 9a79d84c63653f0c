// File path: cmd/lakectl/serve.go
package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/contentlake/contentlake/internal/api"
	"github.com/contentlake/contentlake/internal/common"
	"github.com/contentlake/contentlake/internal/watcher"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			orch, err := newOrchestrator(ctx)
			if err != nil {
				return err
			}
			defer orch.Close()

			cfg, err := api.LoadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			srv, err := api.NewServer(orch, &cfg)
			if err != nil {
				return err
			}
			return srv.ListenAndServe()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to $CONTENTLAKE_API_ADDR or :8080)")
	return cmd
}

func watchCmd() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the activity logs and keep the manifest and indexes current",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			orch, err := newOrchestrator(ctx)
			if err != nil {
				return err
			}
			defer orch.Close()

			w, err := watcher.New(orch, watcher.Config{Debounce: debounce})
			if err != nil {
				return err
			}
			// Catch up on writes that happened while nothing was watching.
			if err := w.Rebuild(ctx); err != nil {
				return err
			}
			if err := w.Start(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "watching; press Ctrl-C to stop")
			<-ctx.Done()
			w.Stop()
			common.Logger().Info("lakectl: watch stopped")
			return nil
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "quiet period before a rebuild (default 2s)")
	return cmd
}
