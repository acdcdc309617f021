package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/danielolaszy/nudge/internal/config"
	"github.com/danielolaszy/nudge/internal/logging"
	"github.com/danielolaszy/nudge/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// serveCmd runs the HTTP trigger endpoint until SIGINT or SIGTERM.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP trigger endpoint",
	Long: `Serve the HTTP trigger endpoint.

POST /invoke with {"channel": "#reviews", "jql": "project = MBE", "at": "@team"}
runs one digest and answers "ok" once it has been posted. Runs are executed
one at a time; concurrent triggers wait in a queue.

Example:
  nudge serve --addr 0.0.0.0:8001`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := config.ValidateConfig(cfg); err != nil {
			return err
		}

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		pipeline, err := newPipeline(cfg)
		if err != nil {
			return err
		}

		runner := server.NewRunner(pipeline, cfg.Server.QueueSize, cfg.Server.RunTimeout)
		srv := server.NewServer(runner, cfg.Server.Addr)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			defer runner.Close()
			return srv.Serve(gctx)
		})
		g.Go(func() error {
			<-gctx.Done()
			logging.Info("shutting down", "cause", context.Cause(gctx))
			return nil
		})

		logging.Info("starting digest service",
			"addr", cfg.Server.Addr,
			"run_timeout", cfg.Server.RunTimeout,
			"queue_size", cfg.Server.QueueSize)

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address; overrides LISTEN_ADDR")
}
