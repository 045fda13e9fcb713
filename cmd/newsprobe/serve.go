package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/FranksOps/newsprobe/internal/api"
	"github.com/FranksOps/newsprobe/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the search API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("addr", ":8080", "listen address")
	f.String("metrics-addr", "", "also serve /metrics on a separate address")
	mustBind("server.addr", f.Lookup("addr"))
	mustBind("server.metrics_addr", f.Lookup("metrics-addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	provider, _, err := newProvider()
	if err != nil {
		return err
	}
	backend, err := openBackend(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer backend.Close()

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv, err := api.New(api.Config{Provider: provider, Backend: backend, Logger: logger})
	if err != nil {
		return err
	}

	if cfg.Server.MetricsAddr != "" {
		m := metrics.Start(cfg.Server.MetricsAddr, logger)
		defer m.Stop(context.Background())
	}
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
