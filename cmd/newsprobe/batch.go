package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/FranksOps/newsprobe/internal/metrics"
	"github.com/FranksOps/newsprobe/internal/pipeline"
	"github.com/FranksOps/newsprobe/internal/report"
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Run every query in a file and store the records",
	Long: `Run every query in a file, one per line:

  terms[<TAB>language[<TAB>time_range[<TAB>safesearch[<TAB>country]]]]

Blank lines and lines starting with '#' are skipped. A summary of the
batch is printed when it finishes.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	f := batchCmd.Flags()
	f.Int("concurrency", 3, "parallel searches")
	f.Int("limit", 0, "maximum results per search (0 = all)")
	f.Bool("stop-on-block", true, "stop the batch after a hard block")
	f.String("metrics-addr", "", "serve /metrics on this address while running (default server.metrics_addr)")
	mustBind("pipeline.concurrency", f.Lookup("concurrency"))
	mustBind("pipeline.limit", f.Lookup("limit"))
	mustBind("pipeline.stop_on_block", f.Lookup("stop-on-block"))
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open batch: %w", err)
	}
	queries, err := pipeline.ParseBatch(file)
	file.Close()
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	if metricsAddr == "" {
		metricsAddr = cfg.Server.MetricsAddr
	}
	if metricsAddr != "" {
		srv := metrics.Start(metricsAddr, logger)
		defer srv.Stop(context.Background())
	}

	provider, _, err := newProvider()
	if err != nil {
		return err
	}
	backend, err := openBackend(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer backend.Close()

	runner, err := pipeline.New(provider, pipeline.Config{
		Concurrency: cfg.Pipeline.Concurrency,
		Limit:       cfg.Pipeline.Limit,
		Backend:     backend,
		StopOnBlock: cfg.Pipeline.StopOnBlock,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	logger.Info("starting batch", "queries", len(queries), "concurrency", cfg.Pipeline.Concurrency)
	outcomes, runErr := runner.Run(ctx, queries)

	summary := report.GenerateSummary(pipeline.Records(outcomes))
	if err := report.WriteText(cmd.OutOrStdout(), summary); err != nil {
		return err
	}
	return runErr
}
