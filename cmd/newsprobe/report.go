package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/FranksOps/newsprobe/internal/report"
	"github.com/FranksOps/newsprobe/internal/storage"
)

var reportFlags struct {
	format string
	since  time.Duration
	terms  string
	limit  int
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize stored searches",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVarP(&reportFlags.format, "format", "f", "text", "text, json or html")
	f.DurationVar(&reportFlags.since, "since", 0, "only searches newer than this, e.g. 24h")
	f.StringVar(&reportFlags.terms, "terms", "", "only searches with these exact terms")
	f.IntVar(&reportFlags.limit, "limit", 0, "only the newest N searches")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	backend, err := openBackend(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer backend.Close()

	filter := storage.Filter{Terms: reportFlags.terms, Limit: reportFlags.limit}
	if reportFlags.since > 0 {
		since := time.Now().Add(-reportFlags.since)
		filter.Since = &since
	}
	records, err := backend.Query(ctx, filter)
	if err != nil {
		return fmt.Errorf("query records: %w", err)
	}

	summary := report.GenerateSummary(records)
	out := cmd.OutOrStdout()
	switch reportFlags.format {
	case "text":
		return report.WriteText(out, summary)
	case "json":
		return report.WriteJSON(out, summary)
	case "html":
		return report.WriteHTML(out, summary)
	}
	return fmt.Errorf("unknown format %q", reportFlags.format)
}
