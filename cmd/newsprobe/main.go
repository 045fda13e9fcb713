// Command newsprobe searches Google News, stores every attempt and reports
// on result quality and interception rates.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/FranksOps/newsprobe/internal/config"
	"github.com/FranksOps/newsprobe/internal/logging"
)

var version = "dev"

var (
	v       = config.NewViper()
	cfg     *config.Config
	logger  *slog.Logger
	cfgPath string
)

var rootCmd = &cobra.Command{
	Use:   "newsprobe",
	Short: "Google News search probe",
	Long: `newsprobe runs Google News searches through a fingerprinted, proxied
transport, detects challenge pages and stores every search for reporting.

Configuration is read from --config (YAML) and NEWSPROBE_* environment
variables, e.g. NEWSPROBE_STORAGE_DRIVER=postgres.

Examples:
  newsprobe search --language de-DE corona virus
  newsprobe batch queries.tsv
  newsprobe report --format html > report.html
  newsprobe serve --addr :8080`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(v, cfgPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().String("log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "text", "text or json")
	rootCmd.PersistentFlags().String("storage", "sqlite", "storage driver: sqlite, postgres, json, csv or mongo")
	rootCmd.PersistentFlags().String("dsn", "newsprobe.db", "storage path, DSN or URI")
	mustBind("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	mustBind("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	mustBind("storage.driver", rootCmd.PersistentFlags().Lookup("storage"))
	mustBind("storage.dsn", rootCmd.PersistentFlags().Lookup("dsn"))

	rootCmd.AddCommand(searchCmd, batchCmd, reportCmd, serveCmd, checkCmd, languagesCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
