package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FranksOps/newsprobe/internal/analyzer"
	"github.com/FranksOps/newsprobe/internal/gnews"
	"github.com/FranksOps/newsprobe/internal/storage"
)

var searchFlags struct {
	language   string
	country    string
	timeRange  string
	safeSearch string
	limit      int
	format     string
	noStore    bool
}

var searchCmd = &cobra.Command{
	Use:   "search <terms...>",
	Short: "Run one Google News search",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.StringVarP(&searchFlags.language, "language", "l", "", "locale, e.g. de-DE (default en-US)")
	f.StringVarP(&searchFlags.country, "country", "c", "", "country code overriding the locale region")
	f.StringVar(&searchFlags.timeRange, "time-range", "", "day, week, month or year")
	f.StringVar(&searchFlags.safeSearch, "safesearch", "off", "off, moderate or strict")
	f.IntVarP(&searchFlags.limit, "limit", "n", 0, "maximum results (0 = all)")
	f.StringVarP(&searchFlags.format, "format", "f", "text", "text or json")
	f.BoolVar(&searchFlags.noStore, "no-store", false, "do not persist the search")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	q := gnews.Query{
		Terms:    strings.Join(args, " "),
		Language: searchFlags.language,
		Country:  searchFlags.country,
	}
	var err error
	if q.TimeRange, err = gnews.ParseTimeRange(searchFlags.timeRange); err != nil {
		return err
	}
	if q.SafeSearch, err = gnews.ParseSafeSearch(searchFlags.safeSearch); err != nil {
		return err
	}

	provider, _, err := newProvider()
	if err != nil {
		return err
	}

	rec, searchErr := provider.Search(ctx, q, searchFlags.limit)
	if rec != nil && !searchFlags.noStore {
		backend, err := openBackend(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		defer backend.Close()
		if err := backend.Save(ctx, rec); err != nil {
			logger.Error("failed to save record", "id", rec.ID, "err", err)
		}
	}
	if searchErr != nil {
		return searchErr
	}

	switch searchFlags.format {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	case "text":
		return printResults(cmd.OutOrStdout(), rec)
	}
	return errors.New("unknown format " + searchFlags.format)
}

func printResults(w io.Writer, rec *storage.SearchRecord) error {
	cov := analyzer.Analyze(rec.Terms, rec.Results)
	fmt.Fprintf(w, "%d results for %q (%s-%s), relevance %.0f%%\n\n",
		len(rec.Results), rec.Terms, rec.Language, rec.Country, cov.Relevance()*100)
	for i, r := range rec.Results {
		fmt.Fprintf(w, "%2d. %s\n    %s\n", i+1, r.Title, r.URL)
		if r.Content != "" {
			fmt.Fprintf(w, "    %s\n", r.Content)
		}
	}
	return nil
}
