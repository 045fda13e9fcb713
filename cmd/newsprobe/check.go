package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/FranksOps/newsprobe/internal/gnews"
	"github.com/FranksOps/newsprobe/internal/pipeline"
	"github.com/FranksOps/newsprobe/internal/scraper"
)

var checkFlags struct {
	terms       string
	locales     []string
	robotsAgent string
	countries   bool
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe the provider once per locale and report OK or Error",
	Long: `Run a canned query for every locale and print whether the provider
answered with results. Nothing is stored. Exits non-zero when any locale
fails.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	f := checkCmd.Flags()
	f.StringVar(&checkFlags.terms, "terms", "news", "query to send")
	f.StringSliceVar(&checkFlags.locales, "locales", []string{"en-US", "de-DE", "fr-FR", "ja-JP"}, "locales to probe")
	f.BoolVar(&checkFlags.countries, "countries", false, "probe every country with a national domain instead of --locales")
	f.StringVar(&checkFlags.robotsAgent, "robots-agent", "", "also report whether robots.txt allows each request for this agent")
}

func runCheck(cmd *cobra.Command, args []string) error {
	provider, fetcher, err := newProvider()
	if err != nil {
		return err
	}
	var robots *scraper.RobotsAuditor
	if checkFlags.robotsAgent != "" {
		robots = scraper.NewRobotsAuditor(fetcher, logger)
	}

	var queries []gnews.Query
	if checkFlags.countries {
		tables, err := loadTables()
		if err != nil {
			return err
		}
		for _, cc := range tables.Countries() {
			queries = append(queries, gnews.Query{Terms: checkFlags.terms, Language: "en-" + cc, Country: cc})
		}
	} else {
		for _, loc := range checkFlags.locales {
			queries = append(queries, gnews.Query{Terms: checkFlags.terms, Language: loc})
		}
	}

	runner, err := pipeline.New(provider, pipeline.Config{
		Concurrency: cfg.Pipeline.Concurrency,
		Limit:       5,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	outcomes, runErr := runner.Run(cmd.Context(), queries)

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	failed := 0
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			failed++
			fmt.Fprintf(tw, "Error\t%s\t%s\n", o.Query.Language, firstLine(o.Err.Error()))
		case len(o.Record.Results) == 0:
			failed++
			fmt.Fprintf(tw, "Error\t%s\tno results\n", o.Query.Language)
		default:
			fmt.Fprintf(tw, "OK\t%s\t%d results via %s\n", o.Query.Language, len(o.Record.Results), o.Record.RequestURL)
		}
		if robots != nil && o.Record != nil {
			allowed, err := robots.Allowed(cmd.Context(), o.Record.RequestURL, checkFlags.robotsAgent)
			if err != nil {
				fmt.Fprintf(tw, "\t%s\trobots.txt: %v\n", o.Query.Language, err)
			} else {
				fmt.Fprintf(tw, "\t%s\trobots.txt allows %s: %t\n", o.Query.Language, checkFlags.robotsAgent, allowed)
			}
		}
	}
	if stats := fetcher.ProxyStats(); len(stats) > 0 {
		fmt.Fprintln(tw)
		now := time.Now()
		for _, st := range stats {
			state := "ready"
			if st.Resting(now) {
				state = "resting until " + st.RestUntil.Format(time.TimeOnly)
			}
			fmt.Fprintf(tw, "proxy\t%s\t%d ok, %d failures, %d blocks, %s\n", st.URL, st.Successes, st.Failures, st.Blocks, state)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if runErr != nil {
		return runErr
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d locales failed", failed, len(outcomes))
	}
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
