package main

import (
	"bytes"
	"fmt"
	"maps"
	"net/http"
	"slices"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/FranksOps/newsprobe/internal/gnews"
)

var languagesNames bool

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "Fetch the provider's interface languages as a YAML table",
	Long: `Fetch the provider preferences page and print the supported_languages
table, ready to paste into the file named by provider.tables.`,
	Args: cobra.NoArgs,
	RunE: runLanguages,
}

func init() {
	languagesCmd.Flags().BoolVar(&languagesNames, "names", false, "print code -> display name instead")
}

func runLanguages(cmd *cobra.Command, args []string) error {
	fetcher, err := newFetcher(cfg.Fetch)
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set("Accept-Language", "en-US,en;q=0.8")
	fetch, err := fetcher.Fetch(cmd.Context(), gnews.RequestDescriptor{URL: gnews.PreferencesURL, Header: header})
	if err != nil {
		return err
	}
	if fetch.StatusCode != http.StatusOK {
		return fmt.Errorf("preferences page returned %d", fetch.StatusCode)
	}

	languages, err := gnews.ParseSupportedLanguages(bytes.NewReader(fetch.Body))
	if err != nil {
		return err
	}
	if len(languages) == 0 {
		return fmt.Errorf("no languages found on %s", fetch.FinalURL)
	}

	var doc any = struct {
		SupportedLanguages []string `yaml:"supported_languages"`
	}{slices.Sorted(maps.Keys(languages))}
	if languagesNames {
		doc = map[string]map[string]string{"languages": languages}
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode languages: %w", err)
	}
	return enc.Close()
}
