package gnews

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

const (
	defaultDomain          = "google.com"
	defaultChallengeHost   = "sorry.google.com"
	defaultIndexRedirect   = "/sorry/IndexRedirect"
	defaultChallengePrefix = "/sorry"
)

// defaultDomains maps ISO country codes to the national Google domain.
// US is left out on purpose: google.us redirects to google.com.
var defaultDomains = map[string]string{
	"BG": "google.bg",
	"CZ": "google.cz",
	"DE": "google.de",
	"DK": "google.dk",
	"AT": "google.at",
	"CH": "google.ch",
	"GR": "google.gr",
	"AU": "google.com.au",
	"CA": "google.ca",
	"GB": "google.co.uk",
	"ID": "google.co.id",
	"IE": "google.ie",
	"IN": "google.co.in",
	"MY": "google.com.my",
	"NZ": "google.co.nz",
	"PH": "google.com.ph",
	"SG": "google.com.sg",
	"ZA": "google.co.za",
	"AR": "google.com.ar",
	"CL": "google.cl",
	"ES": "google.es",
	"MX": "google.com.mx",
	"EE": "google.ee",
	"FI": "google.fi",
	"BE": "google.be",
	"FR": "google.fr",
	"IL": "google.co.il",
	"HR": "google.hr",
	"HU": "google.hu",
	"IT": "google.it",
	"JP": "google.co.jp",
	"KR": "google.co.kr",
	"LT": "google.lt",
	"LV": "google.lv",
	"NO": "google.no",
	"NL": "google.nl",
	"PL": "google.pl",
	"BR": "google.com.br",
	"PT": "google.pt",
	"RO": "google.ro",
	"RU": "google.ru",
	"SK": "google.sk",
	"SI": "google.si",
	"SE": "google.se",
	"TH": "google.co.th",
	"TR": "google.com.tr",
	"UA": "google.com.ua",
	"HK": "google.com.hk",
	"TW": "google.com.tw",
}

var defaultTimeRanges = map[TimeRange]string{
	TimeRangeDay:   "d",
	TimeRangeWeek:  "w",
	TimeRangeMonth: "m",
	TimeRangeYear:  "y",
}

var defaultSafeSearch = map[SafeSearch]string{
	SafeSearchOff:      "off",
	SafeSearchModerate: "medium",
	SafeSearchStrict:   "high",
}

// Config holds the provider lookup tables shared by the RequestBuilder and the
// Extractor. A Config is never modified after construction and can be shared
// freely between goroutines.
type Config struct {
	defaultDomain   string
	domains         map[string]string
	timeRanges      map[TimeRange]string
	safeSearch      map[SafeSearch]string
	languages       []string
	supported       []language.Tag
	matcher         language.Matcher
	challengeHost   string
	indexRedirect   string
	challengePrefix string
}

// DefaultConfig returns the built-in tables.
func DefaultConfig() *Config {
	return &Config{
		defaultDomain:   defaultDomain,
		domains:         maps.Clone(defaultDomains),
		timeRanges:      maps.Clone(defaultTimeRanges),
		safeSearch:      maps.Clone(defaultSafeSearch),
		challengeHost:   defaultChallengeHost,
		indexRedirect:   defaultIndexRedirect,
		challengePrefix: defaultChallengePrefix,
	}
}

// Tables is the on-disk form of the provider lookup tables. Every field is
// optional; entries overlay the built-in defaults.
type Tables struct {
	DefaultDomain      string            `yaml:"default_domain"`
	Domains            map[string]string `yaml:"domains"`
	TimeRanges         map[string]string `yaml:"time_ranges"`
	SafeSearch         map[string]string `yaml:"safesearch"`
	SupportedLanguages []string          `yaml:"supported_languages"`
	ChallengeHost      string            `yaml:"challenge_host"`
	IndexRedirectPath  string            `yaml:"index_redirect_path"`
	ChallengePrefix    string            `yaml:"challenge_prefix"`
}

// LoadConfig reads a YAML tables file and overlays it on DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read provider tables: %w", err)
	}
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse provider tables %s: %w", path, err)
	}
	return NewConfig(t)
}

// NewConfig overlays t on the built-in tables.
func NewConfig(t Tables) (*Config, error) {
	cfg := DefaultConfig()

	if t.DefaultDomain != "" {
		cfg.defaultDomain = t.DefaultDomain
	}
	for country, domain := range t.Domains {
		cfg.domains[strings.ToUpper(country)] = domain
	}
	for name, code := range t.TimeRanges {
		tr, err := ParseTimeRange(name)
		if err != nil || tr == TimeRangeNone {
			return nil, fmt.Errorf("time_ranges: unknown range %q", name)
		}
		cfg.timeRanges[tr] = code
	}
	for name, code := range t.SafeSearch {
		level, err := ParseSafeSearch(name)
		if err != nil {
			return nil, fmt.Errorf("safesearch: %w", err)
		}
		cfg.safeSearch[level] = code
	}
	for _, lang := range t.SupportedLanguages {
		if lang = strings.TrimSpace(lang); lang == "" {
			continue
		}
		tag, err := language.Parse(lang)
		if err != nil {
			return nil, fmt.Errorf("supported_languages: %w", err)
		}
		cfg.languages = append(cfg.languages, lang)
		cfg.supported = append(cfg.supported, tag)
	}
	if len(cfg.supported) > 0 {
		cfg.matcher = language.NewMatcher(cfg.supported)
	}
	if t.ChallengeHost != "" {
		cfg.challengeHost = strings.ToLower(t.ChallengeHost)
	}
	if t.IndexRedirectPath != "" {
		cfg.indexRedirect = t.IndexRedirectPath
	}
	if t.ChallengePrefix != "" {
		cfg.challengePrefix = t.ChallengePrefix
	}
	return cfg, nil
}

// Domain returns the Google domain for a country code, or the default domain
// when the country has no national domain.
func (c *Config) Domain(country string) string {
	if d, ok := c.domains[strings.ToUpper(country)]; ok {
		return d
	}
	return c.defaultDomain
}

// DefaultDomain is the domain used for unlisted countries.
func (c *Config) DefaultDomain() string { return c.defaultDomain }

// TimeRangeCode returns the tbs token for a time range.
func (c *Config) TimeRangeCode(tr TimeRange) (string, bool) {
	code, ok := c.timeRanges[tr]
	return code, ok
}

// SafeSearchCode returns the safe parameter value for a filter level.
func (c *Config) SafeSearchCode(level SafeSearch) (string, bool) {
	code, ok := c.safeSearch[level]
	return code, ok
}

// SupportedLanguages returns a copy of the configured language list. An empty
// list means every well-formed language is accepted.
func (c *Config) SupportedLanguages() []string {
	return append([]string(nil), c.languages...)
}

// Countries returns the sorted country codes that have a national domain.
func (c *Config) Countries() []string {
	return slices.Sorted(maps.Keys(c.domains))
}
