package serp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/FranksOps/newsprobe/internal/gnews"
	"github.com/FranksOps/newsprobe/internal/metrics"
	"github.com/FranksOps/newsprobe/internal/storage"
)

// GoogleNewsName is the provider name stored on records.
const GoogleNewsName = "google_news"

// GoogleNewsConfig wires a GoogleNews provider.
type GoogleNewsConfig struct {
	// Provider holds the domain and parameter tables; nil uses
	// gnews.DefaultConfig.
	Provider *gnews.Config
	Fetcher  Fetcher
	// Endpoint, when set, replaces scheme and host of every built URL, e.g.
	// to go through a mirror. Path and query are kept.
	Endpoint string
	Logger   *slog.Logger
}

// GoogleNews searches news.google.<tld>.
type GoogleNews struct {
	cfg       *gnews.Config
	builder   *gnews.RequestBuilder
	extractor *gnews.Extractor
	fetcher   Fetcher
	endpoint  *url.URL
	logger    *slog.Logger
}

var _ Provider = (*GoogleNews)(nil)

// NewGoogleNews validates cfg and returns the provider.
func NewGoogleNews(cfg GoogleNewsConfig) (*GoogleNews, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("google news: fetcher is required")
	}
	if cfg.Provider == nil {
		cfg.Provider = gnews.DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	g := &GoogleNews{
		cfg:       cfg.Provider,
		builder:   gnews.NewRequestBuilder(cfg.Provider, cfg.Logger),
		extractor: gnews.NewExtractor(cfg.Provider, cfg.Logger),
		fetcher:   cfg.Fetcher,
		logger:    cfg.Logger.With("provider", GoogleNewsName),
	}
	if cfg.Endpoint != "" {
		u, err := url.Parse(cfg.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("google news: invalid endpoint %q", cfg.Endpoint)
		}
		g.endpoint = u
	}
	return g, nil
}

func (g *GoogleNews) Name() string { return GoogleNewsName }

// Search runs q and returns up to limit results (all when limit <= 0). On an
// interception the record carries the kind, the proxy is rested and the
// *gnews.InterceptionError is returned. Transport failures are returned
// wrapped, with the record's Error set.
func (g *GoogleNews) Search(ctx context.Context, q gnews.Query, limit int) (*storage.SearchRecord, error) {
	desc := g.builder.Build(q)
	if g.endpoint != nil {
		desc.URL = g.rewrite(desc.URL)
	}

	lang, country := g.cfg.Negotiate(q.Language, q.Country)
	rec := &storage.SearchRecord{
		ID:         uuid.New().String(),
		Provider:   GoogleNewsName,
		Terms:      q.Terms,
		Language:   lang,
		Country:    country,
		TimeRange:  string(q.TimeRange),
		SafeSearch: int(q.SafeSearch),
		RequestURL: desc.URL,
		CreatedAt:  time.Now().UTC(),
	}
	defer metrics.RecordSearch(rec)

	fetch, err := g.fetcher.Fetch(ctx, desc)
	if fetch != nil {
		rec.FinalURL = fetch.FinalURL
		rec.StatusCode = fetch.StatusCode
		rec.DetectedBot = fetch.DetectedBot
		rec.DetectionSrc = fetch.DetectionSrc
		rec.Duration = fetch.Duration
	}
	if err != nil {
		rec.Error = err.Error()
		return rec, fmt.Errorf("google news fetch: %w", err)
	}

	seq, err := g.extractor.Extract(bytes.NewReader(fetch.Body), fetch.FinalURL)
	if err != nil {
		rec.Error = err.Error()
		var ie *gnews.InterceptionError
		if errors.As(err, &ie) {
			rec.Interception = ie.Kind.String()
			g.fetcher.ReportBlocked(fetch)
			g.logger.Warn("search intercepted", "terms", q.Terms, "kind", rec.Interception, "url", ie.URL)
		}
		return rec, err
	}

	rec.Results = []gnews.Result{}
	for r := range seq {
		rec.Results = append(rec.Results, r)
		if limit > 0 && len(rec.Results) >= limit {
			break
		}
	}

	if len(rec.Results) == 0 && fetch.DetectedBot {
		g.logger.Warn("no results and bot protection detected",
			"terms", q.Terms, "source", fetch.DetectionSrc, "status", fetch.StatusCode)
	}
	g.logger.Debug("search done", "terms", q.Terms, "lang", lang, "country", country, "results", len(rec.Results))
	return rec, nil
}

func (g *GoogleNews) rewrite(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Scheme = g.endpoint.Scheme
	u.Host = g.endpoint.Host
	return u.String()
}
