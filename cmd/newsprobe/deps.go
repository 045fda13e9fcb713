package main

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/FranksOps/newsprobe/internal/config"
	"github.com/FranksOps/newsprobe/internal/fingerprint"
	"github.com/FranksOps/newsprobe/internal/gnews"
	"github.com/FranksOps/newsprobe/internal/scraper"
	"github.com/FranksOps/newsprobe/internal/serp"
	"github.com/FranksOps/newsprobe/internal/storage"
	"github.com/FranksOps/newsprobe/internal/storage/csvbackend"
	"github.com/FranksOps/newsprobe/internal/storage/jsonbackend"
	"github.com/FranksOps/newsprobe/internal/storage/mongobackend"
	"github.com/FranksOps/newsprobe/internal/storage/postgres"
	"github.com/FranksOps/newsprobe/internal/storage/sqlite"
	"github.com/FranksOps/newsprobe/pkg/proxy"
	"github.com/FranksOps/newsprobe/pkg/ratelimit"
)

func mustBind(key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag.Name, err))
	}
}

func openBackend(ctx context.Context, sc config.StorageConfig) (storage.Backend, error) {
	switch sc.Driver {
	case "sqlite":
		return sqlite.New(sc.DSN)
	case "postgres":
		return postgres.New(ctx, sc.DSN)
	case "json":
		return jsonbackend.New(sc.DSN)
	case "csv":
		return csvbackend.New(sc.DSN)
	case "mongo":
		return mongobackend.New(ctx, sc.DSN, sc.Database, sc.Collection)
	}
	return nil, fmt.Errorf("unknown storage driver %q", sc.Driver)
}

func newFetcher(fc config.FetchConfig) (*scraper.Fetcher, error) {
	profile, err := fingerprint.ParseProfile(fc.Fingerprint)
	if err != nil {
		return nil, err
	}

	var pool *proxy.Pool
	if fc.ProxyFile != "" {
		pool = proxy.NewPool(proxy.Config{})
		if err := pool.LoadFile(fc.ProxyFile); err != nil {
			return nil, err
		}
		logger.Info("loaded proxies", "count", pool.Len(), "file", fc.ProxyFile)
	}

	maxRedirects := fc.MaxRedirects
	if maxRedirects == 0 {
		// fetch.max_redirects: 0 disables following; the fetcher spells that -1
		maxRedirects = -1
	}

	limiter := ratelimit.PerMinute(fc.RequestsPerMinute, fc.Burst, fc.Jitter)
	if limiter.Unlimited() {
		logger.Warn("request pacing disabled; expect challenges on sustained use")
	}

	return scraper.NewFetcher(scraper.FetchConfig{
		Timeout:      fc.Timeout,
		MaxRedirects: maxRedirects,
		UseCookieJar: fc.CookieJar,
		MaxBodyBytes: fc.MaxBodyBytes,
		ProxyPool:    pool,
		UseEnvProxy:  fc.EnvProxy,
		Fingerprint:  profile,
		Limiter:      limiter,
		Logger:       logger,
	})
}

func loadTables() (*gnews.Config, error) {
	if cfg.Provider.Tables == "" {
		return gnews.DefaultConfig(), nil
	}
	return gnews.LoadConfig(cfg.Provider.Tables)
}

func newProvider() (*serp.GoogleNews, *scraper.Fetcher, error) {
	tables, err := loadTables()
	if err != nil {
		return nil, nil, err
	}

	fetcher, err := newFetcher(cfg.Fetch)
	if err != nil {
		return nil, nil, err
	}
	provider, err := serp.NewGoogleNews(serp.GoogleNewsConfig{
		Provider: tables,
		Fetcher:  fetcher,
		Endpoint: cfg.Provider.Endpoint,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return provider, fetcher, nil
}
