package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/FranksOps/newsprobe/internal/bypass"
	"github.com/FranksOps/newsprobe/internal/fingerprint"
	"github.com/FranksOps/newsprobe/internal/gnews"
	"github.com/FranksOps/newsprobe/internal/metrics"
	"github.com/FranksOps/newsprobe/internal/storage"
	"github.com/FranksOps/newsprobe/pkg/httpclient"
	"github.com/FranksOps/newsprobe/pkg/proxy"
	"github.com/FranksOps/newsprobe/pkg/ratelimit"
	"github.com/FranksOps/newsprobe/pkg/useragent"
)

// DefaultMaxRedirects is used when FetchConfig.MaxRedirects is zero. The
// provider answers challenges with a redirect, so they must be followed.
const DefaultMaxRedirects = 10

// FetchConfig configures the transport used for provider requests.
type FetchConfig struct {
	Timeout time.Duration
	// MaxRedirects of zero means DefaultMaxRedirects; negative disables
	// following redirects.
	MaxRedirects int
	UseCookieJar bool
	MaxBodyBytes int64
	ProxyPool    *proxy.Pool
	// UseEnvProxy routes requests that have no pool proxy through
	// HTTP_PROXY/HTTPS_PROXY.
	UseEnvProxy bool
	// UAPool defaults to the User-Agents matching Fingerprint.
	UAPool      *useragent.Pool
	Fingerprint fingerprint.Profile
	Limiter     *ratelimit.Limiter
	// Detectors default to bypass.DefaultDetectors.
	Detectors []bypass.Detector
	Logger    *slog.Logger
}

// Fetcher executes request descriptors with the configured TLS fingerprint,
// User-Agent rotation, proxy rotation and pacing. It is safe for concurrent
// use; one Fetcher shares its connection pool and cookie jar across calls.
type Fetcher struct {
	config FetchConfig
	client *httpclient.Client
	logger *slog.Logger
}

// NewFetcher initializes a new Fetcher with the given configuration.
func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = DefaultMaxRedirects
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileChrome
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(cfg.Fingerprint.UserAgents())
	}
	if cfg.Detectors == nil {
		cfg.Detectors = bypass.DefaultDetectors()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	// One transport per fetcher; the proxy is chosen per request through the
	// request context.
	useEnv := cfg.UseEnvProxy
	proxyFunc := func(req *http.Request) (*url.URL, error) {
		if u := proxy.FromContext(req.Context()); u != nil {
			return u, nil
		}
		if useEnv {
			return http.ProxyFromEnvironment(req)
		}
		return nil, nil
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, proxyFunc)
	if err != nil {
		return nil, fmt.Errorf("setup transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		UseCookieJar: cfg.UseCookieJar,
		MaxBodyBytes: cfg.MaxBodyBytes,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	return &Fetcher{
		config: cfg,
		client: client,
		logger: cfg.Logger,
	}, nil
}

// Fetch issues a GET for desc and captures the exchange. The returned Fetch
// is never nil; when the request fails before a response its Error is set
// and the same failure is returned as err.
func (f *Fetcher) Fetch(ctx context.Context, desc gnews.RequestDescriptor) (*storage.Fetch, error) {
	result := &storage.Fetch{
		URL:    desc.URL,
		Method: http.MethodGet,
	}

	if f.config.Limiter != nil {
		if err := f.config.Limiter.Wait(ctx); err != nil {
			result.Error = fmt.Sprintf("rate limiter: %v", err)
			return result, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, desc.URL, nil)
	if err != nil {
		result.Error = fmt.Sprintf("build request: %v", err)
		return result, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range desc.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", f.config.UAPool.Next())
	}

	var activeProxy *url.URL
	if f.config.ProxyPool != nil {
		if activeProxy = f.config.ProxyPool.Next(); activeProxy != nil {
			ctx = proxy.WithProxy(ctx, activeProxy)
			result.Proxy = activeProxy.String()
		}
	}

	domain := req.URL.Hostname()
	start := time.Now()
	resp, err := f.client.Do(ctx, req)
	result.Duration = time.Since(start)

	if resp == nil {
		if activeProxy != nil {
			_ = f.config.ProxyPool.MarkFailure(activeProxy)
			metrics.RecordProxyFailure(activeProxy, "transport")
		}
		result.Error = fmt.Sprintf("request failed: %v", err)
		metrics.RecordFetch(domain, result)
		f.logger.Warn("fetch failed", "url", desc.URL, "err", err)
		return result, err
	}

	result.StatusCode = resp.StatusCode
	result.Headers = resp.Header
	result.Body = resp.Body
	result.FinalURL = resp.FinalURL
	if err != nil {
		// body read failed part way; keep what arrived
		result.Error = fmt.Sprintf("read body: %v", err)
	}
	if resp.Truncated {
		f.logger.Warn("response body truncated", "url", resp.FinalURL, "bytes", len(resp.Body))
	}

	if activeProxy != nil {
		_ = f.config.ProxyPool.MarkSuccess(activeProxy)
	}

	if bypass.Analyze(result, f.config.Detectors) {
		f.logger.Warn("bot protection detected",
			"url", desc.URL, "final_url", result.FinalURL, "status", result.StatusCode, "source", result.DetectionSrc)
	} else {
		f.logger.Debug("fetched", "url", desc.URL, "status", result.StatusCode, "redirects", resp.Redirects,
			"duration", result.Duration)
	}
	metrics.RecordFetch(domain, result)

	return result, err
}

// ReportBlocked rests the proxy that carried fetch after the provider
// challenged it. Fetches made without a proxy are ignored.
func (f *Fetcher) ReportBlocked(fetch *storage.Fetch) {
	if fetch == nil || fetch.Proxy == "" || f.config.ProxyPool == nil {
		return
	}
	u, err := url.Parse(fetch.Proxy)
	if err != nil {
		return
	}
	if err := f.config.ProxyPool.MarkBlocked(u); err != nil && !errors.Is(err, proxy.ErrUnknownProxy) {
		f.logger.Warn("mark proxy blocked", "err", err)
		return
	}
	metrics.RecordProxyFailure(u, "blocked")
	f.logger.Info("proxy rested after block", "proxy", u.Redacted())
}

// ProxyStats reports the health of the configured proxies, or nil when the
// fetcher goes direct.
func (f *Fetcher) ProxyStats() []proxy.Stat {
	if f.config.ProxyPool == nil {
		return nil
	}
	return f.config.ProxyPool.Stats()
}
