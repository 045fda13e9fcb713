package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/FranksOps/newsprobe/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsprobe_fetch_requests_total",
			Help: "Total number of provider requests executed",
		},
		[]string{"domain", "status", "detected", "detection_src"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "newsprobe_fetch_duration_seconds",
			Help:    "Duration of provider requests in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"domain"},
	)

	FetchBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsprobe_fetch_bytes_total",
			Help: "Total bytes downloaded from providers",
		},
		[]string{"domain"},
	)

	ProxyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsprobe_proxy_failures_total",
			Help: "Total number of proxy failures and blocks",
		},
		[]string{"proxy", "reason"},
	)

	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsprobe_searches_total",
			Help: "Searches by provider and outcome (ok, empty, hard_block, captcha, error)",
		},
		[]string{"provider", "outcome"},
	)

	ResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsprobe_results_total",
			Help: "Result items extracted from provider pages",
		},
		[]string{"provider"},
	)
)

// RecordFetch updates the transport metrics for one provider round-trip.
func RecordFetch(domain string, f *storage.Fetch) {
	if f == nil {
		return
	}

	status := strconv.Itoa(f.StatusCode)
	if f.Error != "" {
		status = "error"
	}

	FetchRequestsTotal.WithLabelValues(domain, status, strconv.FormatBool(f.DetectedBot), f.DetectionSrc).Inc()
	FetchDuration.WithLabelValues(domain).Observe(f.Duration.Seconds())
	FetchBytesTotal.WithLabelValues(domain).Add(float64(len(f.Body)))
}

// RecordProxyFailure counts a failure or block against a proxy. Only the
// host is used as label so credentials never reach the exposition.
func RecordProxyFailure(proxy *url.URL, reason string) {
	if proxy == nil {
		return
	}
	ProxyFailures.WithLabelValues(proxy.Host, reason).Inc()
}

// RecordSearch updates the search level metrics for a finished record.
func RecordSearch(rec *storage.SearchRecord) {
	if rec == nil {
		return
	}
	SearchesTotal.WithLabelValues(rec.Provider, rec.Outcome()).Inc()
	ResultsTotal.WithLabelValues(rec.Provider).Add(float64(len(rec.Results)))
}

// Handler exposes the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on addr (e.g. ":9090") and exposes /metrics.
func Start(addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "err", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
