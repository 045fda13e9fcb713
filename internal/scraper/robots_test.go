package scraper

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/FranksOps/newsprobe/internal/fingerprint"
)

func newRobotsAuditor(t *testing.T) *RobotsAuditor {
	t.Helper()
	fetcher, err := NewFetcher(FetchConfig{Timeout: 5 * time.Second, Fingerprint: fingerprint.ProfileGo})
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	return NewRobotsAuditor(fetcher, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRobotsAuditor_Allowed(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(`
User-agent: *
Disallow: /search
Allow: /search/about
Disallow: /topics?hl=

User-agent: NewsBot
Disallow: /
`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	a := newRobotsAuditor(t)
	ctx := context.Background()

	tests := []struct {
		path, agent string
		want        bool
	}{
		{"/search?q=go&hl=en-US", "Mozilla/5.0", false},
		{"/search/about", "Mozilla/5.0", true},
		{"/topics?hl=de", "Mozilla/5.0", false},
		{"/home", "Mozilla/5.0", true},
		{"/home", "NewsBot", false},
	}
	for _, tt := range tests {
		got, err := a.Allowed(ctx, ts.URL+tt.path, tt.agent)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.path, err)
		}
		if got != tt.want {
			t.Errorf("Allowed(%s, %s) = %v, want %v", tt.path, tt.agent, got, tt.want)
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("expected robots.txt to be fetched once, got %d", n)
	}
}

func TestRobotsAuditor_MissingRobots(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	allowed, err := newRobotsAuditor(t).Allowed(context.Background(), ts.URL+"/search?q=x", "Bot")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Errorf("expected missing robots.txt to default to allowed")
	}
}

func TestRobotsAuditor_InvalidURL(t *testing.T) {
	if _, err := newRobotsAuditor(t).Allowed(context.Background(), "not a url", "Bot"); err == nil {
		t.Error("expected error for url without host")
	}
}
