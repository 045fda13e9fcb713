package bypass

import (
	"testing"

	"github.com/FranksOps/newsprobe/internal/storage"
)

func TestDetectGoogleSorry(t *testing.T) {
	tests := []struct {
		name     string
		fetch    storage.Fetch
		detected bool
	}{
		{"results page", storage.Fetch{FinalURL: "https://news.google.com/search?q=sorry"}, false},
		{"sorry host", storage.Fetch{FinalURL: "https://sorry.google.com/sorry/index"}, true},
		{"index redirect", storage.Fetch{FinalURL: "https://news.google.de/sorry/IndexRedirect?continue=x"}, true},
		{"falls back to request url", storage.Fetch{URL: "https://news.google.com/sorry/index"}, true},
		{"unparseable", storage.Fetch{FinalURL: "://bad"}, false},
	}
	for _, tt := range tests {
		detected, src := detectGoogleSorry(&tt.fetch)
		if detected != tt.detected {
			t.Errorf("%s: detected = %v, want %v", tt.name, detected, tt.detected)
		}
		if detected && src != "Google" {
			t.Errorf("%s: source = %q, want Google", tt.name, src)
		}
	}
}

func TestDetectUnusualTraffic(t *testing.T) {
	f := &storage.Fetch{
		StatusCode: 200,
		Body:       []byte("<html><body>Our systems have detected unusual traffic from your computer network.</body></html>"),
	}
	if detected, src := detectUnusualTraffic(f); !detected || src != "Google" {
		t.Errorf("expected Google detection by body")
	}

	f = &storage.Fetch{StatusCode: 200, Body: []byte(`<div class="xrnccd">traffic report</div>`)}
	if detected, _ := detectUnusualTraffic(f); detected {
		t.Errorf("expected not detected")
	}
}

func TestDetectRateLimit(t *testing.T) {
	if detected, src := detectRateLimit(&storage.Fetch{StatusCode: 429}); !detected || src != "RateLimit" {
		t.Errorf("expected RateLimit detection on 429")
	}
	if detected, _ := detectRateLimit(&storage.Fetch{StatusCode: 200}); detected {
		t.Errorf("expected not detected on 200")
	}
}

func TestDetectCloudflare(t *testing.T) {
	f := &storage.Fetch{
		StatusCode: 200,
		Headers:    map[string][]string{"Server": {"cloudflare"}},
		Body:       []byte("OK"),
	}
	if detected, _ := detectCloudflare(f); detected {
		t.Errorf("expected not detected on 200")
	}

	f = &storage.Fetch{
		StatusCode: 403,
		Headers:    map[string][]string{"server": {"cloudflare"}},
	}
	if detected, src := detectCloudflare(f); !detected || src != "Cloudflare" {
		t.Errorf("expected Cloudflare detection by header")
	}

	f = &storage.Fetch{
		StatusCode: 503,
		Body:       []byte("<html>... cf-turnstile ...</html>"),
	}
	if detected, src := detectCloudflare(f); !detected || src != "Cloudflare" {
		t.Errorf("expected Cloudflare detection by body")
	}
}

func TestAnalyze(t *testing.T) {
	f := &storage.Fetch{
		StatusCode: 429,
		FinalURL:   "https://news.google.com/sorry/index",
	}
	if !Analyze(f, DefaultDetectors()) {
		t.Fatalf("expected detection")
	}
	if !f.DetectedBot || f.DetectionSrc != "Google" {
		t.Errorf("expected first detector to win, got %q", f.DetectionSrc)
	}

	f.FinalURL = "https://news.google.com/search?q=x"
	f.StatusCode = 200
	if Analyze(f, DefaultDetectors()) {
		t.Errorf("expected no detection")
	}
	if f.DetectedBot || f.DetectionSrc != "" {
		t.Errorf("expected detection fields to be cleared")
	}

	if Analyze(nil, DefaultDetectors()) {
		t.Errorf("expected nil fetch to be ignored")
	}
}
