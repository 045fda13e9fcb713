package bypass

import (
	"bytes"
	"net/http"
	"net/url"
	"strings"

	"github.com/FranksOps/newsprobe/internal/storage"
)

// Detector examines a fetch to determine if the provider blocked or
// challenged the request.
type Detector func(f *storage.Fetch) (detected bool, source string)

// DefaultDetectors returns the detectors that apply to Google properties and
// the CDNs that commonly front mirrors of them.
func DefaultDetectors() []Detector {
	return []Detector{
		detectGoogleSorry,
		detectUnusualTraffic,
		detectRateLimit,
		detectCloudflare,
	}
}

// Analyze runs f through the detectors in order. It sets DetectedBot and
// DetectionSrc from the first one that fires and reports whether any did.
func Analyze(f *storage.Fetch, detectors []Detector) bool {
	if f == nil {
		return false
	}
	for _, d := range detectors {
		if detected, source := d(f); detected {
			f.DetectedBot = true
			f.DetectionSrc = source
			return true
		}
	}
	f.DetectedBot = false
	f.DetectionSrc = ""
	return false
}

func getHeader(headers map[string][]string, key string) string {
	if vals, ok := headers[key]; ok && len(vals) > 0 {
		return vals[0]
	}
	for k, vals := range headers {
		if strings.EqualFold(k, key) && len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}

// detectGoogleSorry fires when the request ended on the sorry host or under a
// /sorry path.
func detectGoogleSorry(f *storage.Fetch) (bool, string) {
	target := f.FinalURL
	if target == "" {
		target = f.URL
	}
	u, err := url.Parse(target)
	if err != nil {
		return false, ""
	}
	if strings.EqualFold(u.Hostname(), "sorry.google.com") || strings.HasPrefix(u.Path, "/sorry") {
		return true, "Google"
	}
	return false, ""
}

var unusualTrafficMarkers = [][]byte{
	[]byte("Our systems have detected unusual traffic"),
	[]byte("id=\"captcha-form\""),
	[]byte("g-recaptcha"),
}

// detectUnusualTraffic looks for the interstitial Google serves in place of
// results, which sometimes arrives without a redirect.
func detectUnusualTraffic(f *storage.Fetch) (bool, string) {
	for _, m := range unusualTrafficMarkers {
		if bytes.Contains(f.Body, m) {
			return true, "Google"
		}
	}
	return false, ""
}

func detectRateLimit(f *storage.Fetch) (bool, string) {
	if f.StatusCode == http.StatusTooManyRequests {
		return true, "RateLimit"
	}
	return false, ""
}

// detectCloudflare looks for common Cloudflare challenge/block signatures.
func detectCloudflare(f *storage.Fetch) (bool, string) {
	if f.StatusCode != http.StatusForbidden && f.StatusCode != http.StatusServiceUnavailable {
		return false, ""
	}
	server := strings.ToLower(getHeader(f.Headers, "Server"))
	if strings.Contains(server, "cloudflare") {
		return true, "Cloudflare"
	}
	if bytes.Contains(f.Body, []byte("cf-browser-verification")) ||
		bytes.Contains(f.Body, []byte("cf-turnstile")) ||
		bytes.Contains(f.Body, []byte("Attention Required! | Cloudflare")) {
		return true, "Cloudflare"
	}
	return false, ""
}
