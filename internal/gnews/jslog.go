package gnews

import (
	"net/url"
	"regexp"
	"strings"
)

// The article anchor carries the real destination in its jslog attribute:
//
//	jslog="95014; 4:https://www.cnn.com/2020/.../index.html; track:click"
//
// while href points at an internal ./articles/... redirect.
var jslogURL = regexp.MustCompile(`http[^;]*`)

// parseJSLogURL returns the first absolute http(s) URL embedded in a jslog
// attribute value.
func parseJSLogURL(jslog string) (string, bool) {
	raw := strings.TrimSpace(jslogURL.FindString(jslog))
	if raw == "" {
		return "", false
	}
	if !isAbsoluteHTTP(raw) {
		return "", false
	}
	return raw, true
}

func isAbsoluteHTTP(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
