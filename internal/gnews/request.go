package gnews

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

const acceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"

// RequestDescriptor is everything the transport needs to issue the search.
type RequestDescriptor struct {
	URL    string
	Header http.Header
}

// RequestBuilder turns a Query into a RequestDescriptor. It does no I/O and is
// safe for concurrent use.
type RequestBuilder struct {
	cfg    *Config
	logger *slog.Logger
}

// NewRequestBuilder returns a builder bound to cfg. A nil cfg uses
// DefaultConfig.
func NewRequestBuilder(cfg *Config, logger *slog.Logger) *RequestBuilder {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RequestBuilder{cfg: cfg, logger: logger}
}

// Build assembles the search URL and headers for q. Parameters are appended in
// a fixed order so identical queries always produce identical URLs. q.PageNo
// is ignored.
func (b *RequestBuilder) Build(q Query) RequestDescriptor {
	lang, country := b.cfg.Negotiate(q.Language, q.Country)
	host := "news." + b.cfg.Domain(country)

	var sb strings.Builder
	sb.WriteString("https://")
	sb.WriteString(host)
	sb.WriteString("/search?")
	sb.WriteString(param("q", q.Terms))
	appendParam(&sb, "hl", lang+"-"+country)
	appendParam(&sb, "lr", "lang_"+lang)
	appendParam(&sb, "ie", "utf8")
	appendParam(&sb, "oe", "utf8")
	if code, ok := b.cfg.TimeRangeCode(q.TimeRange); ok {
		appendParam(&sb, "tbs", "qdr:"+code)
	}
	if q.SafeSearch != SafeSearchOff {
		if code, ok := b.cfg.SafeSearchCode(q.SafeSearch); ok {
			appendParam(&sb, "safe", code)
		}
	}

	header := make(http.Header)
	header.Set("Accept-Language", lang+"-"+country+","+lang+";q=0.8,"+lang+";q=0.5")
	header.Set("Accept", acceptHeader)

	desc := RequestDescriptor{URL: sb.String(), Header: header}
	b.logger.Debug("built google news request",
		"url", desc.URL,
		"accept_language", header.Get("Accept-Language"))
	return desc
}

// param encodes a single key=value pair.
func param(key, value string) string {
	return url.Values{key: {value}}.Encode()
}

func appendParam(sb *strings.Builder, key, value string) {
	sb.WriteByte('&')
	sb.WriteString(param(key, value))
}
