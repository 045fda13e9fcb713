package storage

import (
	"context"
	"time"

	"github.com/FranksOps/newsprobe/internal/gnews"
)

// Fetch is the outcome of a single HTTP round-trip to the provider.
type Fetch struct {
	URL          string
	FinalURL     string // after redirects; interception detection reads this
	Method       string
	StatusCode   int
	Headers      map[string][]string
	Body         []byte
	Duration     time.Duration
	DetectedBot  bool
	DetectionSrc string // e.g. "Google", "RateLimit", "Cloudflare"
	Proxy        string // proxy the request went through, if any
	Error        string // non-empty if the request failed before a response
}

// SearchRecord is one executed search as it is persisted.
type SearchRecord struct {
	ID           string         `json:"id" bson:"_id"`
	Provider     string         `json:"provider" bson:"provider"`
	Terms        string         `json:"terms" bson:"terms"`
	Language     string         `json:"language" bson:"language"`
	Country      string         `json:"country" bson:"country"`
	TimeRange    string         `json:"time_range,omitempty" bson:"time_range"`
	SafeSearch   int            `json:"safesearch" bson:"safesearch"`
	RequestURL   string         `json:"request_url" bson:"request_url"`
	FinalURL     string         `json:"final_url" bson:"final_url"`
	StatusCode   int            `json:"status_code" bson:"status_code"`
	DetectedBot  bool           `json:"detected_bot" bson:"detected_bot"`
	DetectionSrc string         `json:"detection_src,omitempty" bson:"detection_src"`
	Interception string         `json:"interception,omitempty" bson:"interception"` // "", "hard_block" or "captcha"
	Results      []gnews.Result `json:"results" bson:"results"`
	Duration     time.Duration  `json:"duration" bson:"duration"`
	CreatedAt    time.Time      `json:"created_at" bson:"created_at"`
	Error        string         `json:"error,omitempty" bson:"error"`
}

// Intercepted reports whether the provider served a challenge page.
func (r *SearchRecord) Intercepted() bool { return r.Interception != "" }

// Outcome classifies the record as "ok", "empty", "error" or its
// interception kind.
func (r *SearchRecord) Outcome() string {
	switch {
	case r.Interception != "":
		return r.Interception
	case r.Error != "":
		return "error"
	case len(r.Results) == 0:
		return "empty"
	}
	return "ok"
}

// Filter allows querying for specific SearchRecords.
type Filter struct {
	Terms       string
	Intercepted *bool
	Since       *time.Time
	Limit       int
	Offset      int
}

// Match applies the Terms, Intercepted and Since conditions to r. File based
// backends use it; SQL backends translate the same conditions into WHERE
// clauses.
func (f Filter) Match(r *SearchRecord) bool {
	if f.Terms != "" && r.Terms != f.Terms {
		return false
	}
	if f.Intercepted != nil && r.Intercepted() != *f.Intercepted {
		return false
	}
	if f.Since != nil && r.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}

// Page applies newest-first ordering, Offset and Limit to records that are in
// insertion order.
func (f Filter) Page(records []*SearchRecord) []*SearchRecord {
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	if f.Offset > 0 {
		if f.Offset >= len(records) {
			return []*SearchRecord{}
		}
		records = records[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(records) {
		records = records[:f.Limit]
	}
	return records
}

// Backend defines the interface for storing and querying search records.
type Backend interface {
	Save(ctx context.Context, record *SearchRecord) error
	Query(ctx context.Context, filter Filter) ([]*SearchRecord, error)
	Close() error
}
