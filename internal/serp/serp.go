// Package serp runs searches against result-page providers and turns each
// one into a storage.SearchRecord.
package serp

import (
	"context"

	"github.com/FranksOps/newsprobe/internal/gnews"
	"github.com/FranksOps/newsprobe/internal/storage"
)

// Provider executes one search. Implementations return the record even when
// they also return an error, so callers can persist failed attempts.
type Provider interface {
	Name() string
	Search(ctx context.Context, q gnews.Query, limit int) (*storage.SearchRecord, error)
}

// Fetcher is the transport a provider sends its request descriptors through.
// *scraper.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, desc gnews.RequestDescriptor) (*storage.Fetch, error)
	// ReportBlocked is called after the provider challenged the request
	// carried by fetch.
	ReportBlocked(fetch *storage.Fetch)
}
