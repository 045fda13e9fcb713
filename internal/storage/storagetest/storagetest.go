// Package storagetest holds a conformance test shared by every
// storage.Backend implementation.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/FranksOps/newsprobe/internal/gnews"
	"github.com/FranksOps/newsprobe/internal/storage"
)

// Records returns three records created one hour apart, oldest first. The
// middle one was intercepted.
func Records(now time.Time) []*storage.SearchRecord {
	return []*storage.SearchRecord{
		{
			ID:         "rec1",
			Provider:   "google_news",
			Terms:      "golang",
			Language:   "en",
			Country:    "US",
			RequestURL: "https://news.google.com/search?q=golang&hl=en-US&lr=lang_en&ie=utf8&oe=utf8",
			FinalURL:   "https://news.google.com/search?q=golang&hl=en-US&lr=lang_en&ie=utf8&oe=utf8",
			StatusCode: 200,
			Results: []gnews.Result{
				{URL: "https://go.dev/blog/go1.25", Title: "Go 1.25 is released", Content: "The Go Blog, yesterday: Go 1.25 ...", Thumbnail: "https://lh3.googleusercontent.com/a"},
				{URL: "https://example.com/b", Title: "Second", Content: "snippet"},
			},
			Duration:  120 * time.Millisecond,
			CreatedAt: now.Add(-2 * time.Hour),
		},
		{
			ID:           "rec2",
			Provider:     "google_news",
			Terms:        "elections",
			Language:     "de",
			Country:      "DE",
			TimeRange:    "day",
			SafeSearch:   1,
			RequestURL:   "https://news.google.de/search?q=elections",
			FinalURL:     "https://news.google.de/sorry/index?continue=x",
			StatusCode:   429,
			DetectedBot:  true,
			DetectionSrc: "Google",
			Interception: "captcha",
			Duration:     80 * time.Millisecond,
			CreatedAt:    now.Add(-1 * time.Hour),
			Error:        "google news captcha: CAPTCHA required",
		},
		{
			ID:         "rec3",
			Provider:   "google_news",
			Terms:      "golang",
			Language:   "fr",
			Country:    "FR",
			RequestURL: "https://news.google.fr/search?q=golang",
			FinalURL:   "https://news.google.fr/search?q=golang",
			StatusCode: 200,
			Duration:   50 * time.Millisecond,
			CreatedAt:  now,
		},
	}
}

// RunBackendTests saves Records into b and checks every Filter condition.
// now should be truncated to the precision the backend stores.
func RunBackendTests(t *testing.T, b storage.Backend, now time.Time) {
	t.Helper()
	ctx := context.Background()

	for _, r := range Records(now) {
		if err := b.Save(ctx, r); err != nil {
			t.Fatalf("Failed to save record %s: %v", r.ID, err)
		}
	}

	all, err := b.Query(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("Failed to query all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(all))
	}
	if all[0].ID != "rec3" || all[2].ID != "rec1" {
		t.Errorf("Expected newest first, got %s..%s", all[0].ID, all[2].ID)
	}

	oldest := all[2]
	if oldest.Language != "en" || oldest.Country != "US" || oldest.StatusCode != 200 {
		t.Errorf("Unexpected fields on rec1: %+v", oldest)
	}
	if oldest.Duration != 120*time.Millisecond {
		t.Errorf("Expected duration 120ms, got %v", oldest.Duration)
	}
	if !oldest.CreatedAt.Equal(now.Add(-2 * time.Hour)) {
		t.Errorf("Expected CreatedAt %v, got %v", now.Add(-2*time.Hour), oldest.CreatedAt)
	}
	if len(oldest.Results) != 2 {
		t.Fatalf("Expected 2 results on rec1, got %d", len(oldest.Results))
	}
	if oldest.Results[0].Thumbnail != "https://lh3.googleusercontent.com/a" || oldest.Results[1].Title != "Second" {
		t.Errorf("Results not round-tripped: %+v", oldest.Results)
	}

	byTerms, err := b.Query(ctx, storage.Filter{Terms: "golang"})
	if err != nil {
		t.Fatalf("Failed to query by terms: %v", err)
	}
	if len(byTerms) != 2 {
		t.Errorf("Expected 2 records for terms filter, got %d", len(byTerms))
	}

	yes := true
	intercepted, err := b.Query(ctx, storage.Filter{Intercepted: &yes})
	if err != nil {
		t.Fatalf("Failed to query intercepted: %v", err)
	}
	if len(intercepted) != 1 || intercepted[0].ID != "rec2" {
		t.Fatalf("Expected only rec2 to be intercepted, got %d records", len(intercepted))
	}
	got := intercepted[0]
	if got.Interception != "captcha" || !got.DetectedBot || got.DetectionSrc != "Google" {
		t.Errorf("Interception fields not round-tripped: %+v", got)
	}
	if got.TimeRange != "day" || got.SafeSearch != 1 || got.Error == "" {
		t.Errorf("Query fields not round-tripped: %+v", got)
	}

	no := false
	clean, err := b.Query(ctx, storage.Filter{Intercepted: &no})
	if err != nil {
		t.Fatalf("Failed to query clean: %v", err)
	}
	if len(clean) != 2 {
		t.Errorf("Expected 2 clean records, got %d", len(clean))
	}

	since := now.Add(-90 * time.Minute)
	recent, err := b.Query(ctx, storage.Filter{Since: &since})
	if err != nil {
		t.Fatalf("Failed to query since: %v", err)
	}
	if len(recent) != 2 {
		t.Errorf("Expected 2 recent records, got %d", len(recent))
	}

	page, err := b.Query(ctx, storage.Filter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("Failed to query page: %v", err)
	}
	if len(page) != 1 || page[0].ID != "rec2" {
		t.Errorf("Expected page [rec2], got %d records", len(page))
	}
}
