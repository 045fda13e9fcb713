package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/FranksOps/newsprobe/internal/gnews"
	"github.com/FranksOps/newsprobe/internal/storage"
)

// fakeProvider answers from a table keyed by terms.
type fakeProvider struct {
	mu       sync.Mutex
	calls    []string
	inFlight int
	maxSeen  int
	delay    map[string]time.Duration
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Search(ctx context.Context, q gnews.Query, limit int) (*storage.SearchRecord, error) {
	p.mu.Lock()
	p.calls = append(p.calls, q.Terms)
	p.inFlight++
	if p.inFlight > p.maxSeen {
		p.maxSeen = p.inFlight
	}
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.inFlight--
		p.mu.Unlock()
	}()

	select {
	case <-time.After(p.delay[q.Terms]):
	case <-ctx.Done():
		return &storage.SearchRecord{Terms: q.Terms, Error: ctx.Err().Error()}, ctx.Err()
	}

	rec := &storage.SearchRecord{ID: q.Terms, Provider: "fake", Terms: q.Terms}
	switch q.Terms {
	case "blocked":
		ie := &gnews.InterceptionError{Kind: gnews.HardBlock, URL: "https://sorry.google.com/", Message: "sorry.google.com"}
		rec.Interception = ie.Kind.String()
		rec.Error = ie.Error()
		return rec, ie
	case "broken":
		rec.Error = "connection refused"
		return rec, errors.New("connection refused")
	}
	for range max(limit, 1) {
		rec.Results = append(rec.Results, gnews.Result{URL: "https://example.com/" + q.Terms, Title: q.Terms})
	}
	return rec, nil
}

type memBackend struct {
	mu      sync.Mutex
	records []*storage.SearchRecord
}

func (m *memBackend) Save(ctx context.Context, rec *storage.SearchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *memBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.SearchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records, nil
}

func (m *memBackend) Close() error { return nil }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func queries(terms ...string) []gnews.Query {
	qs := make([]gnews.Query, len(terms))
	for i, t := range terms {
		qs[i] = gnews.Query{Terms: t}
	}
	return qs
}

func TestNew_RequiresProvider(t *testing.T) {
	if _, err := New(nil, Config{}); err == nil {
		t.Error("expected error for nil provider")
	}
}

func TestRun_OrderedOutcomesAndPersistence(t *testing.T) {
	provider := &fakeProvider{delay: map[string]time.Duration{
		"slow": 50 * time.Millisecond,
	}}
	backend := &memBackend{}
	r, err := New(provider, Config{Concurrency: 2, Limit: 2, Backend: backend, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	out, err := r.Run(context.Background(), queries("slow", "fast", "broken", "blocked"))
	if err != nil {
		t.Fatalf("Run: unexpected error: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("expected 4 outcomes, got %d", len(out))
	}
	for i, want := range []string{"slow", "fast", "broken", "blocked"} {
		if out[i].Query.Terms != want {
			t.Errorf("outcome %d: terms = %q, want %q", i, out[i].Query.Terms, want)
		}
	}
	if out[0].Err != nil || len(out[0].Record.Results) != 2 {
		t.Errorf("slow: expected 2 results and no error, got %+v", out[0])
	}
	if out[2].Err == nil {
		t.Errorf("broken: expected error")
	}
	if !gnews.IsHardBlock(out[3].Err) {
		t.Errorf("blocked: expected hard block, got %v", out[3].Err)
	}

	if len(backend.records) != 4 {
		t.Errorf("expected all 4 records persisted, got %d", len(backend.records))
	}
	if got := Records(out); len(got) != 4 {
		t.Errorf("Records: expected 4, got %d", len(got))
	}
}

func TestRun_BoundedConcurrency(t *testing.T) {
	delay := map[string]time.Duration{}
	terms := []string{"a", "b", "c", "d", "e", "f"}
	for _, term := range terms {
		delay[term] = 20 * time.Millisecond
	}
	provider := &fakeProvider{delay: delay}
	r, _ := New(provider, Config{Concurrency: 2, Logger: quietLogger()})

	if _, err := r.Run(context.Background(), queries(terms...)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if provider.maxSeen > 2 {
		t.Errorf("expected at most 2 concurrent searches, saw %d", provider.maxSeen)
	}
	if len(provider.calls) != len(terms) {
		t.Errorf("expected %d calls, got %d", len(terms), len(provider.calls))
	}
}

func TestRun_StopOnBlock(t *testing.T) {
	provider := &fakeProvider{}
	backend := &memBackend{}
	r, _ := New(provider, Config{Concurrency: 1, StopOnBlock: true, Backend: backend, Logger: quietLogger()})

	out, err := r.Run(context.Background(), queries("first", "blocked", "never"))
	if !errors.Is(err, ErrHardBlocked) {
		t.Fatalf("expected ErrHardBlocked, got %v", err)
	}
	if out[0].Err != nil {
		t.Errorf("first: unexpected error %v", out[0].Err)
	}
	if !errors.Is(out[2].Err, ErrSkipped) {
		t.Errorf("never: expected ErrSkipped, got %v", out[2].Err)
	}
	for _, c := range provider.calls {
		if c == "never" {
			t.Errorf("query after the block should not have run")
		}
	}
	if len(backend.records) != 2 {
		t.Errorf("expected 2 persisted records, got %d", len(backend.records))
	}
}

func TestRun_BlockWithoutStopContinues(t *testing.T) {
	provider := &fakeProvider{}
	r, _ := New(provider, Config{Concurrency: 1, Logger: quietLogger()})

	out, err := r.Run(context.Background(), queries("blocked", "after"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out[1].Err != nil || out[1].Record == nil {
		t.Errorf("expected query after block to run, got %+v", out[1])
	}
}

func TestRun_Cancelled(t *testing.T) {
	provider := &fakeProvider{delay: map[string]time.Duration{"a": time.Second, "b": time.Second}}
	r, _ := New(provider, Config{Concurrency: 1, Logger: quietLogger()})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	out, err := r.Run(ctx, queries("a", "b"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(out))
	}
	if out[1].Err == nil {
		t.Errorf("expected second query to be skipped or cancelled")
	}
}

func TestParseBatch(t *testing.T) {
	input := strings.Join([]string{
		"# comment",
		"golang",
		"",
		"corona virus\tde-DE\tweek\t1",
		"elections\ten\t\tstrict\tgb",
	}, "\n")

	qs, err := ParseBatch(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseBatch: %v", err)
	}
	want := []gnews.Query{
		{Terms: "golang"},
		{Terms: "corona virus", Language: "de-DE", TimeRange: gnews.TimeRangeWeek, SafeSearch: gnews.SafeSearchModerate},
		{Terms: "elections", Language: "en", SafeSearch: gnews.SafeSearchStrict, Country: "gb"},
	}
	if len(qs) != len(want) {
		t.Fatalf("expected %d queries, got %d: %+v", len(want), len(qs), qs)
	}
	for i := range want {
		if qs[i] != want[i] {
			t.Errorf("query %d = %+v, want %+v", i, qs[i], want[i])
		}
	}
}

func TestParseBatch_Errors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"ok\n\tde", "line 2: empty terms"},
		{"x\ten\tdecade", "line 1: unknown time range"},
		{"x\ten\tday\tvery", "line 1: unknown safesearch"},
		{"a\tb\tday\t0\tc\td", "line 1: expected at most 5 fields"},
	}
	for _, tt := range tests {
		_, err := ParseBatch(strings.NewReader(tt.input))
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("ParseBatch(%q) error = %v, want containing %q", tt.input, err, tt.want)
		}
	}
}
