package storage

import (
	"context"
	"testing"
	"time"

	"github.com/FranksOps/newsprobe/internal/gnews"
)

func TestFilter_Match(t *testing.T) {
	now := time.Now()
	yes, no := true, false
	earlier := now.Add(-time.Hour)
	later := now.Add(time.Hour)

	rec := &SearchRecord{Terms: "golang", Interception: "captcha", CreatedAt: now}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter", Filter{}, true},
		{"terms match", Filter{Terms: "golang"}, true},
		{"terms mismatch", Filter{Terms: "rust"}, false},
		{"intercepted", Filter{Intercepted: &yes}, true},
		{"not intercepted", Filter{Intercepted: &no}, false},
		{"since earlier", Filter{Since: &earlier}, true},
		{"since later", Filter{Since: &later}, false},
	}
	for _, tt := range tests {
		if got := tt.filter.Match(rec); got != tt.want {
			t.Errorf("%s: Match = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFilter_Page(t *testing.T) {
	mk := func() []*SearchRecord {
		return []*SearchRecord{{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"}}
	}

	got := Filter{}.Page(mk())
	if len(got) != 4 || got[0].ID != "4" || got[3].ID != "1" {
		t.Errorf("expected newest first, got %v", ids(got))
	}

	got = Filter{Offset: 1, Limit: 2}.Page(mk())
	if len(got) != 2 || got[0].ID != "3" || got[1].ID != "2" {
		t.Errorf("expected [3 2], got %v", ids(got))
	}

	got = Filter{Offset: 10}.Page(mk())
	if len(got) != 0 {
		t.Errorf("expected empty page, got %v", ids(got))
	}
}

func TestSearchRecord_Outcome(t *testing.T) {
	tests := []struct {
		rec  SearchRecord
		want string
	}{
		{SearchRecord{Results: []gnews.Result{{URL: "x"}}}, "ok"},
		{SearchRecord{}, "empty"},
		{SearchRecord{Error: "boom"}, "error"},
		{SearchRecord{Interception: "hard_block", Error: "blocked"}, "hard_block"},
	}
	for _, tt := range tests {
		if got := tt.rec.Outcome(); got != tt.want {
			t.Errorf("Outcome(%+v) = %q, want %q", tt.rec, got, tt.want)
		}
	}
}

func ids(records []*SearchRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

// Ensure Backend interface exists and is implementable
type mockBackend struct{}

func (m *mockBackend) Save(ctx context.Context, record *SearchRecord) error { return nil }
func (m *mockBackend) Query(ctx context.Context, filter Filter) ([]*SearchRecord, error) {
	return nil, nil
}
func (m *mockBackend) Close() error { return nil }

func TestBackendInterface(t *testing.T) {
	var b Backend = &mockBackend{}
	_ = b
}
