package proxy

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// fakeClock lets tests move time without sleeping.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestPool(t *testing.T, cfg Config, urls ...string) (*Pool, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	p := NewPool(cfg)
	p.now = clock.now
	if err := p.Add(urls...); err != nil {
		t.Fatalf("Add: %v", err)
	}
	return p, clock
}

func nextN(p *Pool, n int) []string {
	var got []string
	for range n {
		if u := p.Next(); u != nil {
			got = append(got, u.String())
		} else {
			got = append(got, "<nil>")
		}
	}
	return got
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPool_RoundRobin(t *testing.T) {
	p, _ := newTestPool(t, Config{}, "127.0.0.1:8080", "http://127.0.0.1:8081", "socks5://127.0.0.1:9050")

	want := []string{"http://127.0.0.1:8080", "http://127.0.0.1:8081", "socks5://127.0.0.1:9050", "http://127.0.0.1:8080"}
	if got := nextN(p, 4); !equal(got, want) {
		t.Errorf("Next order = %v, want %v", got, want)
	}
}

func TestPool_AddRejectsBadEntries(t *testing.T) {
	p := NewPool(Config{})
	if err := p.Add("http://ok:1", "http://"); err == nil {
		t.Fatal("expected error for url without host")
	}
	if p.Len() != 0 {
		t.Errorf("expected nothing added on error, Len = %d", p.Len())
	}
}

func TestPool_FailuresRestAndRecover(t *testing.T) {
	p, clock := newTestPool(t, Config{MaxFailures: 2, Cooldown: time.Minute}, "http://a", "http://b")

	a := p.Next()
	_ = p.MarkFailure(a)
	_ = p.MarkFailure(a)

	if got := nextN(p, 3); !equal(got, []string{"http://b", "http://b", "http://b"}) {
		t.Fatalf("expected only b while a rests, got %v", got)
	}

	clock.advance(time.Minute + time.Second)
	if got := nextN(p, 2); !equal(got, []string{"http://a", "http://b"}) {
		t.Errorf("expected a back after cooldown, got %v", got)
	}
	if st := p.Stats()[0]; st.Failures != 0 || !st.RestUntil.IsZero() {
		t.Errorf("expected a clean slate after rest, got %+v", st)
	}
}

func TestPool_SuccessForgivesFailure(t *testing.T) {
	p, _ := newTestPool(t, Config{MaxFailures: 2}, "http://a")
	a := p.Next()

	_ = p.MarkFailure(a)
	_ = p.MarkSuccess(a)
	_ = p.MarkFailure(a)

	if u := p.Next(); u == nil {
		t.Fatal("a should not rest: one failure was forgiven")
	}
	st := p.Stats()[0]
	if st.Successes != 1 || st.Failures != 1 {
		t.Errorf("unexpected stats: %+v", st)
	}
}

func TestPool_AllResting(t *testing.T) {
	p, _ := newTestPool(t, Config{MaxFailures: 1, Cooldown: time.Hour}, "http://a")
	_ = p.MarkFailure(p.Next())

	if u := p.Next(); u != nil {
		t.Errorf("expected nil when every proxy rests, got %v", u)
	}
	if u := NewPool(Config{}).Next(); u != nil {
		t.Errorf("expected nil on empty pool, got %v", u)
	}
}

func TestPool_MarkBlocked(t *testing.T) {
	p, clock := newTestPool(t, Config{MaxFailures: 5, BlockCooldown: time.Hour}, "http://user:secret@a", "http://b")

	a := p.Next()
	if err := p.MarkBlocked(a); err != nil {
		t.Fatalf("MarkBlocked: %v", err)
	}

	// a single block is enough, regardless of MaxFailures
	if got := nextN(p, 3); !equal(got, []string{"http://b", "http://b", "http://b"}) {
		t.Fatalf("expected only b while a is blocked, got %v", got)
	}

	st := p.Stats()[0]
	if st.Blocks != 1 || !st.Resting(clock.t) {
		t.Errorf("unexpected stats: %+v", st)
	}
	if st.URL != "http://user:xxxxx@a" {
		t.Errorf("expected redacted url in stats, got %q", st.URL)
	}
	if p.Len() != 2 {
		t.Errorf("expected blocked proxy to stay in the pool, Len = %d", p.Len())
	}
}

func TestPool_MarkUnknown(t *testing.T) {
	p, _ := newTestPool(t, Config{}, "http://a")
	unknown, _ := url.Parse("http://unknown")

	for name, mark := range map[string]func(*url.URL) error{
		"success": p.MarkSuccess,
		"failure": p.MarkFailure,
		"blocked": p.MarkBlocked,
	} {
		if err := mark(unknown); !errors.Is(err, ErrUnknownProxy) {
			t.Errorf("%s: expected ErrUnknownProxy, got %v", name, err)
		}
		if err := mark(nil); err == nil {
			t.Errorf("%s: expected error for nil url", name)
		}
	}
}

func TestPool_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxies.txt")
	content := `
# residential
http://proxy1.com
proxy2.com:80

socks5://proxy3.com:1080
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write proxy file: %v", err)
	}

	p := NewPool(Config{})
	if err := p.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	want := []string{"http://proxy1.com", "http://proxy2.com:80", "socks5://proxy3.com:1080"}
	if got := nextN(p, 3); !equal(got, want) {
		t.Errorf("loaded %v, want %v", got, want)
	}

	if err := p.LoadFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestContextRouting(t *testing.T) {
	u, _ := url.Parse("http://127.0.0.1:3128")

	req, _ := http.NewRequest(http.MethodGet, "https://news.google.com/", nil)
	if got, err := FromRequest(req); err != nil || got != nil {
		t.Errorf("expected direct connection without proxy, got %v, %v", got, err)
	}

	req = req.WithContext(WithProxy(context.Background(), u))
	got, err := FromRequest(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != u {
		t.Errorf("expected %v, got %v", u, got)
	}
}
