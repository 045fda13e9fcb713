// Package proxy rotates outbound requests across a set of proxies and rests
// the ones that fail or get challenged.
package proxy

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// ErrUnknownProxy is returned when marking a proxy that is not in the pool.
var ErrUnknownProxy = errors.New("proxy not found in pool")

// Stat is a point-in-time view of one proxy's health.
type Stat struct {
	URL       string // redacted
	Successes int
	Failures  int // consecutive-ish; decays on success
	Blocks    int
	LastUsed  time.Time
	// RestUntil is zero unless the proxy is resting.
	RestUntil time.Time
}

// Resting reports whether the proxy is unavailable at now.
func (s Stat) Resting(now time.Time) bool { return now.Before(s.RestUntil) }

type entry struct {
	url *url.URL
	Stat
}

// Pool hands out proxies round-robin, skipping resting ones. Safe for
// concurrent use.
type Pool struct {
	mu      sync.Mutex
	entries []*entry
	next    int
	cfg     Config
	now     func() time.Time
}

// Config sets the health thresholds. Zero values get defaults.
type Config struct {
	// MaxFailures transport failures rest a proxy for Cooldown. Default 3.
	MaxFailures int
	// Cooldown defaults to 5 minutes.
	Cooldown time.Duration
	// BlockCooldown is how long a proxy rests after the provider served it a
	// challenge. Defaults to 30 minutes.
	BlockCooldown time.Duration
}

func NewPool(cfg Config) *Pool {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	if cfg.BlockCooldown <= 0 {
		cfg.BlockCooldown = 30 * time.Minute
	}
	return &Pool{cfg: cfg, now: time.Now}
}

// LoadFile adds the proxies listed in path, one per line. Blank lines and
// '#' comments are skipped.
func (p *Pool) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open proxy list: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" && !strings.HasPrefix(line, "#") {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read proxy list %s: %w", path, err)
	}
	return p.Add(lines...)
}

// Add parses and appends proxies. "host:port" is taken as http. Nothing is
// added if any entry fails to parse.
func (p *Pool) Add(rawURLs ...string) error {
	parsed := make([]*entry, 0, len(rawURLs))
	for _, raw := range rawURLs {
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return fmt.Errorf("parse proxy %q: invalid url", raw)
		}
		parsed = append(parsed, &entry{url: u, Stat: Stat{URL: u.Redacted()}})
	}

	p.mu.Lock()
	p.entries = append(p.entries, parsed...)
	p.mu.Unlock()
	return nil
}

// Len counts all proxies, resting or not.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Next returns the next proxy that is not resting, or nil when the pool is
// empty or every proxy rests.
func (p *Pool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for range len(p.entries) {
		e := p.entries[p.next]
		p.next = (p.next + 1) % len(p.entries)

		if e.Resting(now) {
			continue
		}
		if !e.RestUntil.IsZero() {
			// back from a rest with a clean slate
			e.RestUntil = time.Time{}
			e.Failures = 0
		}
		e.LastUsed = now
		return e.url
	}
	return nil
}

// MarkSuccess credits proxyURL and forgives one earlier failure.
func (p *Pool) MarkSuccess(proxyURL *url.URL) error {
	return p.update(proxyURL, func(e *entry, _ time.Time) {
		e.Successes++
		e.Failures = max(e.Failures-1, 0)
	})
}

// MarkFailure records a transport failure; MaxFailures of them rest the
// proxy for Cooldown.
func (p *Pool) MarkFailure(proxyURL *url.URL) error {
	return p.update(proxyURL, func(e *entry, now time.Time) {
		e.Failures++
		if e.Failures >= p.cfg.MaxFailures {
			e.RestUntil = now.Add(p.cfg.Cooldown)
		}
	})
}

// MarkBlocked rests the proxy for BlockCooldown right away. Use it when the
// provider answered with a challenge instead of results.
func (p *Pool) MarkBlocked(proxyURL *url.URL) error {
	return p.update(proxyURL, func(e *entry, now time.Time) {
		e.Blocks++
		e.RestUntil = now.Add(p.cfg.BlockCooldown)
	})
}

func (p *Pool) update(proxyURL *url.URL, fn func(*entry, time.Time)) error {
	if proxyURL == nil {
		return errors.New("proxy url cannot be nil")
	}
	target := proxyURL.String()

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.entries {
		if e.url.String() == target {
			fn(e, p.now())
			return nil
		}
	}
	return fmt.Errorf("%s: %w", proxyURL.Redacted(), ErrUnknownProxy)
}

// Stats returns a snapshot of every proxy in pool order.
func (p *Pool) Stats() []Stat {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Stat, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.Stat
	}
	return out
}

type ctxKey struct{}

// WithProxy returns a context that routes requests made with it through u.
func WithProxy(ctx context.Context, u *url.URL) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext returns the proxy stored by WithProxy, or nil.
func FromContext(ctx context.Context) *url.URL {
	u, _ := ctx.Value(ctxKey{}).(*url.URL)
	return u
}

// FromRequest is an http.Transport Proxy func that honours WithProxy on the
// request context. Requests without one go direct.
func FromRequest(req *http.Request) (*url.URL, error) {
	return FromContext(req.Context()), nil
}
