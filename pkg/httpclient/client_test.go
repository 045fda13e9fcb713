package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClient_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client, err := New(Config{Timeout: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	if _, err := client.Do(context.Background(), req); err == nil {
		t.Fatal("expected timeout error")
	}
}

func redirectServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/1":
			http.Redirect(w, r, "/2", http.StatusFound)
		case "/2":
			http.Redirect(w, r, "/3?x=1", http.StatusFound)
		case "/3":
			_, _ = w.Write([]byte("done"))
		}
	}))
}

func TestClient_FollowsRedirects(t *testing.T) {
	ts := redirectServer()
	defer ts.Close()

	client, _ := New(Config{MaxRedirects: 5})
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/1", nil)
	resp, err := client.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.FinalURL != ts.URL+"/3?x=1" {
		t.Errorf("FinalURL = %q, want %q", resp.FinalURL, ts.URL+"/3?x=1")
	}
	if resp.Redirects != 2 {
		t.Errorf("Redirects = %d, want 2", resp.Redirects)
	}
	if string(resp.Body) != "done" {
		t.Errorf("Body = %q, want done", resp.Body)
	}
}

func TestClient_RedirectLimit(t *testing.T) {
	ts := redirectServer()
	defer ts.Close()

	client, _ := New(Config{MaxRedirects: 1})
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/1", nil)
	if _, err := client.Do(context.Background(), req); err == nil {
		t.Fatal("expected redirect limit error")
	}

	noRedir, _ := New(Config{MaxRedirects: -1})
	req2, _ := http.NewRequest(http.MethodGet, ts.URL+"/1", nil)
	resp, err := noRedir.Do(context.Background(), req2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusFound {
		t.Errorf("expected 302 StatusFound, got %d", resp.StatusCode)
	}
	if resp.FinalURL != ts.URL+"/1" {
		t.Errorf("FinalURL = %q, want the original url", resp.FinalURL)
	}
}

func TestClient_MaxBodyBytes(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 100)))
	}))
	defer ts.Close()

	client, _ := New(Config{MaxBodyBytes: 10})
	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	resp, err := client.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Body) != 10 || !resp.Truncated {
		t.Errorf("expected 10 byte truncated body, got %d bytes truncated=%v", len(resp.Body), resp.Truncated)
	}
}

func TestClient_Cookies(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/set":
			http.SetCookie(w, &http.Cookie{Name: "NID", Value: "test"})
		case "/check":
			c, err := r.Cookie("NID")
			if err != nil || c.Value != "test" {
				w.WriteHeader(http.StatusUnauthorized)
			}
		}
	}))
	defer ts.Close()

	client, err := New(Config{UseCookieJar: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req1, _ := http.NewRequest(http.MethodGet, ts.URL+"/set", nil)
	if _, err := client.Do(context.Background(), req1); err != nil {
		t.Fatalf("unexpected error on /set: %v", err)
	}

	req2, _ := http.NewRequest(http.MethodGet, ts.URL+"/check", nil)
	resp, err := client.Do(context.Background(), req2)
	if err != nil {
		t.Fatalf("unexpected error on /check: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected cookie to persist, got status %d", resp.StatusCode)
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	defer ts.Close()

	client, _ := New(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	if _, err := client.Do(ctx, req); err == nil {
		t.Fatal("expected cancellation error")
	}
}
