package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testClient(cfg ClientConfig) *Client {
	if cfg.BackoffBase == 0 {
		cfg.BackoffBase = time.Millisecond
	}
	return NewClient(cfg, zap.NewNop())
}

func TestClientFetchSuccess(t *testing.T) {
	t.Parallel()

	var gotUA atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.Header.Get("User-Agent"))
		if r.URL.Query().Get("opcao") != "opt_02" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		w.Write([]byte("<html><table><tr><td>ok</td></tr></table></html>"))
	}))
	defer srv.Close()

	c := testClient(ClientConfig{UserAgent: "test-agent/1.0"})
	params := url.Values{"opcao": []string{"opt_02"}}
	body, err := c.Fetch(context.Background(), srv.URL, params)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if body == "" {
		t.Fatal("expected a body")
	}
	if ua, _ := gotUA.Load().(string); ua != "test-agent/1.0" {
		t.Fatalf("User-Agent = %q, want test-agent/1.0", ua)
	}
}

func TestClientFetchRetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			http.Error(w, "temporarily down", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("<html>recovered</html>"))
	}))
	defer srv.Close()

	c := testClient(ClientConfig{MaxRetries: 3})
	body, err := c.Fetch(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Fetch after retries: %v", err)
	}
	if body != "<html>recovered</html>" {
		t.Fatalf("body = %q", body)
	}
	if got := hits.Load(); got != 3 {
		t.Fatalf("upstream hit %d times, want 3", got)
	}
}

func TestClientFetchDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := testClient(ClientConfig{MaxRetries: 3})
	_, err := c.Fetch(context.Background(), srv.URL, nil)
	if err == nil {
		t.Fatal("expected an error for 404")
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error type = %T, want *FetchError", err)
	}
	if fe.Kind != FetchErrStatus || fe.StatusCode != http.StatusNotFound {
		t.Fatalf("got kind=%s status=%d, want http_status 404", fe.Kind, fe.StatusCode)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("upstream hit %d times, want 1 (no retry on 4xx)", got)
	}
}

func TestClientFetchExhaustsRetries(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(ClientConfig{MaxRetries: 2})
	_, err := c.Fetch(context.Background(), srv.URL, nil)
	if err == nil {
		t.Fatal("expected an error once retries are exhausted")
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error type = %T, want *FetchError", err)
	}
	if fe.StatusCode != http.StatusInternalServerError {
		t.Fatalf("StatusCode = %d, want 500", fe.StatusCode)
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("upstream hit %d times, want 2", got)
	}
}

func TestClientFetchNetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // nothing listening anymore

	c := testClient(ClientConfig{MaxRetries: 2})
	_, err := c.Fetch(context.Background(), srv.URL, nil)
	if err == nil {
		t.Fatal("expected an error against a closed server")
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error type = %T, want *FetchError", err)
	}
	if fe.Kind != FetchErrNetwork && fe.Kind != FetchErrTimeout {
		t.Fatalf("Kind = %s, want network or timeout", fe.Kind)
	}
}

func TestClientFetchHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := testClient(ClientConfig{MaxRetries: 3, BackoffBase: time.Minute})
	_, err := c.Fetch(ctx, srv.URL, nil)
	if err == nil {
		t.Fatal("expected an error with a cancelled context")
	}
}
