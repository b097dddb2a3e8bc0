package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"RequisiteGraph/internal/config"
	"RequisiteGraph/internal/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCatalogConfig(baseURL string, robots bool) config.CatalogConfig {
	return config.CatalogConfig{
		BaseURL:       baseURL + "/coursedescriptions/{dept}/",
		UserAgent:     "RequisiteGraph/test",
		Timeout:       2 * time.Second,
		MaxRetries:    2,
		RetryBackoff:  time.Millisecond,
		MaxBodyBytes:  1 << 20,
		RespectRobots: &robots,
	}
}

func newTestFetcher(t *testing.T, baseURL string, robots bool) *HTTPFetcher {
	t.Helper()
	f := NewHTTPFetcher(testCatalogConfig(baseURL, robots), quietLogger())
	f.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return f
}

func TestDepartmentURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		template string
		dept     string
		want     string
	}{
		{"https://catalog.uta.edu/coursedescriptions/{dept}/", "CSE", "https://catalog.uta.edu/coursedescriptions/cse/"},
		{"https://catalog.uta.edu/coursedescriptions/{dept}/", " ce ", "https://catalog.uta.edu/coursedescriptions/ce/"},
		{"http://localhost:8080/catalog", "MATH", "http://localhost:8080/catalog/math/"},
	}
	for _, tt := range tests {
		if got := DepartmentURL(tt.template, tt.dept); got != tt.want {
			t.Fatalf("DepartmentURL(%q, %q) = %q, want %q", tt.template, tt.dept, got, tt.want)
		}
	}
}

func TestFetchDepartmentSuccess(t *testing.T) {
	t.Parallel()

	var gotPath, gotAgent string
	mux := http.NewServeMux()
	mux.HandleFunc("/coursedescriptions/", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html>CSE</html>")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	markup, err := newTestFetcher(t, server.URL, true).FetchDepartment(context.Background(), "CSE")
	if err != nil {
		t.Fatalf("FetchDepartment returned error: %v", err)
	}
	if markup != "<html>CSE</html>" {
		t.Fatalf("unexpected markup: %q", markup)
	}
	if gotPath != "/coursedescriptions/cse/" {
		t.Fatalf("department slug not lowercased: %s", gotPath)
	}
	if gotAgent != "RequisiteGraph/test" {
		t.Fatalf("unexpected user agent: %q", gotAgent)
	}
}

func TestFetchDepartmentRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()

	markup, err := newTestFetcher(t, server.URL, false).FetchDepartment(context.Background(), "CE")
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if markup != "<html>OK</html>" {
		t.Fatalf("unexpected markup: %q", markup)
	}
	if attempts.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchDepartmentGivesUpAfterRetries(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestFetcher(t, server.URL, false).FetchDepartment(context.Background(), "CE")
	if !errors.Is(err, domain.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	if attempts.Load() != 3 {
		t.Fatalf("expected 1 try + 2 retries, got %d", attempts.Load())
	}
}

func TestFetchDepartmentDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := newTestFetcher(t, server.URL, false).FetchDepartment(context.Background(), "XYZ")
	if !errors.Is(err, domain.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	if !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected status in error, got %v", err)
	}
	if attempts.Load() != 1 {
		t.Fatalf("4xx must not be retried, got %d attempts", attempts.Load())
	}
}

func TestFetchDepartmentUnreachableHost(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	_, err := newTestFetcher(t, baseURL, false).FetchDepartment(context.Background(), "CE")
	if !errors.Is(err, domain.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
}

func TestFetchDepartmentRespectsRobots(t *testing.T) {
	t.Parallel()

	var catalogHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /coursedescriptions/\n")
	})
	mux.HandleFunc("/coursedescriptions/", func(w http.ResponseWriter, r *http.Request) {
		catalogHits.Add(1)
		_, _ = fmt.Fprint(w, "<html></html>")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	_, err := newTestFetcher(t, server.URL, true).FetchDepartment(context.Background(), "CE")
	if !errors.Is(err, domain.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	if !strings.Contains(err.Error(), "robots.txt") {
		t.Fatalf("expected robots.txt in error, got %v", err)
	}
	if catalogHits.Load() != 0 {
		t.Fatalf("disallowed page was fetched %d times", catalogHits.Load())
	}

	// Same server with robots disabled goes through.
	if _, err := newTestFetcher(t, server.URL, false).FetchDepartment(context.Background(), "CE"); err != nil {
		t.Fatalf("expected fetch without robots check to succeed: %v", err)
	}
}

func TestFetchDepartmentRejectsOversizedBody(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = fmt.Fprint(w, strings.Repeat("x", 100))
	}))
	defer server.Close()

	cfg := testCatalogConfig(server.URL, false)
	cfg.MaxBodyBytes = 10
	f := NewHTTPFetcher(cfg, quietLogger())
	f.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	_, err := f.FetchDepartment(context.Background(), "CE")
	if !errors.Is(err, domain.ErrFetch) || !errors.Is(err, errBodyTooLarge) {
		t.Fatalf("expected oversized body fetch error, got %v", err)
	}
	if !strings.Contains(err.Error(), "more than 10 bytes") {
		t.Fatalf("error should name the limit: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("oversized body must not be retried, got %d attempts", got)
	}
}

func TestFetchDepartmentAcceptsBodyAtLimit(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, strings.Repeat("x", 10))
	}))
	defer server.Close()

	cfg := testCatalogConfig(server.URL, false)
	cfg.MaxBodyBytes = 10
	markup, err := NewHTTPFetcher(cfg, quietLogger()).FetchDepartment(context.Background(), "CE")
	if err != nil {
		t.Fatalf("FetchDepartment returned error: %v", err)
	}
	if len(markup) != 10 {
		t.Fatalf("expected the full 10-byte body, got %d", len(markup))
	}
}

func TestFetchDepartmentCancelledContext(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestFetcher(t, server.URL, false).FetchDepartment(ctx, "CE")
	if !errors.Is(err, domain.ErrFetch) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected ErrFetch wrapping context.Canceled, got %v", err)
	}
}

func TestFetchDepartmentEmpty(t *testing.T) {
	t.Parallel()

	_, err := newTestFetcher(t, "http://127.0.0.1:1", false).FetchDepartment(context.Background(), "  ")
	if !errors.Is(err, domain.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
}

type countingFetcher struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (c *countingFetcher) FetchDepartment(ctx context.Context, department string) (string, error) {
	c.calls.Add(1)
	if c.fail.Load() {
		return "", fmt.Errorf("%w: boom", domain.ErrFetch)
	}
	return "<html>" + department + "</html>", nil
}

func TestCachingFetcher(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	next := &countingFetcher{}
	cached := NewCachingFetcher(next, time.Minute)

	for _, dept := range []string{"CSE", "cse", " CSE "} {
		markup, err := cached.FetchDepartment(ctx, dept)
		if err != nil {
			t.Fatalf("FetchDepartment(%q): %v", dept, err)
		}
		if markup != "<html>CSE</html>" {
			t.Fatalf("unexpected markup: %q", markup)
		}
	}
	if next.calls.Load() != 1 {
		t.Fatalf("expected a single upstream call, got %d", next.calls.Load())
	}

	cached.Flush()
	if _, err := cached.FetchDepartment(ctx, "CSE"); err != nil {
		t.Fatalf("FetchDepartment after flush: %v", err)
	}
	if next.calls.Load() != 2 {
		t.Fatalf("expected flush to force a refetch, got %d calls", next.calls.Load())
	}
}

func TestCachingFetcherDoesNotCacheFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	next := &countingFetcher{}
	next.fail.Store(true)
	cached := NewCachingFetcher(next, time.Minute)

	if _, err := cached.FetchDepartment(ctx, "MATH"); !errors.Is(err, domain.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}

	next.fail.Store(false)
	markup, err := cached.FetchDepartment(ctx, "MATH")
	if err != nil {
		t.Fatalf("expected recovery after failure, got %v", err)
	}
	if markup != "<html>MATH</html>" || next.calls.Load() != 2 {
		t.Fatalf("unexpected markup %q after %d calls", markup, next.calls.Load())
	}
}
