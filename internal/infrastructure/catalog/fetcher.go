package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"RequisiteGraph/internal/config"
	"RequisiteGraph/internal/domain"
	"RequisiteGraph/internal/ports"
)

const deptPlaceholder = "{dept}"

// HTTPFetcher downloads department catalog pages over HTTP.
type HTTPFetcher struct {
	client      *http.Client
	urlTemplate string
	userAgent   string
	maxBytes    int64
	maxRetries  int
	backoff     time.Duration
	limiter     *rate.Limiter
	robots      *RobotsChecker
	sleep       func(ctx context.Context, d time.Duration) error
	log         *slog.Logger
}

var _ ports.CatalogFetcher = (*HTTPFetcher)(nil)

// errBodyTooLarge rejects pages over MaxBodyBytes; a truncated page would
// silently drop its trailing courses.
var errBodyTooLarge = errors.New("response body exceeds limit")

// NewHTTPFetcher builds a fetcher from catalog settings. A non-positive
// request rate disables throttling.
func NewHTTPFetcher(cfg config.CatalogConfig, log *slog.Logger) *HTTPFetcher {
	if log == nil {
		log = slog.Default()
	}

	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	f := &HTTPFetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		urlTemplate: cfg.BaseURL,
		userAgent:   cfg.UserAgent,
		maxBytes:    cfg.MaxBodyBytes,
		maxRetries:  max(cfg.MaxRetries, 0),
		backoff:     cfg.RetryBackoff,
		limiter:     rate.NewLimiter(limit, burst),
		sleep:       sleepContext,
		log:         log,
	}
	if cfg.Robots() {
		f.robots = NewRobotsChecker(cfg.UserAgent, cfg.Timeout)
	}
	return f
}

// DepartmentURL expands the catalog URL template for dept.
func DepartmentURL(template, dept string) string {
	slug := strings.ToLower(domain.NormalizeDepartment(dept))
	if strings.Contains(template, deptPlaceholder) {
		return strings.ReplaceAll(template, deptPlaceholder, slug)
	}
	return strings.TrimRight(template, "/") + "/" + slug + "/"
}

// FetchDepartment returns the raw markup of the department's catalog page.
// Every failure wraps domain.ErrFetch.
func (f *HTTPFetcher) FetchDepartment(ctx context.Context, department string) (string, error) {
	dept := domain.NormalizeDepartment(department)
	if dept == "" {
		return "", fmt.Errorf("%w: empty department", domain.ErrFetch)
	}
	target := DepartmentURL(f.urlTemplate, dept)

	if f.robots != nil {
		allowed, err := f.robots.CanFetch(ctx, target)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", domain.ErrFetch, target, err)
		}
		if !allowed {
			return "", fmt.Errorf("%w: %s disallowed by robots.txt", domain.ErrFetch, target)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: %s: %w", domain.ErrFetch, target, err)
		}

		body, err := f.fetchOnce(ctx, target)
		if err == nil {
			f.log.Debug("catalog fetched", "department", dept, "url", target, "bytes", len(body), "attempt", attempt+1)
			return body, nil
		}
		lastErr = err

		if attempt == f.maxRetries || !isRetryable(ctx, err) {
			break
		}

		wait := f.backoff << attempt
		f.log.Warn("catalog fetch retry", "department", dept, "attempt", attempt+1, "wait", wait, "error", err)
		if err := f.sleep(ctx, wait); err != nil {
			lastErr = err
			break
		}
	}

	return "", fmt.Errorf("%w: %s: %w", domain.ErrFetch, target, lastErr)
}

type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.code, e.status)
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &statusError{code: resp.StatusCode, status: resp.Status}
	}

	var reader io.Reader = resp.Body
	if f.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if f.maxBytes > 0 && int64(len(body)) > f.maxBytes {
		return "", fmt.Errorf("%w: more than %d bytes", errBodyTooLarge, f.maxBytes)
	}
	return string(body), nil
}

// isRetryable reports whether a failed attempt may succeed later: server
// errors, throttling and transport failures retry; other statuses do not.
func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, errBodyTooLarge) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	return !errors.Is(err, context.Canceled)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
