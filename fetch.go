package partfinder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// browserHeaders is the fixed header set sent with every document fetch.
// Catalog sites serve stripped-down or blocked pages to obvious bots.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
	"Accept-Encoding": "identity",
}

// HTTPError reports a non-2xx upstream response.
type HTTPError struct {
	Status int
	URL    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d on %s", e.Status, e.URL)
}

// Fetcher retrieves documents with browser-like headers, a bounded redirect
// chain and a fixed timeout. Failures are always local to the caller; nothing
// here aborts a pipeline run.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewFetcher creates a Fetcher from pipeline configuration.
func NewFetcher(cfg Config) *Fetcher {
	maxRedirects := cfg.MaxRedirects
	f := &Fetcher{
		client: &http.Client{
			Timeout:   cfg.HTTPTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}
	if cfg.FetchRPS > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.FetchRPS), max(cfg.FetchBurst, 1))
	}
	return f
}

// Fetch retrieves a URL as text. Extra headers override the browser set.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, extra map[string]string) (string, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	applyHeaders(req, extra)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &HTTPError{Status: resp.StatusCode, URL: rawURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", rawURL, err)
	}
	return string(body), nil
}

// FetchPage retrieves a URL with the Referer set to its own origin, the way a
// browser landing on the page would.
func (f *Fetcher) FetchPage(ctx context.Context, rawURL string) (string, error) {
	headers := map[string]string{}
	if origin := originOf(rawURL); origin != "" {
		headers["Referer"] = origin + "/"
	}
	return f.Fetch(ctx, rawURL, headers)
}

// Probe issues a lightweight HEAD request confirming the URL resolves. The
// body is never read.
func (f *Fetcher) Probe(ctx context.Context, rawURL string) error {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	applyHeaders(req, nil)

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe failed for %s: %w", rawURL, err)
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{Status: resp.StatusCode, URL: rawURL}
	}
	return nil
}

func applyHeaders(req *http.Request, extra map[string]string) {
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}
	for k, v := range extra {
		req.Header.Set(k, v)
	}
}

// originOf returns scheme://host for a URL, or "" when it cannot be parsed.
func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
