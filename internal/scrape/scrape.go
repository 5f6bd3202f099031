// Package scrape acquires page content from the web.
//
// Two acquisition paths share the same extraction logic:
//
//   - Fetcher: single-page, context-aware fetch used by the dynamic search
//     fallback at query time, where per-result timeouts matter.
//   - Crawler: colly-based batch collection used by the offline pipeline,
//     where per-domain politeness (parallelism, delay) matters.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/techmentor-ai/techmentor/internal/config"
	"github.com/techmentor-ai/techmentor/internal/security"
)

// ErrFetch indicates a single page could not be fetched or parsed. Callers
// absorb it per URL: one bad page never aborts a whole fallback pass.
var ErrFetch = errors.New("page fetch failed")

// userAgent identifies the collector politely; some career sites block
// default Go client strings outright.
const userAgent = "Mozilla/5.0 (compatible; techmentor/1.0; +https://github.com/techmentor-ai/techmentor)"

// maxBodySize caps fetched page bodies to prevent resource exhaustion.
const maxBodySize = 10 << 20 // 10MB

// Page is the extracted text content of one fetched web page.
type Page struct {
	URL   string
	Title string
	Text  string
}

// Fetcher retrieves and extracts a single page within the caller's context
// deadline. URLs come from web search results, so every target and redirect
// is validated before connecting. Safe for concurrent use.
type Fetcher struct {
	http      *http.Client
	validator *security.URL
	logger    *slog.Logger
}

// NewFetcher creates a Fetcher with the configured per-request timeout.
func NewFetcher(cfg config.ScraperConfig, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	validator := security.NewURL()
	return &Fetcher{
		http: &http.Client{
			Timeout:       time.Duration(cfg.TimeoutMs) * time.Millisecond,
			Transport:     validator.SafeTransport(),
			CheckRedirect: validator.ValidateRedirect,
		},
		validator: validator,
		logger:    logger,
	}
}

// Fetch downloads pageURL and extracts its main text content. The context
// bounds the whole operation; cancellation yields ErrFetch like any other
// per-page failure.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	if f.validator != nil {
		if err := f.validator.Validate(pageURL); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFetch, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrFetch, pageURL, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return nil, fmt.Errorf("%w: %s has unsupported content type %q", ErrFetch, pageURL, ct)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrFetch, pageURL, err)
	}

	title, text, err := extractText(pageURL, body)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("fetched page", "url", pageURL, "chars", len(text))
	return &Page{URL: pageURL, Title: title, Text: text}, nil
}
