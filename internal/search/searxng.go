// Package search provides the web search collaborator used by the dynamic
// search fallback. It queries a SearXNG instance, which aggregates upstream
// engines behind one JSON API.
//
// The collaborator is treated as unreliable: no freshness or availability
// guarantee. Callers recover from ErrUnavailable by proceeding with
// local-only context.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrUnavailable indicates the search service could not be reached or
// returned an unusable response.
var ErrUnavailable = errors.New("web search unavailable")

// maxResponseSize caps the search response body to prevent resource
// exhaustion from a misbehaving instance.
const maxResponseSize = 2 << 20 // 2MB

// Result is one web search hit.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Client queries a SearXNG instance. Requests are rate limited to stay
// polite toward shared instances. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a search client for the given SearXNG base URL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		logger:  logger,
	}
}

// searxngResponse mirrors the fields we consume from SearXNG's JSON format.
type searxngResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search returns up to maxResults hits for the query, in the engine's
// ranking order.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", ErrUnavailable)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	endpoint := fmt.Sprintf("%s/search?q=%s&format=json", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrUnavailable, err)
	}

	var parsed searxngResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", ErrUnavailable, err)
	}

	results := make([]Result, 0, maxResults)
	for _, r := range parsed.Results {
		if r.URL == "" {
			continue
		}
		results = append(results, Result{Title: r.Title, URL: r.URL, Snippet: r.Content})
		if len(results) == maxResults {
			break
		}
	}

	c.logger.Debug("web search complete", "query", query, "results", len(results))
	return results, nil
}
