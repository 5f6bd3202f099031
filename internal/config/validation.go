package config

import (
	"fmt"
	"net/url"
	"time"
)

// Validate checks all configuration values and returns the first violation.
// Validation failures are fatal at startup, not per-query: a process with a
// bad chunking or threshold configuration must not serve queries at all.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk_overlap must not be negative, got %d", ErrInvalidChunking, c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap (%d) must be smaller than chunk_size (%d)",
			ErrInvalidChunking, c.ChunkOverlap, c.ChunkSize)
	}

	if c.TopK < 1 {
		return fmt.Errorf("%w: top_k must be at least 1, got %d", ErrInvalidRetrieval, c.TopK)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: confidence_threshold must be in [0,1], got %g",
			ErrInvalidRetrieval, c.ConfidenceThreshold)
	}

	if c.ContextBudget <= 0 {
		return fmt.Errorf("%w: context_budget must be positive, got %d", ErrInvalidBudget, c.ContextBudget)
	}

	if c.MaxDynamicResults < 1 {
		return fmt.Errorf("%w: max_dynamic_results must be at least 1, got %d",
			ErrInvalidFallback, c.MaxDynamicResults)
	}
	if c.FetchTimeoutMs <= 0 {
		return fmt.Errorf("%w: fetch_timeout_ms must be positive, got %d",
			ErrInvalidFallback, c.FetchTimeoutMs)
	}

	if c.HistoryWindow < 0 {
		return fmt.Errorf("%w: history_window must not be negative, got %d",
			ErrInvalidLLM, c.HistoryWindow)
	}

	if err := validateBaseURL(c.LLM.BaseURL); err != nil {
		return fmt.Errorf("%w: llm.base_url: %v", ErrInvalidLLM, err)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("%w: llm.model must not be empty", ErrInvalidLLM)
	}
	if c.LLM.EmbedderModel == "" {
		return fmt.Errorf("%w: llm.embedder_model must not be empty", ErrInvalidLLM)
	}
	if c.LLM.MaxTokens < 1 {
		return fmt.Errorf("%w: llm.max_tokens must be at least 1, got %d", ErrInvalidLLM, c.LLM.MaxTokens)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("%w: llm.temperature must be in [0,2], got %g", ErrInvalidLLM, c.LLM.Temperature)
	}

	if c.SearXNG.BaseURL != "" {
		if err := validateBaseURL(c.SearXNG.BaseURL); err != nil {
			return fmt.Errorf("%w: searxng.base_url: %v", ErrInvalidFallback, err)
		}
	}

	if c.Scraper.Parallelism < 1 {
		return fmt.Errorf("%w: scraper.parallelism must be at least 1, got %d",
			ErrInvalidFallback, c.Scraper.Parallelism)
	}
	if c.Scraper.DelayMs < 0 {
		return fmt.Errorf("%w: scraper.delay_ms must not be negative, got %d",
			ErrInvalidFallback, c.Scraper.DelayMs)
	}
	if c.Scraper.TimeoutMs <= 0 {
		return fmt.Errorf("%w: scraper.timeout_ms must be positive, got %d",
			ErrInvalidFallback, c.Scraper.TimeoutMs)
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: postgres_host must not be empty", ErrInvalidPostgres)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: postgres_port must be in [1,65535], got %d", ErrInvalidPostgres, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: postgres_db_name must not be empty", ErrInvalidPostgres)
	}
	switch c.PostgresSSLMode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		return fmt.Errorf("%w: postgres_ssl_mode %q is not a valid pgx sslmode", ErrInvalidPostgres, c.PostgresSSLMode)
	}

	return nil
}

// FetchTimeout returns the per-result fetch timeout as a time.Duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMs) * time.Millisecond
}

// FallbackDeadline returns the overall deadline for one dynamic search pass:
// bounded by max_results x per-result timeout so a single query cannot hang
// indefinitely even if every fetch runs to its limit sequentially.
func (c *Config) FallbackDeadline() time.Duration {
	return time.Duration(c.MaxDynamicResults) * c.FetchTimeout()
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("not a valid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
