package scrape

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/techmentor-ai/techmentor/internal/config"
	"github.com/techmentor-ai/techmentor/internal/knowledge"
)

// Crawler collects web pages for the offline indexing pipeline. Per-domain
// parallelism and delay limits keep the collector polite; a failed URL is
// logged and skipped so one dead link never aborts a collection run.
type Crawler struct {
	cfg    config.ScraperConfig
	logger *slog.Logger
}

// NewCrawler creates a Crawler with the given scraper limits.
func NewCrawler(cfg config.ScraperConfig, logger *slog.Logger) *Crawler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{cfg: cfg, logger: logger}
}

// Collect fetches every URL and returns the successfully extracted pages as
// documents with source_type=web. The returned slice preserves no particular
// order; fetches run concurrently within the configured limits.
func (c *Crawler) Collect(urls []string) []knowledge.Document {
	collector := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.MaxBodySize(maxBodySize),
		colly.Async(true),
	)
	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: c.cfg.Parallelism,
		Delay:       time.Duration(c.cfg.DelayMs) * time.Millisecond,
	}); err != nil {
		c.logger.Warn("failed to apply crawl limits", "error", err)
	}
	collector.SetRequestTimeout(time.Duration(c.cfg.TimeoutMs) * time.Millisecond)

	var (
		mu   sync.Mutex
		docs []knowledge.Document
	)

	collector.OnResponse(func(r *colly.Response) {
		pageURL := r.Request.URL.String()
		_, text, err := extractText(pageURL, r.Body)
		if err != nil {
			c.logger.Warn("skipping page without extractable content", "url", pageURL, "error", err)
			return
		}

		doc := knowledge.Document{
			ID:          DocumentID(pageURL),
			Text:        text,
			SourceType:  knowledge.SourceTypeWeb,
			SourceURI:   pageURL,
			CollectedAt: time.Now(),
		}

		mu.Lock()
		docs = append(docs, doc)
		mu.Unlock()
	})

	collector.OnError(func(r *colly.Response, err error) {
		c.logger.Warn("failed to fetch page", "url", r.Request.URL.String(), "error", err)
	})

	for _, u := range urls {
		if err := collector.Visit(u); err != nil {
			c.logger.Warn("failed to queue url", "url", u, "error", err)
		}
	}
	collector.Wait()

	c.logger.Info("collection complete", "requested", len(urls), "collected", len(docs))
	return docs
}

// DocumentID derives a stable document identifier from a source URI, so
// re-collecting the same page replaces its chunks instead of duplicating
// them.
func DocumentID(sourceURI string) string {
	hash := sha256.Sum256([]byte(sourceURI))
	return fmt.Sprintf("doc_%s", hex.EncodeToString(hash[:16]))
}
