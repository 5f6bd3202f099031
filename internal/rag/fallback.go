package rag

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/techmentor-ai/techmentor/internal/chunk"
	"github.com/techmentor-ai/techmentor/internal/knowledge"
	"github.com/techmentor-ai/techmentor/internal/scrape"
	"github.com/techmentor-ai/techmentor/internal/search"
)

// Searcher is the web search collaborator. search.Client satisfies this.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]search.Result, error)
}

// PageFetcher retrieves one page's extracted text. scrape.Fetcher satisfies
// this.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*scrape.Page, error)
}

// Fallback turns a web search into ephemeral retrieval results for a single
// query. Nothing it produces is ever written to the persisted index.
//
// Failure policy: the fallback is best effort end to end. A failed search, a
// dead link, an embedding error on one page's chunks, or the overall deadline
// expiring all degrade the result set rather than fail the query.
type Fallback struct {
	searcher     Searcher
	fetcher      PageFetcher
	chunker      *chunk.Chunker
	embedder     Embedder
	maxResults   int
	fetchTimeout time.Duration
	deadline     time.Duration
	logger       *slog.Logger
}

// NewFallback creates a Fallback. fetchTimeout bounds each page fetch,
// deadline bounds the whole gathering pass.
func NewFallback(
	searcher Searcher,
	fetcher PageFetcher,
	chunker *chunk.Chunker,
	embedder Embedder,
	maxResults int,
	fetchTimeout, deadline time.Duration,
	logger *slog.Logger,
) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{
		searcher:     searcher,
		fetcher:      fetcher,
		chunker:      chunker,
		embedder:     embedder,
		maxResults:   maxResults,
		fetchTimeout: fetchTimeout,
		deadline:     deadline,
		logger:       logger,
	}
}

// Gather searches the web for the question, fetches the hits concurrently,
// and returns up to k ephemeral results ranked against queryEmbedding.
// Returns an empty slice on total failure, never an error.
func (f *Fallback) Gather(ctx context.Context, question string, queryEmbedding []float32, k int) []knowledge.Result {
	ctx, cancel := context.WithTimeout(ctx, f.deadline)
	defer cancel()

	hits, err := f.searcher.Search(ctx, question, f.maxResults)
	if err != nil {
		f.logger.Warn("web search failed, continuing with local context only", "error", err)
		return nil
	}
	if len(hits) == 0 {
		f.logger.Debug("web search returned no results", "question", question)
		return nil
	}

	index := knowledge.NewMemoryIndex()

	var mu sync.Mutex
	var g errgroup.Group
	for _, hit := range hits {
		g.Go(func() error {
			entries := f.gatherOne(ctx, hit)
			if len(entries) > 0 {
				mu.Lock()
				index.Add(entries...)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if index.Len() == 0 {
		f.logger.Warn("no web results could be fetched", "question", question)
		return nil
	}

	results := index.Query(queryEmbedding, k)
	f.logger.Info("dynamic fallback complete",
		"search_hits", len(hits),
		"ephemeral_entries", index.Len(),
		"results", len(results))
	return results
}

// gatherOne fetches, chunks and embeds a single search hit. Every failure is
// absorbed here so one URL never affects the others.
func (f *Fallback) gatherOne(ctx context.Context, hit search.Result) []knowledge.Entry {
	fetchCtx, cancel := context.WithTimeout(ctx, f.fetchTimeout)
	defer cancel()

	page, err := f.fetcher.Fetch(fetchCtx, hit.URL)
	if err != nil {
		f.logger.Warn("skipping unreachable search result", "url", hit.URL, "error", err)
		return nil
	}

	metadata := map[string]string{
		"source_type": knowledge.SourceTypeWeb,
		"source_uri":  page.URL,
		"title":       page.Title,
	}
	chunks := f.chunker.Split(scrape.DocumentID(page.URL), page.Text, metadata)

	entries := make([]knowledge.Entry, 0, len(chunks))
	for _, c := range chunks {
		embedding, err := f.embedder.Embed(ctx, c.Text)
		if err != nil {
			f.logger.Warn("skipping chunk that failed to embed", "url", page.URL, "error", err)
			continue
		}
		entries = append(entries, knowledge.Entry{Chunk: c, Embedding: embedding, Persisted: false})
	}
	return entries
}
