package rag

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/techmentor-ai/techmentor/internal/chunk"
	"github.com/techmentor-ai/techmentor/internal/knowledge"
	"github.com/techmentor-ai/techmentor/internal/scrape"
	"github.com/techmentor-ai/techmentor/internal/search"
)

// fakeEmbedder returns a fixed vector per text prefix, falling back to a
// default. Calls are counted for gating assertions.
type fakeEmbedder struct {
	vectors     map[string][]float32
	fallbackVec []float32
	err         error
	calls       int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{
		vectors:     make(map[string][]float32),
		fallbackVec: []float32{1, 0, 0},
	}
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	for prefix, vec := range f.vectors {
		if strings.HasPrefix(text, prefix) {
			return vec, nil
		}
	}
	return f.fallbackVec, nil
}

// fakeIndex returns canned results.
type fakeIndex struct {
	results []knowledge.Result
	err     error
	queries int
}

func (f *fakeIndex) Query(_ context.Context, _ []float32, k int) ([]knowledge.Result, error) {
	f.queries++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) > k {
		return f.results[:k], nil
	}
	return f.results, nil
}

// fakeSearcher returns canned hits.
type fakeSearcher struct {
	hits  []search.Result
	err   error
	calls int
}

func (f *fakeSearcher) Search(_ context.Context, _ string, maxResults int) ([]search.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.hits) > maxResults {
		return f.hits[:maxResults], nil
	}
	return f.hits, nil
}

// fakeFetcher serves pages by URL with an optional per-URL delay, honoring
// context cancellation like the real fetcher.
type fakeFetcher struct {
	pages  map[string]*scrape.Page
	delays map[string]time.Duration
}

func (f *fakeFetcher) Fetch(ctx context.Context, pageURL string) (*scrape.Page, error) {
	if delay := f.delays[pageURL]; delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, scrape.ErrFetch
		}
	}
	page, ok := f.pages[pageURL]
	if !ok {
		return nil, scrape.ErrFetch
	}
	return page, nil
}

// fakeGenerator records the prompt it was given.
type fakeGenerator struct {
	response string
	err      error
	prompt   string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

// fakeUpserter records upserted entries.
type fakeUpserter struct {
	entries []knowledge.Entry
	err     error
}

func (f *fakeUpserter) Upsert(_ context.Context, entries []knowledge.Entry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entries...)
	return nil
}

var errBoom = errors.New("boom")

// result builds a knowledge.Result for assembler and system tests.
func result(docID, text string, start, end int, score float64, origin knowledge.Origin) knowledge.Result {
	return knowledge.Result{
		Chunk: chunk.Chunk{
			ID:         docID + "-" + text[:min(8, len(text))],
			DocumentID: docID,
			Text:       text,
			Start:      start,
			End:        end,
			Metadata:   map[string]string{"source_uri": "kb://" + docID},
		},
		Similarity: score,
		Origin:     origin,
	}
}
