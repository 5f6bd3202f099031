package rag

import (
	"context"
	"testing"
	"time"

	"github.com/techmentor-ai/techmentor/internal/chunk"
	"github.com/techmentor-ai/techmentor/internal/knowledge"
	"github.com/techmentor-ai/techmentor/internal/scrape"
	"github.com/techmentor-ai/techmentor/internal/search"
)

func testChunker(t *testing.T) *chunk.Chunker {
	t.Helper()
	c, err := chunk.New(200, 50)
	if err != nil {
		t.Fatalf("chunk.New: %v", err)
	}
	return c
}

func TestGatherPartialFetchFailure(t *testing.T) {
	// Three search hits, one of them hangs past the per-fetch timeout. The
	// other two still become ephemeral results.
	hits := []search.Result{
		{Title: "Rust GPU", URL: "https://a.example/rust-gpu"},
		{Title: "slow", URL: "https://b.example/slow"},
		{Title: "CUDA careers", URL: "https://c.example/cuda"},
	}
	fetcher := &fakeFetcher{
		pages: map[string]*scrape.Page{
			"https://a.example/rust-gpu": {URL: "https://a.example/rust-gpu", Title: "Rust GPU", Text: "Rust is gaining ground in GPU compute roles."},
			"https://b.example/slow":     {URL: "https://b.example/slow", Title: "slow", Text: "never arrives"},
			"https://c.example/cuda":     {URL: "https://c.example/cuda", Title: "CUDA", Text: "CUDA experience remains the strongest GPU career signal."},
		},
		delays: map[string]time.Duration{"https://b.example/slow": 500 * time.Millisecond},
	}

	fb := NewFallback(&fakeSearcher{hits: hits}, fetcher, testChunker(t), newFakeEmbedder(),
		3, 50*time.Millisecond, time.Second, nil)

	results := fb.Gather(context.Background(), "Rust GPU careers", []float32{1, 0, 0}, 5)

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, res := range results {
		if res.Origin != knowledge.OriginDynamic {
			t.Errorf("Origin = %q, want dynamic", res.Origin)
		}
		if res.Chunk.Metadata["source_type"] != "web" {
			t.Errorf("source_type = %q", res.Chunk.Metadata["source_type"])
		}
	}
}

func TestGatherSearchFailure(t *testing.T) {
	fb := NewFallback(&fakeSearcher{err: search.ErrUnavailable}, &fakeFetcher{}, testChunker(t),
		newFakeEmbedder(), 3, 50*time.Millisecond, time.Second, nil)

	if results := fb.Gather(context.Background(), "question", []float32{1, 0, 0}, 5); results != nil {
		t.Errorf("got %d results, want none on search failure", len(results))
	}
}

func TestGatherNoHits(t *testing.T) {
	fb := NewFallback(&fakeSearcher{}, &fakeFetcher{}, testChunker(t),
		newFakeEmbedder(), 3, 50*time.Millisecond, time.Second, nil)

	if results := fb.Gather(context.Background(), "question", []float32{1, 0, 0}, 5); results != nil {
		t.Errorf("got %d results, want none", len(results))
	}
}

func TestGatherAllFetchesFail(t *testing.T) {
	hits := []search.Result{{URL: "https://dead.example/a"}, {URL: "https://dead.example/b"}}
	fb := NewFallback(&fakeSearcher{hits: hits}, &fakeFetcher{}, testChunker(t),
		newFakeEmbedder(), 3, 50*time.Millisecond, time.Second, nil)

	if results := fb.Gather(context.Background(), "question", []float32{1, 0, 0}, 5); len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestGatherRanksByQuerySimilarity(t *testing.T) {
	embedder := newFakeEmbedder()
	embedder.vectors["close match"] = []float32{1, 0, 0}
	embedder.vectors["far match"] = []float32{0, 1, 0}

	hits := []search.Result{
		{URL: "https://x.example/far"},
		{URL: "https://x.example/close"},
	}
	fetcher := &fakeFetcher{pages: map[string]*scrape.Page{
		"https://x.example/far":   {URL: "https://x.example/far", Text: "far match content here"},
		"https://x.example/close": {URL: "https://x.example/close", Text: "close match content here"},
	}}

	fb := NewFallback(&fakeSearcher{hits: hits}, fetcher, testChunker(t), embedder,
		3, 50*time.Millisecond, time.Second, nil)

	results := fb.Gather(context.Background(), "question", []float32{1, 0, 0}, 1)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if got := results[0].Chunk.Metadata["source_uri"]; got != "https://x.example/close" {
		t.Errorf("top result = %q, want the closer page", got)
	}
}
