package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/techmentor-ai/techmentor/internal/knowledge"
)

// Embedder produces a vector for a piece of text. llm.Client satisfies this.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index is the query side of the persisted vector index. knowledge.Store
// satisfies this.
type Index interface {
	Query(ctx context.Context, embedding []float32, k int) ([]knowledge.Result, error)
}

// Decision is the retriever's explicit verdict on local knowledge coverage.
type Decision string

const (
	// DecisionSufficient means local results alone back the answer.
	DecisionSufficient Decision = "sufficient"

	// DecisionInsufficient means the pipeline should attempt the web
	// search fallback before generating.
	DecisionInsufficient Decision = "insufficient"
)

// Retrieval is the outcome of one retrieval pass. QueryEmbedding is kept so
// downstream stages can query ephemeral entries without re-embedding the
// question.
type Retrieval struct {
	Results        []knowledge.Result
	Sufficiency    float64
	Decision       Decision
	QueryEmbedding []float32
}

// Retriever embeds a question, queries the persisted index and gates the
// result set on a sufficiency score.
type Retriever struct {
	embedder  Embedder
	index     Index
	topK      int
	threshold float64
	logger    *slog.Logger
}

// NewRetriever creates a Retriever that returns up to topK results and
// considers them sufficient when the score reaches threshold.
func NewRetriever(embedder Embedder, index Index, topK int, threshold float64, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		embedder:  embedder,
		index:     index,
		topK:      topK,
		threshold: threshold,
		logger:    logger,
	}
}

// Retrieve runs one retrieval pass. An empty index yields an empty result set
// with sufficiency 0, not an error; embedding or index failures surface.
func (r *Retriever) Retrieve(ctx context.Context, question string) (*Retrieval, error) {
	embedding, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	results, err := r.index.Query(ctx, embedding, r.topK)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}

	score := Sufficiency(results)
	decision := DecisionInsufficient
	if score >= r.threshold {
		decision = DecisionSufficient
	}

	r.logger.Debug("retrieval complete",
		"results", len(results),
		"sufficiency", score,
		"decision", string(decision))

	return &Retrieval{
		Results:        results,
		Sufficiency:    score,
		Decision:       decision,
		QueryEmbedding: embedding,
	}, nil
}

// Sufficiency scores how well a result set covers a question: the top cosine
// similarity clamped to [0,1], and 0 for an empty set. Monotonic in the top
// score, so a better match never lowers confidence.
func Sufficiency(results []knowledge.Result) float64 {
	if len(results) == 0 {
		return 0
	}
	top := results[0].Similarity
	for _, res := range results[1:] {
		if res.Similarity > top {
			top = res.Similarity
		}
	}
	if top < 0 {
		return 0
	}
	if top > 1 {
		return 1
	}
	return top
}
