package knowledge

import (
	"time"

	"github.com/techmentor-ai/techmentor/internal/chunk"
)

// VectorDimension is the embedding width of the default model
// (nomic-embed-text) and of the vector column in the chunks table. Changing
// the embedder model requires a schema migration and a full re-index.
const VectorDimension = 768

// Source type constants for knowledge documents. These mirror the collection
// channels of the offline pipeline.
const (
	SourceTypeWeb     = "web"
	SourceTypePDF     = "pdf"
	SourceTypeYouTube = "youtube"
	SourceTypeManual  = "manual"
)

// Origin marks where a retrieval result came from.
type Origin string

const (
	// OriginLocal marks results retrieved from the persisted knowledge base.
	OriginLocal Origin = "local"

	// OriginDynamic marks ephemeral results produced by the web search
	// fallback for the current query only.
	OriginDynamic Origin = "dynamic"
)

// Document is a source document as supplied by the collection step.
// Documents are immutable once stored and are replaced only by explicit
// re-collection.
type Document struct {
	ID          string
	Text        string
	SourceType  string // web, pdf, youtube, manual
	SourceURI   string
	CollectedAt time.Time
}

// Entry pairs a chunk with its embedding. Persisted entries live in the
// pgvector store and survive restarts; ephemeral entries (Persisted=false)
// exist only inside one query's MemoryIndex and are never written back, so
// unranked web content cannot pollute the curated knowledge base.
type Entry struct {
	Chunk     chunk.Chunk
	Embedding []float32
	Persisted bool
}

// Result is a single retrieval result with its cosine similarity score and
// origin tag. Ordering by similarity descending is applied at retrieval time.
type Result struct {
	Chunk      chunk.Chunk
	Similarity float64
	Origin     Origin
}

// SourceInfo summarizes one indexed document for listing commands.
type SourceInfo struct {
	DocumentID string
	SourceType string
	SourceURI  string
	Chunks     int
}
