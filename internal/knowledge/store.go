package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/techmentor-ai/techmentor/internal/chunk"
)

// ErrIndexUnavailable indicates the persisted vector store cannot be reached
// or queried. This is fatal for the whole query: no answer can be grounded
// without the index.
var ErrIndexUnavailable = errors.New("knowledge index unavailable")

// ErrDimensionMismatch indicates an embedding whose dimension does not match
// the index. Vectors embedded with a different model cannot be compared
// against the stored ones; mixing them would silently break ranking.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Querier defines the database operations Store needs. pgxpool.Pool
// satisfies it; tests supply a fake. Interfaces are defined by the consumer,
// not the provider.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the persisted vector index on PostgreSQL + pgvector.
//
// The distance metric is cosine (operator <=>), fixed per index instance;
// Query reports similarity = 1 - cosine distance. The store is append/
// replace-only and tolerates concurrent reads during offline upserts:
// readers may miss an in-progress upsert (eventual consistency).
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db        Querier
	dimension int
	logger    *slog.Logger
}

// NewStore creates a Store bound to a fixed embedding dimension. Entries and
// query vectors of any other dimension are rejected; re-embedding with a
// different model requires rebuilding the index.
func NewStore(db Querier, dimension int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, dimension: dimension, logger: logger}
}

// Dimension returns the fixed embedding dimension of this index instance.
func (s *Store) Dimension() int {
	return s.dimension
}

const upsertChunkSQL = `
INSERT INTO chunks (id, document_id, content, position, span_start, span_end, metadata, embedding)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
	document_id = EXCLUDED.document_id,
	content     = EXCLUDED.content,
	position    = EXCLUDED.position,
	span_start  = EXCLUDED.span_start,
	span_end    = EXCLUDED.span_end,
	metadata    = EXCLUDED.metadata,
	embedding   = EXCLUDED.embedding,
	updated_at  = now()`

// Upsert inserts or replaces entries keyed by chunk ID. Calling it twice with
// the same entries is a no-op beyond the first call. Ephemeral entries are
// rejected: dynamic web content must never reach the curated store.
func (s *Store) Upsert(ctx context.Context, entries []Entry) error {
	for _, entry := range entries {
		if !entry.Persisted {
			return fmt.Errorf("refusing to persist ephemeral entry %q", entry.Chunk.ID)
		}
		if len(entry.Embedding) != s.dimension {
			return fmt.Errorf("%w: entry %q has dimension %d, index requires %d",
				ErrDimensionMismatch, entry.Chunk.ID, len(entry.Embedding), s.dimension)
		}

		metadata, err := json.Marshal(entry.Chunk.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for chunk %q: %w", entry.Chunk.ID, err)
		}

		_, err = s.db.Exec(ctx, upsertChunkSQL,
			entry.Chunk.ID,
			entry.Chunk.DocumentID,
			entry.Chunk.Text,
			entry.Chunk.Position,
			entry.Chunk.Start,
			entry.Chunk.End,
			metadata,
			pgvector.NewVector(entry.Embedding),
		)
		if err != nil {
			return fmt.Errorf("%w: upserting chunk %q: %w", ErrIndexUnavailable, entry.Chunk.ID, err)
		}
	}

	s.logger.Debug("upserted entries", "count", len(entries))
	return nil
}

const queryChunksSQL = `
SELECT id, document_id, content, position, span_start, span_end, metadata,
       1 - (embedding <=> $1) AS similarity
FROM chunks
ORDER BY embedding <=> $1
LIMIT $2`

// Query returns the k nearest persisted entries by cosine similarity,
// ordered best first. Fewer than k results are returned when the index holds
// fewer entries; an empty index yields an empty slice, not an error.
func (s *Store) Query(ctx context.Context, embedding []float32, k int) ([]Result, error) {
	if k < 1 {
		return nil, fmt.Errorf("k must be at least 1, got %d", k)
	}
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, index requires %d",
			ErrDimensionMismatch, len(embedding), s.dimension)
	}

	rows, err := s.db.Query(ctx, queryChunksSQL, pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			c          chunk.Chunk
			metadata   []byte
			similarity float64
		)
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Text, &c.Position, &c.Start, &c.End, &metadata, &similarity); err != nil {
			return nil, fmt.Errorf("%w: scanning chunk row: %w", ErrIndexUnavailable, err)
		}
		if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
			s.logger.Warn("failed to parse chunk metadata", "chunk_id", c.ID, "error", err)
			c.Metadata = map[string]string{}
		}
		results = append(results, Result{Chunk: c, Similarity: similarity, Origin: OriginLocal})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
	}

	return results, nil
}

// Count returns the number of persisted chunks.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
	}
	return count, nil
}

const listSourcesSQL = `
SELECT document_id,
       coalesce(metadata->>'source_type', ''),
       coalesce(metadata->>'source_uri', ''),
       count(*)
FROM chunks
GROUP BY 1, 2, 3
ORDER BY 1`

// ListSources summarizes indexed documents with their chunk counts.
func (s *Store) ListSources(ctx context.Context) ([]SourceInfo, error) {
	rows, err := s.db.Query(ctx, listSourcesSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
	}
	defer rows.Close()

	var sources []SourceInfo
	for rows.Next() {
		var info SourceInfo
		if err := rows.Scan(&info.DocumentID, &info.SourceType, &info.SourceURI, &info.Chunks); err != nil {
			return nil, fmt.Errorf("%w: scanning source row: %w", ErrIndexUnavailable, err)
		}
		sources = append(sources, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
	}

	return sources, nil
}

// DeleteDocument removes every chunk of one document. Used by explicit
// re-collection; normal operation never deletes.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("%w: deleting document %q: %w", ErrIndexUnavailable, documentID, err)
	}
	s.logger.Debug("deleted document chunks", "document_id", documentID)
	return nil
}
