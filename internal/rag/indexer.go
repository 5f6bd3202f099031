package rag

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/techmentor-ai/techmentor/internal/chunk"
	"github.com/techmentor-ai/techmentor/internal/knowledge"
	"github.com/techmentor-ai/techmentor/internal/scrape"
)

// ErrIndexBusy means another indexing run holds the batch lock.
var ErrIndexBusy = errors.New("another indexing run is in progress")

// Upserter is the write side of the persisted index. knowledge.Store
// satisfies this.
type Upserter interface {
	Upsert(ctx context.Context, entries []knowledge.Entry) error
}

// sourceDirs maps data-directory subfolders to the source type of the
// documents they hold. Collection tools write pre-extracted text here.
var sourceDirs = map[string]string{
	"web":     knowledge.SourceTypeWeb,
	"pdf":     knowledge.SourceTypePDF,
	"youtube": knowledge.SourceTypeYouTube,
}

// sourcePrefix marks the optional first line of a collected .txt file that
// records where the text came from.
const sourcePrefix = "Source:"

// IndexStats summarizes one indexing run.
type IndexStats struct {
	Documents int
	Chunks    int
	Failed    int
	Duration  time.Duration
}

// Indexer is the offline pipeline: documents are cleaned, chunked, embedded
// and upserted into the persisted index. A file lock serializes batch runs
// so two concurrent invocations cannot interleave their writes.
type Indexer struct {
	store    Upserter
	chunker  *chunk.Chunker
	embedder Embedder
	lockPath string
	logger   *slog.Logger
}

// NewIndexer creates an Indexer. lockPath is the batch lock file, typically
// under the user's config directory.
func NewIndexer(store Upserter, chunker *chunk.Chunker, embedder Embedder, lockPath string, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		store:    store,
		chunker:  chunker,
		embedder: embedder,
		lockPath: lockPath,
		logger:   logger,
	}
}

// IndexDocuments chunks, embeds and upserts the documents. A document whose
// embedding fails is counted and skipped; storage failures abort the run.
// Re-indexing a document is idempotent: chunk IDs derive from document ID
// and position, so upserts overwrite in place.
func (i *Indexer) IndexDocuments(ctx context.Context, docs []knowledge.Document) (*IndexStats, error) {
	lock := flock.New(i.lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring index lock: %w", err)
	}
	if !locked {
		return nil, ErrIndexBusy
	}
	defer func() { _ = lock.Unlock() }()

	started := time.Now()
	stats := &IndexStats{}

	for _, doc := range docs {
		entries, err := i.prepare(ctx, doc)
		if err != nil {
			i.logger.Warn("skipping document", "document_id", doc.ID, "error", err)
			stats.Failed++
			continue
		}
		if len(entries) == 0 {
			i.logger.Debug("document produced no chunks", "document_id", doc.ID)
			continue
		}

		if err := i.store.Upsert(ctx, entries); err != nil {
			return stats, fmt.Errorf("storing document %s: %w", doc.ID, err)
		}
		stats.Documents++
		stats.Chunks += len(entries)
	}

	stats.Duration = time.Since(started)
	i.logger.Info("indexing complete",
		"documents", stats.Documents,
		"chunks", stats.Chunks,
		"failed", stats.Failed,
		"duration", stats.Duration)
	return stats, nil
}

// prepare turns one document into persisted entries.
func (i *Indexer) prepare(ctx context.Context, doc knowledge.Document) ([]knowledge.Entry, error) {
	metadata := map[string]string{
		"source_type": doc.SourceType,
		"source_uri":  doc.SourceURI,
	}

	chunks := i.chunker.Split(doc.ID, doc.Text, metadata)
	entries := make([]knowledge.Entry, 0, len(chunks))
	for _, c := range chunks {
		embedding, err := i.embedder.Embed(ctx, c.Text)
		if err != nil {
			return nil, fmt.Errorf("embedding chunk %s: %w", c.ID, err)
		}
		entries = append(entries, knowledge.Entry{Chunk: c, Embedding: embedding, Persisted: true})
	}
	return entries, nil
}

// IndexDirectory ingests a collected data directory: .txt files under web/,
// pdf/ and youtube/ subdirectories, each optionally starting with a
// "Source: <uri>" line. Files directly under dir are indexed as manual
// sources.
func (i *Indexer) IndexDirectory(ctx context.Context, dir string) (*IndexStats, error) {
	docs, err := LoadDirectory(dir)
	if err != nil {
		return nil, err
	}
	return i.IndexDocuments(ctx, docs)
}

// LoadDirectory reads a collected data directory into documents without
// touching the index.
func LoadDirectory(dir string) ([]knowledge.Document, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("reading data directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var docs []knowledge.Document
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".txt") {
			return nil
		}

		doc, err := loadTextFile(dir, path)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking data directory: %w", err)
	}
	return docs, nil
}

// loadTextFile reads one collected .txt file into a document. The source
// type comes from the file's subdirectory; an optional "Source:" first line
// overrides the file path as the source URI.
func loadTextFile(root, path string) (knowledge.Document, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- path comes from walking the user-supplied data dir
	if err != nil {
		return knowledge.Document{}, fmt.Errorf("reading %s: %w", path, err)
	}

	sourceType := knowledge.SourceTypeManual
	rel, err := filepath.Rel(root, path)
	if err == nil {
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) > 1 {
			if st, ok := sourceDirs[parts[0]]; ok {
				sourceType = st
			}
		}
	}

	text := string(raw)
	sourceURI := path
	if line, rest, found := strings.Cut(text, "\n"); found && strings.HasPrefix(line, sourcePrefix) {
		if uri := strings.TrimSpace(strings.TrimPrefix(line, sourcePrefix)); uri != "" {
			sourceURI = uri
			text = rest
		}
	}

	return knowledge.Document{
		ID:          scrape.DocumentID(sourceURI),
		Text:        text,
		SourceType:  sourceType,
		SourceURI:   sourceURI,
		CollectedAt: time.Now(),
	}, nil
}
