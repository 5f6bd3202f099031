package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/techmentor-ai/techmentor/db"
	"github.com/techmentor-ai/techmentor/internal/chunk"
	"github.com/techmentor-ai/techmentor/internal/config"
	"github.com/techmentor-ai/techmentor/internal/database"
	"github.com/techmentor-ai/techmentor/internal/knowledge"
	"github.com/techmentor-ai/techmentor/internal/llm"
	"github.com/techmentor-ai/techmentor/internal/rag"
	"github.com/techmentor-ai/techmentor/internal/scrape"
	"github.com/techmentor-ai/techmentor/internal/search"
)

// Setup builds a fully wired App: migrations, connection pool, clients and
// the answer pipeline. The caller must Close the returned App.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, release everything already initialized.
	defer func() {
		if retErr != nil {
			a.Close()
		}
	}()

	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := database.Open(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	a.Knowledge = knowledge.NewStore(pool, knowledge.VectorDimension, logger)
	a.LLM = llm.NewClient(cfg.LLM, logger)

	chunker, err := chunk.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	retriever := rag.NewRetriever(a.LLM, a.Knowledge, cfg.TopK, cfg.ConfidenceThreshold, logger)
	fallback := rag.NewFallback(
		search.NewClient(cfg.SearXNG.BaseURL, logger),
		scrape.NewFetcher(cfg.Scraper, logger),
		chunker,
		a.LLM,
		cfg.MaxDynamicResults,
		cfg.FetchTimeout(),
		cfg.FallbackDeadline(),
		logger,
	)
	assembler := rag.NewAssembler(cfg.ContextBudget, logger)
	generator := rag.NewGenerator(a.LLM, cfg.HistoryWindow, logger)
	a.System = rag.NewSystem(retriever, fallback, assembler, generator, cfg.TopK, logger)

	lockPath, err := indexLockPath()
	if err != nil {
		return nil, err
	}
	a.Indexer = rag.NewIndexer(a.Knowledge, chunker, a.LLM, lockPath, logger)
	a.Crawler = scrape.NewCrawler(cfg.Scraper, logger)

	return a, nil
}

// indexLockPath places the batch lock next to the config file.
func indexLockPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	dir := filepath.Join(home, ".techmentor")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	return filepath.Join(dir, "index.lock"), nil
}
