// Package app initializes the application and wires its components.
package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/techmentor-ai/techmentor/internal/config"
	"github.com/techmentor-ai/techmentor/internal/knowledge"
	"github.com/techmentor-ai/techmentor/internal/llm"
	"github.com/techmentor-ai/techmentor/internal/rag"
	"github.com/techmentor-ai/techmentor/internal/scrape"
)

// App is the application container. Setup builds it; Close releases its
// resources.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	DBPool    *pgxpool.Pool
	Knowledge *knowledge.Store
	LLM       *llm.Client

	System  *rag.System
	Indexer *rag.Indexer
	Crawler *scrape.Crawler
}

// Close releases all resources. Safe to call on a partially initialized App.
func (a *App) Close() {
	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Debug("database pool closed")
	}
}
