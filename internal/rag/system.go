package rag

import (
	"context"
	"log/slog"

	"github.com/techmentor-ai/techmentor/internal/knowledge"
)

// System is the full query-time pipeline: retrieve, optionally fall back to
// the web, assemble context, generate.
type System struct {
	retriever *Retriever
	fallback  *Fallback
	assembler *Assembler
	generator *Generator
	topK      int
	logger    *slog.Logger
}

// NewSystem wires the pipeline stages together. topK bounds how many
// ephemeral results the fallback contributes, matching the local retriever.
func NewSystem(retriever *Retriever, fallback *Fallback, assembler *Assembler, generator *Generator, topK int, logger *slog.Logger) *System {
	if logger == nil {
		logger = slog.Default()
	}
	return &System{
		retriever: retriever,
		fallback:  fallback,
		assembler: assembler,
		generator: generator,
		topK:      topK,
		logger:    logger,
	}
}

// Answer runs one question through the pipeline. The fallback runs only on
// an insufficient retrieval decision and its failures never fail the query;
// retrieval and generation failures surface.
func (s *System) Answer(ctx context.Context, question string, history []Turn) (*Answer, error) {
	retrieval, err := s.retriever.Retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	var dynamic []knowledge.Result
	if retrieval.Decision == DecisionInsufficient {
		s.logger.Info("local knowledge insufficient, invoking web fallback",
			"sufficiency", retrieval.Sufficiency)
		dynamic = s.fallback.Gather(ctx, question, retrieval.QueryEmbedding, s.topK)
	}

	assembled := s.assembler.Assemble(retrieval.Results, dynamic)
	return s.generator.Generate(ctx, question, history, assembled)
}
