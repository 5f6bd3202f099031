package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/techmentor-ai/techmentor/internal/knowledge"
)

// systemInstruction frames every generation call. The context blocks carry
// citation markers the model is told to lean on.
const systemInstruction = `You are TechMentor, an experienced technology career advisor.
Answer the user's question using the provided context. Each context block is
labeled with its source; ground your advice in those sources and say so when
the context does not cover the question. Be concrete and practical.`

// TextGenerator produces text for a prompt. llm.Client satisfies this.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Turn is one prior conversation exchange, consumed read-only when building
// the prompt.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// Answer is a generated response with provenance.
type Answer struct {
	ID          string
	Text        string
	UsedDynamic bool
	Sources     []string
}

// Generator builds the final prompt and invokes the generation capability
// exactly once per question. No automatic retry: a generation failure
// surfaces to the caller.
type Generator struct {
	llm           TextGenerator
	historyWindow int
	logger        *slog.Logger
}

// NewGenerator creates a Generator that includes at most historyWindow prior
// turns in the prompt.
func NewGenerator(llm TextGenerator, historyWindow int, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{llm: llm, historyWindow: historyWindow, logger: logger}
}

// Generate produces an answer for the question given the assembled context
// and conversation history.
func (g *Generator) Generate(ctx context.Context, question string, history []Turn, kctx *Context) (*Answer, error) {
	prompt := g.buildPrompt(question, history, kctx)

	text, err := g.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	answer := &Answer{
		ID:          uuid.NewString(),
		Text:        strings.TrimSpace(text),
		UsedDynamic: kctx.UsedDynamic,
		Sources:     sourceList(kctx.Chunks),
	}

	g.logger.Info("answer generated",
		"answer_id", answer.ID,
		"context_chunks", len(kctx.Chunks),
		"used_dynamic", answer.UsedDynamic)
	return answer, nil
}

// buildPrompt lays out system instruction, bounded history, labeled context
// blocks and the question, in that order.
func (g *Generator) buildPrompt(question string, history []Turn, kctx *Context) string {
	var b strings.Builder
	b.WriteString(systemInstruction)
	b.WriteString("\n\n")

	if window := boundHistory(history, g.historyWindow); len(window) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, turn := range window {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
		}
		b.WriteString("\n")
	}

	if len(kctx.Chunks) > 0 {
		b.WriteString("Context:\n")
		for i, res := range kctx.Chunks {
			fmt.Fprintf(&b, "[Source %d: %s]\n%s\n\n", i+1, sourceLabel(res), res.Chunk.Text)
		}
	} else {
		b.WriteString("Context: none available.\n\n")
	}

	fmt.Fprintf(&b, "Question: %s\nAnswer:", question)
	return b.String()
}

// boundHistory returns the last window turns, oldest first.
func boundHistory(history []Turn, window int) []Turn {
	if window <= 0 || len(history) == 0 {
		return nil
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}
	return history
}

// sourceLabel names a chunk's origin for the prompt. Dynamic results are
// marked so the model can qualify freshness claims.
func sourceLabel(res knowledge.Result) string {
	uri := res.Chunk.Metadata["source_uri"]
	if uri == "" {
		uri = res.Chunk.DocumentID
	}
	if res.Origin == knowledge.OriginDynamic {
		return uri + " (live web result)"
	}
	return uri
}

// sourceList collects the distinct source URIs of the retained chunks in
// rank order.
func sourceList(chunks []knowledge.Result) []string {
	seen := make(map[string]bool, len(chunks))
	var sources []string
	for _, res := range chunks {
		uri := res.Chunk.Metadata["source_uri"]
		if uri == "" {
			uri = res.Chunk.DocumentID
		}
		if !seen[uri] {
			seen[uri] = true
			sources = append(sources, uri)
		}
	}
	return sources
}

// FormatAnswer renders an answer for display: the text, a deduplicated
// source list, and a note when live web results contributed.
func FormatAnswer(a *Answer) string {
	var b strings.Builder
	b.WriteString(a.Text)

	if len(a.Sources) > 0 {
		b.WriteString("\n\nSources:\n")
		for _, src := range a.Sources {
			fmt.Fprintf(&b, "  - %s\n", src)
		}
	}
	if a.UsedDynamic {
		b.WriteString("\n[Note: includes information from a live web search]\n")
	}
	return b.String()
}
