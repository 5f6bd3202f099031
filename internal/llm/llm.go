// Package llm provides the embedding and generation capabilities backed by a
// local OpenAI-compatible model server (Ollama, llama.cpp server, vLLM).
//
// Both capabilities are blocking calls from the pipeline's perspective. The
// pipeline never issues two generation calls concurrently for the same
// conversation turn; the server is free to use any concurrency model
// internally.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/techmentor-ai/techmentor/internal/config"
)

var (
	// ErrEmbedding indicates an embedding call failed (malformed input or
	// resource exhaustion). Surfaced as a failed query; never silently
	// replaced with a zero vector.
	ErrEmbedding = errors.New("embedding failed")

	// ErrGeneration indicates a generation call failed (model load failure,
	// context overflow, resource exhaustion). Fatal for the query; local
	// model failures are typically resource exhaustion, so no automatic
	// retry is attempted.
	ErrGeneration = errors.New("generation failed")
)

// Client talks to one OpenAI-compatible endpoint for both embeddings and
// chat completions. Safe for concurrent use.
type Client struct {
	api    *openai.Client
	cfg    config.LLMConfig
	logger *slog.Logger
}

// NewClient creates a Client from LLM configuration.
func NewClient(cfg config.LLMConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	return &Client{
		api:    openai.NewClientWithConfig(apiCfg),
		cfg:    cfg,
		logger: logger,
	}
}

// Embed returns the fixed-dimension embedding vector for text. The server is
// deterministic for identical input and model version.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", ErrEmbedding)
	}

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.cfg.EmbedderModel),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: server returned no embedding", ErrEmbedding)
	}

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i := range raw {
		vec[i] = float32(raw[i])
	}
	return vec, nil
}

// Generate produces text for the given prompt using the configured chat
// model, max token budget and temperature.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: server returned no choices", ErrGeneration)
	}

	c.logger.Debug("generation complete",
		"model", c.cfg.Model,
		"prompt_chars", len(prompt),
		"completion_chars", len(resp.Choices[0].Message.Content))

	return resp.Choices[0].Message.Content, nil
}
