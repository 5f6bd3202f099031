// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (TECHMENTOR_* prefix, runtime override)
//  2. Config file (~/.techmentor/config.yaml)
//  3. Default values
//
// Unknown keys in the config file are rejected at load time rather than
// silently ignored, so typos surface at startup instead of as mysterious
// default behavior.
//
// Error handling uses sentinel errors so callers can check categories with
// errors.Is(); wrap with fmt.Errorf("%w: details", ErrXxx).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrInvalidChunking indicates bad chunk size/overlap parameters.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidRetrieval indicates bad top_k or confidence threshold values.
	ErrInvalidRetrieval = errors.New("invalid retrieval configuration")

	// ErrInvalidBudget indicates a non-positive context budget.
	ErrInvalidBudget = errors.New("invalid context budget")

	// ErrInvalidFallback indicates bad dynamic search parameters.
	ErrInvalidFallback = errors.New("invalid fallback configuration")

	// ErrInvalidLLM indicates bad language model configuration.
	ErrInvalidLLM = errors.New("invalid llm configuration")

	// ErrInvalidPostgres indicates bad PostgreSQL connection settings.
	ErrInvalidPostgres = errors.New("invalid postgres configuration")

	// ErrUnknownOption indicates an unrecognized key in the config file.
	ErrUnknownOption = errors.New("unknown configuration option")
)

// Defaults chosen to match the curated knowledge base: ~500-char chunks with
// 50-char overlap keep a chunk within one embedding call, and a 4000-char
// context budget fits comfortably inside small local model context windows.
const (
	DefaultChunkSize           = 500
	DefaultChunkOverlap        = 50
	DefaultTopK                = 5
	DefaultConfidenceThreshold = 0.6
	DefaultContextBudget       = 4000
	DefaultMaxDynamicResults   = 3
	DefaultFetchTimeoutMs      = 15000
	DefaultHistoryWindow       = 6
)

// LLMConfig holds connection settings for the local OpenAI-compatible
// model server (Ollama, llama.cpp server, vLLM) providing both the
// embedding and generation capabilities.
type LLMConfig struct {
	BaseURL       string  `mapstructure:"base_url" json:"base_url"`
	APIKey        string  `mapstructure:"api_key" json:"api_key"` // SENSITIVE: never logged
	Model         string  `mapstructure:"model" json:"model"`
	EmbedderModel string  `mapstructure:"embedder_model" json:"embedder_model"`
	MaxTokens     int     `mapstructure:"max_tokens" json:"max_tokens"`
	Temperature   float32 `mapstructure:"temperature" json:"temperature"`
}

// SearXNGConfig holds SearXNG service configuration for the web search
// collaborator used by the dynamic search fallback.
type SearXNGConfig struct {
	// BaseURL is the SearXNG instance URL (e.g., http://searxng:8080)
	BaseURL string `mapstructure:"base_url" json:"base_url"`
}

// ScraperConfig holds web scraper configuration for fallback page fetching.
type ScraperConfig struct {
	// Parallelism is max concurrent requests per domain (default: 2)
	Parallelism int `mapstructure:"parallelism" json:"parallelism"`
	// DelayMs is delay between requests to one domain in milliseconds (default: 500)
	DelayMs int `mapstructure:"delay_ms" json:"delay_ms"`
	// TimeoutMs is per-request timeout in milliseconds (default: 15000)
	TimeoutMs int `mapstructure:"timeout_ms" json:"timeout_ms"`
}

// Config stores application configuration.
type Config struct {
	// Chunking (offline pipeline and fallback share these)
	ChunkSize    int `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap" json:"chunk_overlap"`

	// Retrieval
	TopK                int     `mapstructure:"top_k" json:"top_k"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold" json:"confidence_threshold"`

	// Context assembly
	ContextBudget int `mapstructure:"context_budget" json:"context_budget"`

	// Dynamic search fallback
	MaxDynamicResults int `mapstructure:"max_dynamic_results" json:"max_dynamic_results"`
	FetchTimeoutMs    int `mapstructure:"fetch_timeout_ms" json:"fetch_timeout_ms"`

	// Prompt construction
	HistoryWindow int `mapstructure:"history_window" json:"history_window"`

	// Collaborators
	LLM     LLMConfig     `mapstructure:"llm" json:"llm"`
	SearXNG SearXNGConfig `mapstructure:"searxng" json:"searxng"`
	Scraper ScraperConfig `mapstructure:"scraper" json:"scraper"`

	// Storage (see storage.go for DSN helpers)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: never logged
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`
}

// recognizedKeys enumerates every option the application consumes. Keys read
// from the config file that are not in this set fail Load with
// ErrUnknownOption.
var recognizedKeys = map[string]struct{}{
	"chunk_size":           {},
	"chunk_overlap":        {},
	"top_k":                {},
	"confidence_threshold": {},
	"context_budget":       {},
	"max_dynamic_results":  {},
	"fetch_timeout_ms":     {},
	"history_window":       {},
	"llm.base_url":         {},
	"llm.api_key":          {},
	"llm.model":            {},
	"llm.embedder_model":   {},
	"llm.max_tokens":       {},
	"llm.temperature":      {},
	"searxng.base_url":     {},
	"scraper.parallelism":  {},
	"scraper.delay_ms":     {},
	"scraper.timeout_ms":   {},
	"postgres_host":        {},
	"postgres_port":        {},
	"postgres_user":        {},
	"postgres_password":    {},
	"postgres_db_name":     {},
	"postgres_ssl_mode":    {},
}

// Load reads configuration from defaults, the config file and environment
// variables, validates it, and returns the result.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return LoadFrom(filepath.Join(home, ".techmentor"))
}

// LoadFrom loads configuration with the given config directory. Split out
// from Load so tests can point at a temporary directory.
func LoadFrom(configDir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("TECHMENTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine: defaults + env cover everything.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := rejectUnknownKeys(v.ConfigFileUsed()); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// rejectUnknownKeys re-reads the config file in isolation (no defaults, no
// env) and fails if it contains keys the application does not recognize.
func rejectUnknownKeys(configFile string) error {
	raw := viper.New()
	raw.SetConfigFile(configFile)
	if err := raw.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to re-read config file: %w", err)
	}

	var unknown []string
	for _, key := range raw.AllKeys() {
		if _, ok := recognizedKeys[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: %s", ErrUnknownOption, strings.Join(unknown, ", "))
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("chunk_overlap", DefaultChunkOverlap)
	v.SetDefault("top_k", DefaultTopK)
	v.SetDefault("confidence_threshold", DefaultConfidenceThreshold)
	v.SetDefault("context_budget", DefaultContextBudget)
	v.SetDefault("max_dynamic_results", DefaultMaxDynamicResults)
	v.SetDefault("fetch_timeout_ms", DefaultFetchTimeoutMs)
	v.SetDefault("history_window", DefaultHistoryWindow)

	v.SetDefault("llm.base_url", "http://localhost:11434/v1")
	v.SetDefault("llm.api_key", "ollama") // local servers accept any token
	v.SetDefault("llm.model", "llama3.2")
	v.SetDefault("llm.embedder_model", "nomic-embed-text")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.temperature", 0.7)

	v.SetDefault("searxng.base_url", "http://localhost:8888")

	v.SetDefault("scraper.parallelism", 2)
	v.SetDefault("scraper.delay_ms", 500)
	v.SetDefault("scraper.timeout_ms", 15000)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "techmentor")
	v.SetDefault("postgres_password", "")
	v.SetDefault("postgres_db_name", "techmentor")
	v.SetDefault("postgres_ssl_mode", "disable")
}
