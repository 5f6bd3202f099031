// Package cmd implements the techmentor CLI.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/techmentor-ai/techmentor/internal/app"
	"github.com/techmentor-ai/techmentor/internal/config"
	"github.com/techmentor-ai/techmentor/internal/log"
)

var (
	flagVerbose bool
	flagJSONLog bool
)

var rootCmd = &cobra.Command{
	Use:   "techmentor",
	Short: "TechMentor - retrieval-augmented tech career advisor",
	Long: `TechMentor answers technology career questions from a curated knowledge
base, falling back to a live web search when local knowledge does not
cover the question.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagJSONLog, "json-log", false, "emit logs as JSON")
}

// newLogger builds the process logger from the persistent flags.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level, JSON: flagJSONLog})
}

// setupApp loads configuration and wires the application. Callers must
// Close the returned App.
func setupApp(ctx context.Context) (*app.App, error) {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	return app.Setup(ctx, cfg, logger)
}
