package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index <data-dir>",
	Short: "Index collected documents into the knowledge base",
	Long: `Index ingests a collected data directory: .txt files under web/, pdf/
and youtube/ subdirectories (an optional "Source: <uri>" first line records
provenance), plus any other .txt files as manual sources. Documents are
chunked, embedded and upserted; re-running over the same files is a no-op.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	a, err := setupApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.Indexer.IndexDirectory(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d documents (%d chunks, %d failed) in %s\n",
		stats.Documents, stats.Chunks, stats.Failed, stats.Duration.Round(10*time.Millisecond))
	return nil
}
