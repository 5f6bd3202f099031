package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var collectCmd = &cobra.Command{
	Use:   "collect <url-file>",
	Short: "Collect web pages and index them",
	Long: `Collect reads one URL per line from the given file (blank lines and
lines starting with # are skipped), fetches the pages politely, and indexes
the extracted text as web sources.`,
	Args: cobra.ExactArgs(1),
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, args []string) error {
	urls, err := readURLFile(args[0])
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return fmt.Errorf("no URLs found in %s", args[0])
	}

	a, err := setupApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	docs := a.Crawler.Collect(urls)
	if len(docs) == 0 {
		return fmt.Errorf("none of the %d URLs could be collected", len(urls))
	}

	stats, err := a.Indexer.IndexDocuments(cmd.Context(), docs)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Collected %d of %d pages, indexed %d chunks\n",
		len(docs), len(urls), stats.Chunks)
	return nil
}

func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path) // #nosec G304 -- path is the user's own argument
	if err != nil {
		return nil, fmt.Errorf("opening url file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading url file: %w", err)
	}
	return urls, nil
}
