package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List indexed knowledge sources",
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, _ []string) error {
	a, err := setupApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	total, err := a.Knowledge.Count(cmd.Context())
	if err != nil {
		return err
	}
	sources, err := a.Knowledge.ListSources(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(sources) == 0 {
		fmt.Fprintln(out, "The knowledge base is empty. Run 'techmentor index' or 'techmentor collect' first.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tCHUNKS\tSOURCE")
	for _, s := range sources {
		uri := s.SourceURI
		if uri == "" {
			uri = s.DocumentID
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", s.SourceType, s.Chunks, uri)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%d documents, %d chunks total\n", len(sources), total)
	return nil
}
