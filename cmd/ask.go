package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/techmentor-ai/techmentor/internal/rag"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a tech career question",
	Long: `Ask answers one question from the knowledge base. When local knowledge
does not cover the question, a live web search augments the context and
the answer says so.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("question is empty")
	}

	a, err := setupApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	answer, err := a.System.Answer(cmd.Context(), question, nil)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), rag.FormatAnswer(answer))
	return nil
}
