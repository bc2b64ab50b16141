package cli

import (
	"fmt"

	"mysoft-chat/llm/agent"

	"github.com/spf13/cobra"
)

// NewReindexCmd creates the reindex command
func NewReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the knowledge index from the source spreadsheet",
		Long: `Extract every row of the source spreadsheet, chunk it and replace the
knowledge index. The previous index keeps serving until the new one is complete.`,
		Args: cobra.NoArgs,
		RunE: runReindex,
	}
}

func runReindex(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	result := rt.Reindex(ctx)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, result.Message)
	if result.Report != nil && result.Report.Records > 0 {
		fmt.Fprintln(out)
		fmt.Fprint(out, result.Report.String())
	}

	if result.Status != agent.ReindexSuccess {
		return fmt.Errorf("reindex failed: %w", result.Err)
	}
	return nil
}
