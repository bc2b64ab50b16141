package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	historyClear bool
	historyJSON  bool
	historyLast  int
)

// NewHistoryCmd creates the history command
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or clear the conversation history",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}

	cmd.Flags().BoolVar(&historyClear, "clear", false, "delete every stored turn")
	cmd.Flags().BoolVar(&historyJSON, "json", false, "print turns as JSON")
	cmd.Flags().IntVarP(&historyLast, "last", "n", 0, "show only the last n turns")
	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if err := validateNonNegative(historyLast, "last"); err != nil {
		return err
	}

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if historyClear {
		if err := rt.ClearHistory(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Conversation history cleared.")
		return nil
	}

	turns, err := rt.History(ctx, historyLast)
	if err != nil {
		return err
	}

	if historyJSON {
		data, err := json.MarshalIndent(turns, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(out, "%s\n", data)
		return nil
	}

	if len(turns) == 0 {
		fmt.Fprintln(out, "No conversation history.")
		return nil
	}
	for i, turn := range turns {
		stamp := ""
		if !turn.CreatedAt.IsZero() {
			stamp = " " + turn.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(out, "#%d%s\n  You: %s\n  Assistant: %s\n\n", i+1, stamp, turn.UserQuery, turn.AssistantResponse)
	}
	return nil
}

func validateNonNegative(value int, name string) error {
	if value < 0 {
		return fmt.Errorf("--%s must not be negative, got %d", name, value)
	}
	return nil
}
