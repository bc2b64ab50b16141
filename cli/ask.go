package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askJSON bool

// NewAskCmd creates the one-shot ask command
func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Ask a single question",
		Long: `Answer one question and print the reply. The turn is recorded in the
conversation history like any other chat turn.

Examples:
  mysoft-chat ask "What services do you offer?"
  mysoft-chat ask --json "Who are your clients?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAsk,
	}

	cmd.Flags().BoolVar(&askJSON, "json", false, "print the full reply as JSON")
	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	reply, err := rt.Chat(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if askJSON {
		data, err := json.MarshalIndent(reply, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(out, "%s\n", data)
		return nil
	}

	fmt.Fprintln(out, reply.Text)
	if len(reply.Sources) > 0 {
		fmt.Fprintf(out, "\nconfidence %.2f\n", reply.Confidence)
		for i, src := range reply.Sources {
			fmt.Fprintf(out, "  [%d] %s (%.2f)\n", i+1, src.Chunk.SourceURL, src.Similarity)
		}
	}
	return nil
}
