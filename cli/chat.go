package cli

import (
	"mysoft-chat/tui/chat"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// NewChatCmd creates the interactive chat command
func NewChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat in the terminal",
		Long: `Open the interactive terminal chat.

Type a question and press Enter. /reindex rebuilds the knowledge index,
/clear clears the history and /quit (or Esc) exits.`,
		Args: cobra.NoArgs,
		RunE: runChat,
	}
}

func runChat(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	program := tea.NewProgram(
		chat.InitialModel(rt),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(cmd.Context()),
	)
	_, err = program.Run()
	return err
}
