// Package cli wires the cobra command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"mysoft-chat/config"
	"mysoft-chat/llm/agent"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

// app holds what PersistentPreRunE prepared for the subcommands
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	logFile io.Closer
}

var current app

// NewRootCmd creates the root command with every subcommand attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mysoft-chat",
		Short: "Retrieval-grounded chat assistant for Mysoft Heaven (BD) Ltd.",
		Long: `mysoft-chat answers questions about Mysoft Heaven (BD) Ltd. from the
company's own web content.

It ingests the content spreadsheet, cleans and chunks every row, embeds the
chunks into a knowledge index and answers queries from the closest chunks.

Examples:
  mysoft-chat reindex
  mysoft-chat ask "What services do you offer?"
  mysoft-chat serve
  mysoft-chat chat`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if current.logFile != nil {
				_ = current.logFile.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.yaml if present)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		NewServeCmd(),
		NewChatCmd(),
		NewAskCmd(),
		NewReindexCmd(),
		NewInspectCmd(),
		NewHistoryCmd(),
	)
	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

func setup(cmd *cobra.Command, _ []string) error {
	// .env is optional
	_ = godotenv.Load()

	path := configPath
	if path == "" {
		path = os.Getenv("MYSOFT_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	// the TUI owns the terminal, so its logs go to a file or nowhere
	var w io.Writer = cmd.ErrOrStderr()
	logFile := cfg.Log.File
	if cmd.Name() == "chat" && logFile == "" {
		w = io.Discard
	}
	if logFile != "" {
		f, err := openLogFile(logFile)
		if err != nil {
			return err
		}
		w = f
		current.logFile = f
	}

	current.cfg = cfg
	current.logger = NewLogger(w, cfg.Log, verbose)
	slog.SetDefault(current.logger)
	return nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// NewLogger builds the process logger from the log configuration
func NewLogger(w io.Writer, cfg config.LogConfig, verbose bool) *slog.Logger {
	level := parseLevel(cfg.Level)
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// newRuntime builds the chat runtime from the loaded configuration
func newRuntime(ctx context.Context) (*agent.Runtime, error) {
	rt, err := agent.SetupRuntime(ctx, current.cfg, current.logger)
	if err != nil {
		return nil, fmt.Errorf("initializing runtime: %w", err)
	}
	return rt, nil
}
