package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mysoft-chat/llm/agent"
	"mysoft-chat/pubsub"
	"mysoft-chat/server"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	serveAddr    string
	serveWatch   bool
	serveReindex bool
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API over HTTP",
		Long: `Serve the chat API.

Routes:
  POST   /api/chat          {"query": "..."}
  POST   /api/reindex       rebuild the knowledge index (alias /api/refresh-data)
  GET    /api/history       stored conversation turns
  DELETE /api/history       clear the conversation history
  GET    /healthz           liveness and indexed document count`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&serveWatch, "watch", false, "rebuild the index when the source file changes")
	cmd.Flags().BoolVar(&serveReindex, "reindex", false, "rebuild the index before serving when it is empty")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := current.cfg
	logger := current.logger

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if serveReindex {
		if n, err := rt.IndexCount(ctx); err == nil && n == 0 {
			result := rt.Reindex(ctx)
			if result.Status != agent.ReindexSuccess {
				logger.Warn("initial reindex failed", "message", result.Message)
			}
		}
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	srv := server.New(rt, server.Config{
		Addr:      addr,
		RateLimit: cfg.Server.RateLimit,
		RateBurst: cfg.Server.RateBurst,
	}, logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.ListenAndServe(ctx)
	})

	g.Go(func() error {
		logEvents(ctx, rt)
		return nil
	})

	if serveWatch || cfg.Server.WatchSource {
		w := server.NewWatcher(rt.Source(), cfg.Server.WatchDebounce, func(ctx context.Context) {
			rt.Reindex(ctx)
		}, logger)
		g.Go(func() error {
			if err := w.Run(ctx); err != nil {
				return fmt.Errorf("source watcher: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// logEvents logs reindex and history events published by the runtime
func logEvents(ctx context.Context, rt *agent.Runtime) {
	for event := range rt.Broker().Subscribe(ctx) {
		switch event.Type {
		case pubsub.UpdatedEvent:
			if r := event.Payload.Reindex; r != nil {
				current.logger.Info("knowledge index updated", "status", r.Status, "chunks", r.Chunks)
			}
		case pubsub.DeletedEvent:
			current.logger.Info("conversation history cleared")
		case pubsub.FinishedEvent:
			if reply := event.Payload.Reply; reply != nil {
				current.logger.Debug("reply sent", "path", reply.Path, "confidence", reply.Confidence)
			}
		}
	}
}
