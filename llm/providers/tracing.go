package providers

import (
	"context"
	"fmt"

	"mysoft-chat/config"

	clc "github.com/cloudwego/eino-ext/callbacks/cozeloop"
	"github.com/cloudwego/eino/callbacks"
	"github.com/coze-dev/cozeloop-go"
)

// SetupTracing registers a CozeLoop callback handler for every eino component.
// It is a no-op when either credential is missing. The returned function
// flushes and closes the client.
func SetupTracing(ctx context.Context, cfg config.TracingConfig) (func(context.Context), error) {
	if cfg.CozeLoopAPIToken == "" || cfg.CozeLoopWorkspaceID == "" {
		return func(context.Context) {}, nil
	}

	client, err := cozeloop.NewClient(
		cozeloop.WithAPIToken(cfg.CozeLoopAPIToken),
		cozeloop.WithWorkspaceID(cfg.CozeLoopWorkspaceID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cozeloop client: %w", err)
	}

	callbacks.AppendGlobalHandlers(clc.NewLoopHandler(client))

	return func(ctx context.Context) {
		client.Close(ctx)
	}, nil
}
