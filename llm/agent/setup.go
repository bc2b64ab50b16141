package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"mysoft-chat/config"
	"mysoft-chat/llm/ingest"
	"mysoft-chat/llm/providers"
	"mysoft-chat/llm/vector"

	"github.com/redis/go-redis/v9"
)

// closerFunc 将函数适配为 io.Closer
type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// SetupRuntime 按配置组装完整的运行时：embedder、索引、对话存储、抽取器、回复器
func SetupRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var closers []io.Closer
	fail := func(err error) (*Runtime, error) {
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, err
	}

	// 1. 链路追踪（可选）
	shutdownTracing, err := providers.SetupTracing(ctx, cfg.Tracing)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	} else {
		closers = append(closers, closerFunc(func() error {
			shutdownTracing(context.Background())
			return nil
		}))
	}

	// 2. Embedding 模型
	embedder, embedModel, err := providers.NewEmbedder(ctx, cfg.Embedding)
	if err != nil {
		return fail(fmt.Errorf("failed to create embedder: %w", err))
	}
	embedSvc := vector.NewEmbeddingService(embedder, embedModel, cfg.Embedding.BatchSize)
	logger.Info("embedding model ready", "provider", cfg.Embedding.Provider, "model", embedModel)

	// 3. Redis 客户端（索引或历史需要时才连接）
	var redisClient *redis.Client
	if cfg.Index.Backend == config.IndexRedis || cfg.History.Backend == config.HistoryRedis {
		redisClient, err = vector.NewRedisClient(ctx, redisConfig(cfg))
		if err != nil {
			return fail(err)
		}
		closers = append(closers, redisClient)
	}

	// 4. 知识索引
	index, err := newIndex(cfg, embedSvc, redisClient, logger)
	if err != nil {
		return fail(err)
	}

	// 5. 对话存储
	store, storeCloser, err := newStore(ctx, cfg, redisClient, logger)
	if err != nil {
		_ = index.Close()
		return fail(err)
	}
	if storeCloser != nil {
		closers = append(closers, storeCloser)
	}

	// 6. 语言模型：没有 API key 时进入模拟模式
	var chatModel ChatModel
	cm, err := providers.NewChatModel(ctx, cfg.LLM)
	switch {
	case errors.Is(err, providers.ErrNoAPIKey):
		logger.Warn("no LLM API key configured, replies will be simulated")
	case err != nil:
		logger.Error("failed to create chat model, replies will be simulated", "error", err)
	default:
		chatModel = cm
		logger.Info("chat model ready", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)
	}

	extractor := NewExtractor(cfg, logger)

	composer := NewComposer(index, store, chatModel, ComposerConfig{
		TopK:                cfg.Index.TopK,
		PromptTurns:         cfg.History.PromptTurns,
		MaxWords:            cfg.Assistant.MaxWords,
		SimilarityThreshold: cfg.Index.SimilarityThreshold,
		CompanyName:         cfg.Assistant.CompanyName,
		ModelTimeout:        cfg.LLM.Timeout,
	}, logger)

	rt, err := NewRuntime(Options{
		Index:     index,
		Store:     store,
		Extractor: extractor,
		Composer:  composer,
		Source:    cfg.Source.Path,
		Logger:    logger,
		Closers:   closers,
	})
	if err != nil {
		_ = index.Close()
		return fail(err)
	}
	return rt, nil
}

// NewExtractor 按配置创建抽取器，inspect 命令不需要完整运行时时也使用它
func NewExtractor(cfg *config.Config, logger *slog.Logger) *ingest.Extractor {
	return ingest.NewExtractor(ingest.Config{
		Chunk: vector.ChunkConfig{
			ChunkSize:    cfg.Chunking.Size,
			ChunkOverlap: cfg.Chunking.Overlap,
		},
		MinContentLength: cfg.Source.MinContentLength,
		StripBoilerplate: cfg.Source.StripBoilerplate,
		Sheet:            cfg.Source.Sheet,
	}, logger)
}

func redisConfig(cfg *config.Config) vector.RedisConfig {
	rc := vector.DefaultRedisConfig()
	rc.Addr = cfg.Redis.Addr
	rc.Password = cfg.Redis.Password
	rc.DB = cfg.Redis.DB
	if cfg.Redis.PoolSize > 0 {
		rc.PoolSize = cfg.Redis.PoolSize
	}
	if cfg.Redis.IndexName != "" {
		rc.IndexName = cfg.Redis.IndexName
	}
	return rc
}

func newIndex(cfg *config.Config, embedSvc *vector.EmbeddingService, client *redis.Client, logger *slog.Logger) (vector.Index, error) {
	switch cfg.Index.Backend {
	case config.IndexRedis:
		return vector.NewRedisIndex(client, embedSvc, redisConfig(cfg), logger)
	case config.IndexLocal:
		return vector.NewLocalIndex(cfg.Index.Dir, embedSvc, logger)
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Index.Backend)
	}
}

func newStore(ctx context.Context, cfg *config.Config, client *redis.Client, logger *slog.Logger) (ConversationStore, io.Closer, error) {
	switch cfg.History.Backend {
	case config.HistoryMemory:
		return NewMemoryStore(cfg.History.MaxTurns), nil, nil
	case config.HistoryRedis:
		return NewRedisStore(client, cfg.Redis.HistoryKey, cfg.History.MaxTurns, logger), nil, nil
	case config.HistorySQLite:
		s, err := NewSQLiteStore(ctx, cfg.History.Path, cfg.History.MaxTurns)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.HistoryFile:
		return NewFileStore(cfg.History.Path, cfg.History.MaxTurns, logger), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown history backend %q", cfg.History.Backend)
	}
}
