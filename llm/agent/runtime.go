package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"mysoft-chat/llm"
	"mysoft-chat/llm/ingest"
	"mysoft-chat/llm/vector"
	"mysoft-chat/pubsub"
)

// ReindexStatus 重建索引的结果状态
type ReindexStatus string

const (
	ReindexSuccess ReindexStatus = "success"
	ReindexError   ReindexStatus = "error"
)

// ErrNoDocuments 数据源没有产生任何分块
var ErrNoDocuments = errors.New("no data found in source file")

// ReindexResult 重建索引的结构化结果
type ReindexResult struct {
	Status  ReindexStatus         `json:"status"`
	Message string                `json:"message"`
	Chunks  int                   `json:"chunks"`
	Report  *ingest.QualityReport `json:"report,omitempty"`
	// Err 失败原因，供 errors.Is 判断
	Err error `json:"-"`
}

// ChatEvent 通过 Broker 广播的运行时事件
type ChatEvent struct {
	Query   string         // Created: 用户提交的问题
	Reply   *Reply         // Finished: 对应的回复
	Reindex *ReindexResult // Updated: 重建索引完成
	Err     error          // Finished: 非预期错误
}

// Options Runtime 的依赖
type Options struct {
	Index     vector.Index
	Store     ConversationStore
	Extractor *ingest.Extractor
	Composer  *Composer
	// Source 数据源路径或 doublestar 模式
	Source string
	Logger *slog.Logger
	// Closers 在 Close 时依次释放
	Closers []io.Closer
}

// Runtime 聊天运行时：串联问答、重建索引和事件广播
type Runtime struct {
	index     vector.Index
	store     ConversationStore
	extractor *ingest.Extractor
	composer  *Composer
	source    string
	broker    *pubsub.Broker[ChatEvent]
	logger    *slog.Logger
	closers   []io.Closer

	// reindexMu 同一时间只允许一次重建
	reindexMu sync.Mutex
}

// NewRuntime 创建新的运行时
func NewRuntime(opts Options) (*Runtime, error) {
	if opts.Index == nil {
		return nil, errors.New("knowledge index is required")
	}
	if opts.Store == nil {
		return nil, errors.New("conversation store is required")
	}
	if opts.Composer == nil {
		return nil, errors.New("composer is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Extractor == nil {
		opts.Extractor = ingest.NewExtractor(ingest.DefaultConfig(), opts.Logger)
	}

	return &Runtime{
		index:     opts.Index,
		store:     opts.Store,
		extractor: opts.Extractor,
		composer:  opts.Composer,
		source:    opts.Source,
		broker:    pubsub.NewBroker[ChatEvent](),
		logger:    opts.Logger,
		closers:   opts.Closers,
	}, nil
}

// Chat 处理一次用户提问，并发布 Created / Finished 事件
func (r *Runtime) Chat(ctx context.Context, query string) (*Reply, error) {
	r.broker.Publish(pubsub.CreatedEvent, ChatEvent{Query: query})

	reply, err := r.composer.Respond(ctx, query)
	if err != nil {
		r.broker.Publish(pubsub.FinishedEvent, ChatEvent{Query: query, Err: err})
		return nil, err
	}

	r.broker.Publish(pubsub.FinishedEvent, ChatEvent{Query: query, Reply: reply})
	return reply, nil
}

// Reindex 从数据源重新抽取并全量重建索引；失败以结构化结果返回
func (r *Runtime) Reindex(ctx context.Context) *ReindexResult {
	r.reindexMu.Lock()
	defer r.reindexMu.Unlock()

	result := r.reindex(ctx)
	if result.Status == ReindexSuccess {
		r.logger.Info("reindex finished", "chunks", result.Chunks)
	} else {
		r.logger.Error("reindex failed", "reason", result.Message)
	}

	r.broker.Publish(pubsub.UpdatedEvent, ChatEvent{Reindex: result})
	return result
}

func (r *Runtime) reindex(ctx context.Context) *ReindexResult {
	chunks, report := r.extractor.ExtractFile(ctx, r.source)
	if len(chunks) == 0 {
		return &ReindexResult{
			Status:  ReindexError,
			Message: "No data found in source file.",
			Report:  report,
			Err:     ErrNoDocuments,
		}
	}

	if err := r.index.Rebuild(ctx, chunks); err != nil {
		return &ReindexResult{
			Status:  ReindexError,
			Message: fmt.Sprintf("Failed to rebuild knowledge index: %v", err),
			Report:  report,
			Err:     err,
		}
	}

	return &ReindexResult{
		Status:  ReindexSuccess,
		Message: fmt.Sprintf("Successfully indexed %d document chunks.", len(chunks)),
		Chunks:  len(chunks),
		Report:  report,
	}
}

// History 返回最近 n 轮对话（n <= 0 时返回全部）
func (r *Runtime) History(ctx context.Context, n int) ([]llm.ConversationTurn, error) {
	turns, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	if n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns, nil
}

// ClearHistory 清空对话历史并发布 Deleted 事件
func (r *Runtime) ClearHistory(ctx context.Context) error {
	if err := r.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	r.broker.Publish(pubsub.DeletedEvent, ChatEvent{})
	return nil
}

// IndexCount 返回索引中的文档数
func (r *Runtime) IndexCount(ctx context.Context) (int, error) {
	return r.index.Count(ctx)
}

// Source 返回数据源路径
func (r *Runtime) Source() string {
	return r.source
}

// Extractor 返回抽取器
func (r *Runtime) Extractor() *ingest.Extractor {
	return r.extractor
}

// Broker 获取事件 Broker
func (r *Runtime) Broker() *pubsub.Broker[ChatEvent] {
	return r.broker
}

// Close 关闭运行时
func (r *Runtime) Close() error {
	r.broker.Shutdown()

	var errs []error
	if err := r.index.Close(); err != nil {
		errs = append(errs, err)
	}
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
