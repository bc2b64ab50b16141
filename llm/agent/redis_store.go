package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"mysoft-chat/llm"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisHistoryKey 默认的 Redis 列表键
const DefaultRedisHistoryKey = "mysoft-chat:history"

// RedisStore 基于 Redis 列表的对话存储，多个服务实例可共享同一份历史
type RedisStore struct {
	client   *redis.Client
	key      string
	maxTurns int
	logger   *slog.Logger
}

// NewRedisStore 创建 Redis 对话存储
func NewRedisStore(client *redis.Client, key string, maxTurns int, logger *slog.Logger) *RedisStore {
	if key == "" {
		key = DefaultRedisHistoryKey
	}
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{client: client, key: key, maxTurns: maxTurns, logger: logger}
}

// Append RPUSH + LTRIM 在同一个事务里完成
func (s *RedisStore) Append(ctx context.Context, turn llm.ConversationTurn) error {
	data, err := json.Marshal(stampTurn(turn))
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, s.key, data)
		pipe.LTrim(ctx, s.key, int64(-s.maxTurns), -1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}
	return nil
}

// Load 读取全部对话；任一条记录无法解析时视为空历史
func (s *RedisStore) Load(ctx context.Context) ([]llm.ConversationTurn, error) {
	items, err := s.client.LRange(ctx, s.key, int64(-s.maxTurns), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	turns := make([]llm.ConversationTurn, 0, len(items))
	for _, item := range items {
		var turn llm.ConversationTurn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			s.logger.Warn("chat history is corrupt, starting empty", "key", s.key, "error", err)
			return []llm.ConversationTurn{}, nil
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Clear 删除历史键
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
