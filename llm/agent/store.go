package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"mysoft-chat/llm"
)

// DefaultMaxTurns 默认保留的对话轮数
const DefaultMaxTurns = 10

// ConversationStore 对话存储接口：单一全局会话，按时间顺序保存最近的若干轮问答
type ConversationStore interface {
	// Append 追加一轮对话，并截断到最近 maxTurns 轮
	Append(ctx context.Context, turn llm.ConversationTurn) error
	// Load 返回全部已保存的对话（最旧的在前）；损坏的数据视为空历史
	Load(ctx context.Context) ([]llm.ConversationTurn, error)
	// Clear 清空对话历史
	Clear(ctx context.Context) error
}

// trimTurns 滑动窗口：只保留最后 max 轮
func trimTurns(turns []llm.ConversationTurn, max int) []llm.ConversationTurn {
	if max > 0 && len(turns) > max {
		return turns[len(turns)-max:]
	}
	return turns
}

func stampTurn(turn llm.ConversationTurn) llm.ConversationTurn {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	return turn
}

// MemoryStore 内存实现的对话存储
type MemoryStore struct {
	mu       sync.RWMutex
	turns    []llm.ConversationTurn
	maxTurns int
}

// NewMemoryStore 创建一个新的内存存储
func NewMemoryStore(maxTurns int) *MemoryStore {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &MemoryStore{maxTurns: maxTurns}
}

// Append 添加一轮对话（带滑动窗口）
func (s *MemoryStore) Append(ctx context.Context, turn llm.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = trimTurns(append(s.turns, stampTurn(turn)), s.maxTurns)
	return nil
}

// Load 获取所有对话
func (s *MemoryStore) Load(ctx context.Context) ([]llm.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// 返回副本，避免外部修改
	result := make([]llm.ConversationTurn, len(s.turns))
	copy(result, s.turns)
	return result, nil
}

// Clear 清空所有对话
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
	return nil
}

// FileStore 基于 JSON 文件的对话存储，每次追加都整体重写文件
type FileStore struct {
	mu       sync.Mutex
	path     string
	maxTurns int
	logger   *slog.Logger
}

// NewFileStore 创建文件存储；文件不存在时视为空历史
func NewFileStore(path string, maxTurns int, logger *slog.Logger) *FileStore {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, maxTurns: maxTurns, logger: logger}
}

// Append 读取-追加-截断-写回，整个过程持有锁，避免并发请求丢失更新
func (s *FileStore) Append(ctx context.Context, turn llm.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := trimTurns(append(s.read(), stampTurn(turn)), s.maxTurns)
	return s.write(turns)
}

// Load 读取全部对话
func (s *FileStore) Load(ctx context.Context) ([]llm.ConversationTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(), nil
}

// Clear 删除历史文件
func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove history file: %w", err)
	}
	return nil
}

// read 读取文件；不存在或损坏时返回空切片
func (s *FileStore) read() []llm.ConversationTurn {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to read chat history, starting empty", "path", s.path, "error", err)
		}
		return []llm.ConversationTurn{}
	}

	var turns []llm.ConversationTurn
	if err := json.Unmarshal(data, &turns); err != nil {
		s.logger.Warn("chat history is corrupt, starting empty", "path", s.path, "error", err)
		return []llm.ConversationTurn{}
	}
	return trimTurns(turns, s.maxTurns)
}

// write 先写临时文件再重命名，保证文件始终完整
func (s *FileStore) write(turns []llm.ConversationTurn) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal chat history: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write chat history: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace chat history: %w", err)
	}
	return nil
}
