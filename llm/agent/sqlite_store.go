package agent

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mysoft-chat/llm"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS conversation_turns (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	user_query         TEXT NOT NULL,
	assistant_response TEXT NOT NULL,
	created_at         TEXT NOT NULL
);`

// SQLiteStore 基于 SQLite 的对话存储
type SQLiteStore struct {
	db       *sql.DB
	maxTurns int
}

// NewSQLiteStore 打开（或创建）数据库文件并初始化表结构
func NewSQLiteStore(ctx context.Context, path string, maxTurns int) (*SQLiteStore, error) {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// 单连接即可串行化写入
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteStore{db: db, maxTurns: maxTurns}, nil
}

// Append 插入一轮对话并删除窗口之外的旧记录
func (s *SQLiteStore) Append(ctx context.Context, turn llm.ConversationTurn) error {
	turn = stampTurn(turn)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO conversation_turns (user_query, assistant_response, created_at) VALUES (?, ?, ?)`,
		turn.UserQuery, turn.AssistantResponse, turn.CreatedAt.Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM conversation_turns WHERE id NOT IN (
			SELECT id FROM conversation_turns ORDER BY id DESC LIMIT ?)`,
		s.maxTurns,
	); err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit turn: %w", err)
	}
	return nil
}

// Load 按插入顺序返回最近的对话
func (s *SQLiteStore) Load(ctx context.Context) ([]llm.ConversationTurn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_query, assistant_response, created_at FROM (
			SELECT id, user_query, assistant_response, created_at
			FROM conversation_turns ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`,
		s.maxTurns,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	turns := []llm.ConversationTurn{}
	for rows.Next() {
		var (
			turn      llm.ConversationTurn
			createdAt string
		)
		if err := rows.Scan(&turn.UserQuery, &turn.AssistantResponse, &createdAt); err != nil {
			return []llm.ConversationTurn{}, nil
		}
		turn.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return turns, nil
}

// Clear 删除全部记录
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversation_turns`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Close 关闭数据库
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
