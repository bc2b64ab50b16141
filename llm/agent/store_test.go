package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"mysoft-chat/llm"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func turn(i int) llm.ConversationTurn {
	return llm.ConversationTurn{
		UserQuery:         fmt.Sprintf("q%d", i),
		AssistantResponse: fmt.Sprintf("a%d", i),
	}
}

// testStoreWindow 所有实现共用的滑动窗口与清空行为
func testStoreWindow(t *testing.T, store ConversationStore) {
	t.Helper()
	ctx := context.Background()

	turns, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, turns)

	for i := 1; i <= 15; i++ {
		require.NoError(t, store.Append(ctx, turn(i)))
	}

	turns, err = store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, turns, 10)
	assert.Equal(t, "q6", turns[0].UserQuery)
	assert.Equal(t, "a15", turns[9].AssistantResponse)
	assert.False(t, turns[9].CreatedAt.IsZero())

	require.NoError(t, store.Clear(ctx))
	turns, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, turns)

	// 清空后可以继续追加
	require.NoError(t, store.Append(ctx, turn(16)))
	turns, err = store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "q16", turns[0].UserQuery)
}

func TestMemoryStore(t *testing.T) {
	testStoreWindow(t, NewMemoryStore(10))
}

func TestMemoryStoreLoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	require.NoError(t, store.Append(ctx, turn(1)))

	turns, _ := store.Load(ctx)
	turns[0].UserQuery = "changed"

	again, _ := store.Load(ctx)
	assert.Equal(t, "q1", again[0].UserQuery)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "chat_data.json")
	testStoreWindow(t, NewFileStore(path, 10, nil))
}

func TestFileStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chat_data.json")

	require.NoError(t, NewFileStore(path, 10, nil).Append(ctx, turn(1)))

	turns, err := NewFileStore(path, 10, nil).Load(ctx)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "q1", turns[0].UserQuery)
}

func TestFileStoreCorruptFileIsEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chat_data.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	store := NewFileStore(path, 10, nil)
	turns, err := store.Load(ctx)
	require.NoError(t, err)
	assert.NotNil(t, turns)
	assert.Empty(t, turns)

	// 损坏的文件在下次追加时被覆盖
	require.NoError(t, store.Append(ctx, turn(1)))
	turns, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, turns, 1)
}

func TestFileStoreLegacyKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat_data.json")
	legacy := `[{"user query": "What is Mysoft?", "AI_response": "A software company."}]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0644))

	turns, err := NewFileStore(path, 10, nil).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "What is Mysoft?", turns[0].UserQuery)
	assert.Equal(t, "A software company.", turns[0].AssistantResponse)
	assert.True(t, turns[0].CreatedAt.IsZero())
}

func TestFileStoreClearMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "none.json"), 10, nil)
	assert.NoError(t, store.Clear(context.Background()))
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "history.db"), 10)
	require.NoError(t, err)
	defer store.Close()

	testStoreWindow(t, store)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	require.NoError(t, client.Ping(context.Background()).Err())

	key := "mysoft-chat-test:" + uuid.NewString()
	defer client.Del(context.Background(), key)

	testStoreWindow(t, NewRedisStore(client, key, 10, nil))
}
