package agent

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mysoft-chat/llm"
	"mysoft-chat/llm/ingest"
	"mysoft-chat/llm/vector"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeIndex 返回固定结果的索引
type fakeIndex struct {
	results  []llm.RetrievalResult
	err      error
	searches int
	lastK    int
}

func (f *fakeIndex) Rebuild(ctx context.Context, chunks []llm.Chunk) error { return nil }

func (f *fakeIndex) Search(ctx context.Context, query string, k int) ([]llm.RetrievalResult, error) {
	f.searches++
	f.lastK = k
	return f.results, f.err
}

func (f *fakeIndex) Count(ctx context.Context) (int, error) { return len(f.results), nil }

func (f *fakeIndex) Close() error { return nil }

// fakeModel 记录收到的消息
type fakeModel struct {
	reply    string
	err      error
	block    bool
	received []*schema.Message
}

func (f *fakeModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.received = input
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func servicesResults() []llm.RetrievalResult {
	return []llm.RetrievalResult{
		{
			Chunk:      llm.Chunk{Text: "Mysoft Heaven offers ERP and HRM software.", SourceURL: "https://mysoftheaven.com/services"},
			Distance:   0.2,
			Similarity: 0.8,
		},
		{
			Chunk:      llm.Chunk{Text: "Support is available around the clock.", SourceURL: "https://mysoftheaven.com/support"},
			Distance:   0.4,
			Similarity: 0.6,
		},
	}
}

func newTestComposer(index *fakeIndex, store ConversationStore, m ChatModel) *Composer {
	return NewComposer(index, store, m, DefaultComposerConfig(), nil)
}

func TestRespondEmptyQuery(t *testing.T) {
	store := NewMemoryStore(10)
	c := newTestComposer(&fakeIndex{}, store, nil)

	_, err := c.Respond(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)

	turns, _ := store.Load(context.Background())
	assert.Empty(t, turns)
}

func TestRespondCannedSkipsRetrieval(t *testing.T) {
	index := &fakeIndex{results: servicesResults()}
	store := NewMemoryStore(10)
	m := &fakeModel{reply: "unused"}
	c := newTestComposer(index, store, m)

	reply, err := c.Respond(context.Background(), "Hello")
	require.NoError(t, err)

	assert.Equal(t, PathCanned, reply.Path)
	assert.Equal(t, KindGreeting, reply.Kind)
	assert.Equal(t, c.Replies().Greeting, reply.Text)
	assert.Equal(t, 0, index.searches)
	assert.Nil(t, m.received)

	turns, _ := store.Load(context.Background())
	require.Len(t, turns, 1)
	assert.Equal(t, "Hello", turns[0].UserQuery)
	assert.Equal(t, reply.Text, turns[0].AssistantResponse)
}

// 历史记录保存原始提问，分类与检索使用去空白后的文本
func TestRespondRecordsRawQuery(t *testing.T) {
	store := NewMemoryStore(10)
	c := newTestComposer(&fakeIndex{}, store, nil)

	reply, err := c.Respond(context.Background(), "  Hello \n")
	require.NoError(t, err)
	assert.Equal(t, PathCanned, reply.Path)
	assert.Equal(t, "Hello", reply.Query)

	_, err = c.Respond(context.Background(), " What services do you offer? ")
	require.NoError(t, err)

	turns, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "  Hello \n", turns[0].UserQuery)
	assert.Equal(t, " What services do you offer? ", turns[1].UserQuery)
}

func TestRespondNoContext(t *testing.T) {
	store := NewMemoryStore(10)
	c := newTestComposer(&fakeIndex{}, store, &fakeModel{reply: "unused"})

	reply, err := c.Respond(context.Background(), "What is the price of ERP?")
	require.NoError(t, err)
	assert.Equal(t, PathNoContext, reply.Path)
	assert.Equal(t, c.Replies().NoContext, reply.Text)
	assert.Zero(t, reply.Confidence)

	turns, _ := store.Load(context.Background())
	assert.Len(t, turns, 1)
}

func TestRespondSearchErrorDegrades(t *testing.T) {
	c := newTestComposer(&fakeIndex{err: errors.New("index unavailable")}, NewMemoryStore(10), nil)

	reply, err := c.Respond(context.Background(), "What services do you offer?")
	require.NoError(t, err)
	assert.Equal(t, PathNoContext, reply.Path)
}

func TestRespondSimulated(t *testing.T) {
	index := &fakeIndex{results: servicesResults()}
	c := newTestComposer(index, NewMemoryStore(10), nil)

	reply, err := c.Respond(context.Background(), "What services do you offer?")
	require.NoError(t, err)

	assert.Equal(t, PathSimulated, reply.Path)
	assert.True(t, strings.HasPrefix(reply.Text, "[Simulated Response based on Context]: Mysoft Heaven offers ERP"))
	assert.True(t, strings.HasSuffix(reply.Text, "..."))
	assert.InDelta(t, 0.7, reply.Confidence, 1e-9)
	assert.Len(t, reply.Sources, 2)
	assert.Equal(t, 3, index.lastK)
}

func TestRespondGroundedMessageOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)
	for i := 1; i <= 4; i++ {
		require.NoError(t, store.Append(ctx, turn(i)))
	}

	m := &fakeModel{reply: "We offer ERP and HRM software."}
	c := newTestComposer(&fakeIndex{results: servicesResults()}, store, m)

	reply, err := c.Respond(ctx, "What services do you offer?")
	require.NoError(t, err)
	assert.Equal(t, PathGrounded, reply.Path)
	assert.Equal(t, "We offer ERP and HRM software.", reply.Text)

	// system + 最近 3 轮 + 当前问题
	msgs := m.received
	require.Len(t, msgs, 8)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Mysoft Heaven (BD) Ltd.")
	assert.Contains(t, msgs[0].Content, "under 200 words")
	assert.Contains(t, msgs[0].Content, "written in English")
	assert.Contains(t, msgs[0].Content, "Mysoft Heaven offers ERP and HRM software.\n\nSupport is available around the clock.")

	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Equal(t, "q2", msgs[1].Content)
	assert.Equal(t, schema.Assistant, msgs[2].Role)
	assert.Equal(t, "a2", msgs[2].Content)
	assert.Equal(t, "q4", msgs[5].Content)
	assert.Equal(t, "a4", msgs[6].Content)
	assert.Equal(t, schema.User, msgs[7].Role)
	assert.Equal(t, "What services do you offer?", msgs[7].Content)

	turns, _ := store.Load(ctx)
	require.Len(t, turns, 5)
	assert.Equal(t, reply.Text, turns[4].AssistantResponse)
}

func TestRespondBanglaQuery(t *testing.T) {
	m := &fakeModel{reply: "আমরা ERP সফটওয়্যার দিই।"}
	c := newTestComposer(&fakeIndex{results: servicesResults()}, NewMemoryStore(10), m)

	reply, err := c.Respond(context.Background(), "আপনারা কী সেবা দেন?")
	require.NoError(t, err)
	assert.Equal(t, LanguageBangla, reply.Language)
	assert.Contains(t, m.received[0].Content, "written in Bangla")
}

func TestRespondModelErrorIsRecorded(t *testing.T) {
	store := NewMemoryStore(10)
	c := newTestComposer(&fakeIndex{results: servicesResults()}, store, &fakeModel{err: errors.New("rate limited")})

	reply, err := c.Respond(context.Background(), "What services do you offer?")
	require.NoError(t, err)
	assert.Equal(t, PathModelError, reply.Path)
	assert.Equal(t, "Error generating response: rate limited", reply.Text)

	turns, _ := store.Load(context.Background())
	require.Len(t, turns, 1)
	assert.Equal(t, reply.Text, turns[0].AssistantResponse)
}

func TestRespondModelTimeout(t *testing.T) {
	cfg := DefaultComposerConfig()
	cfg.ModelTimeout = 20 * time.Millisecond
	c := NewComposer(&fakeIndex{results: servicesResults()}, NewMemoryStore(10), &fakeModel{block: true}, cfg, nil)

	reply, err := c.Respond(context.Background(), "What services do you offer?")
	require.NoError(t, err)
	assert.Equal(t, PathModelError, reply.Path)
	assert.Contains(t, reply.Text, context.DeadlineExceeded.Error())
}

func TestRespondWithoutPromptHistory(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)
	require.NoError(t, store.Append(ctx, turn(1)))

	cfg := DefaultComposerConfig()
	cfg.PromptTurns = 0
	m := &fakeModel{reply: "ok"}
	c := NewComposer(&fakeIndex{results: servicesResults()}, store, m, cfg, nil)

	_, err := c.Respond(ctx, "What services do you offer?")
	require.NoError(t, err)
	assert.Len(t, m.received, 2)
}

func TestBuildMessages(t *testing.T) {
	msgs := BuildMessages("sys", nil, "query")
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, "query", msgs[1].Content)
}

func TestAverageSimilarity(t *testing.T) {
	assert.Zero(t, AverageSimilarity(nil))
	assert.InDelta(t, 0.7, AverageSimilarity(servicesResults()), 1e-9)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "সফট", truncateRunes("সফটওয়্যার", 3))
	assert.Equal(t, "abc", truncateRunes("abc", 10))
}

// 单条记录从抽取、重建索引到生成回答的完整流程
func TestEndToEndGroundedReply(t *testing.T) {
	ctx := context.Background()

	record := llm.Record{
		URL:     "/a",
		Path:    "/service/x",
		Content: strings.Repeat("<p>We offer cloud services.</p>", 3),
	}
	chunks := ingest.NewExtractor(ingest.DefaultConfig(), nil).Extract([]llm.Record{record})
	require.NotEmpty(t, chunks)

	embedSvc := vector.NewEmbeddingService(vector.NewHashEmbedder(256), "hash-256", 8)
	index, err := vector.NewLocalIndex(filepath.Join(t.TempDir(), "index"), embedSvc, nil)
	require.NoError(t, err)
	require.NoError(t, index.Rebuild(ctx, chunks))

	results, err := index.Search(ctx, "What services do you offer?", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Greater(t, results[0].Similarity, 0.0)
	assert.Equal(t, "/a", results[0].Chunk.SourceURL)

	m := &fakeModel{reply: "We offer cloud services."}
	store := NewMemoryStore(10)
	reply, err := NewComposer(index, store, m, DefaultComposerConfig(), nil).Respond(ctx, "What services do you offer?")
	require.NoError(t, err)

	assert.Equal(t, PathGrounded, reply.Path)
	assert.Equal(t, "We offer cloud services.", reply.Text)
	assert.Contains(t, m.received[0].Content, "We offer cloud services.")

	turns, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "What services do you offer?", turns[0].UserQuery)
}
