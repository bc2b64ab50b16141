package renderer

import (
	"testing"
	"time"

	"mysoft-chat/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntriesFromHistory(t *testing.T) {
	entries := EntriesFromHistory([]llm.ConversationTurn{
		{UserQuery: "q1", AssistantResponse: "a1"},
		{UserQuery: "q2", AssistantResponse: "a2"},
	})

	require.Len(t, entries, 4)
	assert.Equal(t, Entry{Role: RoleUser, Text: "q1"}, entries[0])
	assert.Equal(t, Entry{Role: RoleAssistant, Text: "a2"}, entries[3])
	assert.Empty(t, EntriesFromHistory(nil))
}

func TestRenderEntriesWelcome(t *testing.T) {
	r := NewMessageRenderer(nil)
	assert.Contains(t, r.RenderEntries(nil), "/reindex")
}

func TestRenderEntries(t *testing.T) {
	r := NewMessageRenderer(nil)

	entries := []Entry{
		{Role: RoleUser, Text: "What services do you offer?"},
		{
			Role:       RoleAssistant,
			Text:       "ERP and HRM software.",
			Path:       "grounded",
			Confidence: 0.82,
			Sources: []llm.RetrievalResult{
				{Chunk: llm.Chunk{SourceURL: "https://www.mysoftheaven.com/services"}, Similarity: 0.82},
			},
		},
		{Role: RoleSystem, Text: "Successfully indexed 12 document chunks."},
	}

	out := r.RenderEntries(entries)
	assert.Contains(t, out, "You:")
	assert.Contains(t, out, "What services do you offer?")
	assert.Contains(t, out, "Assistant:")
	assert.Contains(t, out, "HRM")
	assert.Contains(t, out, "mysoftheaven.com/services (0.82)")
	assert.Contains(t, out, "confidence 0.82")
	assert.Contains(t, out, "Successfully indexed 12 document chunks.")

	// 列表变短时缓存被重置
	out = r.RenderEntries(entries[:1])
	assert.NotContains(t, out, "Assistant:")
}

func TestRenderEntrySkipsEmptyText(t *testing.T) {
	assert.Equal(t, "", NewMessageRenderer(nil).RenderEntry(Entry{Role: RoleUser}))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcd…", Truncate("abcdefgh", 5))
	assert.Equal(t, "…", Truncate("abc", 1))
}

func TestShortenURL(t *testing.T) {
	assert.Equal(t, "mysoftheaven.com/about", ShortenURL("https://www.mysoftheaven.com/about"))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "1.5s", FormatDuration(1500*time.Millisecond))
	assert.Equal(t, "2.0m", FormatDuration(2*time.Minute))
}
