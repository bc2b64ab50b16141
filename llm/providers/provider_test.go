package providers

import (
	"context"
	"testing"

	"mysoft-chat/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbedderHash(t *testing.T) {
	embedder, name, err := NewEmbedder(context.Background(), config.EmbeddingConfig{
		Provider:   config.EmbeddingHash,
		Dimensions: 384,
	})
	require.NoError(t, err)
	assert.Equal(t, "feature-hash-v1-384", name)

	vecs, err := embedder.EmbedStrings(context.Background(), []string{"ERP software"})
	require.NoError(t, err)
	assert.Len(t, vecs[0], 384)
}

func TestNewEmbedderOpenAIRequiresKey(t *testing.T) {
	_, _, err := NewEmbedder(context.Background(), config.EmbeddingConfig{Provider: config.EmbeddingOpenAI})
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestNewEmbedderUnknownProvider(t *testing.T) {
	_, _, err := NewEmbedder(context.Background(), config.EmbeddingConfig{Provider: "qwen"})
	assert.Error(t, err)
}

func TestNewChatModelWithoutKey(t *testing.T) {
	for _, provider := range []string{config.LLMOpenAI, config.LLMGemini} {
		_, err := NewChatModel(context.Background(), config.LLMConfig{Provider: provider})
		assert.ErrorIs(t, err, ErrNoAPIKey, provider)
	}
}

func TestNewChatModelUnknownProvider(t *testing.T) {
	_, err := NewChatModel(context.Background(), config.LLMConfig{Provider: "claude", APIKey: "k"})
	assert.Error(t, err)
}

func TestNewChatModelOpenAI(t *testing.T) {
	m, err := NewChatModel(context.Background(), config.LLMConfig{
		Provider: config.LLMOpenAI,
		APIKey:   "sk-test",
		BaseURL:  "http://127.0.0.1:1/v1",
	})
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestSetupTracingDisabled(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), config.TracingConfig{CozeLoopAPIToken: "only-token"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	shutdown(context.Background())
}
