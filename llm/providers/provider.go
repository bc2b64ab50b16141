package providers

import (
	"context"
	"errors"
	"fmt"

	"mysoft-chat/config"
	"mysoft-chat/llm/vector"

	openaiEmbed "github.com/cloudwego/eino-ext/components/embedding/openai"
	geminiModel "github.com/cloudwego/eino-ext/components/model/gemini"
	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	einoEmbedding "github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"
)

// ErrNoAPIKey is returned when a provider is selected without credentials.
// Callers treat it as "run without a language model".
var ErrNoAPIKey = errors.New("API key is not configured")

const (
	defaultOpenAIModel    = "gpt-4-turbo"
	defaultGeminiModel    = "gemini-2.5-flash"
	defaultEmbeddingModel = "text-embedding-3-small"
)

// NewChatModel creates the chat model selected by config.
// Supported providers: openai (any OpenAI-compatible endpoint) and gemini.
func NewChatModel(ctx context.Context, cfg config.LLMConfig) (model.ToolCallingChatModel, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	switch cfg.Provider {
	case config.LLMGemini:
		return newGeminiModel(ctx, cfg)
	case config.LLMOpenAI, "":
		return newOpenAIModel(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

func newOpenAIModel(ctx context.Context, cfg config.LLMConfig) (model.ToolCallingChatModel, error) {
	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultOpenAIModel
	}

	return openaiModel.NewChatModel(ctx, &openaiModel.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   modelName,
	})
}

func newGeminiModel(ctx context.Context, cfg config.LLMConfig) (model.ToolCallingChatModel, error) {
	modelName := cfg.Model
	if modelName == "" || modelName == defaultOpenAIModel {
		modelName = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return geminiModel.NewChatModel(ctx, &geminiModel.Config{
		Client: client,
		Model:  modelName,
	})
}

// NewEmbedder creates the embedder selected by config and returns the model
// name recorded with every index it builds.
func NewEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (einoEmbedding.Embedder, string, error) {
	switch cfg.Provider {
	case config.EmbeddingHash:
		embedder := vector.NewHashEmbedder(cfg.Dimensions)
		return embedder, fmt.Sprintf("%s-%d", vector.HashEmbedderModel, cfg.Dimensions), nil
	case config.EmbeddingOpenAI:
		embedder, err := newOpenAIEmbedder(ctx, cfg)
		if err != nil {
			return nil, "", err
		}
		modelName := cfg.Model
		if modelName == "" {
			modelName = defaultEmbeddingModel
		}
		return embedder, modelName, nil
	default:
		return nil, "", fmt.Errorf("unsupported embedding provider %q", cfg.Provider)
	}
}

func newOpenAIEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (einoEmbedding.Embedder, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultEmbeddingModel
	}

	return openaiEmbed.NewEmbedder(ctx, &openaiEmbed.EmbeddingConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   modelName,
	})
}
