package vector

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/embedding"
)

const defaultEmbedBatchSize = 64

// EmbeddingService wraps an embedding model for vector generation.
// The same service must embed both indexed chunks and queries.
type EmbeddingService struct {
	embedder  embedding.Embedder
	model     string
	batchSize int
	dim       int
	mu        sync.RWMutex
}

// NewEmbeddingService creates a new embedding service; model names the
// embedding model and is recorded alongside every index built with it.
func NewEmbeddingService(embedder embedding.Embedder, model string, batchSize int) *EmbeddingService {
	if batchSize <= 0 {
		batchSize = defaultEmbedBatchSize
	}
	return &EmbeddingService{
		embedder:  embedder,
		model:     model,
		batchSize: batchSize,
	}
}

// Embed generates an embedding vector for a single text
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	vectors, err := s.embedder.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}

	vec := toFloat32(vectors[0])
	s.observeDim(len(vec))
	return vec, nil
}

// EmbedBatch generates embedding vectors for multiple texts, in order.
// Requests are split into batches of at most batchSize texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("texts cannot be empty")
	}
	for i, text := range texts {
		if text == "" {
			return nil, fmt.Errorf("text %d is empty", i)
		}
	}

	result := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		end := min(start+s.batchSize, len(texts))

		vectors, err := s.embedder.EmbedStrings(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to generate embeddings for batch %d-%d: %w", start, end, err)
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("embedding model returned %d vectors for %d texts", len(vectors), end-start)
		}

		for _, vec := range vectors {
			if len(vec) == 0 {
				return nil, fmt.Errorf("empty embedding returned")
			}
			result = append(result, toFloat32(vec))
		}
	}

	s.observeDim(len(result[0]))
	return result, nil
}

// Model returns the embedding model name
func (s *EmbeddingService) Model() string {
	return s.model
}

// Dimension returns the embedding dimension, 0 until the first vector was produced
func (s *EmbeddingService) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dim
}

func (s *EmbeddingService) observeDim(dim int) {
	s.mu.Lock()
	s.dim = dim
	s.mu.Unlock()
}

func toFloat32(vec []float64) []float32 {
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}
