package vector

import (
	"context"
	"errors"
	"math"
	"sort"

	"mysoft-chat/llm"
)

// ErrModelMismatch is returned when an index was built with a different embedding model
var ErrModelMismatch = errors.New("knowledge index was built with a different embedding model")

// Index is the knowledge index: a full-rebuild corpus of embedded chunks
type Index interface {
	// Rebuild embeds every chunk and atomically replaces the whole corpus
	Rebuild(ctx context.Context, chunks []llm.Chunk) error

	// Search returns the k nearest chunks to query, most similar first.
	// A missing index yields an empty result rather than an error.
	Search(ctx context.Context, query string, k int) ([]llm.RetrievalResult, error)

	// Count returns the number of indexed documents
	Count(ctx context.Context) (int, error)

	// Close releases any connections or resources
	Close() error
}

// cosineDistance returns 1 - cos(a, b); mismatched or zero vectors are maximally distant
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

// newRetrievalResult converts a raw distance into a retrieval result
func newRetrievalResult(chunk llm.Chunk, distance float64) llm.RetrievalResult {
	return llm.RetrievalResult{
		Chunk:      chunk,
		Distance:   distance,
		Similarity: llm.SimilarityFromDistance(distance),
	}
}

// sortByDistance orders results ascending by distance, keeping insertion order on ties
func sortByDistance(results []llm.RetrievalResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
}
