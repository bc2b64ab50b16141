package vector

import (
	"context"
	"math"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder records the batch sizes it receives
type countingEmbedder struct {
	inner   embedding.Embedder
	batches []int
}

func (e *countingEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	e.batches = append(e.batches, len(texts))
	return e.inner.EmbedStrings(ctx, texts, opts...)
}

func TestHashEmbedderDeterministic(t *testing.T) {
	e := NewHashEmbedder(128)
	ctx := context.Background()

	a, err := e.EmbedStrings(ctx, []string{"ERP software for government"})
	require.NoError(t, err)
	b, err := e.EmbedStrings(ctx, []string{"ERP software for government"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a[0], 128)
}

func TestHashEmbedderNormalized(t *testing.T) {
	vecs, err := NewHashEmbedder(64).EmbedStrings(context.Background(), []string{
		"Mysoft Heaven builds accounting and HRM systems",
		"the and of",
	})
	require.NoError(t, err)

	for _, vec := range vecs {
		var norm float64
		for _, v := range vec {
			norm += v * v
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
	}
}

func TestHashEmbedderFoldsPlurals(t *testing.T) {
	vecs, err := NewHashEmbedder(256).EmbedStrings(context.Background(), []string{"services", "service", "companies", "company"})
	require.NoError(t, err)
	assert.Equal(t, vecs[0], vecs[1])
	assert.Equal(t, vecs[2], vecs[3])
}

func TestHashEmbedderCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHashEmbedder(8).EmbedStrings(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmbeddingServiceBatches(t *testing.T) {
	counter := &countingEmbedder{inner: NewHashEmbedder(32)}
	svc := NewEmbeddingService(counter, "hash", 2)

	vectors, err := svc.EmbedBatch(context.Background(), []string{"a1", "b2", "c3", "d4", "e5"})
	require.NoError(t, err)

	assert.Len(t, vectors, 5)
	assert.Equal(t, []int{2, 2, 1}, counter.batches)
	assert.Equal(t, 32, svc.Dimension())
	assert.Equal(t, "hash", svc.Model())
}

func TestEmbeddingServiceRejectsEmptyText(t *testing.T) {
	svc := NewEmbeddingService(NewHashEmbedder(8), "hash", 0)

	_, err := svc.Embed(context.Background(), "")
	assert.Error(t, err)

	_, err = svc.EmbedBatch(context.Background(), []string{"ok", ""})
	assert.Error(t, err)

	_, err = svc.EmbedBatch(context.Background(), nil)
	assert.Error(t, err)
	assert.Equal(t, 0, svc.Dimension())
}

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0, cosineDistance([]float32{1, 2}, []float32{2, 4}), 1e-6)
	assert.InDelta(t, 1, cosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.Equal(t, 1.0, cosineDistance([]float32{1}, []float32{1, 0}))
	assert.Equal(t, 1.0, cosineDistance([]float32{0, 0}, []float32{1, 0}))
}
