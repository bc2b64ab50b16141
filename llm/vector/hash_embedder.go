package vector

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
)

// HashEmbedderModel is the model name recorded for indexes built with HashEmbedder
const HashEmbedderModel = "feature-hash-v1"

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

var hashStopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"do": {}, "does": {}, "for": {}, "from": {}, "how": {}, "i": {}, "in": {}, "is": {},
	"it": {}, "of": {}, "on": {}, "or": {}, "the": {}, "to": {}, "was": {}, "we": {},
	"what": {}, "which": {}, "who": {}, "with": {}, "you": {}, "your": {},
}

// HashEmbedder is a deterministic bag-of-words embedder using the hashing trick.
// It needs no network access and is used for offline runs and tests.
type HashEmbedder struct {
	dim int
}

var _ embedding.Embedder = (*HashEmbedder)(nil)

// NewHashEmbedder creates a hash embedder producing vectors of the given size
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 256
	}
	return &HashEmbedder{dim: dim}
}

// EmbedStrings returns one L2-normalised term-frequency vector per text
func (e *HashEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embed(text)
	}
	return out, nil
}

func (e *HashEmbedder) embed(text string) []float64 {
	vec := make([]float64, e.dim)
	for _, word := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if _, stop := hashStopWords[word]; stop {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(stemPlural(word)))
		vec[h.Sum32()%uint32(e.dim)]++
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		// keep the vector non-zero so cosine distance stays defined
		vec[0] = 1
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// stemPlural folds the most common English plural endings
func stemPlural(word string) string {
	switch {
	case len(word) > 4 && strings.HasSuffix(word, "ies"):
		return word[:len(word)-3] + "y"
	case len(word) > 3 && strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss"):
		return word[:len(word)-1]
	}
	return word
}
