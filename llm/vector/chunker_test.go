package vector

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestChunkTextEmpty(t *testing.T) {
	chunks := ChunkText("", 400, 100)
	assert.NotNil(t, chunks)
	assert.Empty(t, chunks)
}

func TestChunkTextSingleChunk(t *testing.T) {
	assert.Equal(t, []string{"Hello world."}, ChunkText("Hello world.", 400, 100))
}

func TestChunkTextSeedsWithBoundarySentence(t *testing.T) {
	chunks := ChunkText("Aaaa. Bbbb. Cccc.", 12, 5)
	assert.Equal(t, []string{"Aaaa. Bbbb.", "Bbbb. Cccc."}, chunks)
}

func TestChunkTextSingleSentenceChunkIsNotRepeated(t *testing.T) {
	long := "This sentence is definitely longer than ten characters."
	chunks := ChunkText("Short. "+long, 10, 5)
	assert.Equal(t, []string{"Short.", long}, chunks)
}

func TestChunkTextNeverCutsSentences(t *testing.T) {
	sentences := []string{
		"Mysoft Heaven builds ERP systems for government agencies.",
		"The company also delivers HRM and accounting software.",
		"Its support team works from Dhaka.",
		"Custom web and mobile applications are available on request.",
	}
	text := strings.Join(sentences, " ")

	chunks := ChunkText(text, 80, 20)
	assert.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		for _, part := range SplitSentences(chunk) {
			assert.Contains(t, sentences, part)
		}
	}
}

func TestChunkTextRespectsSizeWhenSentencesFit(t *testing.T) {
	text := strings.Repeat("Short sentence here. ", 40)
	for _, chunk := range ChunkText(text, 100, 20) {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 100)
	}
}

func TestChunkTextTrailingBoundary(t *testing.T) {
	assert.Equal(t, []string{"One. Two."}, ChunkText("One. Two. ", 400, 100))
}

func TestSplitSentences(t *testing.T) {
	assert.Equal(t, []string{"Hi!", "Are you there?", "Yes."}, SplitSentences("Hi! Are you there? Yes."))
	assert.Equal(t, []string{"v1.2 is out"}, SplitSentences("v1.2 is out"))
}

func TestNewChunkerDefaults(t *testing.T) {
	c := NewChunker(ChunkConfig{ChunkSize: 0, ChunkOverlap: -3})
	assert.Equal(t, 400, c.Config().ChunkSize)
	assert.Equal(t, 0, c.Config().ChunkOverlap)
	assert.Equal(t, []string{"Hello."}, c.Split("Hello."))
}

var chunkWords = []string{
	"Mysoft", "Heaven", "builds", "ERP", "HRM", "software", "for", "government",
	"agencies", "and", "enterprise", "clients", "in", "Dhaka", "with", "cloud", "support",
}

// randomSentences returns n sentences of 1 to 25 words each
func randomSentences(r *rand.Rand, n int) []string {
	enders := []string{".", "!", "?"}
	sentences := make([]string, n)
	for i := range sentences {
		words := make([]string, 1+r.Intn(25))
		for j := range words {
			words[j] = chunkWords[r.Intn(len(chunkWords))]
		}
		sentences[i] = strings.Join(words, " ") + enders[r.Intn(len(enders))]
	}
	return sentences
}

// splitSeeded separates each chunk into its seed sentence (repeated from the
// previous chunk, or "") and the sentences it contributes itself
func splitSeeded(chunks []string) (seeds []string, own [][]string) {
	prevMulti := false
	for _, chunk := range chunks {
		parts := SplitSentences(chunk)
		seed := ""
		if prevMulti {
			seed, parts = parts[0], parts[1:]
		}
		seeds = append(seeds, seed)
		own = append(own, parts)
		prevMulti = len(parts) > 1 || (seed != "" && len(parts) > 0)
	}
	return seeds, own
}

func TestChunkTextCoverageAndSoftBound(t *testing.T) {
	r := rand.New(rand.NewSource(7))

	for _, size := range []int{40, 85, 120, 400} {
		for round := 0; round < 25; round++ {
			sentences := randomSentences(r, 1+r.Intn(30))
			text := strings.Join(sentences, " ")
			chunks := ChunkText(text, size, size/4)

			name := fmt.Sprintf("size=%d round=%d", size, round)
			seeds, own := splitSeeded(chunks)

			var covered []string
			for _, parts := range own {
				covered = append(covered, parts...)
			}
			assert.Equal(t, sentences, covered, name)

			for i, chunk := range chunks {
				n := utf8.RuneCountInString(chunk)
				switch {
				case len(own[i]) > 1:
					// running length is tracked without the trailing separator after a split
					assert.LessOrEqual(t, n, size+1, name)
				case seeds[i] != "" && utf8.RuneCountInString(seeds[i]) <= size:
					assert.LessOrEqual(t, n, size+1+utf8.RuneCountInString(own[i][0]), name)
				}
			}
		}
	}
}

func sentenceOfLength(n int) string {
	return strings.Repeat("w", n-1) + "."
}

// An oversized sentence carried over as the seed stacks with an oversized
// trigger, so the chunk exceeds chunk_size plus any one sentence.
func TestChunkTextOversizedSeedStacksWithTrigger(t *testing.T) {
	w, x := sentenceOfLength(20), sentenceOfLength(20)
	big1, big2 := sentenceOfLength(102), sentenceOfLength(104)

	chunks := ChunkText(strings.Join([]string{w, x, big1, big2}, " "), 85, 20)

	assert.Equal(t, []string{w + " " + x, x + " " + big1, big1 + " " + big2}, chunks)
	assert.Equal(t, 207, utf8.RuneCountInString(chunks[2]))
	assert.Greater(t, utf8.RuneCountInString(chunks[2]), 85+utf8.RuneCountInString(big2))
}
