package vector

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// sentenceBoundary matches terminal punctuation followed by whitespace.
// The punctuation stays with the preceding sentence.
var sentenceBoundary = regexp.MustCompile(`[.!?][\s\p{Zs}]+`)

// ChunkConfig configures how cleaned text is split into chunks
type ChunkConfig struct {
	ChunkSize    int // Soft upper bound on chunk length in characters
	ChunkOverlap int // Overlap hint; only the boundary sentence is repeated
}

// DefaultChunkConfig returns the default chunk configuration
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize:    400,
		ChunkOverlap: 100,
	}
}

// Chunker splits cleaned text into sentence-aligned, overlapping chunks
type Chunker struct {
	config ChunkConfig
}

// NewChunker creates a chunker, falling back to defaults for invalid sizes
func NewChunker(config ChunkConfig) *Chunker {
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkConfig().ChunkSize
	}
	if config.ChunkOverlap < 0 {
		config.ChunkOverlap = 0
	}
	return &Chunker{config: config}
}

// Config returns the effective configuration
func (c *Chunker) Config() ChunkConfig {
	return c.config
}

// Split chunks text with the chunker's configuration
func (c *Chunker) Split(text string) []string {
	return ChunkText(text, c.config.ChunkSize, c.config.ChunkOverlap)
}

// ChunkText greedily packs sentences into chunks of at most chunkSize characters.
//
// When the next sentence would overflow a non-empty chunk, the chunk is closed and
// the next one is seeded with the closed chunk's last sentence (only if it held
// more than one) before the triggering sentence is added. Sentences are never cut,
// so a single oversized sentence becomes its own chunk. overlapHint is accepted
// for configuration symmetry and is not enforced as a character budget.
func ChunkText(text string, chunkSize, overlapHint int) []string {
	if text == "" {
		return []string{}
	}

	var (
		chunks     []string
		current    []string
		currentLen int
	)

	for _, sentence := range SplitSentences(text) {
		n := utf8.RuneCountInString(sentence)

		if currentLen+n > chunkSize && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))

			if len(current) > 1 {
				current = []string{current[len(current)-1]}
			} else {
				current = nil
			}
			current = append(current, sentence)
			currentLen = joinedLength(current)
			continue
		}

		current = append(current, sentence)
		currentLen += n + 1
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	result := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk = strings.TrimSpace(chunk); chunk != "" {
			result = append(result, chunk)
		}
	}
	return result
}

// SplitSentences breaks text after '.', '!' or '?' followed by whitespace.
// A trailing boundary yields a final empty sentence.
func SplitSentences(text string) []string {
	var sentences []string
	prev := 0
	for _, loc := range sentenceBoundary.FindAllStringIndex(text, -1) {
		sentences = append(sentences, text[prev:loc[0]+1])
		prev = loc[1]
	}
	return append(sentences, text[prev:])
}

// joinedLength is the length of sentences joined by single spaces
func joinedLength(sentences []string) int {
	total := 0
	for _, s := range sentences {
		total += utf8.RuneCountInString(s)
	}
	return total + len(sentences) - 1
}
