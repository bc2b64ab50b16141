package llm

import (
	"encoding/json"
	"time"
)

// Record is one source row read from the company content spreadsheet
type Record struct {
	URL     string `json:"url"`
	Path    string `json:"path"`
	Content string `json:"content"`
	// SourceFile is the file the row was read from, empty for in-memory records
	SourceFile string `json:"source_file,omitempty"`
	// Row is the 1-based data row number inside SourceFile
	Row int `json:"row,omitempty"`
}

// Chunk is a bounded piece of cleaned record text, the unit of embedding and retrieval
type Chunk struct {
	Text       string                 `json:"text"`
	SourceURL  string                 `json:"source_url"`
	SourcePath string                 `json:"source_path"`
	ChunkIndex int                    `json:"chunk_index"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// IndexedDocument is a chunk together with its embedding vector
type IndexedDocument struct {
	ID     string    `json:"id"`
	Chunk  Chunk     `json:"chunk"`
	Vector []float32 `json:"vector"`
}

// RetrievalResult is a chunk returned by a similarity search
type RetrievalResult struct {
	Chunk Chunk `json:"chunk"`
	// Distance is the raw cosine distance reported by the index
	Distance float64 `json:"distance"`
	// Similarity is derived as 1 - Distance, higher is more relevant
	Similarity float64 `json:"similarity"`
}

// ConversationTurn is one recorded (query, response) exchange
type ConversationTurn struct {
	UserQuery         string    `json:"user_query"`
	AssistantResponse string    `json:"assistant_response"`
	CreatedAt         time.Time `json:"created_at,omitzero"`
}

// UnmarshalJSON also accepts the "user query" / "AI_response" keys written by
// earlier deployments of the chat history file.
func (t *ConversationTurn) UnmarshalJSON(data []byte) error {
	type plain ConversationTurn
	var aux struct {
		plain
		LegacyQuery    string `json:"user query"`
		LegacyResponse string `json:"AI_response"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*t = ConversationTurn(aux.plain)
	if t.UserQuery == "" {
		t.UserQuery = aux.LegacyQuery
	}
	if t.AssistantResponse == "" {
		t.AssistantResponse = aux.LegacyResponse
	}
	return nil
}

// SimilarityFromDistance converts a raw cosine distance into a similarity in [0, 1]
func SimilarityFromDistance(d float64) float64 {
	s := 1 - d
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
