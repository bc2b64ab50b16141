package vector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"mysoft-chat/llm"

	"github.com/google/uuid"
)

const (
	localIndexFile    = "index.json"
	localIndexVersion = "1.0"
)

// indexData is the JSON structure of the persisted index file
type indexData struct {
	Version   string                `json:"version"`
	Model     string                `json:"model"`
	Dimension int                   `json:"dimension"`
	CreatedAt string                `json:"created_at"`
	Documents []llm.IndexedDocument `json:"documents"`
}

// LocalIndex is a file-backed knowledge index searched by brute-force cosine distance.
// The whole corpus lives in one JSON file that is replaced atomically on rebuild.
type LocalIndex struct {
	dir      string
	embedSvc *EmbeddingService
	logger   *slog.Logger

	mu   sync.RWMutex
	data *indexData

	// stamp identifies the file version data was read from
	stamp fileStamp
}

// fileStamp is the modification time and size of the index file
type fileStamp struct {
	modTime time.Time
	size    int64
}

func stampOf(info os.FileInfo) fileStamp {
	return fileStamp{modTime: info.ModTime(), size: info.Size()}
}

func (f fileStamp) equal(o fileStamp) bool {
	return f.size == o.size && f.modTime.Equal(o.modTime)
}

var _ Index = (*LocalIndex)(nil)

// NewLocalIndex creates an index stored under dir. Nothing is read until first use.
func NewLocalIndex(dir string, embedSvc *EmbeddingService, logger *slog.Logger) (*LocalIndex, error) {
	if embedSvc == nil {
		return nil, fmt.Errorf("embedding service is required")
	}
	if dir == "" {
		return nil, fmt.Errorf("index directory is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalIndex{
		dir:      dir,
		embedSvc: embedSvc,
		logger:   logger,
	}, nil
}

// Path returns the location of the persisted index file
func (s *LocalIndex) Path() string {
	return filepath.Join(s.dir, localIndexFile)
}

// Rebuild embeds all chunks and swaps the new corpus in with a single rename.
// Searches keep seeing the previous corpus until the swap completes.
func (s *LocalIndex) Rebuild(ctx context.Context, chunks []llm.Chunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks to index")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := s.embedSvc.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}

	data := &indexData{
		Version:   localIndexVersion,
		Model:     s.embedSvc.Model(),
		Dimension: len(vectors[0]),
		CreatedAt: time.Now().Format(time.RFC3339),
		Documents: make([]llm.IndexedDocument, len(chunks)),
	}
	for i, c := range chunks {
		data.Documents[i] = llm.IndexedDocument{
			ID:     uuid.NewString(),
			Chunk:  c,
			Vector: vectors[i],
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeFile(data); err != nil {
		return err
	}
	s.data = data
	if info, err := os.Stat(s.Path()); err == nil {
		s.stamp = stampOf(info)
	}

	s.logger.Info("knowledge index rebuilt",
		"path", s.Path(), "documents", len(data.Documents), "model", data.Model)
	return nil
}

// writeFile writes data to a temp file in the index directory and renames it into place
func (s *LocalIndex) writeFile(data *indexData) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "index-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp index file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	enc := json.NewEncoder(tmp)
	if err := enc.Encode(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode index: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close index: %w", err)
	}

	if err := os.Rename(tmpName, s.Path()); err != nil {
		return fmt.Errorf("failed to swap index into place: %w", err)
	}
	return nil
}

// snapshot returns the current corpus. The file is stat'ed on every call, so an
// index written by another process is picked up without a restart. A nil result
// means no index has been built yet; absence is never cached.
func (s *LocalIndex) snapshot() (*indexData, error) {
	info, err := os.Stat(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat index file: %w", err)
	}
	stamp := stampOf(info)

	s.mu.RLock()
	if s.data != nil && s.stamp.equal(stamp) {
		data := s.data
		s.mu.RUnlock()
		return data, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data != nil && s.stamp.equal(stamp) {
		return s.data, nil
	}

	raw, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read index file: %w", err)
	}

	var data indexData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse index file: %w", err)
	}

	s.data = &data
	s.stamp = stamp
	s.logger.Debug("knowledge index loaded", "path", s.Path(), "documents", len(data.Documents))
	return s.data, nil
}

// Search performs semantic search using cosine distance
func (s *LocalIndex) Search(ctx context.Context, query string, k int) ([]llm.RetrievalResult, error) {
	if query == "" || k <= 0 {
		return []llm.RetrievalResult{}, nil
	}

	data, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	if data == nil || len(data.Documents) == 0 {
		return []llm.RetrievalResult{}, nil
	}
	if data.Model != s.embedSvc.Model() {
		return nil, fmt.Errorf("%w: index %q, configured %q", ErrModelMismatch, data.Model, s.embedSvc.Model())
	}

	queryVector, err := s.embedSvc.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	results := make([]llm.RetrievalResult, 0, len(data.Documents))
	for _, doc := range data.Documents {
		results = append(results, newRetrievalResult(doc.Chunk, cosineDistance(queryVector, doc.Vector)))
	}
	sortByDistance(results)

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Count returns the number of documents in the index
func (s *LocalIndex) Count(ctx context.Context) (int, error) {
	data, err := s.snapshot()
	if err != nil {
		return 0, err
	}
	if data == nil {
		return 0, nil
	}
	return len(data.Documents), nil
}

// Close is a no-op; the index holds no open handles
func (s *LocalIndex) Close() error {
	return nil
}
