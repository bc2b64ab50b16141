package vector

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"

	"mysoft-chat/llm"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// Default index configuration
	defaultEFConstruction = 200
	defaultM              = 16

	// Field names in Redis hash
	fieldText       = "text"
	fieldVector     = "vector"
	fieldSourceURL  = "source_url"
	fieldSourcePath = "source_path"
	fieldChunkIndex = "chunk_index"
	fieldMetadata   = "metadata"
	fieldScore      = "score"

	// Fields of the <index>:meta hash
	metaGeneration = "generation"
	metaModel      = "model"
	metaDimension  = "dimension"
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	PoolSize       int
	IndexName      string
	EFConstruction int
	M              int
}

// DefaultRedisConfig returns the default Redis configuration
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:           "localhost:6379",
		PoolSize:       10,
		IndexName:      "mysoft-knowledge",
		EFConstruction: defaultEFConstruction,
		M:              defaultM,
	}
}

// NewRedisClient creates a RESP2 client; search replies are parsed as flat arrays
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
		Protocol: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisIndex implements Index using RediSearch HNSW vector indexes.
//
// Every rebuild writes a fresh generation (its own index and key prefix) and then
// repoints the alias IndexName at it, so readers switch corpora in one step.
// The previous generation is dropped together with its documents afterwards.
type RedisIndex struct {
	client   *redis.Client
	embedSvc *EmbeddingService
	config   RedisConfig
	logger   *slog.Logger
	mu       sync.Mutex
}

var _ Index = (*RedisIndex)(nil)

// NewRedisIndex creates a new Redis-based knowledge index
func NewRedisIndex(client *redis.Client, embedSvc *EmbeddingService, cfg RedisConfig, logger *slog.Logger) (*RedisIndex, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if embedSvc == nil {
		return nil, fmt.Errorf("embedding service is required")
	}
	if cfg.IndexName == "" {
		cfg.IndexName = DefaultRedisConfig().IndexName
	}
	if cfg.EFConstruction <= 0 {
		cfg.EFConstruction = defaultEFConstruction
	}
	if cfg.M <= 0 {
		cfg.M = defaultM
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &RedisIndex{
		client:   client,
		embedSvc: embedSvc,
		config:   cfg,
		logger:   logger,
	}, nil
}

func (s *RedisIndex) metaKey() string {
	return s.config.IndexName + ":meta"
}

func (s *RedisIndex) generationIndex(gen string) string {
	return s.config.IndexName + "-" + gen
}

func (s *RedisIndex) generationPrefix(gen string) string {
	return s.config.IndexName + ":" + gen + ":"
}

// Rebuild embeds chunks into a new generation and switches the alias to it
func (s *RedisIndex) Rebuild(ctx context.Context, chunks []llm.Chunk) error {
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
	dim := len(vectors[0])

	s.mu.Lock()
	defer s.mu.Unlock()

	gen := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	newIndex := s.generationIndex(gen)

	if err := s.createIndex(ctx, newIndex, s.generationPrefix(gen), dim); err != nil {
		return err
	}

	if err := s.writeDocuments(ctx, gen, chunks, vectors); err != nil {
		s.dropIndex(ctx, newIndex)
		return err
	}

	previous, err := s.client.HGet(ctx, s.metaKey(), metaGeneration).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.dropIndex(ctx, newIndex)
		return fmt.Errorf("failed to read index metadata: %w", err)
	}

	if err := s.client.Do(ctx, "FT.ALIASUPDATE", s.config.IndexName, newIndex).Err(); err != nil {
		s.dropIndex(ctx, newIndex)
		return fmt.Errorf("failed to switch index alias: %w", err)
	}

	if err := s.client.HSet(ctx, s.metaKey(),
		metaGeneration, gen,
		metaModel, s.embedSvc.Model(),
		metaDimension, dim,
	).Err(); err != nil {
		return fmt.Errorf("failed to write index metadata: %w", err)
	}

	if previous != "" && previous != gen {
		s.dropIndex(ctx, s.generationIndex(previous))
	}

	s.logger.Info("knowledge index rebuilt",
		"index", newIndex, "documents", len(chunks), "model", s.embedSvc.Model())
	return nil
}

// createIndex creates one generation's HNSW index
func (s *RedisIndex) createIndex(ctx context.Context, name, prefix string, dim int) error {
	// FT.CREATE mysoft-knowledge-<gen>
	//   ON HASH PREFIX 1 "mysoft-knowledge:<gen>:"
	//   SCHEMA vector VECTOR HNSW 10 TYPE FLOAT32 DIM <dim> DISTANCE_METRIC COSINE EF_CONSTRUCTION 200 M 16
	//          text TEXT source_url TAG source_path TAG chunk_index NUMERIC
	err := s.client.Do(ctx, "FT.CREATE", name,
		"ON", "HASH",
		"PREFIX", "1", prefix,
		"SCHEMA",
		fieldVector, "VECTOR", "HNSW", "10",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(dim),
		"DISTANCE_METRIC", "COSINE",
		"EF_CONSTRUCTION", strconv.Itoa(s.config.EFConstruction),
		"M", strconv.Itoa(s.config.M),
		fieldText, "TEXT",
		fieldSourceURL, "TAG",
		fieldSourcePath, "TAG",
		fieldChunkIndex, "NUMERIC",
	).Err()
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", name, err)
	}
	return nil
}

// writeDocuments stores all documents of a generation in one pipeline
func (s *RedisIndex) writeDocuments(ctx context.Context, gen string, chunks []llm.Chunk, vectors [][]float32) error {
	pipe := s.client.Pipeline()
	prefix := s.generationPrefix(gen)

	for i, c := range chunks {
		metadataJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata: %w", err)
		}

		pipe.HSet(ctx, prefix+uuid.NewString(),
			fieldText, c.Text,
			fieldVector, encodeVector(vectors[i]),
			fieldSourceURL, c.SourceURL,
			fieldSourcePath, c.SourcePath,
			fieldChunkIndex, c.ChunkIndex,
			fieldMetadata, metadataJSON,
		)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert documents: %w", err)
	}
	return nil
}

// dropIndex removes an index and its documents; failures are logged only
func (s *RedisIndex) dropIndex(ctx context.Context, name string) {
	if err := s.client.Do(ctx, "FT.DROPINDEX", name, "DD").Err(); err != nil {
		s.logger.Warn("failed to drop index generation", "index", name, "error", err)
	}
}

// encodeVector encodes a float32 vector as the little-endian blob RediSearch expects
func encodeVector(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// Search performs KNN search against the current generation
func (s *RedisIndex) Search(ctx context.Context, query string, k int) ([]llm.RetrievalResult, error) {
	if query == "" || k <= 0 {
		return []llm.RetrievalResult{}, nil
	}

	meta, err := s.client.HGetAll(ctx, s.metaKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read index metadata: %w", err)
	}
	if meta[metaGeneration] == "" {
		return []llm.RetrievalResult{}, nil
	}
	if model := meta[metaModel]; model != s.embedSvc.Model() {
		return nil, fmt.Errorf("%w: index %q, configured %q", ErrModelMismatch, model, s.embedSvc.Model())
	}

	queryVector, err := s.embedSvc.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	// FT.SEARCH mysoft-knowledge "*=>[KNN 3 @vector $query_vector AS score]"
	//   PARAMS 2 query_vector "<bytes>" SORTBY score ASC RETURN 6 ... LIMIT 0 3 DIALECT 2
	queryStr := fmt.Sprintf("*=>[KNN %d @vector $query_vector AS %s]", k, fieldScore)

	result, err := s.client.Do(ctx, "FT.SEARCH", s.config.IndexName, queryStr,
		"PARAMS", "2", "query_vector", encodeVector(queryVector),
		"SORTBY", fieldScore, "ASC",
		"RETURN", "6", fieldScore, fieldText, fieldSourceURL, fieldSourcePath, fieldChunkIndex, fieldMetadata,
		"LIMIT", "0", strconv.Itoa(k),
		"DIALECT", "2",
	).Result()
	if err != nil {
		if isUnknownIndex(err) {
			return []llm.RetrievalResult{}, nil
		}
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	results, err := parseSearchResults(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}
	sortByDistance(results)
	return results, nil
}

// isUnknownIndex reports whether err is RediSearch's missing index reply
func isUnknownIndex(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such index") || strings.Contains(msg, "unknown index")
}

// parseSearchResults parses a RESP2 FT.SEARCH reply: count, then (id, fields) pairs
func parseSearchResults(result interface{}) ([]llm.RetrievalResult, error) {
	values, ok := result.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected result format %T", result)
	}

	results := make([]llm.RetrievalResult, 0, len(values)/2)
	for i := 1; i+1 < len(values); i += 2 {
		fields, ok := values[i+1].([]interface{})
		if !ok {
			continue
		}
		chunk, distance := parseDocumentFields(fields)
		results = append(results, newRetrievalResult(chunk, distance))
	}
	return results, nil
}

// parseDocumentFields parses document fields from a search reply
func parseDocumentFields(fields []interface{}) (llm.Chunk, float64) {
	var chunk llm.Chunk
	distance := 1.0

	for i := 0; i+1 < len(fields); i += 2 {
		name := replyString(fields[i])
		value := replyString(fields[i+1])

		switch name {
		case fieldText:
			chunk.Text = value
		case fieldSourceURL:
			chunk.SourceURL = value
		case fieldSourcePath:
			chunk.SourcePath = value
		case fieldChunkIndex:
			if n, err := strconv.Atoi(value); err == nil {
				chunk.ChunkIndex = n
			}
		case fieldMetadata:
			if value != "" && value != "null" {
				_ = json.Unmarshal([]byte(value), &chunk.Metadata)
			}
		case fieldScore:
			if d, err := strconv.ParseFloat(value, 64); err == nil {
				distance = d
			}
		}
	}
	return chunk, distance
}

func replyString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}

// Count returns the number of documents in the current generation
func (s *RedisIndex) Count(ctx context.Context) (int, error) {
	info, err := s.client.Do(ctx, "FT.INFO", s.config.IndexName).Result()
	if err != nil {
		if isUnknownIndex(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get index info: %w", err)
	}

	values, ok := info.([]interface{})
	if !ok {
		return 0, fmt.Errorf("unexpected info format")
	}

	for i := 0; i+1 < len(values); i += 2 {
		if replyString(values[i]) == "num_docs" {
			n, err := strconv.Atoi(replyString(values[i+1]))
			if err != nil {
				return 0, fmt.Errorf("invalid num_docs: %w", err)
			}
			return n, nil
		}
	}
	return 0, nil
}

// Close is a no-op; the client belongs to the caller and may be shared
func (s *RedisIndex) Close() error {
	return nil
}
