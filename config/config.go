// Package config builds the single configuration value shared by every component.
// Precedence, lowest first: defaults, YAML file, environment (including .env).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read when present and no explicit path is given
const DefaultConfigFile = "config.yaml"

// Backend names
const (
	IndexLocal = "local"
	IndexRedis = "redis"

	HistoryFile   = "file"
	HistoryMemory = "memory"
	HistoryRedis  = "redis"
	HistorySQLite = "sqlite"

	EmbeddingOpenAI = "openai"
	EmbeddingHash   = "hash"

	LLMOpenAI = "openai"
	LLMGemini = "gemini"
)

// Config is the root configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Source    SourceConfig    `yaml:"source"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Index     IndexConfig     `yaml:"index"`
	Redis     RedisConfig     `yaml:"redis"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	History   HistoryConfig   `yaml:"history"`
	Assistant AssistantConfig `yaml:"assistant"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr          string        `yaml:"addr"`
	RateLimit     float64       `yaml:"rate_limit"` // requests per second, 0 disables
	RateBurst     int           `yaml:"rate_burst"`
	WatchSource   bool          `yaml:"watch_source"`
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// SourceConfig locates the company content spreadsheet
type SourceConfig struct {
	Path             string `yaml:"path"` // file path or doublestar pattern
	Sheet            string `yaml:"sheet"`
	MinContentLength int    `yaml:"min_content_length"`
	StripBoilerplate bool   `yaml:"strip_boilerplate"`
}

// ChunkingConfig configures the chunker
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// IndexConfig selects and tunes the knowledge index
type IndexConfig struct {
	Backend             string  `yaml:"backend"`
	Dir                 string  `yaml:"dir"`
	TopK                int     `yaml:"top_k"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// RedisConfig holds Redis connection settings shared by the index and history backends
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	PoolSize   int    `yaml:"pool_size"`
	IndexName  string `yaml:"index_name"`
	HistoryKey string `yaml:"history_key"`
}

// EmbeddingConfig selects the embedding model
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // openai or hash; empty picks openai when a key is set
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Dimensions int    `yaml:"dimensions"` // hash embedder only
	BatchSize  int    `yaml:"batch_size"`
}

// LLMConfig selects the chat model
type LLMConfig struct {
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	APIKey   string        `yaml:"api_key"`
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

// HistoryConfig selects the conversation store
type HistoryConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	MaxTurns    int    `yaml:"max_turns"`
	PromptTurns int    `yaml:"prompt_turns"`
}

// AssistantConfig shapes replies
type AssistantConfig struct {
	CompanyName string `yaml:"company_name"`
	MaxWords    int    `yaml:"max_words"`
}

// TracingConfig enables CozeLoop tracing when both values are set
type TracingConfig struct {
	CozeLoopAPIToken    string `yaml:"cozeloop_api_token"`
	CozeLoopWorkspaceID string `yaml:"cozeloop_workspace_id"`
}

// LogConfig configures slog output
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
	File   string `yaml:"file"`   // empty logs to stderr
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:          ":8000",
			RateLimit:     5,
			RateBurst:     10,
			WatchDebounce: 2 * time.Second,
		},
		Source: SourceConfig{
			Path:             "data/mysoftheaven data.xlsx",
			MinContentLength: 50,
		},
		Chunking: ChunkingConfig{
			Size:    400,
			Overlap: 100,
		},
		Index: IndexConfig{
			Backend:             IndexLocal,
			Dir:                 "data/vector_index",
			TopK:                3,
			SimilarityThreshold: 0.30,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   10,
			IndexName:  "mysoft-knowledge",
			HistoryKey: "mysoft-chat:history",
		},
		Embedding: EmbeddingConfig{
			Model:      "text-embedding-3-small",
			Dimensions: 384,
			BatchSize:  64,
		},
		LLM: LLMConfig{
			Provider: LLMOpenAI,
			Model:    "gpt-4-turbo",
			Timeout:  60 * time.Second,
		},
		History: HistoryConfig{
			Backend:     HistoryFile,
			Path:        "data/chat_data.json",
			MaxTurns:    10,
			PromptTurns: 3,
		},
		Assistant: AssistantConfig{
			CompanyName: "Mysoft Heaven (BD) Ltd.",
			MaxWords:    200,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration. An empty path reads DefaultConfigFile if it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.resolve()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides values from environment variables
func (c *Config) applyEnv() {
	c.Server.Addr = getEnvString("SERVER_ADDR", c.Server.Addr)
	c.Server.RateLimit = getEnvFloat("RATE_LIMIT", c.Server.RateLimit)
	c.Server.WatchSource = getEnvBool("WATCH_SOURCE", c.Server.WatchSource)

	c.Source.Path = getEnvString("EXCEL_DATA_PATH", c.Source.Path)
	c.Source.Sheet = getEnvString("EXCEL_SHEET", c.Source.Sheet)
	c.Source.StripBoilerplate = getEnvBool("STRIP_BOILERPLATE", c.Source.StripBoilerplate)

	c.Chunking.Size = getEnvInt("CHUNK_SIZE", c.Chunking.Size)
	c.Chunking.Overlap = getEnvInt("CHUNK_OVERLAP", c.Chunking.Overlap)

	c.Index.Backend = getEnvString("INDEX_BACKEND", c.Index.Backend)
	c.Index.Dir = getEnvString("DATABASE_PATH", c.Index.Dir)
	c.Index.TopK = getEnvInt("TOP_K", c.Index.TopK)
	c.Index.SimilarityThreshold = getEnvFloat("SIMILARITY_THRESHOLD", c.Index.SimilarityThreshold)

	c.Redis.Addr = getEnvString("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnvString("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)
	c.Redis.PoolSize = getEnvInt("REDIS_POOL_SIZE", c.Redis.PoolSize)
	c.Redis.IndexName = getEnvString("VECTOR_INDEX_NAME", c.Redis.IndexName)

	c.Embedding.Provider = getEnvString("EMBEDDING_PROVIDER", c.Embedding.Provider)
	c.Embedding.APIKey = getEnvString("EMBEDDING_MODEL_API_KEY", c.Embedding.APIKey)
	c.Embedding.BaseURL = getEnvString("EMBEDDING_MODEL_BASE_URL", c.Embedding.BaseURL)
	c.Embedding.Model = getEnvString("EMBEDDING_MODEL", c.Embedding.Model)
	c.Embedding.Dimensions = getEnvInt("VECTOR_DIM", c.Embedding.Dimensions)

	c.LLM.Provider = getEnvString("LLM_PROVIDER", c.LLM.Provider)
	c.LLM.APIKey = getEnvString("OPENAI_API_KEY", c.LLM.APIKey)
	c.LLM.APIKey = getEnvString("API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = getEnvString("BASE_URL", c.LLM.BaseURL)
	c.LLM.Model = getEnvString("MODEL", c.LLM.Model)
	c.LLM.Timeout = getEnvDuration("LLM_TIMEOUT", c.LLM.Timeout)
	if c.LLM.Provider == LLMGemini {
		c.LLM.APIKey = getEnvString("GEMINI_API_KEY", c.LLM.APIKey)
		c.LLM.Model = getEnvString("GEMINI_MODEL", c.LLM.Model)
	}

	c.History.Backend = getEnvString("HISTORY_BACKEND", c.History.Backend)
	c.History.Path = getEnvString("CHAT_HISTORY_PATH", c.History.Path)

	c.Tracing.CozeLoopAPIToken = getEnvString("COZE_LOOP_API_TOKEN", c.Tracing.CozeLoopAPIToken)
	c.Tracing.CozeLoopWorkspaceID = getEnvString("COZELOOP_WORKSPACE_ID", c.Tracing.CozeLoopWorkspaceID)

	c.Log.Level = getEnvString("LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnvString("LOG_FILE", c.Log.File)
}

// resolve fills values that depend on other settings
func (c *Config) resolve() {
	if c.Embedding.Provider == "" {
		if c.Embedding.APIKey != "" {
			c.Embedding.Provider = EmbeddingOpenAI
		} else {
			c.Embedding.Provider = EmbeddingHash
		}
	}
}

// Validate checks the configuration for values no component can work with
func (c *Config) Validate() error {
	var errs []error

	if c.Chunking.Size <= 0 {
		errs = append(errs, errors.New("chunking.size must be positive"))
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		errs = append(errs, errors.New("chunking.overlap must be in [0, chunking.size)"))
	}
	if c.Source.Path == "" {
		errs = append(errs, errors.New("source.path is required"))
	}
	if c.Index.TopK <= 0 {
		errs = append(errs, errors.New("index.top_k must be positive"))
	}
	if c.History.MaxTurns <= 0 {
		errs = append(errs, errors.New("history.max_turns must be positive"))
	}
	if c.History.PromptTurns < 0 || c.History.PromptTurns > c.History.MaxTurns {
		errs = append(errs, errors.New("history.prompt_turns must be in [0, history.max_turns]"))
	}

	if !oneOf(c.Index.Backend, IndexLocal, IndexRedis) {
		errs = append(errs, fmt.Errorf("unknown index backend %q", c.Index.Backend))
	}
	if c.Index.Backend == IndexLocal && c.Index.Dir == "" {
		errs = append(errs, errors.New("index.dir is required for the local backend"))
	}
	if !oneOf(c.History.Backend, HistoryFile, HistoryMemory, HistoryRedis, HistorySQLite) {
		errs = append(errs, fmt.Errorf("unknown history backend %q", c.History.Backend))
	}
	if !oneOf(c.Embedding.Provider, EmbeddingOpenAI, EmbeddingHash) {
		errs = append(errs, fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider))
	}
	if c.Embedding.Provider == EmbeddingOpenAI && c.Embedding.APIKey == "" {
		errs = append(errs, errors.New("embedding.api_key is required for the openai embedding provider"))
	}
	if c.Embedding.Provider == EmbeddingHash && c.Embedding.Dimensions <= 0 {
		errs = append(errs, errors.New("embedding.dimensions must be positive for the hash provider"))
	}
	if !oneOf(c.LLM.Provider, LLMOpenAI, LLMGemini) {
		errs = append(errs, fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
	}
	if !oneOf(strings.ToLower(c.Log.Format), "text", "json") {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}

// getEnvString reads a string from environment variable
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer from environment variable
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
