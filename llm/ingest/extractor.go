package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"mysoft-chat/llm"
	"mysoft-chat/llm/parser"
	"mysoft-chat/llm/vector"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultMinContentLength is the cleaned length below which a record is treated as noise
const DefaultMinContentLength = 50

// Metadata keys attached to every extracted chunk
const (
	MetaCategory    = "category"
	MetaTitle       = "title"
	MetaTotalChunks = "total_chunks"
	MetaSourceFile  = "source_file"
	MetaRow         = "row"
)

// Config configures the extractor
type Config struct {
	Chunk            vector.ChunkConfig
	MinContentLength int
	// StripBoilerplate runs the goquery element pass before text cleaning.
	// When set, header/nav/footer subtrees are dropped and every entity is decoded.
	StripBoilerplate bool
	// Sheet selects the worksheet of spreadsheet sources
	Sheet string
}

// DefaultConfig returns the default extractor configuration
func DefaultConfig() Config {
	return Config{
		Chunk:            vector.DefaultChunkConfig(),
		MinContentLength: DefaultMinContentLength,
	}
}

// Extractor turns source records into chunks ready for embedding
type Extractor struct {
	config   Config
	registry *parser.Registry
	cleaner  *parser.TextCleaner
	html     *parser.HTMLParser
	chunker  *vector.Chunker
	logger   *slog.Logger
}

// NewExtractor creates a new extractor
func NewExtractor(config Config, logger *slog.Logger) *Extractor {
	if config.MinContentLength <= 0 {
		config.MinContentLength = DefaultMinContentLength
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		config:   config,
		registry: parser.DefaultRegistry(config.Sheet),
		cleaner:  parser.NewTextCleaner(),
		html:     parser.NewHTMLParser(),
		chunker:  vector.NewChunker(config.Chunk),
		logger:   logger,
	}
}

// Extract cleans and chunks records. Records whose cleaned content is shorter
// than the minimum length produce no chunks.
func (e *Extractor) Extract(records []llm.Record) []llm.Chunk {
	chunks, _ := e.extract(records)
	return chunks
}

// ExtractWithReport is Extract plus quality statistics for the run
func (e *Extractor) ExtractWithReport(records []llm.Record) ([]llm.Chunk, *QualityReport) {
	return e.extract(records)
}

func (e *Extractor) extract(records []llm.Record) ([]llm.Chunk, *QualityReport) {
	report := newQualityReport()
	chunks := []llm.Chunk{}

	for _, rec := range records {
		report.Records++

		text, title := e.prepare(rec.Content)
		if utf8.RuneCountInString(text) < e.config.MinContentLength {
			report.SkippedShort++
			continue
		}

		pieces := e.chunker.Split(text)
		category := CategoryFromPath(rec.Path)
		for i, piece := range pieces {
			meta := map[string]interface{}{
				MetaCategory:    category,
				MetaTotalChunks: len(pieces),
			}
			if title != "" {
				meta[MetaTitle] = title
			}
			if rec.SourceFile != "" {
				meta[MetaSourceFile] = rec.SourceFile
				meta[MetaRow] = rec.Row
			}

			chunk := llm.Chunk{
				Text:       piece,
				SourceURL:  rec.URL,
				SourcePath: rec.Path,
				ChunkIndex: i,
				Metadata:   meta,
			}
			chunks = append(chunks, chunk)
			report.observe(chunk, category)
		}
	}

	report.finish()
	return chunks, report
}

// prepare strips boilerplate elements from HTML content, then cleans it
func (e *Extractor) prepare(content string) (string, string) {
	var title string
	if e.config.StripBoilerplate && parser.LooksLikeHTML(content) {
		stripped, err := e.html.Strip(content)
		if err != nil {
			e.logger.Debug("html strip failed, cleaning raw content", "error", err)
		} else {
			content = stripped.Text
			title = stripped.Title
		}
	}
	return e.cleaner.Clean(content), title
}

// LoadRecords reads records from every file matching pattern, in lexical order.
// pattern is a plain path or a doublestar glob such as "data/**/*.xlsx".
func (e *Extractor) LoadRecords(ctx context.Context, pattern string) ([]llm.Record, error) {
	files, err := e.resolve(pattern)
	if err != nil {
		return nil, err
	}

	var records []llm.Record
	for _, file := range files {
		recs, err := e.registry.ReadFile(ctx, file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		records = append(records, recs...)
	}
	return records, nil
}

func (e *Extractor) resolve(pattern string) ([]string, error) {
	if pattern == "" {
		return nil, fmt.Errorf("source path is empty")
	}
	if !strings.ContainsAny(pattern, "*?[{") {
		return []string{pattern}, nil
	}

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid source pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no source files match %q", pattern)
	}
	sort.Strings(matches)
	return matches, nil
}

// ExtractFile loads and extracts a source path or pattern. A missing or
// unreadable source is logged and yields an empty result.
func (e *Extractor) ExtractFile(ctx context.Context, pattern string) ([]llm.Chunk, *QualityReport) {
	records, err := e.LoadRecords(ctx, pattern)
	if err != nil {
		e.logger.Warn("failed to load source records", "source", pattern, "error", err)
		return []llm.Chunk{}, newQualityReport()
	}

	chunks, report := e.extract(records)
	e.logger.Info("extracted source records",
		"source", pattern,
		"records", report.Records,
		"skipped_short", report.SkippedShort,
		"chunks", report.Chunks)
	return chunks, report
}
