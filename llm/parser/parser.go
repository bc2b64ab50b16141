package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"mysoft-chat/llm"
)

// FileType represents the type of a tabular source file
type FileType string

const (
	FileTypeXLSX    FileType = "xlsx"
	FileTypeCSV     FileType = "csv"
	FileTypeJSON    FileType = "json"
	FileTypeUnknown FileType = "unknown"
)

// Column names recognised in source headers, compared case-insensitively
const (
	ColumnURL     = "url"
	ColumnPath    = "path"
	ColumnContent = "content"
)

// RecordReader reads source rows from a tabular file
type RecordReader interface {
	// ReadFile reads every data row of the file at filePath
	ReadFile(ctx context.Context, filePath string) ([]llm.Record, error)

	// FileType returns the file type this reader handles
	FileType() FileType
}

// Registry holds all registered record readers
type Registry struct {
	readers map[FileType]RecordReader
}

// NewRegistry creates a new reader registry
func NewRegistry() *Registry {
	return &Registry{
		readers: make(map[FileType]RecordReader),
	}
}

// Register adds a reader to the registry
func (r *Registry) Register(reader RecordReader) {
	r.readers[reader.FileType()] = reader
}

// GetReader returns a reader for the given file type
func (r *Registry) GetReader(ft FileType) (RecordReader, bool) {
	reader, ok := r.readers[ft]
	return reader, ok
}

// GetReaderForPath returns a reader for the given file path
func (r *Registry) GetReaderForPath(filePath string) (RecordReader, bool) {
	ext := strings.TrimPrefix(filepath.Ext(filePath), ".")
	return r.GetReader(FileTypeFromExt(ext))
}

// ReadFile reads a file using the appropriate reader
func (r *Registry) ReadFile(ctx context.Context, filePath string) ([]llm.Record, error) {
	reader, ok := r.GetReaderForPath(filePath)
	if !ok {
		return nil, fmt.Errorf("no reader found for file: %s", filePath)
	}

	return reader.ReadFile(ctx, filePath)
}

// FileTypeFromExt converts a file extension to FileType
func FileTypeFromExt(ext string) FileType {
	switch strings.ToLower(ext) {
	case "xlsx", "xlsm":
		return FileTypeXLSX
	case "csv":
		return FileTypeCSV
	case "json":
		return FileTypeJSON
	default:
		return FileTypeUnknown
	}
}

// String returns the string representation of the FileType
func (ft FileType) String() string {
	return string(ft)
}

// DefaultRegistry returns a registry with all default readers registered.
// sheet selects the worksheet for spreadsheet sources, empty means the first one.
func DefaultRegistry(sheet string) *Registry {
	reg := NewRegistry()
	reg.Register(NewXLSXReader(sheet))
	reg.Register(NewCSVReader())
	reg.Register(NewJSONReader())
	return reg
}

// columnIndex maps recognised header names to their positions.
// "path" and "Path" both resolve to the path column; the first match wins.
type columnIndex struct {
	url, path, content int
}

func newColumnIndex(header []string) columnIndex {
	idx := columnIndex{url: -1, path: -1, content: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case ColumnURL:
			if idx.url < 0 {
				idx.url = i
			}
		case ColumnPath:
			if idx.path < 0 {
				idx.path = i
			}
		case ColumnContent:
			if idx.content < 0 {
				idx.content = i
			}
		}
	}
	return idx
}

// record builds a Record from one row, missing cells degrade to ""
func (c columnIndex) record(row []string) llm.Record {
	return llm.Record{
		URL:     cell(row, c.url),
		Path:    cell(row, c.path),
		Content: cell(row, c.content),
	}
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// rowsToRecords converts a header row plus data rows into records
func rowsToRecords(rows [][]string, filePath string) []llm.Record {
	if len(rows) == 0 {
		return nil
	}

	cols := newColumnIndex(rows[0])
	records := make([]llm.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec := cols.record(row)
		rec.SourceFile = filePath
		rec.Row = i + 1
		records = append(records, rec)
	}
	return records
}
