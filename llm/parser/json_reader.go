package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"mysoft-chat/llm"
)

// JSONReader reads source rows from a JSON array of objects
type JSONReader struct{}

// NewJSONReader creates a new JSON reader
func NewJSONReader() *JSONReader {
	return &JSONReader{}
}

// ReadFile reads every object of the top-level array.
// Values that are not strings degrade to "".
func (r *JSONReader) ReadFile(ctx context.Context, filePath string) ([]llm.Record, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse JSON records: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := make([]llm.Record, 0, len(rows))
	for i, row := range rows {
		rec := llm.Record{SourceFile: filePath, Row: i + 1}
		for key, value := range row {
			s := StringValue(value)
			switch strings.ToLower(key) {
			case ColumnURL:
				rec.URL = s
			case ColumnPath:
				if rec.Path == "" {
					rec.Path = s
				}
			case ColumnContent:
				rec.Content = s
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// FileType returns the file type this reader handles
func (r *JSONReader) FileType() FileType {
	return FileTypeJSON
}
