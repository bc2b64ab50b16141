package parser

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"mysoft-chat/llm"
)

// CSVReader reads source rows from a comma separated export of the spreadsheet
type CSVReader struct{}

// NewCSVReader creates a new CSV reader
func NewCSVReader() *CSVReader {
	return &CSVReader{}
}

// ReadFile reads every data row of the file; ragged rows are tolerated
func (r *CSVReader) ReadFile(ctx context.Context, filePath string) ([]llm.Record, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return rowsToRecords(rows, filePath), nil
}

// FileType returns the file type this reader handles
func (r *CSVReader) FileType() FileType {
	return FileTypeCSV
}
