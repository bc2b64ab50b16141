package parser

import (
	"context"
	"fmt"

	"mysoft-chat/llm"

	"github.com/xuri/excelize/v2"
)

// XLSXReader reads source rows from an Excel workbook
type XLSXReader struct {
	// sheet is the worksheet to read, empty selects the first sheet
	sheet string
}

// NewXLSXReader creates a new workbook reader
func NewXLSXReader(sheet string) *XLSXReader {
	return &XLSXReader{sheet: sheet}
}

// ReadFile reads every data row of the selected worksheet
func (r *XLSXReader) ReadFile(ctx context.Context, filePath string) ([]llm.Record, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := r.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", filePath)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return rowsToRecords(rows, filePath), nil
}

// FileType returns the file type this reader handles
func (r *XLSXReader) FileType() FileType {
	return FileTypeXLSX
}
