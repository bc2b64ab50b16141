package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"mysoft-chat/llm"
)

// Categories derived from the site path of a record
const (
	CategoryService   = "Service"
	CategoryProduct   = "Product"
	CategoryClient    = "Client"
	CategoryPortfolio = "Portfolio"
	CategoryAbout     = "About Company"
	CategoryGeneral   = "General"
)

// CategoryFromPath classifies a record by its site path
func CategoryFromPath(path string) string {
	p := strings.ToLower(path)
	switch {
	case strings.Contains(p, "service"):
		return CategoryService
	case strings.Contains(p, "product"):
		return CategoryProduct
	case strings.Contains(p, "client"):
		return CategoryClient
	case strings.Contains(p, "portfolio"):
		return CategoryPortfolio
	case strings.Contains(p, "about"), strings.Contains(p, "company"):
		return CategoryAbout
	default:
		return CategoryGeneral
	}
}

// QualityReport summarises one extraction run
type QualityReport struct {
	Records      int            `json:"records"`
	SkippedShort int            `json:"skipped_short"`
	Chunks       int            `json:"chunks"`
	AvgLength    float64        `json:"avg_length"`
	MinLength    int            `json:"min_length"`
	MaxLength    int            `json:"max_length"`
	ByCategory   map[string]int `json:"by_category"`

	totalLength int
}

func newQualityReport() *QualityReport {
	return &QualityReport{ByCategory: make(map[string]int)}
}

func (r *QualityReport) observe(c llm.Chunk, category string) {
	n := utf8.RuneCountInString(c.Text)
	if r.Chunks == 0 || n < r.MinLength {
		r.MinLength = n
	}
	if n > r.MaxLength {
		r.MaxLength = n
	}
	r.Chunks++
	r.totalLength += n
	r.ByCategory[category]++
}

func (r *QualityReport) finish() {
	if r.Chunks > 0 {
		r.AvgLength = float64(r.totalLength) / float64(r.Chunks)
	}
}

// String renders the report as a short multi-line summary
func (r *QualityReport) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "records: %d (skipped short: %d)\n", r.Records, r.SkippedShort)
	fmt.Fprintf(&sb, "chunks: %d\n", r.Chunks)
	if r.Chunks > 0 {
		fmt.Fprintf(&sb, "length: avg %.1f, min %d, max %d\n", r.AvgLength, r.MinLength, r.MaxLength)
	}
	for _, cat := range []string{CategoryService, CategoryProduct, CategoryClient, CategoryPortfolio, CategoryAbout, CategoryGeneral} {
		if n := r.ByCategory[cat]; n > 0 {
			fmt.Fprintf(&sb, "  %-14s %d\n", cat, n)
		}
	}
	return sb.String()
}

// ExportJSON writes the processed chunks as an indented JSON array
func ExportJSON(w io.Writer, chunks []llm.Chunk) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(chunks); err != nil {
		return fmt.Errorf("failed to export chunks: %w", err)
	}
	return nil
}
