package parser

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// MarkdownConverter turns scraped HTML rows into markdown for previews
type MarkdownConverter struct {
	converter *md.Converter
}

// NewMarkdownConverter creates a converter that strips page furniture
func NewMarkdownConverter() *MarkdownConverter {
	converter := md.NewConverter("", true, nil)
	converter.Remove("script", "style", "noscript", "iframe", "nav", "footer")
	return &MarkdownConverter{converter: converter}
}

// Convert renders content as markdown, collapsing blank lines
func (c *MarkdownConverter) Convert(content string) (string, error) {
	if !LooksLikeHTML(content) {
		return strings.TrimSpace(content), nil
	}

	markdown, err := c.converter.ConvertString(content)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}

	lines := strings.Split(markdown, "\n")
	var result []string
	for _, line := range lines {
		if trimmed := strings.TrimRight(line, " \t"); strings.TrimSpace(trimmed) != "" {
			result = append(result, trimmed)
		}
	}
	return strings.Join(result, "\n"), nil
}
