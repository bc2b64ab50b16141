package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// boilerplateSelector matches page furniture that never carries company content
const boilerplateSelector = "script, style, noscript, iframe, svg, nav, header, footer, form"

// HTMLParser removes page furniture from scraped HTML before text cleaning
type HTMLParser struct {
	selector string
}

// HTMLContent is the result of stripping an HTML fragment
type HTMLContent struct {
	Text  string
	Title string
}

// NewHTMLParser creates a new HTML parser
func NewHTMLParser() *HTMLParser {
	return &HTMLParser{
		selector: boilerplateSelector,
	}
}

// LooksLikeHTML reports whether content contains at least one tag
func LooksLikeHTML(content string) bool {
	open := strings.IndexByte(content, '<')
	return open >= 0 && strings.IndexByte(content[open:], '>') > 0
}

// Strip parses content as HTML, drops boilerplate elements and returns the
// remaining text nodes joined by single spaces together with a page title.
func (p *HTMLParser) Strip(content string) (*HTMLContent, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := p.extractTitle(doc)

	doc.Find("head").Remove()
	doc.Find(p.selector).Remove()

	var parts []string
	for _, n := range doc.Selection.Nodes {
		collectText(n, &parts)
	}

	return &HTMLContent{
		Text:  strings.Join(parts, " "),
		Title: title,
	}, nil
}

// extractTitle prefers <title>, then the first <h1>
func (p *HTMLParser) extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return strings.Join(strings.Fields(title), " ")
	}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return strings.Join(strings.Fields(h1), " ")
	}
	return ""
}

// collectText walks the node tree depth first, keeping non-blank text nodes
func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			*parts = append(*parts, text)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}
