package parser

import (
	"regexp"
	"strings"
)

var (
	tagPattern          = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern   = regexp.MustCompile(`[\s\p{Zs}]+`)
	copyrightPattern    = regexp.MustCompile(`(?i)Copyright.*?\d{4}.*?Ltd\.`)
	rightsReservedTrail = regexp.MustCompile(`(?i)All rights reserved.*`)
)

// TextCleaner strips markup, entities and copyright boilerplate from raw record text
type TextCleaner struct{}

// NewTextCleaner creates a text cleaner
func NewTextCleaner() *TextCleaner {
	return &TextCleaner{}
}

// Clean returns plain text with tags removed and whitespace collapsed
func (c *TextCleaner) Clean(raw string) string {
	return Clean(raw)
}

// Clean is the package-level form of TextCleaner.Clean
func Clean(raw string) string {
	if raw == "" {
		return ""
	}

	text := tagPattern.ReplaceAllString(raw, " ")
	text = decodeEntities(text)
	text = collapseWhitespace(text)

	text = copyrightPattern.ReplaceAllString(text, "")
	text = rightsReservedTrail.ReplaceAllString(text, "")

	// boilerplate removal can leave doubled or trailing spaces behind
	return collapseWhitespace(text)
}

// StringValue returns a decoded field value as a string; anything that is not a
// string yields "". The value is not cleaned.
func StringValue(v interface{}) string {
	s, _ := v.(string)
	return s
}

// decodeEntities replaces the fixed entity set, one sequential pass per entity
func decodeEntities(s string) string {
	for _, pair := range [][2]string{
		{"&nbsp;", " "},
		{"&quot;", `"`},
		{"&amp;", "&"},
		{"&lt;", "<"},
	} {
		s = strings.ReplaceAll(s, pair[0], pair[1])
	}
	return s
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}
