package content

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
)

// Readability runs Mozilla's readability algorithm over the page HTML.
type Readability struct{}

func NewReadability() *Readability {
	return &Readability{}
}

func (r *Readability) Name() string {
	return "readability"
}

func (r *Readability) Extract(_ context.Context, pageURL, html string) (*Content, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("readability: invalid page URL: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(html), u)
	if err != nil {
		return nil, fmt.Errorf("failed to process with readability: %w", err)
	}

	return &Content{
		URL:         pageURL,
		Title:       strings.TrimSpace(article.Title),
		TextContent: CleanNewlines(article.TextContent),
	}, nil
}

// CleanNewlines joins lines that break a sentence and keeps paragraph breaks.
func CleanNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var paragraphs []string
	for _, paragraph := range strings.Split(text, "\n\n") {
		var lines []string
		for _, line := range strings.Split(paragraph, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if n := len(lines); n > 0 && !endsSentence(lines[n-1]) && !startsSentence(line) {
				lines[n-1] += " " + line
				continue
			}
			lines = append(lines, line)
		}
		if len(lines) > 0 {
			paragraphs = append(paragraphs, strings.Join(lines, "\n"))
		}
	}

	result := strings.Join(paragraphs, "\n\n")
	for strings.Contains(result, "  ") {
		result = strings.ReplaceAll(result, "  ", " ")
	}
	return strings.TrimSpace(result)
}

func endsSentence(line string) bool {
	return strings.HasSuffix(line, ".") || strings.HasSuffix(line, "!") ||
		strings.HasSuffix(line, "?") || strings.HasSuffix(line, ":") ||
		strings.HasSuffix(line, ";")
}

func startsSentence(line string) bool {
	c := line[0]
	return c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") ||
		strings.HasPrefix(line, "• ")
}
