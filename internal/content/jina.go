package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Jina extracts content through the Jina Reader API (r.jina.ai).
type Jina struct {
	APIKey  string // optional; unauthenticated calls are rate limited
	Timeout time.Duration
	BaseURL string // overridable for testing
	client  *http.Client
}

func NewJina(apiKey string, timeout time.Duration) *Jina {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Jina{
		APIKey:  apiKey,
		Timeout: timeout,
		BaseURL: "https://r.jina.ai/",
		client:  &http.Client{Timeout: timeout},
	}
}

func (j *Jina) Name() string {
	return "jina"
}

func (j *Jina) Extract(ctx context.Context, pageURL, _ string) (*Content, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.BaseURL+pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("jina: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")
	if j.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+j.APIKey)
	}

	resp, err := j.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jina: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("jina: failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, fmt.Errorf("jina: authentication error: %s", string(body))
		case http.StatusTooManyRequests:
			return nil, fmt.Errorf("jina: rate limited - consider adding an API key")
		default:
			return nil, fmt.Errorf("jina: HTTP %d: %s", resp.StatusCode, string(body))
		}
	}

	// Responses are a header block (Title:, URL Source:, ...) followed by
	// "Markdown Content:".
	raw := string(body)
	markdown := extractJinaMarkdown(raw)
	if markdown == "" {
		markdown = raw
	}

	return &Content{
		URL:         pageURL,
		Title:       extractJinaField(raw, "Title:"),
		TextContent: stripBasicMarkdown(markdown),
	}, nil
}

func extractJinaField(content, field string) string {
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, field) {
			return strings.TrimSpace(strings.TrimPrefix(line, field))
		}
	}
	return ""
}

func extractJinaMarkdown(content string) string {
	const marker = "Markdown Content:"
	idx := strings.Index(content, marker)
	if idx == -1 {
		lines := strings.Split(content, "\n")
		for i, line := range lines {
			if strings.HasPrefix(line, "#") || (i > 3 && strings.TrimSpace(line) != "" && !strings.Contains(line, ":")) {
				return strings.Join(lines[i:], "\n")
			}
		}
		return content
	}
	return strings.TrimSpace(content[idx+len(marker):])
}

// stripBasicMarkdown drops heading and emphasis markers; the text is prompt
// context, not display output.
func stripBasicMarkdown(md string) string {
	lines := strings.Split(md, "\n")
	for i, line := range lines {
		line = strings.TrimLeft(line, "#")
		line = strings.ReplaceAll(line, "**", "")
		line = strings.ReplaceAll(line, "__", "")
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
