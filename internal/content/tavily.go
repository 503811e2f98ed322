package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Tavily extracts content through the Tavily Extract API.
type Tavily struct {
	APIKey       string
	ExtractDepth string // "basic" or "advanced"
	Timeout      time.Duration
	BaseURL      string // overridable for testing
	client       *http.Client
}

func NewTavily(apiKey, extractDepth string, timeout time.Duration) *Tavily {
	if extractDepth == "" {
		extractDepth = "basic"
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Tavily{
		APIKey:       apiKey,
		ExtractDepth: extractDepth,
		Timeout:      timeout,
		BaseURL:      "https://api.tavily.com/extract",
		client:       &http.Client{Timeout: timeout},
	}
}

func (t *Tavily) Name() string {
	return "tavily"
}

type tavilyExtractRequest struct {
	URLs         []string `json:"urls"`
	ExtractDepth string   `json:"extract_depth,omitempty"`
}

type tavilyExtractResponse struct {
	Results      []tavilyExtractResult `json:"results"`
	FailedURLs   []string              `json:"failed_results"`
	ResponseTime float64               `json:"response_time"`
}

type tavilyExtractResult struct {
	URL        string `json:"url"`
	RawContent string `json:"raw_content"`
	Title      string `json:"title"`
}

func (t *Tavily) Extract(ctx context.Context, pageURL, _ string) (*Content, error) {
	if t.APIKey == "" {
		return nil, fmt.Errorf("tavily: API key not configured")
	}

	bodyBytes, err := json.Marshal(tavilyExtractRequest{
		URLs:         []string{pageURL},
		ExtractDepth: t.ExtractDepth,
	})
	if err != nil {
		return nil, fmt.Errorf("tavily: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("tavily: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.APIKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tavily: failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, fmt.Errorf("tavily: authentication failed: %s", string(respBody))
		case http.StatusTooManyRequests:
			return nil, fmt.Errorf("tavily: rate limited: %s", string(respBody))
		default:
			return nil, fmt.Errorf("tavily: HTTP %d: %s", resp.StatusCode, string(respBody))
		}
	}

	var tavilyResp tavilyExtractResponse
	if err := json.Unmarshal(respBody, &tavilyResp); err != nil {
		return nil, fmt.Errorf("tavily: failed to parse response: %w", err)
	}

	if len(tavilyResp.Results) == 0 {
		if len(tavilyResp.FailedURLs) > 0 {
			return nil, fmt.Errorf("tavily: extraction failed for %s", pageURL)
		}
		return nil, fmt.Errorf("tavily: no results returned for %s", pageURL)
	}

	result := tavilyResp.Results[0]
	return &Content{
		URL:         result.URL,
		Title:       result.Title,
		TextContent: CleanNewlines(result.RawContent),
	}, nil
}
