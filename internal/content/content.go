// Package content extracts the readable text of a page. The orchestrator uses
// it as the context for every generation call.
package content

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/byteowlz/a11yscan/internal/config"
)

// ErrTooShort is returned when a page yields less text than the configured
// minimum.
var ErrTooShort = errors.New("content too short")

// Content is the readable part of a page.
type Content struct {
	URL         string
	Title       string
	TextContent string
}

// Extractor turns a page into Content. Local extractors work on html; remote
// backends fetch pageURL themselves and ignore it.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, pageURL, html string) (*Content, error)
}

// New builds the extractor named by cfg.Backend with the minimum length check
// applied.
func New(cfg config.ExtractionConfig, timeout time.Duration) (Extractor, error) {
	var e Extractor
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "readability":
		e = NewReadability()
	case "jina":
		apiKey := cfg.Jina.APIKey
		if envKey := os.Getenv("JINA_API_KEY"); envKey != "" {
			apiKey = envKey
		}
		e = NewJina(apiKey, timeout)
	case "tavily":
		apiKey := cfg.Tavily.APIKey
		if envKey := os.Getenv("TAVILY_API_KEY"); envKey != "" {
			apiKey = envKey
		}
		if apiKey == "" {
			return nil, fmt.Errorf("tavily: API key not configured (set extraction.tavily.api_key in config or TAVILY_API_KEY env var)")
		}
		e = NewTavily(apiKey, cfg.Tavily.ExtractDepth, timeout)
	default:
		return nil, fmt.Errorf("unknown content backend: %s (available: readability, jina, tavily)", cfg.Backend)
	}
	return WithMinLength(e, cfg.MinContentLength), nil
}

type minLength struct {
	Extractor
	min int
}

// WithMinLength rejects results whose trimmed text is shorter than n runes.
func WithMinLength(e Extractor, n int) Extractor {
	if n <= 0 {
		return e
	}
	return &minLength{Extractor: e, min: n}
}

func (m *minLength) Extract(ctx context.Context, pageURL, html string) (*Content, error) {
	c, err := m.Extractor.Extract(ctx, pageURL, html)
	if err != nil {
		return nil, err
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(c.TextContent)); n < m.min {
		return nil, fmt.Errorf("%w: %d characters (minimum: %d)", ErrTooShort, n, m.min)
	}
	return c, nil
}
