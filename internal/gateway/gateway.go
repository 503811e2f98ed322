// Package gateway generates accessibility text through a vision-capable LLM.
//
// A Client wraps one provider (Claude or OpenAI). Every call is independent
// and fallible; callers isolate failures per element.
package gateway

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/byteowlz/a11yscan/internal/config"
)

// Gateway is the generation contract used by the enrichment pipeline.
type Gateway interface {
	// Summarize condenses a page for use as context in later calls.
	Summarize(ctx context.Context, title, text string) (string, error)
	// DescribeImage writes alt text for an http(s) URL or a data URI.
	DescribeImage(ctx context.Context, imageRef string) (string, error)
	DescribeLink(ctx context.Context, req LinkRequest) (string, error)
	DescribeButton(ctx context.Context, req ButtonRequest) (string, error)
}

type LinkRequest struct {
	PageSummary  string
	LinkText     string
	URL          string
	CurrentTitle string
}

type ButtonRequest struct {
	PageSummary      string
	ButtonText       string
	CurrentAriaLabel string
	ParentContext    string
}

// completion is one provider round trip. image is empty for text-only calls.
type completion struct {
	system    string
	prompt    string
	image     string
	maxTokens int
}

type completer interface {
	complete(ctx context.Context, c completion) (string, error)
}

// Client implements Gateway on top of a provider backend.
type Client struct {
	provider  string
	model     string
	maxTokens int
	backend   completer
}

// New builds the client for pc.Provider.
func New(pc config.ProviderConfig) (*Client, error) {
	switch pc.Provider {
	case config.ProviderClaude:
		return NewClaude(pc), nil
	case config.ProviderOpenAI:
		return NewOpenAI(pc), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", config.ErrGeneration, pc.Provider)
	}
}

func (c *Client) Summarize(ctx context.Context, title, text string) (string, error) {
	return c.run(ctx, completion{
		system: summarySystemPrompt,
		prompt: buildSummaryPrompt(title, truncate(text, maxSummaryInput)),
	}, "summarize")
}

func (c *Client) DescribeImage(ctx context.Context, imageRef string) (string, error) {
	if imageRef == "" {
		return "", fmt.Errorf("describe image: empty image reference")
	}
	return c.run(ctx, completion{
		system: imageSystemPrompt,
		prompt: imagePrompt,
		image:  imageRef,
	}, "describe image")
}

func (c *Client) DescribeLink(ctx context.Context, req LinkRequest) (string, error) {
	return c.run(ctx, completion{
		system: linkSystemPrompt,
		prompt: buildLinkPrompt(req),
	}, "describe link")
}

func (c *Client) DescribeButton(ctx context.Context, req ButtonRequest) (string, error) {
	return c.run(ctx, completion{
		system: buttonSystemPrompt,
		prompt: buildButtonPrompt(req),
	}, "describe button")
}

func (c *Client) run(ctx context.Context, req completion, op string) (string, error) {
	req.maxTokens = c.maxTokens
	text, err := c.backend.complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	text = Clean(text)
	if text == "" {
		return "", fmt.Errorf("%s: %w", op, ErrEmptyResponse)
	}
	return text, nil
}

// boilerplate are openings that screen readers already convey.
var boilerplate = []string{
	"an image of ", "image of ", "a picture of ", "picture of ", "a photo of ", "photo of ",
	"a link to ", "link to ", "a button to ", "button to ", "a button that ", "button that ",
	"alt text: ", "alt: ", "description: ", "aria-label: ", "title: ",
}

// Clean trims a model response down to the value that gets written: one
// paragraph, no wrapping quotes, no boilerplate opening.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "\n\n"); i > 0 {
		s = s[:i]
	}
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, "\"'`“”")

	lower := strings.ToLower(s)
	for _, p := range boilerplate {
		if strings.HasPrefix(lower, p) {
			s = capitalize(strings.TrimSpace(s[len(p):]))
			break
		}
	}
	return strings.TrimSpace(s)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return strings.ToUpper(string(r)) + s[size:]
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
