package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/byteowlz/a11yscan/internal/config"
)

type claudeBackend struct {
	client anthropic.Client
	model  string
}

// NewClaude returns a Client backed by Anthropic's Messages API.
func NewClaude(pc config.ProviderConfig) *Client {
	opts := []option.RequestOption{option.WithAPIKey(pc.APIKey), option.WithMaxRetries(2)}
	if pc.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(pc.BaseURL))
	}
	model := pc.Model
	if model == "" {
		model = config.DefaultClaudeModel
	}
	return &Client{
		provider:  config.ProviderClaude,
		model:     model,
		maxTokens: pc.MaxTokens,
		backend: &claudeBackend{
			client: anthropic.NewClient(opts...),
			model:  model,
		},
	}
}

func (b *claudeBackend) complete(ctx context.Context, c completion) (string, error) {
	var blocks []anthropic.ContentBlockParamUnion
	if c.image != "" {
		img, err := claudeImage(c.image)
		if err != nil {
			return "", err
		}
		blocks = append(blocks, img)
	}
	blocks = append(blocks, anthropic.NewTextBlock(c.prompt))

	maxTokens := c.maxTokens
	if maxTokens <= 0 {
		maxTokens = 300
	}
	resp, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: int64(maxTokens),
		System: []anthropic.TextBlockParam{
			{Text: c.system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	})
	if err != nil {
		if c.image != "" && claudeFetchRejected(err) {
			return "", &fetchRejected{cause: err}
		}
		return "", fmt.Errorf("claude API error: %w", err)
	}

	for _, block := range resp.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			return block.Text, nil
		}
	}
	return "", ErrEmptyResponse
}

func claudeImage(ref string) (anthropic.ContentBlockParamUnion, error) {
	if !strings.HasPrefix(ref, "data:") {
		return anthropic.NewImageBlock(anthropic.URLImageSourceParam{URL: ref}), nil
	}
	mediaType, data, err := splitDataURI(ref)
	if err != nil {
		return anthropic.ContentBlockParamUnion{}, err
	}
	return anthropic.NewImageBlockBase64(mediaType, data), nil
}

func claudeFetchRejected(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusBadRequest && mentionsDownload(apiErr.Error())
	}
	return looksFetchRejected(err)
}

// splitDataURI returns the media type and base64 payload of a base64 data URI.
func splitDataURI(ref string) (mediaType, data string, err error) {
	rest, ok := strings.CutPrefix(ref, "data:")
	if !ok {
		return "", "", fmt.Errorf("not a data URI")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return "", "", fmt.Errorf("data URI is not base64 encoded")
	}
	mediaType = strings.TrimSuffix(header, ";base64")
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	if !strings.HasPrefix(mediaType, "image/") || payload == "" {
		return "", "", fmt.Errorf("data URI is not an image")
	}
	return mediaType, payload, nil
}
