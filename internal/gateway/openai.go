package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/byteowlz/a11yscan/internal/config"
)

type openAIBackend struct {
	client *openai.Client
	model  string
}

// NewOpenAI returns a Client backed by the OpenAI chat completions API.
func NewOpenAI(pc config.ProviderConfig) *Client {
	cfg := openai.DefaultConfig(pc.APIKey)
	if pc.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(pc.BaseURL, "/")
	}
	model := pc.Model
	if model == "" {
		model = config.DefaultOpenAIModel
	}
	return &Client{
		provider:  config.ProviderOpenAI,
		model:     model,
		maxTokens: pc.MaxTokens,
		backend: &openAIBackend{
			client: openai.NewClientWithConfig(cfg),
			model:  model,
		},
	}
}

func (b *openAIBackend) complete(ctx context.Context, c completion) (string, error) {
	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if c.image != "" {
		user.MultiContent = []openai.ChatMessagePart{
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    c.image,
					Detail: openai.ImageURLDetailLow,
				},
			},
			{Type: openai.ChatMessagePartTypeText, Text: c.prompt},
		}
	} else {
		user.Content = c.prompt
	}

	maxTokens := c.maxTokens
	if maxTokens <= 0 {
		maxTokens = 300
	}
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.system},
			user,
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		if c.image != "" && openAIFetchRejected(err) {
			return "", &fetchRejected{cause: err}
		}
		return "", fmt.Errorf("openai API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func openAIFetchRejected(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if code, ok := apiErr.Code.(string); ok && code == "invalid_image_url" {
			return true
		}
		return apiErr.HTTPStatusCode == http.StatusBadRequest && mentionsDownload(apiErr.Message)
	}
	return looksFetchRejected(err)
}
