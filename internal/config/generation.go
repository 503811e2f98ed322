package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"

	DefaultClaudeModel = "claude-sonnet-4-20250514"
	DefaultOpenAIModel = "gpt-4o"
)

// ProviderConfig is a validated generation configuration ready to build a
// gateway from.
type ProviderConfig struct {
	Provider          string
	Model             string
	APIKey            string
	BaseURL           string
	MaxTokens         int
	RequestsPerSecond float64
	Burst             int
}

// providerEnv lists the environment variables consulted for each provider's
// API key, in priority order.
var providerEnv = map[string][]string{
	ProviderClaude: {"A11YSCAN_ANTHROPIC_KEY", "ANTHROPIC_API_KEY"},
	ProviderOpenAI: {"A11YSCAN_OPENAI_KEY", "OPENAI_API_KEY"},
}

// Resolve normalises the provider name, fills the API key from the
// environment and the model from the provider default. Every failure wraps
// ErrGeneration.
func (g GenerationConfig) Resolve() (ProviderConfig, error) {
	provider := normalizeProvider(g.Provider)
	envKeys, ok := providerEnv[provider]
	if !ok {
		return ProviderConfig{}, fmt.Errorf("%w: unknown provider %q (supported: claude, openai)", ErrGeneration, g.Provider)
	}

	key := strings.TrimSpace(g.APIKey)
	for _, name := range envKeys {
		if key != "" {
			break
		}
		key = strings.TrimSpace(os.Getenv(name))
	}
	if key == "" {
		return ProviderConfig{}, fmt.Errorf("%w: %s API key required (set generation.api_key or %s)", ErrGeneration, provider, strings.Join(envKeys, " / "))
	}

	model := strings.TrimSpace(g.Model)
	if model == "" {
		model = DefaultClaudeModel
		if provider == ProviderOpenAI {
			model = DefaultOpenAIModel
		}
	}

	maxTokens := g.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 300
	}
	burst := g.Burst
	if burst <= 0 {
		burst = 1
	}

	return ProviderConfig{
		Provider:          provider,
		Model:             model,
		APIKey:            key,
		BaseURL:           strings.TrimSpace(g.BaseURL),
		MaxTokens:         maxTokens,
		RequestsPerSecond: g.RequestsPerSecond,
		Burst:             burst,
	}, nil
}

func normalizeProvider(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "claude", "anthropic":
		return ProviderClaude
	case "openai", "gpt":
		return ProviderOpenAI
	default:
		return strings.ToLower(strings.TrimSpace(name))
	}
}
