package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderNone      = "none"
)

// EnvLLMProvider selects the chat provider when no explicit config is given.
const EnvLLMProvider = "SEMCHUNK_LLM_PROVIDER"

// Config holds chat provider configuration.
type Config struct {
	Provider          string
	APIKey            string
	Model             string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute float64
	Concurrency       int64
}

// New creates a chat provider. An empty or "auto" provider is resolved with
// DetectProvider; "none" yields ErrUnavailable so callers fall back to
// heuristics.
func New(cfg Config) (Provider, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" || provider == "auto" {
		provider = DetectProvider()
	}

	var (
		p   Provider
		err error
	)
	switch provider {
	case ProviderAnthropic:
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv(EnvAnthropicAPIKey)
		}
		p, err = NewAnthropicClient(key, cfg.Model, WithAnthropicURL(cfg.BaseURL), WithHTTPTimeout(cfg.Timeout))
	case ProviderOpenAI:
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv(EnvOpenAIAPIKey)
		}
		p, err = NewOpenAIClient(key, cfg.Model, cfg.BaseURL)
	case ProviderOllama:
		p, err = NewOllamaClient(cfg.Model, cfg.BaseURL)
	case ProviderNone:
		return nil, fmt.Errorf("%w: provider disabled", ErrUnavailable)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnavailable, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RequestsPerMinute > 0 || cfg.Concurrency > 0 {
		return NewRateLimited(p, cfg.RequestsPerMinute, cfg.Concurrency), nil
	}
	return p, nil
}

// DetectProvider picks a provider from the environment:
// SEMCHUNK_LLM_PROVIDER, then ANTHROPIC_API_KEY, then OPENAI_API_KEY,
// otherwise none.
func DetectProvider() string {
	if provider := os.Getenv(EnvLLMProvider); provider != "" {
		return strings.ToLower(provider)
	}
	if os.Getenv(EnvAnthropicAPIKey) != "" {
		return ProviderAnthropic
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}
	return ProviderNone
}

// Probe sends a minimal prompt and returns the trimmed reply.
func Probe(ctx context.Context, p Provider) (string, error) {
	if p == nil {
		return "", fmt.Errorf("%w: no provider configured", ErrUnavailable)
	}
	reply, err := p.Chat(ctx, ChatRequest{Prompt: "Reply with the single word OK.", MaxTokens: 8})
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}
