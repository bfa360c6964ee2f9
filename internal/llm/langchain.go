package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Default models for the langchaingo backed providers.
const (
	DefaultOllamaModel = "qwen2.5:7b"
	DefaultOpenAIModel = "gpt-4o-mini"
	// EnvOpenAIAPIKey holds the API key for the OpenAI chat provider.
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
)

// LangChainClient adapts a langchaingo llms.Model.
type LangChainClient struct {
	name  string
	model llms.Model
}

// NewLangChainClient wraps model under the given provider name.
func NewLangChainClient(name string, model llms.Model) (*LangChainClient, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: langchain model is nil", ErrUnavailable)
	}
	return &LangChainClient{name: name, model: model}, nil
}

// NewOllamaClient chats with a local Ollama server.
func NewOllamaClient(model, serverURL string) (*LangChainClient, error) {
	if model == "" {
		model = DefaultOllamaModel
	}
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	m, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama: %w", err)
	}
	return NewLangChainClient(ProviderOllama, m)
}

// NewOpenAIClient chats with OpenAI or any OpenAI-compatible endpoint.
func NewOpenAIClient(apiKey, model, baseURL string) (*LangChainClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrUnavailable, EnvOpenAIAPIKey)
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	opts := []openai.Option{
		openai.WithModel(model),
		openai.WithToken(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	m, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize openai: %w", err)
	}
	return NewLangChainClient(ProviderOpenAI, m)
}

func (c *LangChainClient) Chat(ctx context.Context, req ChatRequest) (string, error) {
	content := make([]llms.MessageContent, 0, 2)
	if req.System != "" {
		content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	content = append(content, llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt))

	opts := []llms.CallOption{
		llms.WithTemperature(req.Temperature),
		llms.WithMaxTokens(maxTokensOrDefault(req.MaxTokens)),
	}
	if req.Model != "" {
		opts = append(opts, llms.WithModel(req.Model))
	}

	resp, err := c.model.GenerateContent(ctx, content, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnavailable, c.name, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}
	text := resp.Choices[0].Content
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

func (c *LangChainClient) Name() string {
	return c.name
}

func (c *LangChainClient) Close() error {
	return nil
}
