package embedder

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// ProviderNone disables embeddings entirely
const ProviderNone = "none"

// EnvEmbeddingProvider selects the provider when no explicit config is given
const EnvEmbeddingProvider = "SEMCHUNK_EMBEDDING_PROVIDER"

// Config holds embedder configuration
type Config struct {
	Provider  string
	APIKey    string
	Model     string
	BaseURL   string
	CacheSize int
	Timeout   time.Duration
}

// New creates an embedder with explicit configuration. An empty or "auto"
// provider is resolved with DetectProvider.
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" || provider == "auto" {
		provider = DetectProvider()
	}
	opts := []Option{WithModel(cfg.Model), WithBaseURL(cfg.BaseURL), WithTimeout(cfg.Timeout)}

	switch provider {
	case ProviderJina:
		return NewJinaProvider(cfg.APIKey, cache, opts...)
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cache, opts...)
	case ProviderOllama:
		return NewOllamaProvider(cfg.Model, cfg.BaseURL, cache)
	case ProviderLocal:
		return NewLocalProvider(cache)
	case ProviderNone:
		return nil, ErrNoProviderEnabled
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// DetectProvider returns the provider that would be used based on current environment
func DetectProvider() string {
	provider := os.Getenv(EnvEmbeddingProvider)
	if provider != "" {
		return strings.ToLower(provider)
	}

	if os.Getenv(EnvJinaAPIKey) != "" {
		return ProviderJina
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}

	return ProviderLocal
}

// Probe embeds a short text and reports the vector dimension. It tells a
// configured provider from a reachable one.
func Probe(ctx context.Context, e Embedder) (int, error) {
	if e == nil || !e.Available() {
		return 0, ErrNoProviderEnabled
	}
	emb, err := e.GenerateEmbedding(ctx, EmbeddingRequest{Text: "probe", TextType: TextTypeQuery})
	if err != nil {
		return 0, err
	}
	if len(emb.Vector) == 0 {
		return 0, fmt.Errorf("%w: empty vector", ErrProviderFailed)
	}
	return len(emb.Vector), nil
}
