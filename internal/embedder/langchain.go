package embedder

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// LangChainProvider adapts a langchaingo embeddings.Embedder.
type LangChainProvider struct {
	name      string
	model     string
	dimension atomic.Int64
	impl      embeddings.Embedder
	cache     *Cache
}

// NewLangChainProvider wraps impl. dimension may be zero when unknown; it is
// then learned from the first response.
func NewLangChainProvider(name, model string, dimension int, impl embeddings.Embedder, cache *Cache) (*LangChainProvider, error) {
	if impl == nil {
		return nil, fmt.Errorf("%w: langchain embedder is nil", ErrNoProviderEnabled)
	}
	if name == "" {
		name = ProviderLangChain
	}
	p := &LangChainProvider{name: name, model: model, impl: impl, cache: cache}
	p.dimension.Store(int64(dimension))
	return p, nil
}

// NewOllamaProvider embeds through a local Ollama server.
func NewOllamaProvider(model, serverURL string, cache *Cache) (*LangChainProvider, error) {
	if model == "" {
		model = DefaultOllamaModel
	}
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	client, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("init ollama client: %w", err)
	}
	impl, err := embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(DefaultBatchSize),
		embeddings.WithStripNewLines(false),
	)
	if err != nil {
		return nil, fmt.Errorf("construct ollama embedder: %w", err)
	}
	return NewLangChainProvider(ProviderOllama, model, 0, impl, cache)
}

func (l *LangChainProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	resp, err := l.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{req.Text}, TextType: req.TextType})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings[0], nil
}

func (l *LangChainProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}
	tt := textTypeOrDefault(req.TextType)

	out := make([]*Embedding, len(req.Texts))
	var missing []string
	var missingIdx []int
	for i, text := range req.Texts {
		if emb, ok := l.cache.Get(cacheKey(l.model, tt, text)); ok {
			out[i] = emb
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) > 0 {
		vectors, err := l.embed(ctx, missing, tt)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrProviderFailed, l.name, err)
		}
		if len(vectors) != len(missing) {
			return nil, fmt.Errorf("%w: received %d embeddings for %d texts", ErrProviderFailed, len(vectors), len(missing))
		}
		for k, v := range vectors {
			vec := NormalizeVector(v)
			l.dimension.CompareAndSwap(0, int64(len(vec)))
			hash := cacheKey(l.model, tt, missing[k])
			emb := &Embedding{Vector: vec, Dimension: len(vec), Provider: l.name, Model: l.model, Hash: hash}
			l.cache.Set(hash, emb)
			out[missingIdx[k]] = emb
		}
	}

	return &BatchEmbeddingResponse{Embeddings: out, Provider: l.name, Model: l.model}, nil
}

func (l *LangChainProvider) embed(ctx context.Context, texts []string, tt TextType) ([][]float32, error) {
	if tt != TextTypeQuery {
		return l.impl.EmbedDocuments(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := l.impl.EmbedQuery(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (l *LangChainProvider) Available() bool {
	return l.impl != nil
}

func (l *LangChainProvider) Dimension() int {
	return int(l.dimension.Load())
}

func (l *LangChainProvider) Provider() string {
	return l.name
}

func (l *LangChainProvider) Model() string {
	return l.model
}

func (l *LangChainProvider) Close() error {
	return nil
}
