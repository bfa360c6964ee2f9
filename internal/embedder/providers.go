package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode"
)

// Provider configuration
const (
	ProviderJina      = "jina"
	ProviderOpenAI    = "openai"
	ProviderLocal     = "local"
	ProviderOllama    = "ollama"
	ProviderLangChain = "langchain"

	// Default models
	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultOllamaModel = "nomic-embed-text"

	// Default endpoints
	DefaultJinaURL   = "https://api.jina.ai/v1/embeddings"
	DefaultOpenAIURL = "https://api.openai.com/v1/embeddings"

	// Dimensions
	JinaDimension   = 1024
	OpenAIDimension = 1536
	LocalDimension  = 384

	// Batch limits
	DefaultBatchSize = 10
	MaxBatchSize     = 100

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0

	// Environment variables holding provider credentials
	EnvJinaAPIKey   = "JINA_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
)

// Option customizes an HTTP embedding provider
type Option func(*remoteProvider)

// WithModel overrides the default model
func WithModel(model string) Option {
	return func(p *remoteProvider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithBaseURL overrides the embeddings endpoint
func WithBaseURL(url string) Option {
	return func(p *remoteProvider) {
		if url != "" {
			p.endpoint = url
		}
	}
}

// WithTimeout sets the HTTP client timeout
func WithTimeout(d time.Duration) Option {
	return func(p *remoteProvider) {
		if d > 0 {
			p.httpClient.Timeout = d
		}
	}
}

// WithRetry replaces the retry policy
func WithRetry(cfg RetryConfig) Option {
	return func(p *remoteProvider) {
		if cfg.MaxRetries > 0 {
			p.retry = cfg
		}
	}
}

// remoteProvider implements the OpenAI-compatible /v1/embeddings protocol
// shared by Jina and OpenAI.
type remoteProvider struct {
	name       string
	apiKey     string
	model      string
	endpoint   string
	dimension  int
	httpClient *http.Client
	cache      *Cache
	retry      RetryConfig
	// extra adds provider specific request fields
	extra func(TextType) map[string]any
}

func newRemoteProvider(name, apiKey, envKey string, cache *Cache, opts []Option) (*remoteProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv(envKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, envKey)
	}
	p := &remoteProvider{
		name:   name,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache: cache,
		retry: DefaultRetryConfig(),
	}
	switch name {
	case ProviderJina:
		p.model, p.endpoint, p.dimension = DefaultJinaModel, DefaultJinaURL, JinaDimension
		p.extra = jinaTask
	default:
		p.model, p.endpoint, p.dimension = DefaultOpenAIModel, DefaultOpenAIURL, OpenAIDimension
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func jinaTask(tt TextType) map[string]any {
	if tt == TextTypeQuery {
		return map[string]any{"task": "retrieval.query"}
	}
	return map[string]any{"task": "retrieval.passage"}
}

// JinaProvider implements Embedder using Jina AI API
type JinaProvider struct {
	*remoteProvider
}

// NewJinaProvider creates a new Jina AI embedder
func NewJinaProvider(apiKey string, cache *Cache, opts ...Option) (*JinaProvider, error) {
	p, err := newRemoteProvider(ProviderJina, apiKey, EnvJinaAPIKey, cache, opts)
	if err != nil {
		return nil, err
	}
	return &JinaProvider{p}, nil
}

// OpenAIProvider implements Embedder using OpenAI API
type OpenAIProvider struct {
	*remoteProvider
}

// NewOpenAIProvider creates a new OpenAI embedder
func NewOpenAIProvider(apiKey string, cache *Cache, opts ...Option) (*OpenAIProvider, error) {
	p, err := newRemoteProvider(ProviderOpenAI, apiKey, EnvOpenAIAPIKey, cache, opts)
	if err != nil {
		return nil, err
	}
	return &OpenAIProvider{p}, nil
}

func (p *remoteProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{
		Texts:    []string{req.Text},
		Model:    req.Model,
		TextType: req.TextType,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrProviderFailed)
	}
	return resp.Embeddings[0], nil
}

func (p *remoteProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}
	if len(req.Texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}

	model := req.Model
	if model == "" {
		model = p.model
	}
	tt := textTypeOrDefault(req.TextType)

	out := make([]*Embedding, len(req.Texts))
	var missing []string
	var missingIdx []int
	for i, text := range req.Texts {
		if emb, ok := p.cache.Get(cacheKey(model, tt, text)); ok {
			out[i] = emb
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) > 0 {
		embeddings, err := retryWithBackoff(ctx, p.retry, func() ([]*Embedding, error) {
			return p.callAPI(ctx, missing, model, tt)
		})
		if err != nil {
			return nil, fmt.Errorf("%w after %d retries: %v", ErrProviderFailed, p.retry.MaxRetries, err)
		}
		for k, emb := range embeddings {
			hash := cacheKey(model, tt, missing[k])
			emb.Hash = hash
			p.cache.Set(hash, emb)
			out[missingIdx[k]] = emb
		}
	}

	return &BatchEmbeddingResponse{
		Embeddings: out,
		Provider:   p.name,
		Model:      model,
	}, nil
}

func (p *remoteProvider) callAPI(ctx context.Context, texts []string, model string, tt TextType) ([]*Embedding, error) {
	reqBody := map[string]any{
		"input": texts,
		"model": model,
	}
	if p.extra != nil {
		for k, v := range p.extra(tt) {
			reqBody[k] = v
		}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &statusError{Code: resp.StatusCode, Body: string(bodyBytes)}
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Data) != len(texts) {
		return nil, fmt.Errorf("received %d embeddings for %d texts", len(apiResp.Data), len(texts))
	}

	// the API may return items out of order; place them by index
	embeddings := make([]*Embedding, len(texts))
	for i, data := range apiResp.Data {
		idx := data.Index
		if idx < 0 || idx >= len(texts) || embeddings[idx] != nil {
			idx = i
		}
		vec := NormalizeVector(data.Embedding)
		embeddings[idx] = &Embedding{
			Vector:    vec,
			Dimension: len(vec),
			Provider:  p.name,
			Model:     apiResp.Model,
		}
	}
	for i, emb := range embeddings {
		if emb == nil {
			return nil, fmt.Errorf("missing embedding for text %d", i)
		}
	}

	return embeddings, nil
}

func (p *remoteProvider) Available() bool {
	return p.apiKey != ""
}

func (p *remoteProvider) Dimension() int {
	return p.dimension
}

func (p *remoteProvider) Provider() string {
	return p.name
}

func (p *remoteProvider) Model() string {
	return p.model
}

func (p *remoteProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// LocalProvider is an offline embedder based on hashed word features.
// Texts sharing vocabulary land close together, which is enough for
// boundary detection without a network model.
type LocalProvider struct {
	model string
	cache *Cache
}

// NewLocalProvider creates a new local embedder
func NewLocalProvider(cache *Cache) (*LocalProvider, error) {
	return &LocalProvider{
		model: "local-hashed-bow",
		cache: cache,
	}, nil
}

func (l *LocalProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash := cacheKey(l.model, "", req.Text)
	if emb, ok := l.cache.Get(hash); ok {
		return emb, nil
	}

	emb := &Embedding{
		Vector:    NormalizeVector(hashedFeatures(req.Text, LocalDimension)),
		Dimension: LocalDimension,
		Provider:  ProviderLocal,
		Model:     l.model,
		Hash:      hash,
	}
	l.cache.Set(hash, emb)

	return emb, nil
}

func (l *LocalProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		emb, err := l.GenerateEmbedding(ctx, EmbeddingRequest{Text: text, Model: req.Model})
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderLocal,
		Model:      l.model,
	}, nil
}

func (l *LocalProvider) Available() bool {
	return true
}

func (l *LocalProvider) Dimension() int {
	return LocalDimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}

// hashedFeatures folds lower-cased words (and single CJK runes) into dim buckets.
func hashedFeatures(text string, dim int) []float32 {
	vec := make([]float32, dim)
	add := func(tok string) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum32()
		sign := float32(1)
		if sum&1 == 1 {
			sign = -1
		}
		vec[int(sum>>1)%dim] += sign
	}
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			add(word.String())
			word.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			add(string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return vec
}
