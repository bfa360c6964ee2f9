// Package config loads semchunk settings from defaults, environment
// variables and caller overrides, in that order of precedence.
package config

import (
	"time"

	"github.com/dshills/semchunk/internal/agent"
	"github.com/dshills/semchunk/internal/chunker"
	"github.com/dshills/semchunk/internal/embedder"
	"github.com/dshills/semchunk/internal/llm"
	"github.com/dshills/semchunk/internal/logger"
	"github.com/dshills/semchunk/internal/optimize"
	"github.com/dshills/semchunk/internal/pattern"
	"github.com/dshills/semchunk/internal/semantic"
	"github.com/dshills/semchunk/internal/storage"
	"github.com/dshills/semchunk/internal/tokens"
)

// Config is the complete runtime configuration.
type Config struct {
	Log       LogConfig       `koanf:"log"`
	Chunking  ChunkingConfig  `koanf:"chunking"`
	Tokens    TokensConfig    `koanf:"tokens"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	LLM       LLMConfig       `koanf:"llm"`
	Cache     CacheConfig     `koanf:"cache"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

type LogConfig struct {
	Level string `koanf:"level" env:"SEMCHUNK_LOG_LEVEL" validate:"oneof=debug info warn error"`
	JSON  bool   `koanf:"json"  env:"SEMCHUNK_LOG_JSON"`
}

// ChunkingConfig sizes are in tokens.
type ChunkingConfig struct {
	ChunkSize        int    `koanf:"chunk_size"         env:"SEMCHUNK_CHUNK_SIZE"         validate:"gt=0"`
	ChunkOverlap     int    `koanf:"chunk_overlap"      env:"SEMCHUNK_CHUNK_OVERLAP"      validate:"gte=0"`
	ChildChunkSize   int    `koanf:"child_chunk_size"   env:"SEMCHUNK_CHILD_CHUNK_SIZE"   validate:"gt=0"`
	ParentChunkSize  int    `koanf:"parent_chunk_size"  env:"SEMCHUNK_PARENT_CHUNK_SIZE"  validate:"gt=0"`
	MinTokens        int    `koanf:"min_tokens"         env:"SEMCHUNK_MIN_TOKENS"         validate:"gte=0"`
	MaxTokens        int    `koanf:"max_tokens"         env:"SEMCHUNK_MAX_TOKENS"         validate:"gt=0"`
	FixedSeparator   string `koanf:"fixed_separator"`
	MinFragmentChars int    `koanf:"min_fragment_chars" validate:"gte=0"`
	EmbeddingOnly    bool   `koanf:"embedding_only"     env:"SEMCHUNK_EMBEDDING_ONLY"`
	Concurrency      int    `koanf:"concurrency"        env:"SEMCHUNK_CONCURRENCY"        validate:"gte=1"`

	MaxPages            int     `koanf:"max_pages"            env:"SEMCHUNK_MAX_PAGES"            validate:"gt=0"`
	CharsPerPage        int     `koanf:"chars_per_page"       validate:"gt=0"`
	ConfidenceThreshold float64 `koanf:"confidence_threshold" env:"SEMCHUNK_CONFIDENCE_THRESHOLD" validate:"gt=0,lte=1"`
	SegmentsPerCall     int     `koanf:"segments_per_call"    validate:"gt=0"`
	Percentile          float64 `koanf:"percentile"           env:"SEMCHUNK_PERCENTILE"           validate:"gt=0,lte=100"`
	BufferSize          int     `koanf:"buffer_size"          validate:"gte=0"`
}

type TokensConfig struct {
	// Encoding is a tiktoken encoding or model name, or "estimate"
	Encoding string `koanf:"encoding"  env:"SEMCHUNK_TOKEN_ENCODING" validate:"required"`
	MemoSize int    `koanf:"memo_size" validate:"gte=0"`
}

type EmbeddingConfig struct {
	Provider  string        `koanf:"provider"   env:"SEMCHUNK_EMBEDDING_PROVIDER" validate:"oneof=auto jina openai ollama local none"`
	Model     string        `koanf:"model"      env:"SEMCHUNK_EMBEDDING_MODEL"`
	BaseURL   string        `koanf:"base_url"   env:"SEMCHUNK_EMBEDDING_URL"`
	CacheSize int           `koanf:"cache_size" validate:"gte=0"`
	BatchSize int           `koanf:"batch_size" validate:"gt=0"`
	Timeout   time.Duration `koanf:"timeout"    env:"SEMCHUNK_EMBEDDING_TIMEOUT"`
}

type LLMConfig struct {
	Provider          string        `koanf:"provider"            env:"SEMCHUNK_LLM_PROVIDER" validate:"oneof=auto anthropic openai ollama none"`
	Model             string        `koanf:"model"               env:"SEMCHUNK_LLM_MODEL"`
	BaseURL           string        `koanf:"base_url"            env:"SEMCHUNK_LLM_URL"`
	Timeout           time.Duration `koanf:"timeout"             env:"SEMCHUNK_LLM_TIMEOUT"`
	Temperature       float64       `koanf:"temperature"         validate:"gte=0,lte=2"`
	RequestsPerMinute float64       `koanf:"requests_per_minute" env:"SEMCHUNK_LLM_RPM" validate:"gte=0"`
	Concurrency       int64         `koanf:"concurrency"         validate:"gte=0"`
}

type CacheConfig struct {
	Backend string        `koanf:"backend" env:"SEMCHUNK_CACHE_BACKEND" validate:"oneof=memory sqlite redis"`
	Path    string        `koanf:"path"    env:"SEMCHUNK_CACHE_PATH"`
	URL     string        `koanf:"url"     env:"SEMCHUNK_REDIS_URL"`
	Prefix  string        `koanf:"prefix"`
	TTL     time.Duration `koanf:"ttl"     env:"SEMCHUNK_CACHE_TTL"`
}

type MetricsConfig struct {
	// Addr serves /metrics when set, e.g. ":9090"
	Addr string `koanf:"addr" env:"SEMCHUNK_METRICS_ADDR"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: string(logger.InfoLevel)},
		Chunking: ChunkingConfig{
			ChunkSize:           chunker.DefaultChunkSize,
			ChunkOverlap:        chunker.DefaultChunkOverlap,
			ChildChunkSize:      chunker.DefaultChildChunkSize,
			ParentChunkSize:     chunker.DefaultParentChunkSize,
			MinTokens:           optimize.DefaultMinTokens,
			MaxTokens:           optimize.DefaultMaxTokens,
			FixedSeparator:      pattern.DefaultFixedSeparator,
			MinFragmentChars:    pattern.DefaultMinFragmentChars,
			Concurrency:         4,
			MaxPages:            optimize.DefaultMaxPages,
			CharsPerPage:        optimize.DefaultCharsPerPage,
			ConfidenceThreshold: agent.DefaultConfidenceThreshold,
			SegmentsPerCall:     agent.DefaultSegmentsPerCall,
			Percentile:          semantic.DefaultPercentile,
			BufferSize:          semantic.DefaultBufferSize,
		},
		Tokens: TokensConfig{
			Encoding: tokens.DefaultEncoding,
			MemoSize: tokens.DefaultMemoSize,
		},
		Embedding: EmbeddingConfig{
			Provider:  "auto",
			CacheSize: 10000,
			BatchSize: optimize.DefaultBatchSize,
			Timeout:   30 * time.Second,
		},
		LLM: LLMConfig{
			Provider:    "auto",
			Timeout:     60 * time.Second,
			Temperature: llm.DefaultTemperature,
		},
		Cache: CacheConfig{
			Backend: storage.BackendMemory,
			Prefix:  "semchunk:",
		},
	}
}

// Logger returns the logger configuration.
func (c *Config) Logger() *logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = logger.Level(c.Log.Level)
	lc.JSON = c.Log.JSON
	return lc
}

// Embedder returns the embedding provider configuration.
func (c *Config) Embedder() embedder.Config {
	return embedder.Config{
		Provider:  c.Embedding.Provider,
		Model:     c.Embedding.Model,
		BaseURL:   c.Embedding.BaseURL,
		CacheSize: c.Embedding.CacheSize,
		Timeout:   c.Embedding.Timeout,
	}
}

// ChatModel returns the LLM provider configuration.
func (c *Config) ChatModel() llm.Config {
	return llm.Config{
		Provider:          c.LLM.Provider,
		Model:             c.LLM.Model,
		BaseURL:           c.LLM.BaseURL,
		Timeout:           c.LLM.Timeout,
		RequestsPerMinute: c.LLM.RequestsPerMinute,
		Concurrency:       c.LLM.Concurrency,
	}
}

// Storage returns the structure store options.
func (c *Config) Storage() storage.Options {
	return storage.Options{
		Backend: c.Cache.Backend,
		Path:    c.Cache.Path,
		URL:     c.Cache.URL,
		Prefix:  c.Cache.Prefix,
		TTL:     c.Cache.TTL,
	}
}

// Chunker returns the orchestrator configuration.
func (c *Config) Chunker() chunker.Config {
	ch := c.Chunking

	sem := semantic.DefaultConfig()
	sem.BufferSize = ch.BufferSize
	sem.Percentile = ch.Percentile
	sem.BatchSize = c.Embedding.BatchSize
	sem.Timeout = c.Embedding.Timeout

	st := agent.DefaultStructureConfig()
	st.MaxPages = ch.MaxPages
	st.CharsPerPage = ch.CharsPerPage
	st.Model = c.LLM.Model
	st.Temperature = c.LLM.Temperature
	st.Timeout = c.LLM.Timeout

	bd := agent.DefaultBoundaryConfig()
	bd.ConfidenceThreshold = ch.ConfidenceThreshold
	bd.SegmentsPerCall = ch.SegmentsPerCall
	bd.Model = c.LLM.Model
	bd.Temperature = c.LLM.Temperature
	bd.Timeout = c.LLM.Timeout

	return chunker.Config{
		ChunkSize:        ch.ChunkSize,
		ChunkOverlap:     ch.ChunkOverlap,
		ChildChunkSize:   ch.ChildChunkSize,
		ParentChunkSize:  ch.ParentChunkSize,
		MinTokens:        ch.MinTokens,
		MaxTokens:        ch.MaxTokens,
		FixedSeparator:   ch.FixedSeparator,
		MinFragmentChars: ch.MinFragmentChars,
		EmbeddingOnly:    ch.EmbeddingOnly,
		Concurrency:      ch.Concurrency,
		Semantic:         sem,
		Structure:        st,
		Boundary:         bd,
	}
}
