package chunker

import (
	"fmt"

	"github.com/dshills/semchunk/internal/agent"
	"github.com/dshills/semchunk/internal/cache"
	"github.com/dshills/semchunk/internal/embedder"
	"github.com/dshills/semchunk/internal/llm"
	"github.com/dshills/semchunk/internal/logger"
	"github.com/dshills/semchunk/internal/metrics"
	"github.com/dshills/semchunk/internal/optimize"
	"github.com/dshills/semchunk/internal/pattern"
	"github.com/dshills/semchunk/internal/semantic"
	"github.com/dshills/semchunk/internal/tokens"
)

const (
	DefaultChunkSize       = 500
	DefaultChunkOverlap    = 50
	DefaultChildChunkSize  = 200
	DefaultParentChunkSize = 1500
	DefaultConcurrency     = 4

	// maxSegmentPieces caps how many unclear pieces form one refinement segment
	maxSegmentPieces = 8
)

// Config holds chunker settings. Sizes are in tokens.
type Config struct {
	ChunkSize int
	// ChunkOverlap is carried from the end of one general chunk into the next
	ChunkOverlap     int
	ChildChunkSize   int
	ParentChunkSize  int
	MinTokens        int
	MaxTokens        int
	FixedSeparator   string
	MinFragmentChars int
	// EmbeddingOnly skips every LLM call and cuts general documents where
	// the embedding detector finds semantic breaks.
	EmbeddingOnly bool
	// Concurrency bounds ChunkMany
	Concurrency int

	Semantic  semantic.Config
	Structure agent.StructureConfig
	Boundary  agent.BoundaryConfig
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		ChunkSize:        DefaultChunkSize,
		ChunkOverlap:     DefaultChunkOverlap,
		ChildChunkSize:   DefaultChildChunkSize,
		ParentChunkSize:  DefaultParentChunkSize,
		MinTokens:        optimize.DefaultMinTokens,
		MaxTokens:        optimize.DefaultMaxTokens,
		FixedSeparator:   pattern.DefaultFixedSeparator,
		MinFragmentChars: pattern.DefaultMinFragmentChars,
		Concurrency:      DefaultConcurrency,
		Semantic:         semantic.DefaultConfig(),
		Structure:        agent.DefaultStructureConfig(),
		Boundary:         agent.DefaultBoundaryConfig(),
	}
}

// normalize fills zero sizes with defaults and rejects sizes that cannot
// work together.
func (c Config) normalize() (Config, error) {
	def := DefaultConfig()
	if c.ChunkSize <= 0 {
		c.ChunkSize = def.ChunkSize
	}
	if c.ChunkOverlap < 0 {
		c.ChunkOverlap = 0
	}
	if c.ChildChunkSize <= 0 {
		c.ChildChunkSize = def.ChildChunkSize
	}
	if c.ParentChunkSize <= 0 {
		c.ParentChunkSize = def.ParentChunkSize
	}
	if c.MinTokens <= 0 {
		c.MinTokens = def.MinTokens
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = def.MaxTokens
	}
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return c, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", ErrInvalidConfig, c.ChunkOverlap, c.ChunkSize)
	}
	if c.MinTokens > c.MaxTokens {
		return c, fmt.Errorf("%w: min tokens %d exceed max tokens %d", ErrInvalidConfig, c.MinTokens, c.MaxTokens)
	}
	return c, nil
}

// Deps are the collaborators a Chunker is built from. Every field is
// optional: a nil Counter uses the character estimator, a nil LLM or
// Embedder disables that tier, and a nil Cache keeps structures in memory.
type Deps struct {
	Counter  tokens.Counter
	Embedder embedder.Embedder
	LLM      llm.Provider
	Cache    *cache.Manager
	Logger   logger.Logger
	Metrics  *metrics.Recorder
}
