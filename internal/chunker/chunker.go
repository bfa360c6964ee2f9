package chunker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/dshills/semchunk/internal/agent"
	"github.com/dshills/semchunk/internal/cache"
	"github.com/dshills/semchunk/internal/logger"
	"github.com/dshills/semchunk/internal/metrics"
	"github.com/dshills/semchunk/internal/optimize"
	"github.com/dshills/semchunk/internal/pattern"
	"github.com/dshills/semchunk/internal/semantic"
	"github.com/dshills/semchunk/internal/tokens"
	"github.com/dshills/semchunk/pkg/types"
)

// Request is one document to chunk.
type Request struct {
	Text       string
	DocumentID string
	// StructureType forces a structure type when set
	StructureType types.StructureType
	// Outline is an externally known table of contents; it wins over
	// heading detection
	Outline []types.TOCEntry
}

// Result holds the chunks of one document. Exactly one of Chunks, Parents
// and QA is populated, matching StructureType.
type Result struct {
	DocumentID    string                   `json:"document_id"`
	StructureType types.StructureType      `json:"structure_type"`
	Chunks        []types.Chunk            `json:"chunks,omitempty"`
	Parents       []types.ParentChunk      `json:"parents,omitempty"`
	QA            []types.QAChunk          `json:"qa,omitempty"`
	Structure     *types.DocumentStructure `json:"structure"`
	Stats         Stats                    `json:"stats"`
}

// Len returns the number of top-level chunks.
func (r *Result) Len() int {
	return len(r.Chunks) + len(r.Parents) + len(r.QA)
}

// Stats describes how a result was produced.
type Stats struct {
	CacheHit            bool                `json:"cache_hit"`
	SamplePercentage    float64             `json:"sample_percentage,omitempty"`
	PatternBoundaries   int                 `json:"pattern_boundaries"`
	ClearBoundaries     int                 `json:"clear_boundaries"`
	UnclearBoundaries   int                 `json:"unclear_boundaries"`
	EmbeddingBoundaries int                 `json:"embedding_boundaries,omitempty"`
	Boundary            agent.BoundaryStats `json:"boundary"`
	Candidates          int                 `json:"candidates"`
	Dropped             int                 `json:"dropped"`
	Fallbacks           []string            `json:"fallbacks,omitempty"`
	Duration            time.Duration       `json:"duration"`
}

// Chunker turns documents into retrieval chunks. It is safe for concurrent
// use.
type Chunker struct {
	cfg     Config
	counter tokens.Counter

	// pieces leave room for the overlap carried into every general chunk
	pieces   *pattern.Matcher
	parents  *pattern.Matcher
	children *pattern.Matcher

	detector  *semantic.Detector
	structure *agent.StructureAgent
	boundary  *agent.BoundaryAgent
	validator *optimize.Validator
	cache     *cache.Manager
	log       logger.Logger
	metrics   *metrics.Recorder

	inflight singleflight.Group
}

// New builds a Chunker. In embedding-only mode it fails with ErrNoStrategy
// when the embedding provider is unusable.
func New(deps Deps, cfg Config) (*Chunker, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}
	log := logger.OrNop(deps.Logger)
	counter := deps.Counter
	if counter == nil {
		counter = tokens.NewMemoCounter(nil, tokens.DefaultMemoSize)
	}

	detector := semantic.New(deps.Embedder, cfg.Semantic, log).WithMetrics(deps.Metrics)
	provider := deps.LLM
	if cfg.EmbeddingOnly {
		if !detector.Available() {
			return nil, fmt.Errorf("%w: embedding-only mode needs an embedding provider", ErrNoStrategy)
		}
		provider = nil
	}

	matcherCfg := func(size int) pattern.Config {
		return pattern.Config{
			ChunkSize:        size,
			FixedSeparator:   cfg.FixedSeparator,
			MinFragmentChars: cfg.MinFragmentChars,
		}
	}
	pieces := pattern.New(counter, matcherCfg(cfg.ChunkSize-cfg.ChunkOverlap))

	cm := deps.Cache
	if cm == nil {
		cm = cache.NewManager(nil, log)
	}

	return &Chunker{
		cfg:       cfg,
		counter:   counter,
		pieces:    pieces,
		parents:   pattern.New(counter, matcherCfg(cfg.ParentChunkSize)),
		children:  pattern.New(counter, matcherCfg(cfg.ChildChunkSize)),
		detector:  detector,
		structure: agent.NewStructureAgent(provider, cfg.Structure, log, deps.Metrics),
		boundary:  agent.NewBoundaryAgent(provider, detector, pieces, cfg.Boundary, log, deps.Metrics),
		validator: optimize.NewValidator(counter, cfg.MinTokens, cfg.MaxTokens),
		cache:     cm,
		log:       log,
		metrics:   deps.Metrics,
	}, nil
}

// Config returns the effective configuration.
func (c *Chunker) Config() Config {
	return c.cfg
}

// Counter returns the token counter shared by every stage.
func (c *Chunker) Counter() tokens.Counter {
	return c.counter
}

// Chunk splits req.Text according to the document's structure. Blank text
// fails with ErrEmptyInput before any provider call; a request whose every
// candidate chunk is invalid fails with a *PipelineError.
func (c *Chunker) Chunk(ctx context.Context, req Request) (*Result, error) {
	begin := time.Now()
	if strings.TrimSpace(req.Text) == "" {
		c.metrics.Failure("empty_input")
		return nil, ErrEmptyInput
	}
	if strings.TrimSpace(req.DocumentID) == "" {
		c.metrics.Failure("missing_document_id")
		return nil, types.ErrMissingDocumentID
	}
	override, err := parseOverride(req.StructureType)
	if err != nil {
		c.metrics.Failure("invalid_structure_type")
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := c.log.With("document_id", req.DocumentID)
	tr := newTracker(log)
	res := &Result{DocumentID: req.DocumentID}

	structure, err := c.resolveStructure(ctx, req, override, &res.Stats)
	if err != nil {
		tr.advance(StateFailed)
		c.metrics.Failure("structure")
		return nil, err
	}
	res.Structure = structure
	res.StructureType = structure.StructureType
	tr.advance(StateStructureResolved)

	switch structure.StructureType {
	case types.StructureParentChild:
		res.Parents = c.chunkParentChild(req, structure)
	case types.StructureQA:
		res.QA = c.chunkQA(req.Text, req.DocumentID)
		if len(res.QA) == 0 {
			log.Warn("no questions detected, chunking as general")
			c.metrics.Fallback(metrics.StageQA, "no_questions")
			res.Stats.Fallbacks = append(res.Stats.Fallbacks, "qa_to_general")
			res.StructureType = types.StructureGeneral
			res.Chunks = c.chunkGeneral(ctx, req.Text, req.DocumentID, &res.Stats)
		}
	default:
		res.Chunks = c.chunkGeneral(ctx, req.Text, req.DocumentID, &res.Stats)
	}
	tr.advance(StateChunked)

	res.Stats.Candidates = res.Len()
	c.validate(res)
	res.Stats.Dropped = res.Stats.Candidates - res.Len()
	if res.Len() == 0 {
		tr.advance(StateFailed)
		c.metrics.Failure("no_valid_chunks")
		err := &PipelineError{
			DocumentID:    req.DocumentID,
			StructureType: res.StructureType,
			TextLength:    len(req.Text),
			Candidates:    res.Stats.Candidates,
			State:         StateChunked,
		}
		log.Error("chunking failed", "error", err)
		return nil, err
	}
	tr.advance(StateValidated)

	res.Stats.Duration = time.Since(begin)
	c.metrics.ChunksEmitted(string(res.StructureType), res.Len())
	c.metrics.ObserveChunk(string(res.StructureType), res.Stats.Duration)
	log.Info("document chunked",
		"structure_type", res.StructureType,
		"chunks", res.Len(),
		"dropped", res.Stats.Dropped,
		"cache_hit", res.Stats.CacheHit,
		"duration", res.Stats.Duration)
	tr.advance(StateDone)
	return res, nil
}

// ChunkMany chunks independent documents in parallel, at most
// Config.Concurrency at a time. Results keep the order of reqs; a failed
// document leaves a nil entry and its error joined into the returned error.
// progress, when set, is called after every document.
func (c *Chunker) ChunkMany(ctx context.Context, reqs []Request, progress func(done, total int)) ([]*Result, error) {
	results := make([]*Result, len(reqs))
	errs := make([]error, len(reqs))

	var (
		mu   sync.Mutex
		done int
	)
	g := new(errgroup.Group)
	g.SetLimit(c.cfg.Concurrency)
	for i := range reqs {
		g.Go(func() error {
			res, err := c.Chunk(ctx, reqs[i])
			if err != nil {
				errs[i] = fmt.Errorf("document %q: %w", reqs[i].DocumentID, err)
			}
			results[i] = res
			if progress != nil {
				mu.Lock()
				done++
				progress(done, len(reqs))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return results, errors.Join(errs...)
}

// DetectStructure returns the structure of a document, from the cache
// unless force is set. A detected structure is stored in the cache.
func (c *Chunker) DetectStructure(ctx context.Context, docID, text string, outline []types.TOCEntry, force bool) (*types.DocumentStructure, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	if strings.TrimSpace(docID) == "" {
		return nil, types.ErrMissingDocumentID
	}
	if !force {
		if s, ok := c.cache.GetStructure(ctx, docID); ok {
			c.metrics.CacheLookup(true)
			return s, nil
		}
		c.metrics.CacheLookup(false)
	}
	d, err := c.detect(ctx, docID, text, outline)
	if err != nil {
		return nil, err
	}
	return d.structure, nil
}

// Structure returns the cached structure of docID, if any.
func (c *Chunker) Structure(ctx context.Context, docID string) (*types.DocumentStructure, bool) {
	return c.cache.GetStructure(ctx, docID)
}

// ForgetStructure removes the cached structure of docID.
func (c *Chunker) ForgetStructure(ctx context.Context, docID string) error {
	return c.cache.Delete(ctx, docID)
}

// Close releases the structure cache.
func (c *Chunker) Close() error {
	return c.cache.Close()
}

func parseOverride(st types.StructureType) (types.StructureType, error) {
	if strings.TrimSpace(string(st)) == "" {
		return "", nil
	}
	return types.ParseStructureType(string(st))
}

type detection struct {
	structure *types.DocumentStructure
	sample    optimize.Sample
}

// resolveStructure reads the cache, then detects. An override replaces the
// type of a cached structure; on a miss it is built from the TOC alone and
// not cached, so a later unforced request still gets a real detection.
func (c *Chunker) resolveStructure(ctx context.Context, req Request, override types.StructureType, st *Stats) (*types.DocumentStructure, error) {
	if s, ok := c.cache.GetStructure(ctx, req.DocumentID); ok {
		c.metrics.CacheLookup(true)
		st.CacheHit = true
		if override != "" && override != s.StructureType {
			cp := *s
			cp.StructureType = override
			cp.Source = agent.SourceOverride
			return &cp, nil
		}
		return s, nil
	}
	c.metrics.CacheLookup(false)

	if override != "" {
		return &types.DocumentStructure{
			DocumentID:    req.DocumentID,
			StructureType: override,
			TOC:           c.structure.TOC().Detect(req.Text, req.Outline),
			ChunkingRules: map[string]string{},
			DetectedAt:    time.Now().UTC(),
			Source:        agent.SourceOverride,
		}, nil
	}

	d, err := c.detect(ctx, req.DocumentID, req.Text, req.Outline)
	if err != nil {
		return nil, err
	}
	st.SamplePercentage = d.sample.SamplePercentage
	return d.structure, nil
}

// detect runs the structure agent once per document id at a time and
// stores the result. A failed cache write only costs a later re-detection.
func (c *Chunker) detect(ctx context.Context, docID, text string, outline []types.TOCEntry) (*detection, error) {
	v, err, shared := c.inflight.Do(docID, func() (any, error) {
		s, sample, err := c.structure.Detect(ctx, docID, text, outline)
		if err != nil {
			return nil, err
		}
		if err := c.cache.SetStructure(ctx, s); err != nil {
			c.log.Warn("structure cache write failed", "document_id", docID, "error", err)
		}
		return &detection{structure: s, sample: sample}, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.log.Debug("structure detection shared", "document_id", docID)
	}
	return v.(*detection), nil
}

// validate drops invalid chunks and renumbers the survivors.
func (c *Chunker) validate(res *Result) {
	chunks := res.Chunks[:0]
	for i := range res.Chunks {
		if c.validator.ValidChunk(&res.Chunks[i]) {
			chunks = append(chunks, res.Chunks[i])
		}
	}
	for i := range chunks {
		chunks[i].ChunkIndex = i
	}
	res.Chunks = chunks

	parents := res.Parents[:0]
	for i := range res.Parents {
		p := res.Parents[i]
		p.Children = c.validator.FilterChildren(p.Children)
		if !c.validator.ValidParent(&p) {
			continue
		}
		p.ChunkIndex = len(parents)
		p.Adopt()
		parents = append(parents, p)
	}
	res.Parents = parents

	qa := res.QA[:0]
	for i := range res.QA {
		if c.validator.ValidChunk(&res.QA[i].Chunk) {
			qa = append(qa, res.QA[i])
		}
	}
	for i := range qa {
		qa[i].ChunkIndex = i
		qa[i].QAIndex = i
	}
	res.QA = qa
}
