package semantic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dshills/semchunk/internal/embedder"
	"github.com/dshills/semchunk/internal/logger"
	"github.com/dshills/semchunk/internal/metrics"
	"github.com/dshills/semchunk/internal/optimize"
	"github.com/dshills/semchunk/pkg/types"
)

// ErrUnavailable means no usable embedding provider is configured or the
// provider failed. Callers fall back to pattern matching.
var ErrUnavailable = errors.New("embedding boundary detection unavailable")

const (
	DefaultBufferSize  = 1
	DefaultPercentile  = 95.0
	DefaultWindowChars = 200
)

// Config holds detector settings
type Config struct {
	BufferSize  int
	Percentile  float64
	BatchSize   int
	WindowChars int
	// Timeout bounds each embedding batch call; zero means no extra bound
	Timeout time.Duration
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		BufferSize:  DefaultBufferSize,
		Percentile:  DefaultPercentile,
		BatchSize:   optimize.DefaultBatchSize,
		WindowChars: DefaultWindowChars,
	}
}

// Detector finds semantic breakpoints with an embedding provider.
type Detector struct {
	emb     embedder.Embedder
	cfg     Config
	log     logger.Logger
	metrics *metrics.Recorder
}

// New creates a detector. emb may be nil; the detector then reports itself
// unavailable.
func New(emb embedder.Embedder, cfg Config, log logger.Logger) *Detector {
	def := DefaultConfig()
	if cfg.BufferSize < 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.Percentile <= 0 || cfg.Percentile > 100 {
		cfg.Percentile = def.Percentile
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.WindowChars <= 0 {
		cfg.WindowChars = def.WindowChars
	}
	return &Detector{emb: emb, cfg: cfg, log: logger.OrNop(log)}
}

// WithMetrics counts embedding batches on rec.
func (d *Detector) WithMetrics(rec *metrics.Recorder) *Detector {
	d.metrics = rec
	return d
}

// Available reports whether an embedding provider can be used.
func (d *Detector) Available() bool {
	return d != nil && d.emb != nil && d.emb.Available()
}

// FindBoundaries returns contiguous boundaries covering text, cut where
// consecutive sentences are semantically distant.
func (d *Detector) FindBoundaries(ctx context.Context, text string) ([]types.Boundary, error) {
	if !d.Available() {
		return nil, ErrUnavailable
	}
	if text == "" {
		return nil, nil
	}
	sents := SplitSentences(text)
	if len(sents) <= 1 {
		return []types.Boundary{{Start: 0, End: len(text)}}, nil
	}

	vecs, err := d.embed(ctx, combine(sents, d.cfg.BufferSize))
	if err != nil {
		return nil, err
	}
	dists := Distances(vecs)
	threshold := Percentile(dists, d.cfg.Percentile)

	var out []types.Boundary
	start := 0
	for i, dist := range dists {
		if dist > threshold {
			end := sents[i].End
			out = append(out, types.Boundary{Start: start, End: end})
			start = end
		}
	}
	out = append(out, types.Boundary{Start: start, End: len(text)})

	d.log.Debug("semantic breakpoints",
		"sentences", len(sents),
		"threshold", threshold,
		"boundaries", len(out))
	return out, nil
}

// BoundaryConfidence scores how likely [start, end) is a true semantic unit:
// one minus the mean similarity between the span and the text windows
// around it, clipped to [0, 1].
func (d *Detector) BoundaryConfidence(ctx context.Context, text string, start, end int) (float64, error) {
	conf, err := d.Confidences(ctx, text, []types.Boundary{{Start: start, End: end}})
	if err != nil {
		return 0, err
	}
	return conf[0], nil
}

// Confidences scores every boundary with one batched embedding pass.
// A span with no non-blank neighbour scores 0.
func (d *Detector) Confidences(ctx context.Context, text string, bounds []types.Boundary) ([]float64, error) {
	if !d.Available() {
		return nil, ErrUnavailable
	}
	type probe struct {
		span, before, after int
	}
	var texts []string
	add := func(s string) int {
		if strings.TrimSpace(s) == "" {
			return -1
		}
		texts = append(texts, s)
		return len(texts) - 1
	}
	probes := make([]probe, len(bounds))
	for i, b := range bounds {
		if !b.Valid(len(text)) {
			return nil, fmt.Errorf("boundary %d out of range", i)
		}
		probes[i] = probe{
			span:   add(b.Text(text)),
			before: add(windowBefore(text, b.Start, d.cfg.WindowChars)),
			after:  add(windowAfter(text, b.End, d.cfg.WindowChars)),
		}
	}
	if len(texts) == 0 {
		return make([]float64, len(bounds)), nil
	}

	vecs, err := d.embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(bounds))
	for i, p := range probes {
		if p.span < 0 || vecs[p.span] == nil {
			out[i] = 0
			continue
		}
		var sum float64
		n := 0
		for _, nb := range []int{p.before, p.after} {
			if nb < 0 || vecs[nb] == nil {
				continue
			}
			sum += embedder.CosineSimilarity(vecs[p.span], vecs[nb])
			n++
		}
		if n == 0 {
			// no neighbouring text to compare against
			out[i] = 0
			continue
		}
		out[i] = clamp01(1 - sum/float64(n))
	}
	return out, nil
}

// embed returns one vector per text; entries the provider left out are nil.
func (d *Detector) embed(ctx context.Context, texts []string) ([][]float32, error) {
	bp := optimize.NewBatchProcessor[string, []float32](d.cfg.BatchSize, func(batch, total int) {
		d.log.Debug("embedding batch", "batch", batch, "total", total)
	})
	vecs, err := bp.Process(ctx, texts, func(ctx context.Context, batch []string) ([][]float32, error) {
		if d.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
			defer cancel()
		}
		d.metrics.EmbeddingBatch()
		resp, err := d.emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{
			Texts:    batch,
			TextType: embedder.TextTypeDocument,
		})
		if err != nil {
			return nil, err
		}
		out := make([][]float32, len(batch))
		for i := range out {
			if i < len(resp.Embeddings) && resp.Embeddings[i] != nil && len(resp.Embeddings[i].Vector) > 0 {
				out[i] = resp.Embeddings[i].Vector
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return vecs, nil
}

// Distances returns the cosine distance between each pair of consecutive
// vectors. A missing vector yields distance 1 so a breakpoint lands there.
func Distances(vecs [][]float32) []float64 {
	if len(vecs) < 2 {
		return nil
	}
	out := make([]float64, len(vecs)-1)
	for i := range out {
		a, b := vecs[i], vecs[i+1]
		if a == nil || b == nil {
			out[i] = 1
			continue
		}
		out[i] = 1 - embedder.CosineSimilarity(a, b)
	}
	return out
}

// Percentile returns the p-th percentile of values with linear
// interpolation between closest ranks. Empty input yields 0.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}

func windowBefore(text string, pos, n int) string {
	start := pos
	for i := 0; i < n && start > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:start])
		start -= size
	}
	return text[start:pos]
}

func windowAfter(text string, pos, n int) string {
	end := pos
	for i := 0; i < n && end < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[end:])
		end += size
	}
	return text[pos:end]
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
