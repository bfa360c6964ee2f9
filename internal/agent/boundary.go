package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dshills/semchunk/internal/llm"
	"github.com/dshills/semchunk/internal/logger"
	"github.com/dshills/semchunk/internal/metrics"
	"github.com/dshills/semchunk/internal/optimize"
	"github.com/dshills/semchunk/internal/pattern"
	"github.com/dshills/semchunk/internal/semantic"
	"github.com/dshills/semchunk/pkg/types"
)

const (
	DefaultConfidenceThreshold = 0.7
	DefaultSegmentsPerCall     = 10
)

// BoundaryConfig holds BoundaryAgent settings
type BoundaryConfig struct {
	// ConfidenceThreshold is the mean embedding confidence at or above which
	// a segment keeps its pattern boundaries without an LLM call.
	ConfidenceThreshold float64
	SegmentsPerCall     int
	Model               string
	Temperature         float64
	MaxTokens           int
	Timeout             time.Duration
}

// DefaultBoundaryConfig returns a BoundaryConfig with default values
func DefaultBoundaryConfig() BoundaryConfig {
	return BoundaryConfig{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		SegmentsPerCall:     DefaultSegmentsPerCall,
		MaxTokens:           2048,
		Timeout:             60 * time.Second,
	}
}

// Segment is a span of text whose pattern boundaries are in doubt.
// Boundaries are relative to Text; nil means "compute with the matcher".
// Context, when set, is the enclosing document and Offset the byte offset of
// Text inside it; confidence windows are then cut from Context.
type Segment struct {
	Text       string
	Boundaries []types.Boundary
	Context    string
	Offset     int
}

// scope returns the text confidence windows are cut from and bounds shifted
// into it.
func (s Segment) scope(bounds []types.Boundary) (string, []types.Boundary) {
	if s.Context == "" || s.Offset < 0 || s.Offset+len(s.Text) > len(s.Context) ||
		s.Context[s.Offset:s.Offset+len(s.Text)] != s.Text {
		return s.Text, bounds
	}
	shifted := make([]types.Boundary, len(bounds))
	for i, b := range bounds {
		shifted[i] = b.Shift(s.Offset)
	}
	return s.Context, shifted
}

// BoundaryStats counts how each segment was resolved.
type BoundaryStats struct {
	Segments    int `json:"segments"`
	Prefiltered int `json:"prefiltered"`
	Refined     int `json:"refined"`
	Fallback    int `json:"fallback"`
	LLMCalls    int `json:"llm_calls"`
}

// BoundaryAgent refines unclear boundaries with an LLM, skipping segments the
// embedding detector is already confident about.
type BoundaryAgent struct {
	llm      llm.Provider
	detector *semantic.Detector
	matcher  *pattern.Matcher
	cfg      BoundaryConfig
	log      logger.Logger
	metrics  *metrics.Recorder
}

// NewBoundaryAgent creates an agent. provider and detector may be nil.
func NewBoundaryAgent(provider llm.Provider, detector *semantic.Detector, matcher *pattern.Matcher, cfg BoundaryConfig, log logger.Logger, rec *metrics.Recorder) *BoundaryAgent {
	def := DefaultBoundaryConfig()
	if cfg.ConfidenceThreshold <= 0 || cfg.ConfidenceThreshold > 1 {
		cfg.ConfidenceThreshold = def.ConfidenceThreshold
	}
	if cfg.SegmentsPerCall <= 0 {
		cfg.SegmentsPerCall = def.SegmentsPerCall
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if matcher == nil {
		matcher = pattern.New(nil, pattern.DefaultConfig())
	}
	return &BoundaryAgent{
		llm:      provider,
		detector: detector,
		matcher:  matcher,
		cfg:      cfg,
		log:      logger.OrNop(log),
		metrics:  rec,
	}
}

// DetectBoundariesBatch returns boundaries for every segment, in order.
// A segment whose refinement fails for any reason keeps its pattern
// boundaries; this method never fails.
func (a *BoundaryAgent) DetectBoundariesBatch(ctx context.Context, segments []Segment) ([][]types.Boundary, BoundaryStats) {
	stats := BoundaryStats{Segments: len(segments)}
	out := make([][]types.Boundary, len(segments))
	for i, seg := range segments {
		out[i] = seg.Boundaries
		if out[i] == nil {
			out[i] = a.matcher.FindBoundaries(seg.Text)
		}
	}

	if a.llm == nil {
		stats.Fallback = len(segments)
		a.metrics.Fallback(metrics.StageBoundary, "no_llm")
		return out, stats
	}
	pending := a.prefilter(ctx, segments, out, &stats)
	if len(pending) == 0 {
		return out, stats
	}

	bp := optimize.NewBatchProcessor[int, []types.Boundary](a.cfg.SegmentsPerCall, func(batch, total int) {
		a.log.Debug("boundary refinement batch", "batch", batch, "total", total)
	})
	refined, err := bp.Process(ctx, pending, func(ctx context.Context, idx []int) ([][]types.Boundary, error) {
		stats.LLMCalls++
		res, err := a.refine(ctx, segments, idx)
		if err != nil {
			a.log.Warn("boundary refinement failed, keeping pattern boundaries",
				"segments", len(idx),
				"error", err)
			a.metrics.Fallback(metrics.StageBoundary, "llm_error")
			// nil entries keep the pattern result
			return make([][]types.Boundary, len(idx)), nil
		}
		return res, nil
	})
	if err != nil {
		// only reachable through context cancellation between batches
		stats.Fallback += len(pending)
		return out, stats
	}

	for k, i := range pending {
		if refined[k] == nil {
			stats.Fallback++
			continue
		}
		out[i] = refined[k]
		stats.Refined++
	}
	return out, stats
}

// prefilter drops segments whose mean embedding confidence reaches the
// threshold and returns the indexes still needing the LLM.
func (a *BoundaryAgent) prefilter(ctx context.Context, segments []Segment, base [][]types.Boundary, stats *BoundaryStats) []int {
	pending := make([]int, 0, len(segments))
	usable := a.detector.Available()
	for i, seg := range segments {
		if strings.TrimSpace(seg.Text) == "" || len(base[i]) == 0 {
			continue
		}
		if !usable {
			pending = append(pending, i)
			continue
		}
		text, bounds := seg.scope(base[i])
		conf, err := a.detector.Confidences(ctx, text, bounds)
		if err != nil {
			a.log.Warn("embedding prefilter unavailable", "error", err)
			a.metrics.Fallback(metrics.StageEmbedding, "prefilter_error")
			usable = false
			pending = append(pending, i)
			continue
		}
		if mean(conf) >= a.cfg.ConfidenceThreshold {
			stats.Prefiltered++
			continue
		}
		pending = append(pending, i)
	}
	a.metrics.LLMCallsSaved(stats.Prefiltered)
	return pending
}

type boundaryReply struct {
	Segments []struct {
		ID          *int  `json:"id"`
		Breakpoints []int `json:"breakpoints"`
	} `json:"segments"`
}

// refine sends one prompt for the segments at idx. A nil entry in the result
// means the model gave nothing usable for that segment.
func (a *BoundaryAgent) refine(ctx context.Context, segments []Segment, idx []int) ([][]types.Boundary, error) {
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	texts := make([]string, len(idx))
	for k, i := range idx {
		texts[k] = segments[i].Text
	}

	a.metrics.LLMCall(metrics.StageBoundary)
	reply, err := a.llm.Chat(ctx, llm.ChatRequest{
		System:      boundarySystemPrompt,
		Prompt:      boundaryPrompt(texts),
		Model:       a.cfg.Model,
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	raw, err := llm.ExtractJSON(reply)
	if err != nil {
		return nil, err
	}
	var r boundaryReply
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(r.Segments) == 0 {
		return nil, fmt.Errorf("%w: no segments in reply", ErrMalformedResponse)
	}

	out := make([][]types.Boundary, len(idx))
	for pos, s := range r.Segments {
		id := pos
		if s.ID != nil {
			id = *s.ID
		}
		if id < 0 || id >= len(idx) || out[id] != nil {
			continue
		}
		out[id] = BreakpointsToBoundaries(texts[id], s.Breakpoints)
	}
	return out, nil
}

// BreakpointsToBoundaries converts rune offsets at which a new chunk starts
// into contiguous byte boundaries covering text. Offsets outside (0, runes)
// and duplicates are ignored; the last boundary always reaches the end.
func BreakpointsToBoundaries(text string, breakpoints []int) []types.Boundary {
	if text == "" {
		return nil
	}
	n := utf8.RuneCountInString(text)
	pts := make([]int, 0, len(breakpoints))
	for _, p := range breakpoints {
		if p > 0 && p < n {
			pts = append(pts, p)
		}
	}
	sort.Ints(pts)

	var out []types.Boundary
	start, runeIdx, k := 0, 0, 0
	for byteIdx := range text {
		for k < len(pts) && pts[k] < runeIdx {
			k++
		}
		if k < len(pts) && pts[k] == runeIdx {
			out = append(out, types.Boundary{Start: start, End: byteIdx})
			start = byteIdx
			k++
		}
		runeIdx++
	}
	return append(out, types.Boundary{Start: start, End: len(text)})
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var s float64
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}

const boundarySystemPrompt = `You split text into semantically coherent chunks for retrieval. ` +
	`Reply with a single JSON object and nothing else.`

func boundaryPrompt(texts []string) string {
	var sb strings.Builder
	sb.WriteString("For each segment below, list the character offsets (counted in Unicode characters from 0 ")
	sb.WriteString("at the start of that segment) where a new chunk should begin. Cut only between complete ")
	sb.WriteString("thoughts; an empty list keeps the segment whole.\n\n")
	sb.WriteString(`Reply as {"segments": [{"id": 0, "breakpoints": [120, 348]}, ...]} with one entry per segment.`)
	sb.WriteString("\n\n")
	for i, t := range texts {
		fmt.Fprintf(&sb, "<segment id=\"%d\" length=\"%d\">\n%s\n</segment>\n", i, utf8.RuneCountInString(t), t)
	}
	return sb.String()
}
