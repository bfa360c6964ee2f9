package chunker

import (
	"context"
	"slices"

	"github.com/dshills/semchunk/internal/agent"
	"github.com/dshills/semchunk/internal/metrics"
	"github.com/dshills/semchunk/internal/pattern"
	"github.com/dshills/semchunk/pkg/types"
)

// Strategy names recorded in chunk metadata.
const (
	StrategyPattern   = "pattern"
	StrategyEmbedding = "embedding"
)

// piece is a span of the source. A hard piece starts a new chunk once the
// current chunk has reached MinTokens.
type piece struct {
	types.Boundary
	hard bool
}

func (c *Chunker) chunkGeneral(ctx context.Context, text, docID string, st *Stats) []types.Chunk {
	pieces, strategy := c.generalPieces(ctx, text, st)
	spans := c.assemble(text, pieces)

	out := make([]types.Chunk, 0, len(spans))
	for _, b := range spans {
		b = pattern.TrimBoundary(text, b)
		if b.Len() == 0 {
			continue
		}
		out = append(out, types.Chunk{
			Text:       b.Text(text),
			StartChar:  b.Start,
			EndChar:    b.End,
			ChunkIndex: len(out),
			Metadata: map[string]any{
				"document_id":    docID,
				"structure_type": string(types.StructureGeneral),
				"strategy":       strategy,
			},
		})
	}
	return out
}

// generalPieces returns contiguous pieces covering text, none above the
// piece budget unless indivisible.
func (c *Chunker) generalPieces(ctx context.Context, text string, st *Stats) ([]piece, string) {
	if c.cfg.EmbeddingOnly {
		bounds, err := c.detector.FindBoundaries(ctx, text)
		if err == nil && len(bounds) > 0 {
			st.EmbeddingBoundaries = len(bounds)
			pieces := make([]piece, len(bounds))
			for i, b := range bounds {
				pieces[i] = piece{Boundary: b, hard: i > 0}
			}
			return c.fit(text, pieces), StrategyEmbedding
		}
		c.log.Warn("embedding boundaries unavailable, using pattern matching", "error", err)
		c.metrics.Fallback(metrics.StageEmbedding, "find_boundaries")
		st.Fallbacks = append(st.Fallbacks, "embedding_to_pattern")
	}

	bounds := c.pieces.FindBoundaries(text)
	clear := pattern.Classify(text, bounds)
	st.PatternBoundaries = len(bounds)
	for _, ok := range clear {
		if ok {
			st.ClearBoundaries++
		} else {
			st.UnclearBoundaries++
		}
	}

	if st.UnclearBoundaries == 0 || c.cfg.EmbeddingOnly {
		pieces := make([]piece, len(bounds))
		for i, b := range bounds {
			pieces[i] = piece{Boundary: b}
		}
		return c.fit(text, pieces), StrategyPattern
	}
	return c.fit(text, c.refine(ctx, text, bounds, clear, st)), StrategyPattern
}

// refine sends each run of consecutive unclear boundaries to the boundary
// agent as one segment and splices the answer back. Cuts the model moved
// become hard.
func (c *Chunker) refine(ctx context.Context, text string, bounds []types.Boundary, clear []bool, st *Stats) []piece {
	type run struct{ lo, hi int }
	var runs []run
	for i := 0; i < len(bounds); {
		if clear[i] {
			i++
			continue
		}
		j := i
		for j < len(bounds) && !clear[j] && j-i < maxSegmentPieces {
			j++
		}
		runs = append(runs, run{lo: i, hi: j})
		i = j
	}

	segments := make([]agent.Segment, len(runs))
	for k, r := range runs {
		start := bounds[r.lo].Start
		rel := make([]types.Boundary, 0, r.hi-r.lo)
		for _, b := range bounds[r.lo:r.hi] {
			rel = append(rel, b.Shift(-start))
		}
		segments[k] = agent.Segment{
			Text:       text[start:bounds[r.hi-1].End],
			Boundaries: rel,
			Context:    text,
			Offset:     start,
		}
	}

	refined, bst := c.boundary.DetectBoundariesBatch(ctx, segments)
	st.Boundary = bst
	if bst.Fallback > 0 {
		st.Fallbacks = append(st.Fallbacks, "boundary_to_pattern")
	}

	out := make([]piece, 0, len(bounds))
	next := 0
	for k, r := range runs {
		for ; next < r.lo; next++ {
			out = append(out, piece{Boundary: bounds[next]})
		}
		start := bounds[r.lo].Start
		moved := !slices.Equal(refined[k], segments[k].Boundaries)
		for m, b := range refined[k] {
			out = append(out, piece{Boundary: b.Shift(start), hard: moved && m > 0})
		}
		next = r.hi
	}
	for ; next < len(bounds); next++ {
		out = append(out, piece{Boundary: bounds[next]})
	}
	return out
}

// fit re-splits pieces above the piece budget. Only the first part of a
// split piece keeps its hard flag.
func (c *Chunker) fit(text string, pieces []piece) []piece {
	budget := c.pieces.Config().ChunkSize
	out := make([]piece, 0, len(pieces))
	for _, p := range pieces {
		if p.Len() == 0 {
			continue
		}
		if c.counter.Count(p.Text(text)) <= budget {
			out = append(out, p)
			continue
		}
		for i, b := range c.pieces.ChunkRecursive(p.Text(text)) {
			out = append(out, piece{Boundary: b.Shift(p.Start), hard: p.hard && i == 0})
		}
	}
	return out
}
