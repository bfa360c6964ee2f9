package chunker

import (
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/dshills/semchunk/internal/semantic"
	"github.com/dshills/semchunk/pkg/types"
)

// assemble packs contiguous pieces into spans of at most ChunkSize tokens.
// Every span after the first starts with the tail of its predecessor, at
// most ChunkOverlap tokens long, so consecutive spans overlap.
func (c *Chunker) assemble(text string, pieces []piece) []types.Boundary {
	if len(pieces) == 0 {
		return nil
	}
	var out []types.Boundary
	cur := pieces[0].Boundary
	for _, p := range pieces[1:] {
		cut := p.hard && c.counter.Count(cur.Text(text)) >= c.cfg.MinTokens
		grown := types.Boundary{Start: cur.Start, End: p.End}
		if !cut && c.counter.Count(grown.Text(text)) <= c.cfg.ChunkSize {
			cur = grown
			continue
		}
		out = append(out, cur)
		cur = types.Boundary{Start: c.overlapStart(text, cur), End: p.End}
	}
	out = append(out, cur)
	return c.absorbRunt(text, out, c.cfg.ChunkSize)
}

// overlapStart returns where the overlap carried out of b begins: the
// earliest sentence start whose tail fits ChunkOverlap tokens, else the
// earliest such word start. It returns b.End when nothing fits.
func (c *Chunker) overlapStart(text string, b types.Boundary) int {
	if c.cfg.ChunkOverlap <= 0 {
		return b.End
	}
	span := b.Text(text)
	if pos, ok := c.fitTail(span, sentenceStarts(span)); ok {
		return b.Start + pos
	}
	if pos, ok := c.fitTail(span, wordStarts(span)); ok {
		return b.Start + pos
	}
	return b.End
}

// fitTail binary-searches ascending offsets for the earliest one whose tail
// fits the overlap budget. Tail counts shrink as the offset grows.
func (c *Chunker) fitTail(span string, offsets []int) (int, bool) {
	i := sort.Search(len(offsets), func(i int) bool {
		return c.counter.Count(span[offsets[i]:]) <= c.cfg.ChunkOverlap
	})
	if i == len(offsets) {
		return 0, false
	}
	return offsets[i], true
}

// absorbRunt folds a last span below MinTokens into its predecessor when
// the union stays within budget.
func (c *Chunker) absorbRunt(text string, spans []types.Boundary, budget int) []types.Boundary {
	n := len(spans)
	if n < 2 || c.counter.Count(spans[n-1].Text(text)) >= c.cfg.MinTokens {
		return spans
	}
	merged := types.Boundary{Start: spans[n-2].Start, End: spans[n-1].End}
	if c.counter.Count(merged.Text(text)) > budget {
		return spans
	}
	spans[n-2] = merged
	return spans[:n-1]
}

func sentenceStarts(span string) []int {
	var out []int
	for _, s := range semantic.SplitSentences(span) {
		if s.Start > 0 && s.Start < len(span) {
			out = append(out, s.Start)
		}
	}
	return out
}

// wordStarts lists offsets where a word begins. Every CJK rune is a word.
func wordStarts(span string) []int {
	var out []int
	prev, _ := utf8.DecodeRuneInString(span)
	for i, r := range span {
		if i > 0 && !unicode.IsSpace(r) && (unicode.IsSpace(prev) || isCJK(prev) || isCJK(r)) {
			out = append(out, i)
		}
		prev = r
	}
	return out
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}
