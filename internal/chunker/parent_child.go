package chunker

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/dshills/semchunk/internal/agent"
	"github.com/dshills/semchunk/internal/pattern"
	"github.com/dshills/semchunk/internal/semantic"
	"github.com/dshills/semchunk/pkg/types"
)

// section is a heading-bounded (or paragraph) span that becomes one or more
// parents.
type section struct {
	types.Boundary
	title string
	level int
}

func (c *Chunker) chunkParentChild(req Request, s *types.DocumentStructure) []types.ParentChunk {
	text := req.Text
	var parents []types.ParentChunk
	for _, sec := range c.sections(text, s, req.Outline) {
		for _, pb := range c.splitSection(text, sec.Boundary) {
			pb = pattern.TrimBoundary(text, pb)
			if pb.Len() == 0 {
				continue
			}
			p := types.ParentChunk{
				ID:         ParentID(req.DocumentID, pb.Start),
				Text:       pb.Text(text),
				StartChar:  pb.Start,
				EndChar:    pb.End,
				ChunkIndex: len(parents),
				Metadata: map[string]any{
					"document_id":    req.DocumentID,
					"structure_type": string(types.StructureParentChild),
				},
			}
			if sec.title != "" {
				p.Metadata["section"] = sec.title
				p.Metadata["level"] = sec.level
			}
			p.Children = c.childChunks(text, pb, req.DocumentID)
			p.Adopt()
			parents = append(parents, p)
		}
	}
	return parents
}

// ParentID derives a stable parent id from the document id and the parent's
// start offset.
func ParentID(docID string, start int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, fmt.Appendf(nil, "semchunk:%s#parent@%d", docID, start)).String()
}

// sections cuts text at TOC headings located in the full text. Without a
// usable TOC every paragraph is a section. Sections below MinTokens are
// merged into a neighbour.
func (c *Chunker) sections(text string, s *types.DocumentStructure, outline []types.TOCEntry) []section {
	toc := c.structure.TOC().Detect(text, outline)
	if len(located(toc)) == 0 && s.HasTOC() {
		toc = agent.Locate(text, s.TOC)
	}

	var secs []section
	if heads := located(toc); len(heads) > 0 {
		if strings.TrimSpace(text[:heads[0].Offset]) != "" {
			secs = append(secs, section{Boundary: types.Boundary{Start: 0, End: heads[0].Offset}})
		}
		for i, h := range heads {
			end := len(text)
			if i+1 < len(heads) {
				end = heads[i+1].Offset
			}
			secs = append(secs, section{
				Boundary: types.Boundary{Start: h.Offset, End: end},
				title:    h.Title,
				level:    h.Level,
			})
		}
	} else {
		for _, b := range pattern.SplitParagraphs(text) {
			secs = append(secs, section{Boundary: b})
		}
	}
	return c.mergeSmall(text, secs)
}

// located keeps entries with a position, sorted, one per offset.
func located(toc []types.TOCEntry) []types.TOCEntry {
	out := make([]types.TOCEntry, 0, len(toc))
	for _, e := range toc {
		if e.Offset >= 0 {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	uniq := out[:0]
	for i, e := range out {
		if i > 0 && e.Offset == out[i-1].Offset {
			continue
		}
		uniq = append(uniq, e)
	}
	return uniq
}

// mergeSmall merges each section below MinTokens into the next one, and a
// small last section into the previous one. The earlier title wins.
func (c *Chunker) mergeSmall(text string, secs []section) []section {
	out := make([]section, 0, len(secs))
	var carry *section
	for _, s := range secs {
		if carry != nil {
			s.Start = carry.Start
			if carry.title != "" {
				s.title, s.level = carry.title, carry.level
			}
			carry = nil
		}
		if c.counter.Count(s.Text(text)) < c.cfg.MinTokens {
			small := s
			carry = &small
			continue
		}
		out = append(out, s)
	}
	if carry != nil {
		if len(out) > 0 {
			out[len(out)-1].End = carry.End
		} else {
			out = append(out, *carry)
		}
	}
	return out
}

// splitSection cuts a section above ParentChunkSize into several parents.
func (c *Chunker) splitSection(text string, b types.Boundary) []types.Boundary {
	if c.counter.Count(b.Text(text)) <= c.cfg.ParentChunkSize {
		return []types.Boundary{b}
	}
	parts := c.parents.FindBoundaries(b.Text(text))
	for i := range parts {
		parts[i] = parts[i].Shift(b.Start)
	}
	return parts
}

func (c *Chunker) childChunks(text string, parent types.Boundary, docID string) []types.ChildChunk {
	body := parent.Text(text)
	spans := c.absorbRunt(body, c.childSpans(body), c.cfg.ChildChunkSize)

	out := make([]types.ChildChunk, 0, len(spans))
	for _, b := range spans {
		b = pattern.TrimBoundary(text, b.Shift(parent.Start))
		if b.Len() == 0 {
			continue
		}
		out = append(out, types.ChildChunk{Chunk: types.Chunk{
			Text:       b.Text(text),
			StartChar:  b.Start,
			EndChar:    b.End,
			ChunkIndex: len(out),
			Metadata:   map[string]any{"document_id": docID},
		}})
	}
	return out
}

// childSpans cuts a parent body into sentences. A sentence above
// ChildChunkSize is split with the child matcher. Sentences below MinTokens
// are grouped with the ones after them while the group fits ChildChunkSize.
func (c *Chunker) childSpans(body string) []types.Boundary {
	var spans []types.Boundary
	for _, s := range semantic.SplitSentences(body) {
		b := types.Boundary{Start: s.Start, End: s.End}
		if c.counter.Count(b.Text(body)) <= c.cfg.ChildChunkSize {
			spans = append(spans, b)
			continue
		}
		for _, part := range c.children.FindBoundaries(b.Text(body)) {
			spans = append(spans, part.Shift(b.Start))
		}
	}

	out := make([]types.Boundary, 0, len(spans))
	for _, b := range spans {
		if n := len(out); n > 0 && c.counter.Count(out[n-1].Text(body)) < c.cfg.MinTokens {
			grown := types.Boundary{Start: out[n-1].Start, End: b.End}
			if c.counter.Count(grown.Text(body)) <= c.cfg.ChildChunkSize {
				out[n-1] = grown
				continue
			}
		}
		out = append(out, b)
	}
	return out
}
