package chunker

import (
	"strings"

	"github.com/dshills/semchunk/internal/pattern"
	"github.com/dshills/semchunk/pkg/types"
)

// chunkQA emits one chunk per detected question. A question's chunk runs
// to the next question and includes its answer when one is marked.
func (c *Chunker) chunkQA(text, docID string) []types.QAChunk {
	spans := pattern.FindQuestions(text)
	out := make([]types.QAChunk, 0, len(spans))
	for _, s := range spans {
		b := pattern.TrimBoundary(text, s.Span)
		if b.Len() == 0 {
			continue
		}
		q := types.QAChunk{
			Chunk: types.Chunk{
				Text:       b.Text(text),
				StartChar:  b.Start,
				EndChar:    b.End,
				ChunkIndex: len(out),
				Metadata: map[string]any{
					"document_id":    docID,
					"structure_type": string(types.StructureQA),
				},
			},
			Question: strings.TrimSpace(s.Question.Text(text)),
			Answer:   strings.TrimSpace(s.Answer.Text(text)),
			QAIndex:  len(out),
		}
		q.EnsureText()
		out = append(out, q)
	}
	return out
}
