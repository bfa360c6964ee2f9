package types

import (
	"fmt"
	"strings"
)

// Chunk is a retrieval-sized slice of a source document.
// StartChar and EndChar are byte offsets into the source text and
// Text == source[StartChar:EndChar].
type Chunk struct {
	Text       string         `json:"text"`
	StartChar  int            `json:"start_char"`
	EndChar    int            `json:"end_char"`
	ChunkIndex int            `json:"chunk_index"`
	TokenCount int            `json:"token_count,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ChildChunk is a chunk owned by exactly one ParentChunk.
type ChildChunk struct {
	Chunk
	ParentID    string `json:"parent_id"`
	ParentText  string `json:"parent_text,omitempty"`
	ParentIndex int    `json:"parent_index"`
}

// ParentChunk groups a section of the document with the child chunks cut from it.
// Only children are meant to be embedded; the parent supplies context at retrieval time.
type ParentChunk struct {
	ID         string         `json:"id"`
	Text       string         `json:"text"`
	StartChar  int            `json:"start_char"`
	EndChar    int            `json:"end_char"`
	ChunkIndex int            `json:"chunk_index"`
	Children   []ChildChunk   `json:"children"`
	TokenCount int            `json:"token_count,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// QAChunk is a single question (and optional answer) detected in the document.
type QAChunk struct {
	Chunk
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
	QAIndex  int    `json:"qa_index"`
}

// EnsureText fills Text from Question and Answer when it was not supplied.
func (q *QAChunk) EnsureText() {
	if strings.TrimSpace(q.Text) != "" {
		return
	}
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(q.Question))
	if a := strings.TrimSpace(q.Answer); a != "" {
		sb.WriteString("\n")
		sb.WriteString(a)
	}
	q.Text = sb.String()
}

// Validate checks the offset invariants of a chunk against the length of its source.
func (c *Chunk) Validate(sourceLen int) error {
	if c.StartChar < 0 || c.EndChar < c.StartChar || c.EndChar > sourceLen {
		return ErrInvalidOffsets
	}
	if strings.TrimSpace(c.Text) == "" {
		return ErrEmptyContent
	}
	return nil
}

// Adopt sets the back-references of every child to p and renumbers them in order.
func (p *ParentChunk) Adopt() {
	for i := range p.Children {
		p.Children[i].ParentID = p.ID
		p.Children[i].ParentIndex = p.ChunkIndex
		p.Children[i].ParentText = p.Text
		p.Children[i].ChunkIndex = i
	}
}

// CheckIntegrity verifies that the parent owns at least one child and that
// every child points back at it.
func (p *ParentChunk) CheckIntegrity() error {
	if len(p.Children) == 0 {
		return ErrNoChildren
	}
	for i := range p.Children {
		c := &p.Children[i]
		if c.ParentID != p.ID || c.ParentIndex != p.ChunkIndex {
			return fmt.Errorf("%w: child %d", ErrBrokenParentLink, i)
		}
	}
	return nil
}
