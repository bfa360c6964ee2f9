package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStructureType(t *testing.T) {
	tests := []struct {
		in   string
		want StructureType
	}{
		{"general", StructureGeneral},
		{" Parent-Child ", StructureParentChild},
		{"hierarchical", StructureParentChild},
		{"QA", StructureQA},
		{"question answer", StructureQA},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStructureType(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}

	_, err := ParseStructureType("tree")
	assert.ErrorIs(t, err, ErrInvalidStructureType)
}

func TestTOCDepth(t *testing.T) {
	assert.Equal(t, 0, TOCDepth(nil))
	toc := []TOCEntry{{Title: "A", Level: 1}, {Title: "A.1", Level: 2}, {Title: "B", Level: 1}}
	assert.Equal(t, 2, TOCDepth(toc))
}

func TestDocumentStructureValidate(t *testing.T) {
	s := &DocumentStructure{DocumentID: "doc", StructureType: StructureQA}
	assert.NoError(t, s.Validate())

	s.DocumentID = " "
	assert.ErrorIs(t, s.Validate(), ErrMissingDocumentID)

	s.DocumentID = "doc"
	s.StructureType = "tree"
	assert.ErrorIs(t, s.Validate(), ErrInvalidStructureType)
}

func TestCoversText(t *testing.T) {
	assert.True(t, CoversText(nil, 0))
	assert.True(t, CoversText([]Boundary{{0, 4}, {4, 10}}, 10))
	assert.False(t, CoversText([]Boundary{{0, 4}, {5, 10}}, 10), "gap")
	assert.False(t, CoversText([]Boundary{{1, 10}}, 10), "late start")
	assert.False(t, CoversText([]Boundary{{0, 9}}, 10), "short end")
	assert.False(t, CoversText(nil, 3))
}

func TestBoundary(t *testing.T) {
	b := Boundary{Start: 2, End: 5}
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, Boundary{Start: 12, End: 15}, b.Shift(10))
	assert.Equal(t, "llo", b.Text("hello"))
	assert.True(t, b.Valid(5))
	assert.False(t, b.Valid(4))
}

func TestQAChunkEnsureText(t *testing.T) {
	q := QAChunk{Question: " What is it? ", Answer: "A splitter. "}
	q.EnsureText()
	assert.Equal(t, "What is it?\nA splitter.", q.Text)

	q = QAChunk{Question: "Why?"}
	q.EnsureText()
	assert.Equal(t, "Why?", q.Text)

	q = QAChunk{Chunk: Chunk{Text: "kept"}, Question: "Why?"}
	q.EnsureText()
	assert.Equal(t, "kept", q.Text)
}

func TestChunkValidate(t *testing.T) {
	c := Chunk{Text: "abc", StartChar: 0, EndChar: 3}
	assert.NoError(t, c.Validate(3))
	assert.ErrorIs(t, c.Validate(2), ErrInvalidOffsets)

	c.Text = "  "
	assert.ErrorIs(t, c.Validate(3), ErrEmptyContent)
}

func TestParentChunkIntegrity(t *testing.T) {
	p := ParentChunk{ID: "p1", Text: "section", ChunkIndex: 2}
	assert.ErrorIs(t, p.CheckIntegrity(), ErrNoChildren)

	p.Children = []ChildChunk{{Chunk: Chunk{ChunkIndex: 7}}, {}}
	assert.ErrorIs(t, p.CheckIntegrity(), ErrBrokenParentLink)

	p.Adopt()
	require.NoError(t, p.CheckIntegrity())
	for i, c := range p.Children {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, "p1", c.ParentID)
		assert.Equal(t, 2, c.ParentIndex)
		assert.Equal(t, "section", c.ParentText)
	}
}
