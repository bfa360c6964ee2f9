package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/semchunk/pkg/types"
)

func TestWordStarts(t *testing.T) {
	assert.Equal(t, []int{4, 9}, wordStarts("one two  three"))
	assert.Equal(t, []int{3, 6, 9}, wordStarts("你好世界"))
	assert.Nil(t, wordStarts("single"))
}

func TestOverlapStart(t *testing.T) {
	c := newTestChunker(t, Deps{}, func(cfg *Config) {
		cfg.ChunkSize = 40
		cfg.ChunkOverlap = 5
	})
	text := "First sentence is long enough here. Short one."
	b := types.Boundary{Start: 0, End: len(text)}

	// the last sentence fits five tokens
	assert.Equal(t, 36, c.overlapStart(text, b))

	c.cfg.ChunkOverlap = 2
	start := c.overlapStart(text, b)
	assert.Greater(t, start, 36, "falls back to word starts")
	assert.LessOrEqual(t, c.Counter().Count(text[start:]), 2)

	c.cfg.ChunkOverlap = 0
	assert.Equal(t, len(text), c.overlapStart(text, b))
}

func TestAbsorbRunt(t *testing.T) {
	c := newTestChunker(t, Deps{}, func(cfg *Config) {
		cfg.MinTokens = 3
	})
	text := "Plenty of words live in this span. Ok."
	spans := []types.Boundary{{Start: 0, End: 34}, {Start: 34, End: len(text)}}

	got := c.absorbRunt(text, append([]types.Boundary(nil), spans...), 100)
	assert.Equal(t, []types.Boundary{{Start: 0, End: len(text)}}, got)

	got = c.absorbRunt(text, append([]types.Boundary(nil), spans...), 5)
	assert.Equal(t, spans, got, "union over budget keeps the runt")
}
