package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/semchunk/internal/embedder/embeddertest"
	"github.com/dshills/semchunk/internal/llm"
	"github.com/dshills/semchunk/internal/llm/llmtest"
	"github.com/dshills/semchunk/internal/pattern"
	"github.com/dshills/semchunk/internal/semantic"
	"github.com/dshills/semchunk/pkg/types"
)

const twoTopics = "Cats purr softly. Rockets launch fast."

func twoTopicSegment() Segment {
	return Segment{
		Text:       twoTopics,
		Boundaries: []types.Boundary{{Start: 0, End: 18}, {Start: 18, End: len(twoTopics)}},
	}
}

func TestBoundaryAgentPrefilter(t *testing.T) {
	stub := llmtest.Static(`{"segments": [{"id": 0, "breakpoints": []}]}`)
	det := semantic.New(embeddertest.Topics("cat", "rocket"), semantic.DefaultConfig(), nil)
	a := NewBoundaryAgent(stub, det, nil, DefaultBoundaryConfig(), nil, nil)

	seg := twoTopicSegment()
	out, stats := a.DetectBoundariesBatch(context.Background(), []Segment{seg})

	require.Len(t, out, 1)
	assert.Equal(t, seg.Boundaries, out[0])
	assert.Equal(t, 1, stats.Prefiltered)
	assert.Equal(t, 0, stats.LLMCalls)
	assert.Equal(t, 0, stub.Calls())
}

func TestBoundaryAgentRefinesLowConfidence(t *testing.T) {
	stub := llmtest.Static(`{"segments": [{"id": 0, "breakpoints": []}]}`)
	det := semantic.New(embeddertest.Constant(8), semantic.DefaultConfig(), nil)
	a := NewBoundaryAgent(stub, det, nil, DefaultBoundaryConfig(), nil, nil)

	out, stats := a.DetectBoundariesBatch(context.Background(), []Segment{twoTopicSegment()})

	require.Len(t, out, 1)
	assert.Equal(t, []types.Boundary{{Start: 0, End: len(twoTopics)}}, out[0])
	assert.Equal(t, BoundaryStats{Segments: 1, Refined: 1, LLMCalls: 1}, stats)
	assert.Contains(t, stub.Requests()[0].Prompt, twoTopics)
}

func TestBoundaryAgentSinglePieceReachesLLM(t *testing.T) {
	stub := llmtest.Static(`{"segments": [{"id": 0, "breakpoints": []}]}`)
	det := semantic.New(embeddertest.Constant(8), semantic.DefaultConfig(), nil)
	a := NewBoundaryAgent(stub, det, nil, DefaultBoundaryConfig(), nil, nil)

	seg := Segment{Text: "a sentence cut in", Boundaries: []types.Boundary{{Start: 0, End: 17}}}
	_, stats := a.DetectBoundariesBatch(context.Background(), []Segment{seg})

	assert.Equal(t, BoundaryStats{Segments: 1, Refined: 1, LLMCalls: 1}, stats)
	assert.Equal(t, 1, stub.Calls())
}

func TestBoundaryAgentScoresAgainstDocumentContext(t *testing.T) {
	offset := len("Cats purr softly. ")
	piece := twoTopics[offset:]
	bounds := []types.Boundary{{Start: 0, End: len(piece)}}

	tests := []struct {
		name        string
		seg         Segment
		prefiltered int
		llmCalls    int
	}{
		{"neighbour on another topic", Segment{Text: piece, Boundaries: bounds, Context: twoTopics, Offset: offset}, 1, 0},
		{"no context", Segment{Text: piece, Boundaries: bounds}, 0, 1},
		{"mismatched offset ignored", Segment{Text: piece, Boundaries: bounds, Context: twoTopics, Offset: 3}, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := llmtest.Static(`{"segments": [{"id": 0, "breakpoints": []}]}`)
			det := semantic.New(embeddertest.Topics("cat", "rocket"), semantic.DefaultConfig(), nil)
			a := NewBoundaryAgent(stub, det, nil, DefaultBoundaryConfig(), nil, nil)

			out, stats := a.DetectBoundariesBatch(context.Background(), []Segment{tt.seg})

			require.Len(t, out, 1)
			assert.Equal(t, bounds, out[0])
			assert.Equal(t, tt.prefiltered, stats.Prefiltered)
			assert.Equal(t, tt.llmCalls, stats.LLMCalls)
		})
	}
}

func TestBoundaryAgentFallsBackToPattern(t *testing.T) {
	m := pattern.New(nil, pattern.Config{ChunkSize: 8})
	text := "First sentence is here. Second sentence is here. Third one ends it."
	want := m.FindBoundaries(text)
	require.Greater(t, len(want), 1)

	tests := []struct {
		name     string
		provider llm.Provider
		calls    int
	}{
		{"no provider", nil, 0},
		{"provider error", llmtest.Failing(errors.New("rate limited")), 1},
		{"no json", llmtest.Static("Sorry, I cannot help."), 1},
		{"empty segments", llmtest.Static(`{"segments": []}`), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewBoundaryAgent(tt.provider, nil, m, DefaultBoundaryConfig(), nil, nil)
			out, stats := a.DetectBoundariesBatch(context.Background(), []Segment{{Text: text}})

			require.Len(t, out, 1)
			assert.Equal(t, want, out[0])
			assert.Equal(t, 1, stats.Fallback)
			assert.Equal(t, 0, stats.Refined)
			if s, ok := tt.provider.(*llmtest.Stub); ok {
				assert.Equal(t, tt.calls, s.Calls())
			}
		})
	}
}

func TestBoundaryAgentBatchesSegments(t *testing.T) {
	stub := llmtest.Static(`{"segments": [{"id": 0, "breakpoints": [3]}, {"id": 1, "breakpoints": [3]}]}`)
	cfg := DefaultBoundaryConfig()
	cfg.SegmentsPerCall = 2
	a := NewBoundaryAgent(stub, nil, nil, cfg, nil, nil)

	segs := make([]Segment, 5)
	for i := range segs {
		segs[i] = Segment{Text: "abcdef"}
	}
	out, stats := a.DetectBoundariesBatch(context.Background(), segs)

	assert.Equal(t, 3, stub.Calls())
	assert.Equal(t, 3, stats.LLMCalls)
	assert.Equal(t, 5, stats.Refined)
	for _, b := range out {
		assert.Equal(t, []types.Boundary{{Start: 0, End: 3}, {Start: 3, End: 6}}, b)
	}
}

func TestBoundaryAgentPartialFailure(t *testing.T) {
	stub := &llmtest.Stub{Replies: []string{
		"no idea",
		`{"segments": [{"breakpoints": [2]}]}`,
	}}
	cfg := DefaultBoundaryConfig()
	cfg.SegmentsPerCall = 1
	a := NewBoundaryAgent(stub, nil, nil, cfg, nil, nil)

	segs := []Segment{
		{Text: "abcd", Boundaries: []types.Boundary{{Start: 0, End: 4}}},
		{Text: "wxyz", Boundaries: []types.Boundary{{Start: 0, End: 4}}},
	}
	out, stats := a.DetectBoundariesBatch(context.Background(), segs)

	assert.Equal(t, []types.Boundary{{Start: 0, End: 4}}, out[0])
	assert.Equal(t, []types.Boundary{{Start: 0, End: 2}, {Start: 2, End: 4}}, out[1])
	assert.Equal(t, 1, stats.Fallback)
	assert.Equal(t, 1, stats.Refined)
}

func TestBoundaryAgentSkipsBlankSegments(t *testing.T) {
	stub := llmtest.Static(`{"segments": [{"id": 0, "breakpoints": []}]}`)
	a := NewBoundaryAgent(stub, nil, nil, DefaultBoundaryConfig(), nil, nil)

	out, _ := a.DetectBoundariesBatch(context.Background(), []Segment{{Text: "  \n  "}})
	require.Len(t, out, 1)
	assert.Equal(t, 0, stub.Calls())
}

func TestBreakpointsToBoundaries(t *testing.T) {
	tests := []struct {
		name string
		text string
		bps  []int
		want []types.Boundary
	}{
		{"none", "abcdef", nil, []types.Boundary{{Start: 0, End: 6}}},
		{"two cuts", "abcdef", []int{2, 4}, []types.Boundary{{Start: 0, End: 2}, {Start: 2, End: 4}, {Start: 4, End: 6}}},
		{"noise ignored", "abcdef", []int{4, 2, 2, 0, 6, 9, -1}, []types.Boundary{{Start: 0, End: 2}, {Start: 2, End: 4}, {Start: 4, End: 6}}},
		{"rune offsets", "你好世界", []int{2}, []types.Boundary{{Start: 0, End: 6}, {Start: 6, End: 12}}},
		{"empty text", "", []int{1}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BreakpointsToBoundaries(tt.text, tt.bps)
			assert.Equal(t, tt.want, got)
			if tt.text != "" {
				assert.True(t, types.CoversText(got, len(tt.text)))
			}
		})
	}
}
