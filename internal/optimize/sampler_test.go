package optimize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSampler_ShortDocument(t *testing.T) {
	s := NewSampler(0, 0)
	text := strings.Repeat("a", 4500)

	got := s.Sample(text)

	assert.Equal(t, text, got.Text)
	assert.Equal(t, 3, got.TotalPages)
	assert.Equal(t, 3, got.SampledPages)
	assert.InDelta(t, 100.0, got.SamplePercentage, 1e-9)
	assert.False(t, got.Truncated)
}

func TestSampler_LongDocument(t *testing.T) {
	s := NewSampler(30, 2000)
	text := strings.Repeat("x", 1_000_000)

	got := s.Sample(text)

	assert.Len(t, got.Text, 60_000)
	assert.Equal(t, 500, got.TotalPages)
	assert.Equal(t, 30, got.SampledPages)
	assert.InDelta(t, 6.0, got.SamplePercentage, 1e-9)
	assert.True(t, got.Truncated)
}

func TestSampler_CutsAtLineBreakAndRuneBoundary(t *testing.T) {
	s := NewSampler(2, 10)
	text := "标题一\n第一段内容很长很长\n第二段\n更多内容更多内容更多内容"

	got := s.Sample(text)

	assert.True(t, got.Truncated)
	assert.True(t, strings.HasSuffix(got.Text, "\n"))
	assert.True(t, strings.HasPrefix(text, got.Text))
	assert.Less(t, got.SamplePercentage, 100.0)
}

func TestSampler_Empty(t *testing.T) {
	assert.Equal(t, Sample{}, NewSampler(1, 1).Sample(""))
}
