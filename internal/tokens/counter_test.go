package tokens

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEncoder struct {
	mu    sync.Mutex
	calls int
}

func (c *countingEncoder) Encode(text string) int {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return len(text)
}

func TestEstimator_Encode(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "single char rounds up", text: "a", want: 1},
		{name: "exact multiple", text: "abcdefgh", want: 2},
		{name: "partial token", text: "abcdefghi", want: 3},
		{name: "cjk counts per rune", text: "文档分块", want: 4},
		{name: "mixed", text: "文档 chunk", want: 2 + 2},
	}

	e := Estimator{CharsPerToken: 4}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Encode(tt.text))
		})
	}
}

func TestEstimator_DefaultCharsPerToken(t *testing.T) {
	assert.Equal(t, 1, Estimator{}.Encode("abcd"))
}

func TestMemoCounter_Memoizes(t *testing.T) {
	enc := &countingEncoder{}
	c := NewMemoCounter(enc, 16)

	assert.Equal(t, 5, c.Count("hello"))
	assert.Equal(t, 5, c.Count("hello"))
	assert.Equal(t, 5, c.Count("world"))

	assert.Equal(t, 2, enc.calls)
	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, 2, stats.Size)
}

func TestMemoCounter_EmptyTextSkipsEncoder(t *testing.T) {
	enc := &countingEncoder{}
	c := NewMemoCounter(enc, 16)

	assert.Equal(t, 0, c.Count(""))
	assert.Equal(t, 0, enc.calls)
}

func TestMemoCounter_EvictionDoesNotChangeResults(t *testing.T) {
	enc := &countingEncoder{}
	c := NewMemoCounter(enc, 2)

	for _, s := range []string{"a", "bb", "ccc", "a", "bb"} {
		assert.Equal(t, len(s), c.Count(s))
	}
	assert.LessOrEqual(t, c.Stats().Size, 2)
}

func TestMemoCounter_CountBatchPreservesOrder(t *testing.T) {
	c := NewMemoCounter(Estimator{CharsPerToken: 4}, 0)

	got := c.CountBatch([]string{"abcd", "", "abcdefgh", "a"})
	assert.Equal(t, []int{1, 0, 2, 1}, got)
}

func TestMemoCounter_ConcurrentUse(t *testing.T) {
	c := NewMemoCounter(Estimator{CharsPerToken: 4}, 8)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, 3, c.Count("ten chars!"))
			}
		}()
	}
	wg.Wait()
}

func TestMemoCounter_Purge(t *testing.T) {
	c := NewMemoCounter(Estimator{}, 4)
	c.Count("abc")
	require.Equal(t, 1, c.Stats().Size)

	c.Purge()
	assert.Equal(t, 0, c.Stats().Size)
}

func TestNew_Estimate(t *testing.T) {
	c, err := New(EncodingEstimate, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Count("abcdefgh"))

	c, err = New("", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Count("abc"))
}
