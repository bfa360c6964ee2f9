package pattern

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/semchunk/internal/tokens"
	"github.com/dshills/semchunk/pkg/types"
)

func newTestMatcher(chunkSize int, fixed string) *Matcher {
	counter := tokens.NewMemoCounter(tokens.Estimator{CharsPerToken: 4}, 0)
	return New(counter, Config{ChunkSize: chunkSize, FixedSeparator: fixed, MinFragmentChars: DefaultMinFragmentChars})
}

func TestFindBoundaries_ParagraphBreak(t *testing.T) {
	text := "Paragraph one sentence one. Sentence two.\n\nParagraph two."
	m := newTestMatcher(500, DefaultFixedSeparator)

	bounds := m.FindBoundaries(text)

	require.Len(t, bounds, 2)
	assert.Equal(t, "Paragraph one sentence one. Sentence two.\n\n", bounds[0].Text(text))
	assert.Equal(t, "Paragraph two.", bounds[1].Text(text))
	for _, b := range bounds {
		assert.True(t, m.IsBoundaryClear(text, b.Start, b.End), "boundary %v", b)
	}
}

func TestChunkRecursive_TokenBudget(t *testing.T) {
	text := "Semantic chunking splits long documents into parts"
	require.Len(t, text, 50)
	m := newTestMatcher(5, "")

	bounds := m.ChunkRecursive(text)

	require.GreaterOrEqual(t, len(bounds), 2)
	assert.True(t, types.CoversText(bounds, len(text)))
	var rebuilt strings.Builder
	for _, b := range bounds {
		assert.LessOrEqual(t, m.Counter().Count(b.Text(text)), 5, "boundary %q", b.Text(text))
		rebuilt.WriteString(b.Text(text))
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestChunkRecursive_CharacterFallback(t *testing.T) {
	text := strings.Repeat("abcdefghij", 5)
	m := newTestMatcher(5, "")

	bounds := m.ChunkRecursive(text)

	require.Len(t, bounds, 3)
	assert.Equal(t, []types.Boundary{{Start: 0, End: 20}, {Start: 20, End: 40}, {Start: 40, End: 50}}, bounds)
	// every cut falls inside a word
	assert.False(t, IsBoundaryClear(text, bounds[1].Start, bounds[1].End))
}

func TestFindBoundaries_Properties(t *testing.T) {
	inputs := []string{
		"x",
		"   leading blanks then words",
		"第一章 总则。本法适用于所有合同。当事人应当遵循公平原则，确定各方的权利和义务。\n\n第二章 合同的订立。当事人订立合同，可以采取要约、承诺方式。",
		strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40),
		strings.Repeat("line one\nline two\n\n\n", 25) + "tail",
		"col1\tcol2\t\tcol3\n" + strings.Repeat("word ", 200),
		strings.Repeat("长文本没有任何标点符号", 30),
	}
	for _, size := range []int{3, 8, 40, 500} {
		m := newTestMatcher(size, DefaultFixedSeparator)
		for _, text := range inputs {
			bounds := m.FindBoundaries(text)
			require.NotEmpty(t, bounds)
			assert.True(t, types.CoversText(bounds, len(text)), "size=%d text=%.20q", size, text)
			for i, b := range bounds {
				assert.Less(t, b.Start, b.End)
				if i > 0 {
					assert.Equal(t, bounds[i-1].End, b.Start)
				}
				piece := b.Text(text)
				if utf8.RuneCountInString(piece) > 1 {
					assert.LessOrEqual(t, m.Counter().Count(piece), size, "size=%d boundary %d %q", size, i, piece)
				}
				if strings.TrimSpace(piece) != "" {
					continue
				}
				// a blank boundary survives only when no neighbour can take it
				if i > 0 {
					assert.Greater(t, m.Counter().Count(text[bounds[i-1].Start:b.End]), size)
				}
				if i+1 < len(bounds) {
					assert.Greater(t, m.Counter().Count(text[b.Start:bounds[i+1].End]), size)
				}
			}
		}
	}
}

func TestFindBoundaries_BudgetWithoutBlankRuns(t *testing.T) {
	text := strings.Repeat("Alpha beta gamma delta. Epsilon zeta eta theta! ", 30)
	m := newTestMatcher(12, "")

	for _, b := range m.FindBoundaries(text) {
		assert.LessOrEqual(t, m.Counter().Count(b.Text(text)), 12)
	}
}

func TestFindBoundaries_BlankRunsRespectBudget(t *testing.T) {
	text := "mnop qrst\n\nabcdefghijkl\n\n\n\n\n"
	tests := []struct {
		name  string
		split func(*Matcher) []types.Boundary
	}{
		{"find boundaries", func(m *Matcher) []types.Boundary { return m.FindBoundaries(text) }},
		{"recursive", func(m *Matcher) []types.Boundary { return m.ChunkRecursive(text) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMatcher(4, DefaultFixedSeparator)

			bounds := tt.split(m)

			require.True(t, types.CoversText(bounds, len(text)))
			for _, b := range bounds {
				assert.LessOrEqual(t, m.Counter().Count(b.Text(text)), 4, "%q", b.Text(text))
			}
		})
	}
}

func TestFold(t *testing.T) {
	text := "aaaa  bbbb"
	spans := []types.Boundary{{Start: 0, End: 4}, {Start: 4, End: 6}, {Start: 6, End: 10}}
	blank := func(s string) bool { return strings.TrimSpace(s) == "" }

	assert.Equal(t, []types.Boundary{{Start: 0, End: 6}, {Start: 6, End: 10}}, fold(text, spans, blank, nil))

	upTo5 := func(b types.Boundary) bool { return b.Len() <= 5 }
	assert.Equal(t, spans, fold(text, spans, blank, upTo5))

	upTo6 := func(b types.Boundary) bool { return b.Len() <= 6 }
	assert.Equal(t, []types.Boundary{{Start: 0, End: 6}, {Start: 6, End: 10}}, fold(text, spans, blank, upTo6))

	lead := "  bbbb"
	assert.Equal(t, []types.Boundary{{Start: 0, End: 6}},
		fold(lead, []types.Boundary{{Start: 0, End: 2}, {Start: 2, End: 6}}, blank, upTo6))
}

func TestFindBoundaries_FixedSeparatorKeepsSmallParagraphs(t *testing.T) {
	text := "One.\n\nTwo.\n\nThree."
	m := newTestMatcher(500, DefaultFixedSeparator)

	bounds := m.FindBoundaries(text)

	require.Len(t, bounds, 3)
	assert.Equal(t, "Three.", bounds[2].Text(text))
}

func TestFindBoundaries_Empty(t *testing.T) {
	m := newTestMatcher(10, DefaultFixedSeparator)
	assert.Nil(t, m.FindBoundaries(""))

	bounds := m.FindBoundaries("   \n\n  ")
	assert.Equal(t, []types.Boundary{{Start: 0, End: 7}}, bounds)
}

func TestSelectBestSplitter(t *testing.T) {
	m := newTestMatcher(10, "")
	tests := []struct {
		name string
		text string
		want Splitter
	}{
		{"longest newline run", "a\n\nb\nc", Splitter{Kind: KindNewline, Run: 2}},
		{"tab run", "a\tb\t\tc", Splitter{Kind: KindTab, Run: 2}},
		{"whitespace run", "one two.  three", Splitter{Kind: KindSpace, Run: 2}},
		{"space after punctuation", "Hello. World today", Splitter{Kind: KindSpace, Run: 1, AfterPunct: true}},
		{"plain space", "hello world today", Splitter{Kind: KindSpace, Run: 1}},
		{"cjk sentence mark", "甲乙。丙丁，戊", Splitter{Kind: KindPunct, Mark: "。"}},
		{"clause mark", "甲乙，丙丁", Splitter{Kind: KindPunct, Mark: "，"}},
		{"character level", "abcdef", Splitter{Kind: KindChar}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.SelectBestSplitter(tt.text))
		})
	}
}

func TestSplitterFiner(t *testing.T) {
	nl2 := Splitter{Kind: KindNewline, Run: 2}
	nl1 := Splitter{Kind: KindNewline, Run: 1}
	after := Splitter{Kind: KindSpace, Run: 1, AfterPunct: true}
	plain := Splitter{Kind: KindSpace, Run: 1}
	period := Splitter{Kind: KindPunct, Mark: "."}
	comma := Splitter{Kind: KindPunct, Mark: ","}
	char := Splitter{Kind: KindChar}

	order := []Splitter{nl2, nl1, after, plain, period, comma, char}
	for i := 1; i < len(order); i++ {
		assert.True(t, order[i].finer(order[i-1]), "%v should be finer than %v", order[i], order[i-1])
		assert.False(t, order[i-1].finer(order[i]))
	}
	assert.False(t, char.finer(char))
}

func TestSplitBySentences_Policy(t *testing.T) {
	text := "First sentence here. Second sentence here."
	m := newTestMatcher(500, "")

	prev := m.SplitBySentences(text, AttachPrev)
	next := m.SplitBySentences(text, AttachNext)

	require.Len(t, prev, 2)
	require.Len(t, next, 2)
	assert.Equal(t, "First sentence here. ", prev[0].Text(text))
	assert.Equal(t, "First sentence here.", next[0].Text(text))
	assert.Equal(t, " Second sentence here.", next[1].Text(text))
}

func TestSplitBySentences_MergesShortFragments(t *testing.T) {
	text := "Hi. Ok. This is a longer sentence."
	counter := tokens.NewMemoCounter(nil, 0)
	m := New(counter, Config{ChunkSize: 100, MinFragmentChars: 5})

	bounds := m.SplitBySentences(text, AttachPrev)

	require.Len(t, bounds, 2)
	assert.Equal(t, "Hi. Ok. ", bounds[0].Text(text))
	assert.Equal(t, "This is a longer sentence.", bounds[1].Text(text))
}

func TestSplitParagraphs(t *testing.T) {
	text := "\n\nFirst para\nstill first.\n\n  \nSecond para.\r\n\r\nThird."

	bounds := SplitParagraphs(text)

	require.Len(t, bounds, 3)
	assert.True(t, types.CoversText(bounds, len(text)))
	assert.Equal(t, "First para\nstill first.", strings.TrimSpace(bounds[0].Text(text)))
	assert.Equal(t, "Second para.", strings.TrimSpace(bounds[1].Text(text)))
	assert.Equal(t, "Third.", bounds[2].Text(text))
}
