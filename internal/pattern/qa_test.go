package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/semchunk/pkg/types"
)

func TestFindQuestionsNumberedWithAnswers(t *testing.T) {
	text := "Review notes.\n\n" +
		"1. What is a chunk?\n" +
		"Answer: A slice of a document.\n\n" +
		"2. Why overlap chunks?\n" +
		"Answer: To keep context.\n"

	qs := FindQuestions(text)
	require.Len(t, qs, 2)

	assert.Equal(t, "1. What is a chunk?", qs[0].Question.Text(text))
	assert.Equal(t, "A slice of a document.", qs[0].Answer.Text(text))
	assert.Equal(t, "2. Why overlap chunks?", qs[1].Question.Text(text))
	assert.Equal(t, "To keep context.", qs[1].Answer.Text(text))

	// spans tile from the first question to the end
	assert.Equal(t, qs[0].Span.End, qs[1].Span.Start)
	assert.Equal(t, len(text), qs[1].Span.End)
	assert.Equal(t, "Review notes.\n\n", text[:qs[0].Span.Start])
}

func TestFindQuestionsMultipleChoice(t *testing.T) {
	text := "1. The capital of France is\n" +
		"A. Paris\n" +
		"B. Lyon\n" +
		"2. Water boils at\n" +
		"A. 90C\n" +
		"B. 100C\n" +
		"A: B\n"

	qs := FindQuestions(text)
	require.Len(t, qs, 2)
	assert.Contains(t, qs[0].Question.Text(text), "A. Paris")
	assert.Equal(t, qs[0].Answer.Start, qs[0].Answer.End, "no answer marker in the first block")
	assert.Equal(t, "B", qs[1].Answer.Text(text))
}

func TestFindQuestionsQuizSection(t *testing.T) {
	text := "# Lesson\n" +
		"1. Tokens are counted per chunk.\n" +
		"## Exercises\n" +
		"1. Explain sampling\n" +
		"2. Describe batching\n" +
		"# Appendix\n" +
		"1. Not a question here\n"

	qs := FindQuestions(text)
	require.Len(t, qs, 2)
	assert.Equal(t, "1. Explain sampling", qs[0].Question.Text(text))
	assert.Contains(t, qs[1].Question.Text(text), "2. Describe batching")
}

func TestFindQuestionsCJK(t *testing.T) {
	text := "问题1：什么是分块？\n答案：把文档切成片段。\n问题2：为什么需要重叠？\n答：保留上下文。"

	qs := FindQuestions(text)
	require.Len(t, qs, 2)
	assert.Equal(t, "问题1：什么是分块？", qs[0].Question.Text(text))
	assert.Equal(t, "把文档切成片段。", qs[0].Answer.Text(text))
	assert.Equal(t, "保留上下文。", qs[1].Answer.Text(text))
}

func TestFindQuestionsNone(t *testing.T) {
	assert.Empty(t, FindQuestions(""))
	assert.Empty(t, FindQuestions("Plain prose. Nothing to ask.\n\n1. A numbered step.\n2. Another step."))
	assert.Equal(t, 0, QAMarkerCount("Is this a question? Only inline."))
}

func TestTrimBoundary(t *testing.T) {
	text := "  hello \n"
	b := TrimBoundary(text, types.Boundary{Start: 0, End: len(text)})
	assert.Equal(t, "hello", b.Text(text))

	blank := TrimBoundary("   ", types.Boundary{Start: 0, End: 3})
	assert.Equal(t, 0, blank.Len())
}
