package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/semchunk/pkg/types"
)

func TestTOCMarkdownHeadings(t *testing.T) {
	src := "# Guide\n\nIntro text.\n\n## Install\n\nSteps.\n\n```\n# not a heading\n```\n\n## Usage\n\nMore.\n"
	toc := NewTOCDetector().Detect(src, nil)

	require.Len(t, toc, 3)
	assert.Equal(t, types.TOCEntry{Title: "Guide", Level: 1, Offset: 0}, toc[0])
	assert.Equal(t, "Install", toc[1].Title)
	assert.Equal(t, 2, toc[1].Level)
	assert.Equal(t, "## Install", src[toc[1].Offset:toc[1].Offset+10])
	assert.Equal(t, "Usage", toc[2].Title)
}

func TestTOCNumberedHeadings(t *testing.T) {
	src := "1 Introduction\nSome words here.\n1.1 Background\nMore words.\n2 Methods\nThe end of it all.\n"
	toc := NewTOCDetector().Detect(src, nil)

	require.Len(t, toc, 3)
	assert.Equal(t, "1 Introduction", toc[0].Title)
	assert.Equal(t, 1, toc[0].Level)
	assert.Equal(t, "1.1 Background", toc[1].Title)
	assert.Equal(t, 2, toc[1].Level)
	assert.Equal(t, 1, toc[2].Level)
	assert.Equal(t, 2, types.TOCDepth(toc))
}

func TestTOCChineseHeadings(t *testing.T) {
	src := "第一章 总则\n内容。\n第一节 目的\n内容。\n第二章 附则\n一、说明\n（一）范围\n"
	toc := NewTOCDetector().Detect(src, nil)

	titles := make([]string, len(toc))
	for i, e := range toc {
		titles[i] = e.Title
	}
	assert.Equal(t, []string{"第一章 总则", "第一节 目的", "第二章 附则", "一、说明", "（一）范围"}, titles)
	assert.Equal(t, 1, toc[0].Level)
	assert.Equal(t, 2, toc[1].Level)
	assert.Equal(t, 2, toc[4].Level)
}

func TestTOCRejectsSentences(t *testing.T) {
	src := "1. Open the lid.\n2. Pour the water.\n"
	assert.Empty(t, NewTOCDetector().Detect(src, nil))
}

func TestTOCOutlineWins(t *testing.T) {
	src := "# Ignored\n\nPreface\n\nPart A\ntext\n\nPart B\ntext\n"
	outline := []types.TOCEntry{
		{Title: "Part A", Level: 1},
		{Title: "Missing", Level: 2},
		{Title: "Part B"},
	}
	toc := NewTOCDetector().Detect(src, outline)

	require.Len(t, toc, 3)
	assert.Equal(t, "Part A", src[toc[0].Offset:toc[0].Offset+6])
	assert.Equal(t, -1, toc[1].Offset)
	assert.Equal(t, 1, toc[2].Level, "missing level defaults to 1")
	assert.Greater(t, toc[2].Offset, toc[0].Offset)
}
