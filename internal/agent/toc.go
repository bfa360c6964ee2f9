package agent

import (
	"bytes"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dshills/semchunk/pkg/types"
)

const maxHeadingRunes = 80

type headingPattern struct {
	re    *regexp.Regexp
	level int // 0 means derive from the section number depth
}

var headingPatterns = []headingPattern{
	{regexp.MustCompile(`(?m)^[ \t]*第[一二三四五六七八九十百千零〇两\d]+[章篇部].*$`), 1},
	{regexp.MustCompile(`(?m)^[ \t]*第[一二三四五六七八九十百千零〇两\d]+节.*$`), 2},
	{regexp.MustCompile(`(?mi)^[ \t]*(?:chapter|part)[ \t]+(?:\d+|[ivxlc]+)\b.*$`), 1},
	{regexp.MustCompile(`(?mi)^[ \t]*section[ \t]+\d+(?:\.\d+)*\b.*$`), 2},
	{regexp.MustCompile(`(?m)^[ \t]*[一二三四五六七八九十]+、[ \t]*\S.*$`), 1},
	{regexp.MustCompile(`(?m)^[ \t]*（[一二三四五六七八九十]+）[ \t]*\S.*$`), 2},
	{regexp.MustCompile(`(?m)^[ \t]*\d+(?:\.\d+){0,3}\.?[ \t]+\S.*$`), 0},
}

var sectionNumberRe = regexp.MustCompile(`^\d+(?:\.\d+)*`)

// TOCDetector extracts a table of contents from document text.
type TOCDetector struct {
	md goldmark.Markdown
}

func NewTOCDetector() *TOCDetector {
	return &TOCDetector{md: goldmark.New()}
}

// Detect returns headings in document order. An external outline wins and
// is located in src where possible; otherwise markdown headings are used,
// then numbered and chapter-style heading lines.
func (d *TOCDetector) Detect(src string, outline []types.TOCEntry) []types.TOCEntry {
	if len(outline) > 0 {
		return Locate(src, outline)
	}
	if toc := d.markdownHeadings(src); len(toc) > 0 {
		return toc
	}
	return patternHeadings(src)
}

// Locate copies outline and fills each Offset with the start of the line on
// which its title next appears in src, or -1 when it does not appear.
func Locate(src string, outline []types.TOCEntry) []types.TOCEntry {
	out := make([]types.TOCEntry, len(outline))
	cursor := 0
	for i, e := range outline {
		out[i] = types.TOCEntry{Title: strings.TrimSpace(e.Title), Level: e.Level, Offset: -1}
		if out[i].Level <= 0 {
			out[i].Level = 1
		}
		if out[i].Title == "" {
			continue
		}
		if idx := strings.Index(src[cursor:], out[i].Title); idx >= 0 {
			pos := cursor + idx
			out[i].Offset = lineStart(src, pos)
			cursor = pos + len(out[i].Title)
		}
	}
	return out
}

func (d *TOCDetector) markdownHeadings(src string) []types.TOCEntry {
	source := []byte(src)
	doc := d.md.Parser().Parse(text.NewReader(source))

	var toc []types.TOCEntry
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Lines().Len() == 0 {
			continue
		}
		title := headingText(h, source)
		if title == "" {
			continue
		}
		toc = append(toc, types.TOCEntry{
			Title:  title,
			Level:  h.Level,
			Offset: lineStart(src, h.Lines().At(0).Start),
		})
	}
	return toc
}

func headingText(h *ast.Heading, src []byte) string {
	var buf bytes.Buffer
	lines := h.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	return strings.TrimSpace(buf.String())
}

func patternHeadings(src string) []types.TOCEntry {
	seen := make(map[int]bool)
	var toc []types.TOCEntry
	for _, p := range headingPatterns {
		for _, loc := range p.re.FindAllStringIndex(src, -1) {
			title := strings.TrimSpace(src[loc[0]:loc[1]])
			start := loc[0] + strings.Index(src[loc[0]:loc[1]], title)
			if seen[start] || !looksLikeHeading(title) {
				continue
			}
			level := p.level
			if level == 0 {
				level = strings.Count(sectionNumberRe.FindString(title), ".") + 1
			}
			seen[start] = true
			toc = append(toc, types.TOCEntry{Title: title, Level: level, Offset: start})
		}
	}
	sort.Slice(toc, func(i, j int) bool { return toc[i].Offset < toc[j].Offset })
	return toc
}

// looksLikeHeading rejects long lines and lines that end like a sentence.
func looksLikeHeading(title string) bool {
	if title == "" || utf8.RuneCountInString(title) > maxHeadingRunes {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(title)
	return !strings.ContainsRune(".,;:!?。，；：！？…", last)
}

func lineStart(src string, pos int) int {
	if pos > len(src) {
		pos = len(src)
	}
	return strings.LastIndexByte(src[:pos], '\n') + 1
}
