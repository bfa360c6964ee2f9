package pattern

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/dshills/semchunk/pkg/types"
)

var (
	// "Q1:", "Question 3.", "问题2：", "题 4、"
	explicitQuestionRe = regexp.MustCompile(`^\s*(?:Q|Question|问题|问|题)\s*\d{0,3}\s*[.:：、)）]`)
	// "1.", "12)", "3、", "（4）"
	numberedRe = regexp.MustCompile(`^\s*(?:\d{1,3}[.、)）]|[（(]\d{1,3}[)）])\s*\S`)
	// multiple-choice options "A.", "b)", "C、"
	optionRe = regexp.MustCompile(`^\s*[A-Ha-h][.、)）]\s*\S`)
	// "A:" but not the option "A."
	answerRe  = regexp.MustCompile(`^\s*(?:A\s*\d{0,3}\s*[:：]|(?:Ans|Answer|答案|答|解析|Solution)\s*\d{0,3}\s*[.:：])`)
	quizRe    = regexp.MustCompile(`(?i)^\s*#*\s*(?:quiz|exercises?|review questions|practice questions|self[- ]check|练习|习题|思考题|测验|自测)`)
	headingRe = regexp.MustCompile(`^\s*#{1,6}\s`)
)

// QASpan locates one detected question. Answer is empty (Start == End) when
// no answer marker follows the question.
type QASpan struct {
	Span     types.Boundary
	Question types.Boundary
	Answer   types.Boundary
}

type line struct {
	start, end int // end excludes the newline
	text       string
}

func splitLines(text string) []line {
	var out []line
	start := 0
	for start <= len(text) {
		i := strings.IndexByte(text[start:], '\n')
		if i < 0 {
			if start < len(text) {
				out = append(out, line{start: start, end: len(text), text: text[start:]})
			}
			break
		}
		out = append(out, line{start: start, end: start + i, text: text[start : start+i]})
		start += i + 1
	}
	return out
}

func endsWithQuestionMark(s string) bool {
	s = strings.TrimRightFunc(s, unicode.IsSpace)
	return strings.HasSuffix(s, "?") || strings.HasSuffix(s, "？")
}

// FindQuestions detects question-like spans: explicit question markers,
// numbered lines ending in a question mark, numbered lines followed by
// multiple-choice options, and numbered lines inside a quiz section.
// Each span runs to the start of the next question or the end of text.
func FindQuestions(text string) []QASpan {
	lines := splitLines(text)
	var starts []int
	inQuiz := false
	for i, ln := range lines {
		switch {
		case quizRe.MatchString(ln.text):
			inQuiz = true
			continue
		case headingRe.MatchString(ln.text):
			inQuiz = false
			continue
		}
		if isQuestionLine(lines, i, inQuiz) {
			starts = append(starts, i)
		}
	}
	if len(starts) == 0 {
		return nil
	}

	out := make([]QASpan, 0, len(starts))
	for k, li := range starts {
		begin := lines[li].start
		end := len(text)
		if k+1 < len(starts) {
			end = lines[starts[k+1]].start
		}
		q := QASpan{Span: types.Boundary{Start: begin, End: end}}
		answerAt := end
		for j := li + 1; j < len(lines) && lines[j].start < end; j++ {
			if answerRe.MatchString(lines[j].text) {
				answerAt = lines[j].start
				break
			}
		}
		q.Question = TrimBoundary(text, types.Boundary{Start: begin, End: answerAt})
		if answerAt < end {
			ans := types.Boundary{Start: answerAt, End: end}
			if loc := answerRe.FindStringIndex(text[answerAt:end]); loc != nil {
				ans.Start = answerAt + loc[1]
			}
			q.Answer = TrimBoundary(text, ans)
		} else {
			q.Answer = types.Boundary{Start: end, End: end}
		}
		out = append(out, q)
	}
	return out
}

func isQuestionLine(lines []line, i int, inQuiz bool) bool {
	s := lines[i].text
	if answerRe.MatchString(s) || (optionRe.MatchString(s) && !numberedRe.MatchString(s)) {
		return false
	}
	if explicitQuestionRe.MatchString(s) {
		return true
	}
	if !numberedRe.MatchString(s) {
		return false
	}
	if inQuiz || endsWithQuestionMark(s) {
		return true
	}
	// numbered stem followed by options
	for j := i + 1; j < len(lines); j++ {
		if strings.TrimSpace(lines[j].text) == "" {
			continue
		}
		return optionRe.MatchString(lines[j].text)
	}
	return false
}

// QAMarkerCount returns the number of questions FindQuestions detects.
func QAMarkerCount(text string) int {
	return len(FindQuestions(text))
}

// TrimBoundary shrinks b to exclude leading and trailing whitespace.
func TrimBoundary(text string, b types.Boundary) types.Boundary {
	s := text[b.Start:b.End]
	left := len(s) - len(strings.TrimLeftFunc(s, unicode.IsSpace))
	right := len(strings.TrimRightFunc(s, unicode.IsSpace))
	if right <= left {
		return types.Boundary{Start: b.Start + left, End: b.Start + left}
	}
	return types.Boundary{Start: b.Start + left, End: b.Start + right}
}
