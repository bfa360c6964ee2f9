package pattern

import (
	"unicode"
	"unicode/utf8"

	"github.com/dshills/semchunk/pkg/types"
)

// IsBoundaryClear reports whether [start, end) begins and ends on sentence
// edges. A boundary that cuts through a word is never clear.
func IsBoundaryClear(text string, start, end int) bool {
	if start < 0 || end > len(text) || start >= end {
		return false
	}
	return startClear(text, start) && endClear(text, start, end)
}

// IsBoundaryClear is the method form used by strategies holding a Matcher.
func (m *Matcher) IsBoundaryClear(text string, start, end int) bool {
	return IsBoundaryClear(text, start, end)
}

// Classify marks each boundary as clear or not.
func Classify(text string, bounds []types.Boundary) []bool {
	out := make([]bool, len(bounds))
	for i, b := range bounds {
		out[i] = IsBoundaryClear(text, b.Start, b.End)
	}
	return out
}

func startClear(text string, start int) bool {
	if start == 0 {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:start])
	next, _ := utf8.DecodeRuneInString(text[start:])
	if isWordRune(prev) && isWordRune(next) {
		return false
	}
	for i := start; i > 0; {
		r, size := utf8.DecodeLastRuneInString(text[:i])
		if isNewline(r) {
			return true
		}
		if !unicode.IsSpace(r) {
			return isTerminal(r) || closesSentence(text[:i])
		}
		i -= size
	}
	return true
}

func endClear(text string, start, end int) bool {
	if end == len(text) {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:end])
	next, _ := utf8.DecodeRuneInString(text[end:])
	if isWordRune(prev) && isWordRune(next) {
		return false
	}
	// trailing whitespace belongs to the boundary; step back to the content
	e := end
	for e > start {
		r, size := utf8.DecodeLastRuneInString(text[start:e])
		if !unicode.IsSpace(r) {
			break
		}
		if isNewline(r) {
			return true
		}
		e -= size
	}
	if e == start {
		return true
	}
	last, _ := utf8.DecodeLastRuneInString(text[start:e])
	if isTerminal(last) || closesSentence(text[start:e]) {
		return true
	}
	after, _ := utf8.DecodeRuneInString(text[e:])
	return isNewline(after) || unicode.IsSpace(after) || isTerminal(after)
}

// closesSentence reports whether s ends with a closing quote or bracket that
// directly follows terminal punctuation, as in `He said "stop."`.
func closesSentence(s string) bool {
	r, size := utf8.DecodeLastRuneInString(s)
	switch r {
	case '"', '\'', '”', '’', ')', '）', '」', '』', '】', '》':
	default:
		return false
	}
	before, _ := utf8.DecodeLastRuneInString(s[:len(s)-size])
	return isTerminal(before)
}
