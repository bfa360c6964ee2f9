package semantic

import (
	"regexp"
	"strings"
)

// Sentence is a contiguous span of the source text. Text is trimmed; Start and
// End cover the untrimmed span, so consecutive sentences tile the input.
type Sentence struct {
	Text  string
	Start int
	End   int
}

// sentenceEnd matches a sentence terminator together with trailing closers
// and whitespace. Latin terminators need whitespace (or the end of text)
// after them so "3.14" and "e.g" stay intact; CJK terminators do not.
var sentenceEnd = regexp.MustCompile(`[.!?]+["'”’)\]]*(?:\s+|$)|[。！？；]+["'”’」』）]*\s*|\n\s*\n\s*`)

// SplitSentences cuts text after every sentence terminator and blank line.
func SplitSentences(text string) []Sentence {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var out []Sentence
	prev := 0
	add := func(end int) {
		if end <= prev {
			return
		}
		s := text[prev:end]
		if strings.TrimSpace(s) == "" && len(out) > 0 {
			// whitespace tail joins the previous sentence
			out[len(out)-1].End = end
		} else {
			out = append(out, Sentence{Text: strings.TrimSpace(s), Start: prev, End: end})
		}
		prev = end
	}
	for _, m := range sentenceEnd.FindAllStringIndex(text, -1) {
		add(m[1])
	}
	add(len(text))
	if len(out) > 0 && out[0].Text == "" && len(out) > 1 {
		out[1].Start = out[0].Start
		out = out[1:]
	}
	return out
}

// combine joins every sentence with buffer neighbours on each side.
func combine(sents []Sentence, buffer int) []string {
	out := make([]string, len(sents))
	for i := range sents {
		lo := max(0, i-buffer)
		hi := min(len(sents), i+buffer+1)
		parts := make([]string, 0, hi-lo)
		for _, s := range sents[lo:hi] {
			parts = append(parts, s.Text)
		}
		out[i] = strings.Join(parts, " ")
	}
	return out
}
