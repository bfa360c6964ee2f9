package pattern

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dshills/semchunk/pkg/types"
)

// SplitKind orders separator families from coarsest to finest.
type SplitKind int

const (
	KindNewline SplitKind = iota
	KindTab
	KindSpace
	KindPunct
	KindChar
)

func (k SplitKind) String() string {
	switch k {
	case KindNewline:
		return "newline"
	case KindTab:
		return "tab"
	case KindSpace:
		return "space"
	case KindPunct:
		return "punct"
	default:
		return "char"
	}
}

// Policy decides which side of a cut the delimiter stays on.
type Policy int

const (
	// AttachPrev keeps the delimiter at the end of the preceding piece
	AttachPrev Policy = iota
	// AttachNext moves the delimiter to the start of the following piece
	AttachNext
)

// Splitter describes one separator choice.
type Splitter struct {
	Kind SplitKind
	// Run is the minimum run length (in runes) for newline, tab and space kinds
	Run int
	// Mark is the punctuation mark for KindPunct
	Mark string
	// AfterPunct restricts a single-space split to whitespace that follows
	// sentence-terminal punctuation
	AfterPunct bool
}

// punctuation is the fixed priority list used once whitespace is exhausted.
var punctuation = []string{
	// sentence endings
	"。", "！", "？", ".", "!", "?",
	// clause endings
	"；", ";", "，", ",", "：", ":", "、",
	// closing brackets
	"）", ")", "】", "]", "》", "」", "』",
	// closing quotes
	"”", "’", "\"", "'",
}

const terminalMarks = "。！？.!?；;…"

func isTerminal(r rune) bool {
	return strings.ContainsRune(terminalMarks, r)
}

func isNewline(r rune) bool {
	return r == '\n' || r == '\r'
}

func isTab(r rune) bool {
	return r == '\t'
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func punctIndex(mark string) int {
	for i, p := range punctuation {
		if p == mark {
			return i
		}
	}
	return len(punctuation)
}

// rank orders splitters; a greater rank is a strictly finer separator.
func (s Splitter) rank() [3]int {
	switch s.Kind {
	case KindNewline, KindTab:
		return [3]int{int(s.Kind), -s.Run, 0}
	case KindSpace:
		plain := 1
		if s.AfterPunct {
			plain = 0
		}
		return [3]int{int(KindSpace), -s.Run, plain}
	case KindPunct:
		return [3]int{int(KindPunct), punctIndex(s.Mark), 0}
	default:
		return [3]int{int(KindChar), 0, 0}
	}
}

// finer reports whether s splits at a strictly finer granularity than o.
func (s Splitter) finer(o Splitter) bool {
	a, b := s.rank(), o.rank()
	for i := range a {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return false
}

// candidates lists every splitter applicable to text in priority order.
func candidates(text string) []Splitter {
	var out []Splitter
	for _, r := range distinctRuns(text, isNewline) {
		out = append(out, Splitter{Kind: KindNewline, Run: r})
	}
	for _, r := range distinctRuns(text, isTab) {
		out = append(out, Splitter{Kind: KindTab, Run: r})
	}
	spaceRuns := distinctRuns(text, unicode.IsSpace)
	for _, r := range spaceRuns {
		if r > 1 {
			out = append(out, Splitter{Kind: KindSpace, Run: r})
		}
	}
	if len(spaceRuns) > 0 {
		out = append(out,
			Splitter{Kind: KindSpace, Run: 1, AfterPunct: true},
			Splitter{Kind: KindSpace, Run: 1},
		)
	}
	for _, p := range punctuation {
		if strings.Contains(text, p) {
			out = append(out, Splitter{Kind: KindPunct, Mark: p})
		}
	}
	return append(out, Splitter{Kind: KindChar})
}

// distinctRuns returns the distinct lengths of maximal runs of class, longest first.
func distinctRuns(text string, class func(rune) bool) []int {
	seen := make(map[int]struct{})
	run := 0
	for _, r := range text {
		if class(r) {
			run++
			continue
		}
		if run > 0 {
			seen[run] = struct{}{}
		}
		run = 0
	}
	if run > 0 {
		seen[run] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// selectSplitter returns the first candidate finer than floor (if any) that
// actually cuts text into at least two pieces. Character level always qualifies.
func selectSplitter(text string, floor *Splitter) Splitter {
	for _, c := range candidates(text) {
		if floor != nil && !c.finer(*floor) {
			continue
		}
		if c.Kind == KindChar || len(split(text, c, AttachPrev)) > 1 {
			return c
		}
	}
	return Splitter{Kind: KindChar}
}

// split cuts text with s. The returned spans are contiguous, non-empty and
// cover text exactly.
func split(text string, s Splitter, policy Policy) []types.Boundary {
	var cuts []int
	switch s.Kind {
	case KindNewline:
		cuts = runCuts(text, isNewline, s.Run, false, policy)
	case KindTab:
		cuts = runCuts(text, isTab, s.Run, false, policy)
	case KindSpace:
		cuts = runCuts(text, unicode.IsSpace, s.Run, s.AfterPunct, policy)
	case KindPunct:
		cuts = markCuts(text, s.Mark, policy)
	default:
		cuts = runeCuts(text)
	}
	return spansFromCuts(text, cuts)
}

func runCuts(text string, class func(rune) bool, minRun int, afterPunct bool, policy Policy) []int {
	var cuts []int
	runStart, run := -1, 0
	var before rune
	var last rune
	flush := func(end int) {
		if run >= minRun && (!afterPunct || isTerminal(before)) {
			if policy == AttachPrev {
				cuts = append(cuts, end)
			} else {
				cuts = append(cuts, runStart)
			}
		}
		runStart, run = -1, 0
	}
	for i, r := range text {
		if class(r) {
			if run == 0 {
				runStart = i
				before = last
			}
			run++
		} else if run > 0 {
			flush(i)
		}
		last = r
	}
	if run > 0 {
		flush(len(text))
	}
	return cuts
}

func markCuts(text, mark string, policy Policy) []int {
	var cuts []int
	pos := 0
	for {
		idx := strings.Index(text[pos:], mark)
		if idx < 0 {
			return cuts
		}
		start := pos + idx
		end := start + len(mark)
		// a run of the same mark ("...", "!!") is one delimiter
		for strings.HasPrefix(text[end:], mark) {
			end += len(mark)
		}
		if policy == AttachPrev {
			cuts = append(cuts, end)
		} else {
			cuts = append(cuts, start)
		}
		pos = end
	}
}

func runeCuts(text string) []int {
	cuts := make([]int, 0, utf8.RuneCountInString(text))
	for i := range text {
		cuts = append(cuts, i)
	}
	return cuts
}

func spansFromCuts(text string, cuts []int) []types.Boundary {
	spans := make([]types.Boundary, 0, len(cuts)+1)
	prev := 0
	for _, c := range cuts {
		if c <= prev || c >= len(text) {
			continue
		}
		spans = append(spans, types.Boundary{Start: prev, End: c})
		prev = c
	}
	if prev < len(text) {
		spans = append(spans, types.Boundary{Start: prev, End: len(text)})
	}
	return spans
}

// splitOn cuts text after every occurrence (or run of occurrences) of sep.
func splitOn(text, sep string) []types.Boundary {
	return spansFromCuts(text, markCuts(text, sep, AttachPrev))
}
