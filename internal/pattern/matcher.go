package pattern

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dshills/semchunk/internal/tokens"
	"github.com/dshills/semchunk/pkg/types"
)

const (
	// DefaultChunkSize is the token budget per boundary
	DefaultChunkSize = 500

	// DefaultFixedSeparator is tried before separator selection
	DefaultFixedSeparator = "\n\n"

	// DefaultMinFragmentChars is the shortest sentence fragment kept on its own
	DefaultMinFragmentChars = 10

	// seedDensity is the tokens-per-byte guess used before anything was counted
	seedDensity = 0.25
)

// Config holds pattern matcher settings.
type Config struct {
	ChunkSize int
	// FixedSeparator is split on first when present in the text. Empty disables it.
	FixedSeparator   string
	MinFragmentChars int
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		ChunkSize:        DefaultChunkSize,
		FixedSeparator:   DefaultFixedSeparator,
		MinFragmentChars: DefaultMinFragmentChars,
	}
}

// Matcher finds chunk boundaries without any model call.
// It is safe for concurrent use if its Counter is.
type Matcher struct {
	counter tokens.Counter
	cfg     Config
}

// New creates a matcher. A nil counter uses the memoized character estimator.
func New(counter tokens.Counter, cfg Config) *Matcher {
	if counter == nil {
		counter = tokens.NewMemoCounter(nil, 0)
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.MinFragmentChars < 0 {
		cfg.MinFragmentChars = 0
	}
	return &Matcher{counter: counter, cfg: cfg}
}

// Config returns the matcher settings.
func (m *Matcher) Config() Config {
	return m.cfg
}

// Counter returns the token counter used for budgeting.
func (m *Matcher) Counter() tokens.Counter {
	return m.counter
}

// SelectBestSplitter picks the most significant separator available in text.
func (m *Matcher) SelectBestSplitter(text string) Splitter {
	return selectSplitter(text, nil)
}

// FindBoundaries returns contiguous boundaries covering text, each within the
// token budget unless it is a single character.
func (m *Matcher) FindBoundaries(text string) []types.Boundary {
	if text == "" {
		return nil
	}
	r := m.newMerger(text)
	var out []types.Boundary
	if sep := m.cfg.FixedSeparator; sep != "" && strings.Contains(text, sep) {
		for _, p := range splitOn(text, sep) {
			out = append(out, r.chunk(p.Start, p.End, nil)...)
		}
	} else {
		out = r.chunk(0, len(text), nil)
	}
	return absorbBlank(text, out, r.fitsBoundary)
}

// ChunkRecursive splits text on progressively finer separators and merges
// neighbouring pieces up to the token budget. The fixed separator is ignored.
func (m *Matcher) ChunkRecursive(text string) []types.Boundary {
	if text == "" {
		return nil
	}
	r := m.newMerger(text)
	return absorbBlank(text, r.chunk(0, len(text), nil), r.fitsBoundary)
}

// SplitBySentences cuts text at its best separator and folds fragments shorter
// than MinFragmentChars into a neighbour. No token budget is applied.
func (m *Matcher) SplitBySentences(text string, policy Policy) []types.Boundary {
	if text == "" {
		return nil
	}
	spans := split(text, selectSplitter(text, nil), policy)
	return mergeShort(text, spans, m.cfg.MinFragmentChars)
}

// SplitParagraphs cuts text at blank lines. The blank lines stay with the
// preceding paragraph.
func SplitParagraphs(text string) []types.Boundary {
	var cuts []int
	inRun, newlines := false, 0
	for i, r := range text {
		if unicode.IsSpace(r) {
			if !inRun {
				inRun, newlines = true, 0
			}
			if r == '\n' {
				newlines++
			}
			continue
		}
		if inRun && newlines >= 2 {
			cuts = append(cuts, i)
		}
		inRun = false
	}
	return absorbBlank(text, spansFromCuts(text, cuts), nil)
}

// merger carries the per-call token density estimate.
type merger struct {
	m      *Matcher
	text   string
	budget int
	tokens int
	bytes  int
}

func (m *Matcher) newMerger(text string) *merger {
	return &merger{m: m, text: text, budget: m.cfg.ChunkSize}
}

func (r *merger) density() float64 {
	if r.tokens == 0 || r.bytes == 0 {
		return seedDensity
	}
	return float64(r.tokens) / float64(r.bytes)
}

// fits reports whether text[start:end] is within budget. Tokens never span
// less than one byte, so short ranges skip the counter.
func (r *merger) fits(start, end int) bool {
	if end-start <= r.budget {
		return true
	}
	n := r.m.counter.Count(r.text[start:end])
	r.tokens += n
	r.bytes += end - start
	return n <= r.budget
}

func (r *merger) fitsBoundary(b types.Boundary) bool {
	return r.fits(b.Start, b.End)
}

func (r *merger) chunk(start, end int, floor *Splitter) []types.Boundary {
	if r.fits(start, end) {
		return []types.Boundary{{Start: start, End: end}}
	}
	s := selectSplitter(r.text[start:end], floor)
	spans := split(r.text[start:end], s, AttachPrev)
	over := make([]bool, len(spans))
	for i := range spans {
		spans[i] = spans[i].Shift(start)
		over[i] = !r.fits(spans[i].Start, spans[i].End)
	}

	out := make([]types.Boundary, 0, len(spans))
	for i := 0; i < len(spans); {
		if over[i] {
			if s.Kind == KindChar {
				// indivisible
				out = append(out, spans[i])
			} else {
				out = append(out, r.chunk(spans[i].Start, spans[i].End, &s)...)
			}
			i++
			continue
		}
		limit := i + 1
		for limit < len(spans) && !over[limit] {
			limit++
		}
		j := r.mergeEnd(spans, i, limit)
		out = append(out, types.Boundary{Start: spans[i].Start, End: spans[j-1].End})
		i = j
	}
	return out
}

// mergeEnd returns the largest j in (i, limit] such that spans[i:j] fits the
// budget. The density estimate turns the budget into a byte offset, a search
// over span end offsets (the prefix sums of their lengths) turns that into a
// first guess, and galloping plus bisection settle the exact answer.
func (r *merger) mergeEnd(spans []types.Boundary, i, limit int) int {
	start := spans[i].Start
	byteBudget := int(float64(r.budget) / r.density())
	guess := i + sort.Search(limit-i, func(k int) bool {
		return spans[i+k].End-start > byteBudget
	})

	lo, hi := i+1, limit
	j := min(max(guess, lo), hi)
	if r.fits(start, spans[j-1].End) {
		lo = j
		for step := 1; lo < hi; step *= 2 {
			probe := min(lo+step, hi)
			if !r.fits(start, spans[probe-1].End) {
				hi = probe - 1
				break
			}
			lo = probe
		}
	} else {
		hi = j - 1
		for step := 1; lo < hi; step *= 2 {
			probe := max(hi-step, lo)
			if r.fits(start, spans[probe-1].End) {
				lo = probe
				break
			}
			hi = probe - 1
		}
	}
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if r.fits(start, spans[mid-1].End) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// absorbBlank folds whitespace-only spans into a neighbour. With fits set, a
// fold that would break the budget is skipped and the blank span stays alone.
func absorbBlank(text string, bounds []types.Boundary, fits func(types.Boundary) bool) []types.Boundary {
	return fold(text, bounds, func(s string) bool {
		return strings.TrimSpace(s) == ""
	}, fits)
}

func mergeShort(text string, spans []types.Boundary, minChars int) []types.Boundary {
	if minChars <= 0 {
		return spans
	}
	return fold(text, spans, func(s string) bool {
		return utf8.RuneCountInString(strings.TrimSpace(s)) < minChars
	}, nil)
}

// fold merges every span matching weak into the previous span, or into the
// next one when the previous is missing or full. A nil fits accepts every
// merge. Coverage is preserved.
func fold(text string, spans []types.Boundary, weak func(string) bool, fits func(types.Boundary) bool) []types.Boundary {
	if fits == nil {
		fits = func(types.Boundary) bool { return true }
	}
	out := make([]types.Boundary, 0, len(spans))
	carry := -1
	for _, b := range spans {
		if carry >= 0 {
			if grown := (types.Boundary{Start: carry, End: b.End}); fits(grown) {
				b.Start = carry
			} else {
				out = append(out, types.Boundary{Start: carry, End: b.Start})
			}
			carry = -1
		}
		if weak(text[b.Start:b.End]) {
			if n := len(out); n > 0 && fits(types.Boundary{Start: out[n-1].Start, End: b.End}) {
				out[n-1].End = b.End
			} else {
				carry = b.Start
			}
			continue
		}
		out = append(out, b)
	}
	if carry >= 0 {
		out = append(out, types.Boundary{Start: carry, End: len(text)})
	}
	return out
}
