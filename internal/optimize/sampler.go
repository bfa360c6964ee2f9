package optimize

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultMaxPages     = 30
	DefaultCharsPerPage = 2000
)

// Sampler keeps the first pages of a document for structure analysis.
type Sampler struct {
	MaxPages     int
	CharsPerPage int
}

// Sample is a document prefix plus the numbers needed to report how much of
// the document it represents.
type Sample struct {
	Text             string  `json:"-"`
	TotalPages       int     `json:"total_pages"`
	SampledPages     int     `json:"sampled_pages"`
	SamplePercentage float64 `json:"sample_percentage"`
	Truncated        bool    `json:"truncated"`
}

// NewSampler creates a sampler; non-positive values use the defaults.
func NewSampler(maxPages, charsPerPage int) *Sampler {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	if charsPerPage <= 0 {
		charsPerPage = DefaultCharsPerPage
	}
	return &Sampler{MaxPages: maxPages, CharsPerPage: charsPerPage}
}

// Sample returns at most MaxPages*CharsPerPage characters from the start of
// text. A cut prefers the last line break of the final page so headings are
// not split.
func (s *Sampler) Sample(text string) Sample {
	total := utf8.RuneCountInString(text)
	if total == 0 {
		return Sample{}
	}
	totalPages := (total + s.CharsPerPage - 1) / s.CharsPerPage
	limit := s.MaxPages * s.CharsPerPage
	if total <= limit {
		return Sample{
			Text:             text,
			TotalPages:       totalPages,
			SampledPages:     totalPages,
			SamplePercentage: 100,
		}
	}

	cut := byteOffset(text, limit)
	lastPage := byteOffset(text, limit-s.CharsPerPage)
	if nl := strings.LastIndexByte(text[lastPage:cut], '\n'); nl > 0 {
		cut = lastPage + nl + 1
	}
	sampled := text[:cut]
	return Sample{
		Text:             sampled,
		TotalPages:       totalPages,
		SampledPages:     s.MaxPages,
		SamplePercentage: 100 * float64(utf8.RuneCountInString(sampled)) / float64(total),
		Truncated:        true,
	}
}

// byteOffset returns the byte index of the n-th rune of s, or len(s).
func byteOffset(s string, n int) int {
	if n <= 0 {
		return 0
	}
	i := 0
	for pos := range s {
		if i == n {
			return pos
		}
		i++
	}
	return len(s)
}
