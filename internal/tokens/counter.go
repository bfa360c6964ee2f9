package tokens

import (
	"fmt"
	"strings"
	"sync/atomic"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkoukk/tiktoken-go"
)

const (
	// DefaultCharsPerToken is the heuristic used when no tokenizer is configured
	DefaultCharsPerToken = 4

	// DefaultMemoSize bounds the number of memoized texts
	DefaultMemoSize = 50000

	// DefaultEncoding is the tiktoken encoding used when none is configured
	DefaultEncoding = "cl100k_base"

	// EncodingEstimate selects the character-based Estimator
	EncodingEstimate = "estimate"
)

// Counter counts tokens. Implementations must be deterministic.
type Counter interface {
	Count(text string) int
	CountBatch(texts []string) []int
}

// Encoder performs a raw, unmemoized token count.
type Encoder interface {
	Encode(text string) int
}

// Estimator approximates token counts from character counts.
// Han, Hiragana, Katakana and Hangul runes count as one token each.
type Estimator struct {
	CharsPerToken int
}

// Encode returns ceil(other runes / CharsPerToken) plus one token per CJK rune.
func (e Estimator) Encode(text string) int {
	if text == "" {
		return 0
	}
	cpt := e.CharsPerToken
	if cpt <= 0 {
		cpt = DefaultCharsPerToken
	}
	cjk, other := 0, 0
	for _, r := range text {
		if isCJK(r) {
			cjk++
		} else {
			other++
		}
	}
	return cjk + (other+cpt-1)/cpt
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}

// TiktokenEncoder counts BPE tokens with tiktoken-go.
type TiktokenEncoder struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenEncoder resolves an encoding by name, falling back to a model name
// lookup and then to DefaultEncoding.
func NewTiktokenEncoder(modelOrEncoding string) (*TiktokenEncoder, error) {
	name := strings.TrimSpace(modelOrEncoding)
	if name == "" {
		name = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		enc, err = tiktoken.EncodingForModel(name)
		if err != nil {
			enc, err = tiktoken.GetEncoding(DefaultEncoding)
			if err != nil {
				return nil, fmt.Errorf("get default encoding: %w", err)
			}
		}
	}
	return &TiktokenEncoder{enc: enc}, nil
}

func (t *TiktokenEncoder) Encode(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

// MemoCounter memoizes an Encoder with a bounded LRU cache.
// The same substrings are counted repeatedly by pattern matching, overlap
// assembly and validation, so cache hits dominate on long documents.
type MemoCounter struct {
	enc    Encoder
	cache  *lru.Cache[string, int]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemoCounter wraps enc with an LRU of at most size entries.
func NewMemoCounter(enc Encoder, size int) *MemoCounter {
	if enc == nil {
		enc = Estimator{CharsPerToken: DefaultCharsPerToken}
	}
	if size <= 0 {
		size = DefaultMemoSize
	}
	cache, err := lru.New[string, int](size)
	if err != nil {
		// Should never happen with positive size
		cache, _ = lru.New[string, int](DefaultMemoSize)
	}
	return &MemoCounter{enc: enc, cache: cache}
}

// New builds a memoized counter for the named encoding. "estimate" (or an
// empty name) selects the character Estimator; anything else is resolved
// through tiktoken.
func New(encoding string, memoSize int) (*MemoCounter, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", EncodingEstimate:
		return NewMemoCounter(Estimator{CharsPerToken: DefaultCharsPerToken}, memoSize), nil
	}
	enc, err := NewTiktokenEncoder(encoding)
	if err != nil {
		return nil, err
	}
	return NewMemoCounter(enc, memoSize), nil
}

// Count returns the memoized token count of text.
func (m *MemoCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	if n, ok := m.cache.Get(text); ok {
		m.hits.Add(1)
		return n
	}
	m.misses.Add(1)
	n := m.enc.Encode(text)
	m.cache.Add(text, n)
	return n
}

// CountBatch counts every text, preserving order and length.
func (m *MemoCounter) CountBatch(texts []string) []int {
	out := make([]int, len(texts))
	for i, t := range texts {
		out[i] = m.Count(t)
	}
	return out
}

// Stats reports cache hits, misses and current size.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int
}

func (m *MemoCounter) Stats() Stats {
	return Stats{Hits: m.hits.Load(), Misses: m.misses.Load(), Size: m.cache.Len()}
}

// Purge empties the memo cache.
func (m *MemoCounter) Purge() {
	m.cache.Purge()
}
