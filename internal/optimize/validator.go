package optimize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/semchunk/internal/tokens"
	"github.com/dshills/semchunk/pkg/types"
)

const (
	DefaultMinTokens = 10
	DefaultMaxTokens = 2000
)

// Validation failures
var (
	ErrBlankChunk    = errors.New("chunk text is blank")
	ErrTooFewTokens  = errors.New("chunk below minimum token count")
	ErrTooManyTokens = errors.New("chunk above maximum token count")
)

// Validator is the quality gate every emitted chunk must pass.
type Validator struct {
	MinTokens int
	MaxTokens int
	counter   tokens.Counter
}

// NewValidator creates a validator; non-positive bounds use the defaults.
func NewValidator(counter tokens.Counter, minTokens, maxTokens int) *Validator {
	if counter == nil {
		counter = tokens.NewMemoCounter(nil, 0)
	}
	if minTokens <= 0 {
		minTokens = DefaultMinTokens
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Validator{MinTokens: minTokens, MaxTokens: maxTokens, counter: counter}
}

// Check returns nil when text is acceptable, or the reason it is not.
func (v *Validator) Check(text string) error {
	_, err := v.check(text)
	return err
}

func (v *Validator) check(text string) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, ErrBlankChunk
	}
	n := v.counter.Count(text)
	switch {
	case n < v.MinTokens:
		return n, fmt.Errorf("%w: %d < %d", ErrTooFewTokens, n, v.MinTokens)
	case n > v.MaxTokens:
		return n, fmt.Errorf("%w: %d > %d", ErrTooManyTokens, n, v.MaxTokens)
	}
	return n, nil
}

// ValidChunk checks c and records its token count.
func (v *Validator) ValidChunk(c *types.Chunk) bool {
	n, err := v.check(c.Text)
	c.TokenCount = n
	return err == nil
}

// FilterChildren keeps the valid children, in order.
func (v *Validator) FilterChildren(children []types.ChildChunk) []types.ChildChunk {
	out := children[:0:0]
	for i := range children {
		if v.ValidChunk(&children[i].Chunk) {
			out = append(out, children[i])
		}
	}
	return out
}

// ValidParent requires valid parent text and at least one child.
func (v *Validator) ValidParent(p *types.ParentChunk) bool {
	n, err := v.check(p.Text)
	p.TokenCount = n
	return err == nil && len(p.Children) > 0
}
