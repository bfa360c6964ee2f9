package llm

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable is returned when no chat provider is configured or the
	// provider cannot be reached.
	ErrUnavailable = errors.New("llm provider unavailable")
	// ErrNoJSON means a reply did not contain a well-formed JSON object or array.
	ErrNoJSON = errors.New("no json in llm reply")
	// ErrEmptyReply means the provider answered without any text content.
	ErrEmptyReply = errors.New("empty llm reply")
)

// Default request parameters.
const (
	DefaultTemperature = 0.1
	DefaultMaxTokens   = 2048
)

// ChatRequest is a single-turn prompt.
type ChatRequest struct {
	Prompt      string
	System      string
	Model       string // overrides the client's model when set
	Temperature float64
	MaxTokens   int
}

// Provider is a text-generation backend.
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (string, error)
	Name() string
	Close() error
}

func maxTokensOrDefault(n int) int {
	if n <= 0 {
		return DefaultMaxTokens
	}
	return n
}
