// Package llmtest provides a scripted llm.Provider for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/dshills/semchunk/internal/llm"
)

// ReplyFunc builds a reply for a request.
type ReplyFunc func(req llm.ChatRequest) (string, error)

// Stub is an llm.Provider that answers from Replies in order, then from
// Reply, then with Err. It records every request.
type Stub struct {
	Replies []string
	Reply   ReplyFunc
	Err     error

	mu       sync.Mutex
	requests []llm.ChatRequest
}

// Static returns a stub that always answers reply.
func Static(reply string) *Stub {
	return &Stub{Reply: func(llm.ChatRequest) (string, error) { return reply, nil }}
}

// Failing returns a stub whose every call fails with err.
func Failing(err error) *Stub {
	return &Stub{Err: err}
}

func (s *Stub) Chat(ctx context.Context, req llm.ChatRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	n := len(s.requests)
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	switch {
	case n < len(s.Replies):
		return s.Replies[n], nil
	case s.Reply != nil:
		return s.Reply(req)
	case s.Err != nil:
		return "", s.Err
	default:
		return "", llm.ErrEmptyReply
	}
}

// Calls returns the number of Chat invocations.
func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Requests returns a copy of the recorded requests.
func (s *Stub) Requests() []llm.ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.ChatRequest(nil), s.requests...)
}

func (s *Stub) Name() string { return "stub" }
func (s *Stub) Close() error { return nil }
