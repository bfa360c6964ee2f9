package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	messages []llms.MessageContent
	opts     llms.CallOptions
	reply    string
	err      error
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, opt := range options {
		opt(&f.opts)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestLangChainChat(t *testing.T) {
	m := &fakeModel{reply: "answer"}
	c, err := NewLangChainClient("fake", m)
	require.NoError(t, err)

	reply, err := c.Chat(context.Background(), ChatRequest{Prompt: "q", System: "sys", Temperature: 0.3, MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, "answer", reply)

	require.Len(t, m.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, m.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, m.messages[1].Role)
	assert.InDelta(t, 0.3, m.opts.Temperature, 1e-9)
	assert.Equal(t, 64, m.opts.MaxTokens)
	assert.Equal(t, "fake", c.Name())
}

func TestLangChainChatWithoutSystem(t *testing.T) {
	m := &fakeModel{reply: "x"}
	c, err := NewLangChainClient("fake", m)
	require.NoError(t, err)

	_, err = c.Chat(context.Background(), ChatRequest{Prompt: "q"})
	require.NoError(t, err)
	require.Len(t, m.messages, 1)
	assert.Equal(t, DefaultMaxTokens, m.opts.MaxTokens)
}

func TestLangChainChatErrors(t *testing.T) {
	c, err := NewLangChainClient("fake", &fakeModel{err: errors.New("connection refused")})
	require.NoError(t, err)
	_, err = c.Chat(context.Background(), ChatRequest{Prompt: "q"})
	assert.ErrorIs(t, err, ErrUnavailable)

	c, err = NewLangChainClient("fake", &fakeModel{reply: "  "})
	require.NoError(t, err)
	_, err = c.Chat(context.Background(), ChatRequest{Prompt: "q"})
	assert.ErrorIs(t, err, ErrEmptyReply)

	_, err = NewLangChainClient("fake", nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}
