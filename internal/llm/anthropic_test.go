package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicChat(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"ok\":"},{"type":"text","text":"true}"}]}`))
	}))
	defer srv.Close()

	c, err := NewAnthropicClient("test-key", "", WithAnthropicURL(srv.URL))
	require.NoError(t, err)
	defer c.Close()

	reply, err := c.Chat(context.Background(), ChatRequest{Prompt: "hello", System: "be brief", Temperature: 0.2})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, reply)

	assert.Equal(t, DefaultAnthropicModel, got.Model)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
	assert.Equal(t, "be brief", got.System)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "hello", got.Messages[0].Content)
}

func TestAnthropicRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"done"}]}`))
	}))
	defer srv.Close()

	c, err := NewAnthropicClient("k", "m", WithAnthropicURL(srv.URL), WithAnthropicRetry(3, time.Millisecond))
	require.NoError(t, err)

	reply, err := c.Chat(context.Background(), ChatRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "done", reply)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAnthropicClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"bad"}}`))
	}))
	defer srv.Close()

	c, err := NewAnthropicClient("k", "m", WithAnthropicURL(srv.URL), WithAnthropicRetry(3, time.Millisecond))
	require.NoError(t, err)

	_, err = c.Chat(context.Background(), ChatRequest{Prompt: "p"})
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestAnthropicRetryExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := NewAnthropicClient("k", "m", WithAnthropicURL(srv.URL), WithAnthropicRetry(2, time.Millisecond))
	require.NoError(t, err)

	_, err = c.Chat(context.Background(), ChatRequest{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
}

func TestAnthropicEmptyReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer srv.Close()

	c, err := NewAnthropicClient("k", "m", WithAnthropicURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Chat(context.Background(), ChatRequest{Prompt: "p"})
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestNewAnthropicClientRequiresKey(t *testing.T) {
	_, err := NewAnthropicClient("", "m")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestAnthropicRetryStopsOnCancel(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		cancel()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewAnthropicClient("k", "m", WithAnthropicURL(srv.URL), WithAnthropicRetry(5, time.Second))
	require.NoError(t, err)

	_, err = c.Chat(ctx, ChatRequest{Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
