package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	// DefaultAnthropicURL is the Messages API endpoint.
	DefaultAnthropicURL = "https://api.anthropic.com/v1/messages"
	// DefaultAnthropicModel is used when no model is configured.
	DefaultAnthropicModel = "claude-3-5-haiku-latest"
	// EnvAnthropicAPIKey holds the API key for the Anthropic provider.
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"

	anthropicVersion = "2023-06-01"
	maxReplyBytes    = 1 << 20
)

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// AnthropicClient calls the Anthropic Messages API.
type AnthropicClient struct {
	apiKey     string
	model      string
	url        string
	maxRetries int
	baseDelay  time.Duration
	httpClient *http.Client
}

// AnthropicOption customizes an AnthropicClient.
type AnthropicOption func(*AnthropicClient)

// WithAnthropicURL points the client at another endpoint.
func WithAnthropicURL(url string) AnthropicOption {
	return func(c *AnthropicClient) {
		if url != "" {
			c.url = url
		}
	}
}

// WithAnthropicRetry sets the attempt count and the first backoff delay.
func WithAnthropicRetry(attempts int, baseDelay time.Duration) AnthropicOption {
	return func(c *AnthropicClient) {
		if attempts > 0 {
			c.maxRetries = attempts
		}
		if baseDelay > 0 {
			c.baseDelay = baseDelay
		}
	}
}

// WithHTTPTimeout bounds a single HTTP round trip.
func WithHTTPTimeout(d time.Duration) AnthropicOption {
	return func(c *AnthropicClient) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func NewAnthropicClient(apiKey, model string, opts ...AnthropicOption) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrUnavailable, EnvAnthropicAPIKey)
	}
	if model == "" {
		model = DefaultAnthropicModel
	}
	c := &AnthropicClient{
		apiKey:     apiKey,
		model:      model,
		url:        DefaultAnthropicURL,
		maxRetries: 3,
		baseDelay:  time.Second,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Chat sends one user message and returns the concatenated text blocks of
// the reply. 429 and 5xx responses are retried with jittered exponential
// backoff.
func (c *AnthropicClient) Chat(ctx context.Context, req ChatRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	body, err := json.Marshal(anthropicRequest{
		Model:       model,
		MaxTokens:   maxTokensOrDefault(req.MaxTokens),
		Temperature: req.Temperature,
		System:      req.System,
		Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var text string
	err = retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		var sendErr error
		text, sendErr = c.send(ctx, body)
		if IsRetryable(sendErr) {
			return retry.RetryableError(sendErr)
		}
		return sendErr
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// backoff doubles from baseDelay, capped at 30s, with 25% jitter. maxRetries
// counts attempts, the first call included.
func (c *AnthropicClient) backoff() retry.Backoff {
	b := retry.NewExponential(c.baseDelay)
	b = retry.WithCappedDuration(30*time.Second, b)
	b = retry.WithJitterPercent(25, b)
	return retry.WithMaxRetries(uint64(max(c.maxRetries-1, 0)), b)
}

func (c *AnthropicClient) send(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: anthropic api: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic api status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("anthropic error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}

	var out bytes.Buffer
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", ErrEmptyReply
	}
	return out.String(), nil
}

// backoff returns the delay after attempt n (0-indexed) with up to 50% jitter.
func (c *AnthropicClient) Name() string {
	return ProviderAnthropic
}

// Close releases resources.
func (c *AnthropicClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
