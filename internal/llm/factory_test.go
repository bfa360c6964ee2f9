package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectProvider(t *testing.T) {
	t.Setenv(EnvLLMProvider, "")
	t.Setenv(EnvAnthropicAPIKey, "")
	t.Setenv(EnvOpenAIAPIKey, "")
	assert.Equal(t, ProviderNone, DetectProvider())

	t.Setenv(EnvOpenAIAPIKey, "sk")
	assert.Equal(t, ProviderOpenAI, DetectProvider())

	t.Setenv(EnvAnthropicAPIKey, "ak")
	assert.Equal(t, ProviderAnthropic, DetectProvider())

	t.Setenv(EnvLLMProvider, "Ollama")
	assert.Equal(t, ProviderOllama, DetectProvider())
}

func TestNewProvider(t *testing.T) {
	t.Setenv(EnvAnthropicAPIKey, "")

	_, err := New(Config{Provider: ProviderNone})
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = New(Config{Provider: "bogus"})
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = New(Config{Provider: ProviderAnthropic})
	assert.ErrorIs(t, err, ErrUnavailable)

	p, err := New(Config{Provider: ProviderAnthropic, APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, p)

	p, err = New(Config{Provider: ProviderAnthropic, APIKey: "k", RequestsPerMinute: 60})
	require.NoError(t, err)
	assert.IsType(t, &RateLimited{}, p)
	assert.Equal(t, ProviderAnthropic, p.Name())
}
