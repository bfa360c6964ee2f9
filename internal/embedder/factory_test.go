package embedder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		jinaKey  string
		oaiKey   string
		want     string
	}{
		{"explicit provider wins", "OpenAI", "jina", "", ProviderOpenAI},
		{"jina key", "", "k", "k2", ProviderJina},
		{"openai key", "", "", "k", ProviderOpenAI},
		{"local fallback", "", "", "", ProviderLocal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvEmbeddingProvider, tt.provider)
			t.Setenv(EnvJinaAPIKey, tt.jinaKey)
			t.Setenv(EnvOpenAIAPIKey, tt.oaiKey)
			assert.Equal(t, tt.want, DetectProvider())
		})
	}
}

func TestNew(t *testing.T) {
	t.Run("local", func(t *testing.T) {
		e, err := New(Config{Provider: "local", CacheSize: 10})
		require.NoError(t, err)
		assert.Equal(t, ProviderLocal, e.Provider())
	})

	t.Run("jina with key", func(t *testing.T) {
		e, err := New(Config{Provider: "jina", APIKey: "k", Model: "jina-embeddings-v2-base-en"})
		require.NoError(t, err)
		assert.Equal(t, "jina-embeddings-v2-base-en", e.Model())
	})

	t.Run("auto falls back to local", func(t *testing.T) {
		t.Setenv(EnvEmbeddingProvider, "")
		t.Setenv(EnvJinaAPIKey, "")
		t.Setenv(EnvOpenAIAPIKey, "")
		e, err := New(Config{Provider: "auto"})
		require.NoError(t, err)
		assert.Equal(t, ProviderLocal, e.Provider())
	})

	t.Run("none disables embeddings", func(t *testing.T) {
		_, err := New(Config{Provider: ProviderNone})
		assert.ErrorIs(t, err, ErrNoProviderEnabled)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := New(Config{Provider: "word2vec"})
		assert.ErrorIs(t, err, ErrUnsupportedModel)
	})
}

func TestProbe(t *testing.T) {
	local, err := NewLocalProvider(nil)
	require.NoError(t, err)

	dim, err := Probe(context.Background(), local)
	require.NoError(t, err)
	assert.Equal(t, LocalDimension, dim)

	_, err = Probe(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoProviderEnabled)
}
