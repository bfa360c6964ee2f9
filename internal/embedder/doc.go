// Package embedder generates L2-normalized vector embeddings for text using
// various providers.
//
// Supported providers are Jina AI and OpenAI (both over the OpenAI-compatible
// /v1/embeddings protocol), Ollama through langchaingo, and an offline local
// provider based on hashed word features. All of them share the LRU Cache
// and report Available so callers can choose a fallback before spending a
// request.
//
// # Basic Usage
//
//	emb, err := embedder.New(embedder.Config{Provider: "jina", APIKey: key, CacheSize: 10000})
//	if err != nil {
//	    return err
//	}
//	defer emb.Close()
//
//	resp, err := emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{
//	    Texts:    sentences,
//	    TextType: embedder.TextTypeDocument,
//	})
//
// Embeddings[i] of the response always belongs to Texts[i]. Cached texts are
// served locally and only the misses are sent to the provider.
//
// # Provider Selection
//
// With Provider set to "" or "auto" the provider is chosen from the
// environment:
//
//  1. If SEMCHUNK_EMBEDDING_PROVIDER is set, use it
//  2. Else if JINA_API_KEY is set, use Jina AI
//  3. Else if OPENAI_API_KEY is set, use OpenAI
//  4. Else fall back to the local provider
//
// The provider "none" disables embeddings; New then returns ErrNoProviderEnabled.
//
// # Error Handling
//
// HTTP providers retry 5xx and 429 responses with exponential backoff. Other
// client errors fail immediately. Every provider failure wraps
// ErrProviderFailed.
package embedder
