// Package embeddertest provides an in-memory Embedder for tests.
package embeddertest

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dshills/semchunk/internal/embedder"
)

// VectorFunc maps a text to its (unnormalized) embedding.
type VectorFunc func(text string) []float32

// Fake is a deterministic Embedder. Calls counts GenerateBatch invocations.
type Fake struct {
	Vector      VectorFunc
	Dim         int
	Unavailable bool
	// Err, when set, is returned by every call
	Err error

	calls atomic.Int64
	mu    sync.Mutex
	texts []string
}

// Constant returns a fake that embeds every text to the same vector.
func Constant(dim int) *Fake {
	return &Fake{
		Dim: dim,
		Vector: func(string) []float32 {
			v := make([]float32, dim)
			for i := range v {
				v[i] = 1
			}
			return v
		},
	}
}

// Topics returns a fake whose vectors are one-hot on the first keyword found
// in the text, so texts about the same keyword are identical and texts about
// different keywords are orthogonal. Texts without a keyword share the last axis.
func Topics(keywords ...string) *Fake {
	dim := len(keywords) + 1
	return &Fake{
		Dim: dim,
		Vector: func(text string) []float32 {
			v := make([]float32, dim)
			lower := strings.ToLower(text)
			for i, k := range keywords {
				if strings.Contains(lower, strings.ToLower(k)) {
					v[i] = 1
					return v
				}
			}
			v[dim-1] = 1
			return v
		},
	}
}

// Calls returns the number of batch calls made.
func (f *Fake) Calls() int {
	return int(f.calls.Load())
}

// Texts returns every text embedded so far, in call order.
func (f *Fake) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

func (f *Fake) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	resp, err := f.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: []string{req.Text}, TextType: req.TextType})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings[0], nil
}

func (f *Fake) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Unavailable {
		return nil, embedder.ErrNoProviderEnabled
	}
	if err := embedder.ValidateBatchRequest(req); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.texts = append(f.texts, req.Texts...)
	f.mu.Unlock()

	out := make([]*embedder.Embedding, len(req.Texts))
	for i, t := range req.Texts {
		vec := embedder.NormalizeVector(f.Vector(t))
		out[i] = &embedder.Embedding{Vector: vec, Dimension: len(vec), Provider: "fake", Model: "fake"}
	}
	return &embedder.BatchEmbeddingResponse{Embeddings: out, Provider: "fake", Model: "fake"}, nil
}

func (f *Fake) Available() bool  { return !f.Unavailable }
func (f *Fake) Dimension() int   { return f.Dim }
func (f *Fake) Provider() string { return "fake" }
func (f *Fake) Model() string    { return "fake" }
func (f *Fake) Close() error     { return nil }

var _ embedder.Embedder = (*Fake)(nil)
