package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	r := New()

	r.ChunksEmitted("general", 3)
	r.ChunksEmitted("general", 2)
	r.ChunksEmitted("qa", 0)
	r.LLMCall(StageStructure)
	r.LLMCall(StageBoundary)
	r.LLMCall(StageBoundary)
	r.LLMCallsSaved(4)
	r.EmbeddingBatch()
	r.Fallback(StageBoundary, "unavailable")
	r.CacheLookup(true)
	r.CacheLookup(false)
	r.CacheLookup(false)
	r.Failure("empty_input")
	r.ObserveChunk("general", 20*time.Millisecond)

	assert.Equal(t, 5.0, testutil.ToFloat64(r.chunks.WithLabelValues("general")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.chunks.WithLabelValues("qa")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.llmCalls.WithLabelValues(StageBoundary)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.llmCalls.WithLabelValues(StageStructure)))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.llmCallsSaved))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.embeddingCalls))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fallbacks.WithLabelValues(StageBoundary, "unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.failures.WithLabelValues("empty_input")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.chunkDuration))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ChunksEmitted("general", 1)
		r.LLMCall(StageQA)
		r.LLMCallsSaved(1)
		r.EmbeddingBatch()
		r.Fallback(StageEmbedding, "error")
		r.CacheLookup(true)
		r.Failure("x")
		r.ObserveChunk("general", time.Second)
	})
	assert.Nil(t, r.Registry())

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.LLMCall(StageStructure)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `semchunk_llm_calls_total{stage="structure"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestRecordersAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.Failure("x")
	assert.Equal(t, 1.0, testutil.ToFloat64(a.failures.WithLabelValues("x")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.failures.WithLabelValues("x")))
}
