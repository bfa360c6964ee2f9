// Package metrics exposes Prometheus counters for the chunking pipeline.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "semchunk"

// Stage labels.
const (
	StageStructure = "structure"
	StageBoundary  = "boundary"
	StageEmbedding = "embedding"
	StageQA        = "qa"
)

// Recorder owns a private registry so several instances can coexist in
// tests.
type Recorder struct {
	registry *prometheus.Registry

	chunks         *prometheus.CounterVec
	llmCalls       *prometheus.CounterVec
	llmCallsSaved  prometheus.Counter
	fallbacks      *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	failures       *prometheus.CounterVec
	chunkDuration  *prometheus.HistogramVec
	embeddingCalls prometheus.Counter
}

// New registers all collectors plus the Go and process collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_emitted_total",
			Help:      "Chunks returned to callers by structure type.",
		}, []string{"structure_type"}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "LLM requests issued by pipeline stage.",
		}, []string{"stage"}),
		llmCallsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_segments_prefiltered_total",
			Help:      "Unclear segments resolved by embedding confidence without an LLM call.",
		}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Degraded code paths taken by stage and reason.",
		}, []string{"stage", "reason"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "structure_cache_lookups_total",
			Help:      "Structure cache lookups by result.",
		}, []string{"result"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_failures_total",
			Help:      "Chunk requests that failed by error kind.",
		}, []string{"kind"}),
		chunkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_duration_seconds",
			Help:      "Wall time of a chunk request.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		}, []string{"structure_type"}),
		embeddingCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_batches_total",
			Help:      "Embedding batches sent to the provider.",
		}),
	}
	r.registry.MustRegister(
		r.chunks,
		r.llmCalls,
		r.llmCallsSaved,
		r.fallbacks,
		r.cacheLookups,
		r.failures,
		r.chunkDuration,
		r.embeddingCalls,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry returns the registry backing r.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) ChunksEmitted(structureType string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.chunks.WithLabelValues(structureType).Add(float64(n))
}

func (r *Recorder) LLMCall(stage string) {
	if r == nil {
		return
	}
	r.llmCalls.WithLabelValues(stage).Inc()
}

func (r *Recorder) LLMCallsSaved(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.llmCallsSaved.Add(float64(n))
}

func (r *Recorder) EmbeddingBatch() {
	if r == nil {
		return
	}
	r.embeddingCalls.Inc()
}

func (r *Recorder) Fallback(stage, reason string) {
	if r == nil {
		return
	}
	r.fallbacks.WithLabelValues(stage, reason).Inc()
}

func (r *Recorder) CacheLookup(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

func (r *Recorder) Failure(kind string) {
	if r == nil {
		return
	}
	r.failures.WithLabelValues(kind).Inc()
}

func (r *Recorder) ObserveChunk(structureType string, d time.Duration) {
	if r == nil {
		return
	}
	r.chunkDuration.WithLabelValues(structureType).Observe(d.Seconds())
}
