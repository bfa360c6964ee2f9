package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/semchunk/internal/cache"
	"github.com/dshills/semchunk/internal/chunker"
	"github.com/dshills/semchunk/internal/config"
	"github.com/dshills/semchunk/internal/embedder"
	"github.com/dshills/semchunk/internal/llm"
	"github.com/dshills/semchunk/internal/logger"
	"github.com/dshills/semchunk/internal/metrics"
	"github.com/dshills/semchunk/internal/storage"
	"github.com/dshills/semchunk/internal/tokens"
)

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"log-level":          "log.level",
	"log-json":           "log.json",
	"embedding-provider": "embedding.provider",
	"llm-provider":       "llm.provider",
	"cache":              "cache.backend",
	"cache-path":         "cache.path",
	"redis-url":          "cache.url",
	"chunk-size":         "chunking.chunk_size",
	"chunk-overlap":      "chunking.chunk_overlap",
	"embedding-only":     "chunking.embedding_only",
	"concurrency":        "chunking.concurrency",
	"metrics-addr":       "metrics.addr",
}

// overrides collects the flags the user actually set.
func overrides(cmd *cobra.Command) (map[string]any, error) {
	out := make(map[string]any)
	for flag, key := range flagKeys {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		var (
			v   any
			err error
		)
		switch f.Value.Type() {
		case "bool":
			v, err = cmd.Flags().GetBool(flag)
		case "int":
			v, err = cmd.Flags().GetInt(flag)
		default:
			v = f.Value.String()
		}
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

// app holds the components shared by every command.
type app struct {
	cfg      *config.Config
	log      logger.Logger
	metrics  *metrics.Recorder
	counter  *tokens.MemoCounter
	embedder embedder.Embedder
	llm      llm.Provider
	chunker  *chunker.Chunker
}

// newApp loads configuration and wires the chunker. Unavailable providers
// are logged and left nil so the pipeline degrades instead of failing.
func newApp(cmd *cobra.Command) (*app, error) {
	ctx := cmd.Context()
	ov, err := overrides(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(ctx, ov)
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.Logger())
	a := &app{cfg: cfg, log: log, metrics: metrics.New()}

	a.counter, err = tokens.New(cfg.Tokens.Encoding, cfg.Tokens.MemoSize)
	if err != nil {
		return nil, fmt.Errorf("init token counter: %w", err)
	}

	a.embedder, err = embedder.New(cfg.Embedder())
	switch {
	case errors.Is(err, embedder.ErrNoProviderEnabled):
		a.embedder = nil
		log.Info("embeddings disabled")
	case err != nil:
		a.embedder = nil
		log.Warn("embedding provider unavailable", "error", err)
	default:
		log.Debug("embedding provider ready", "provider", a.embedder.Provider(), "model", a.embedder.Model())
	}

	a.llm, err = llm.New(cfg.ChatModel())
	switch {
	case errors.Is(err, llm.ErrUnavailable):
		log.Info("LLM disabled, using heuristics", "reason", err)
	case err != nil:
		log.Warn("LLM provider unavailable", "error", err)
	default:
		log.Debug("LLM provider ready", "provider", a.llm.Name())
	}

	store, err := storage.Open(ctx, cfg.Storage())
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open structure cache: %w", err)
	}

	a.chunker, err = chunker.New(chunker.Deps{
		Counter:  a.counter,
		Embedder: a.embedder,
		LLM:      a.llm,
		Cache:    cache.NewManager(store, log),
		Logger:   log,
		Metrics:  a.metrics,
	}, cfg.Chunker())
	if err != nil {
		_ = store.Close()
		a.close()
		return nil, err
	}
	return a, nil
}

// close releases the providers; the chunker is closed by its owner.
func (a *app) close() {
	if a.counter != nil {
		st := a.counter.Stats()
		a.log.Debug("token counter", "hits", st.Hits, "misses", st.Misses, "memoized", st.Size)
	}
	if a.embedder != nil {
		if err := a.embedder.Close(); err != nil {
			a.log.Warn("closing embedder", "error", err)
		}
	}
	if a.llm != nil {
		if err := a.llm.Close(); err != nil {
			a.log.Warn("closing LLM provider", "error", err)
		}
	}
}
