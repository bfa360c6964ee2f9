// Package chunker divides long-form text into retrieval-sized chunks.
//
// A Chunker resolves the structure of a document once, caches it under the
// document id, and then builds one of three chunk topologies:
//
//   - general: flat chunks with a sliding-window overlap
//   - parent_child: section-sized parents, each owning smaller children
//   - qa: one chunk per detected question
//
// # Basic Usage
//
//	c, err := chunker.New(chunker.Deps{
//	    Counter:  counter,
//	    Embedder: emb,
//	    LLM:      provider,
//	    Cache:    cache.NewManager(store, log),
//	    Logger:   log,
//	}, chunker.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//
//	res, err := c.Chunk(ctx, chunker.Request{Text: text, DocumentID: "doc-42"})
//	if err != nil {
//	    return err
//	}
//	for _, ch := range res.Chunks {
//	    fmt.Printf("%d [%d:%d] %d tokens\n", ch.ChunkIndex, ch.StartChar, ch.EndChar, ch.TokenCount)
//	}
//
// # Boundary Tiers
//
// General documents are cut by the pattern matcher first. Boundaries that do
// not fall on sentence edges are grouped into segments for the boundary
// agent, which skips segments the embedding detector is already confident
// about and asks the LLM about the rest. Every tier degrades to the one below
// it when its provider is missing or fails, so only two conditions reach the
// caller: blank input (ErrEmptyInput) and a document whose every candidate
// chunk fails validation (*PipelineError).
//
// In embedding-only mode no LLM is called at all and general documents are
// cut where consecutive sentences drift apart. New rejects that mode when no
// embedding provider is available (ErrNoStrategy).
//
// # Offsets
//
// StartChar and EndChar are byte offsets into the request text and
// Text == text[StartChar:EndChar]. Chunk text is trimmed of surrounding
// whitespace, so whitespace between chunks is not covered by any chunk.
package chunker
