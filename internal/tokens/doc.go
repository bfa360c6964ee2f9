// Package tokens provides deterministic, memoized token counting.
//
// Two raw encoders are available: Estimator, a character heuristic that needs
// no model files, and TiktokenEncoder, backed by tiktoken-go. Both are wrapped
// by MemoCounter, an LRU-bounded memo that every pipeline stage shares:
//
//	counter, err := tokens.New("cl100k_base", 50000)
//	n := counter.Count("Paragraph one.")
//
// Eviction only affects latency, never results.
package tokens
