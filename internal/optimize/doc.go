// Package optimize holds the cost and quality utilities shared by the
// chunking pipeline: document sampling for structure detection, fixed-size
// batching of provider calls, and chunk validation.
package optimize
