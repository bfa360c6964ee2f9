package optimize

import (
	"context"
	"errors"
	"fmt"
)

// DefaultBatchSize matches the common embedding API batch ceiling.
const DefaultBatchSize = 10

// ErrBatchResultMismatch is returned when a batch function returns a
// different number of results than it was given items.
var ErrBatchResultMismatch = errors.New("batch result count mismatch")

// ProgressFunc is called after each batch with a 1-based batch number.
type ProgressFunc func(batch, total int)

// BatchProcessor applies a function to fixed-size slices of its input,
// sequentially, keeping results in input order.
type BatchProcessor[T, R any] struct {
	BatchSize  int
	OnProgress ProgressFunc
}

// NewBatchProcessor creates a processor; size <= 0 uses DefaultBatchSize.
func NewBatchProcessor[T, R any](size int, progress ProgressFunc) *BatchProcessor[T, R] {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &BatchProcessor[T, R]{BatchSize: size, OnProgress: progress}
}

// Batches returns how many batches n items make.
func (p *BatchProcessor[T, R]) Batches(n int) int {
	size := p.size()
	return (n + size - 1) / size
}

// Process runs fn over every batch. It stops at the first error or context
// cancellation and returns it with the failing batch number.
func (p *BatchProcessor[T, R]) Process(ctx context.Context, items []T, fn func(ctx context.Context, batch []T) ([]R, error)) ([]R, error) {
	size := p.size()
	total := p.Batches(len(items))
	out := make([]R, 0, len(items))
	for b := 0; b < total; b++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := b * size
		end := min(start+size, len(items))
		res, err := fn(ctx, items[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d/%d: %w", b+1, total, err)
		}
		if len(res) != end-start {
			return nil, fmt.Errorf("batch %d/%d: %w: got %d, want %d", b+1, total, ErrBatchResultMismatch, len(res), end-start)
		}
		out = append(out, res...)
		if p.OnProgress != nil {
			p.OnProgress(b+1, total)
		}
	}
	return out, nil
}

func (p *BatchProcessor[T, R]) size() int {
	if p.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return p.BatchSize
}
