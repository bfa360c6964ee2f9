package llm

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// RateLimited bounds the request rate and the number of in-flight requests
// of another provider.
type RateLimited struct {
	inner   Provider
	limiter *rate.Limiter
	sem     *semaphore.Weighted
}

// NewRateLimited wraps p. A non-positive requestsPerMinute disables the rate
// limit and a non-positive concurrency disables the in-flight bound.
func NewRateLimited(p Provider, requestsPerMinute float64, concurrency int64) *RateLimited {
	r := &RateLimited{inner: p}
	if requestsPerMinute > 0 {
		perSecond := requestsPerMinute / 60.0
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	if concurrency > 0 {
		r.sem = semaphore.NewWeighted(concurrency)
	}
	return r
}

func (r *RateLimited) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if r.sem != nil {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			return "", fmt.Errorf("wait for llm slot: %w", err)
		}
		defer r.sem.Release(1)
	}
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("wait for llm rate limit: %w", err)
		}
	}
	return r.inner.Chat(ctx, req)
}

func (r *RateLimited) Name() string {
	return r.inner.Name()
}

func (r *RateLimited) Close() error {
	return r.inner.Close()
}
