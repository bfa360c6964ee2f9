package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a requested key doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrClosed is returned by operations on a closed store
	ErrClosed = errors.New("store closed")
)

// Store is a byte-valued key-value store. Writes are last-writer-wins and no
// transactional semantics are offered.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	// Path is the SQLite database file (":memory:" allowed).
	Path string
	// URL is a redis:// connection URL.
	URL string
	// Prefix is prepended to every Redis key.
	Prefix string
	// TTL expires Redis entries; zero keeps them forever.
	TTL time.Duration
}

// Open creates the store described by opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		if opts.Path == "" {
			return nil, fmt.Errorf("sqlite store requires a path")
		}
		return NewSQLiteStore(ctx, opts.Path)
	case BackendRedis:
		if opts.URL == "" {
			return nil, fmt.Errorf("redis store requires a url")
		}
		return OpenRedisStore(ctx, opts.URL, opts.Prefix, opts.TTL)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
