// Package storage provides the byte-valued key-value stores behind the
// document structure cache.
//
// Three backends implement Store:
//   - MemoryStore: process-local map, the default
//   - SQLiteStore: a single entries table with semver-ordered migrations
//   - RedisStore: Redis strings with an optional key prefix and TTL
//
// All of them return ErrNotFound for missing keys. Writes are
// last-writer-wins; there are no transactions.
//
// # Basic Usage
//
//	st, err := storage.Open(ctx, storage.Options{Backend: "sqlite", Path: "semchunk.db"})
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//
//	if err := st.Set(ctx, "structure:doc-1", payload); err != nil {
//	    return err
//	}
//
// # Build Modes
//
// The default build uses the pure Go modernc.org/sqlite driver. Building
// with -tags sqlite_cgo switches to github.com/mattn/go-sqlite3. BuildMode
// and DriverName report which one is compiled in.
package storage
