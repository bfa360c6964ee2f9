package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *SQLiteStore {
	st, err := NewSQLiteStore(context.Background(), ":memory:")
	require.NoError(t, err)
	require.NotNil(t, st)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	st := setupTestDB(t)
	ctx := context.Background()

	_, err := st.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.Set(ctx, "k", []byte(`{"v":1}`)))
	got, err := st.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, string(got))

	// last writer wins
	require.NoError(t, st.Set(ctx, "k", []byte(`{"v":2}`)))
	got, err = st.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(got))

	require.NoError(t, st.Delete(ctx, "k"))
	_, err = st.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting a missing key is not an error
	assert.NoError(t, st.Delete(ctx, "k"))
}

func TestSQLiteStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	st, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	require.NoError(t, st.Set(ctx, "doc", []byte("structure")))
	require.NoError(t, st.Close())

	reopened, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, "structure", string(got))
}

func TestApplyMigrationsIdempotent(t *testing.T) {
	st := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, ApplyMigrations(ctx, st.db))

	v, err := schemaVersion(ctx, st.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v.String())

	var n int
	require.NoError(t, st.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestRollbackMigration(t *testing.T) {
	st := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, RollbackMigration(ctx, st.db))

	v, err := schemaVersion(ctx, st.db)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0", v.String())

	assert.Error(t, RollbackMigration(ctx, st.db))

	// reapplying restores a usable store
	require.NoError(t, ApplyMigrations(ctx, st.db))
	require.NoError(t, st.Set(ctx, "k", []byte("v")))
}

func TestBuildMode(t *testing.T) {
	assert.Contains(t, []string{"cgo", "purego"}, BuildMode)
	assert.NotEmpty(t, DriverName)
}
