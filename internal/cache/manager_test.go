package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/semchunk/internal/storage"
	"github.com/dshills/semchunk/pkg/types"
)

type failingStore struct{ storage.Store }

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("disk on fire")
}

func sampleStructure(id string) *types.DocumentStructure {
	return &types.DocumentStructure{
		DocumentID:    id,
		StructureType: types.StructureParentChild,
		TOC: []types.TOCEntry{
			{Title: "Intro", Level: 1, Offset: 0},
			{Title: "Scope", Level: 2, Offset: 42},
		},
		ChunkingRules: map[string]string{"child_size": "200"},
		DocumentType:  "manual",
		DetectedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Source:        "llm",
	}
}

func TestManagerRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewManager(nil, nil)

	_, ok := m.GetStructure(ctx, "X")
	assert.False(t, ok)

	want := sampleStructure("X")
	require.NoError(t, m.SetStructure(ctx, want))

	got, ok := m.GetStructure(ctx, "X")
	require.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, m.Delete(ctx, "X"))
	_, ok = m.GetStructure(ctx, "X")
	assert.False(t, ok)
}

func TestManagerUsesPrefixedKeys(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemoryStore()
	m := NewManager(st, nil)

	require.NoError(t, m.SetStructure(ctx, sampleStructure("doc-1")))
	raw, err := st.Get(ctx, "structure:doc-1")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"structure_type":"parent_child"`)
}

func TestManagerRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	m := NewManager(nil, nil)

	assert.Error(t, m.SetStructure(ctx, nil))
	assert.ErrorIs(t, m.SetStructure(ctx, &types.DocumentStructure{StructureType: types.StructureQA}), types.ErrMissingDocumentID)
	assert.ErrorIs(t, m.SetStructure(ctx, &types.DocumentStructure{DocumentID: "a", StructureType: "tree"}), types.ErrInvalidStructureType)
}

func TestManagerTreatsBadEntriesAsMiss(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemoryStore()
	m := NewManager(st, nil)

	require.NoError(t, st.Set(ctx, Key("garbled"), []byte("{not json")))
	_, ok := m.GetStructure(ctx, "garbled")
	assert.False(t, ok)

	require.NoError(t, st.Set(ctx, Key("unknown"), []byte(`{"document_id":"unknown","structure_type":"tree"}`)))
	_, ok = m.GetStructure(ctx, "unknown")
	assert.False(t, ok)
}

func TestManagerStoreFailureIsMiss(t *testing.T) {
	m := NewManager(failingStore{storage.NewMemoryStore()}, nil)
	_, ok := m.GetStructure(context.Background(), "X")
	assert.False(t, ok)
}

func TestManagerOverSQLite(t *testing.T) {
	ctx := context.Background()
	st, err := storage.NewSQLiteStore(ctx, ":memory:")
	require.NoError(t, err)
	m := NewManager(st, nil)
	defer m.Close()

	require.NoError(t, m.SetStructure(ctx, sampleStructure("X")))
	got, ok := m.GetStructure(ctx, "X")
	require.True(t, ok)
	assert.Equal(t, types.StructureParentChild, got.StructureType)
	assert.Len(t, got.TOC, 2)
}
