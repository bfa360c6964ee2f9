// Package cache persists detected document structures so structure
// detection runs once per document.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/semchunk/internal/logger"
	"github.com/dshills/semchunk/internal/storage"
	"github.com/dshills/semchunk/pkg/types"
)

// KeyPrefix namespaces structure entries inside a shared store.
const KeyPrefix = "structure:"

// Manager maps document ids to serialized DocumentStructure values.
type Manager struct {
	store storage.Store
	log   logger.Logger
}

// NewManager wraps store. A nil store gets an in-memory one.
func NewManager(store storage.Store, log logger.Logger) *Manager {
	if store == nil {
		store = storage.NewMemoryStore()
	}
	return &Manager{store: store, log: logger.OrNop(log)}
}

// Key returns the store key for docID.
func Key(docID string) string {
	return KeyPrefix + docID
}

// GetStructure returns the cached structure for docID. The boolean is false
// on a miss. Store failures and undecodable entries are logged and reported
// as misses so the caller re-detects.
func (m *Manager) GetStructure(ctx context.Context, docID string) (*types.DocumentStructure, bool) {
	if strings.TrimSpace(docID) == "" {
		return nil, false
	}
	raw, err := m.store.Get(ctx, Key(docID))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.log.Warn("structure cache read failed", "document_id", docID, "error", err)
		}
		return nil, false
	}

	var s types.DocumentStructure
	if err := json.Unmarshal(raw, &s); err != nil {
		m.log.Warn("discarding undecodable cached structure", "document_id", docID, "error", err)
		return nil, false
	}
	if err := s.Validate(); err != nil {
		m.log.Warn("discarding invalid cached structure", "document_id", docID, "error", err)
		return nil, false
	}
	return &s, true
}

// SetStructure stores s under its DocumentID. Concurrent writers race and
// the last one wins.
func (m *Manager) SetStructure(ctx context.Context, s *types.DocumentStructure) error {
	if s == nil {
		return fmt.Errorf("nil structure")
	}
	if err := s.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode structure: %w", err)
	}
	if err := m.store.Set(ctx, Key(s.DocumentID), raw); err != nil {
		return fmt.Errorf("store structure %s: %w", s.DocumentID, err)
	}
	m.log.Debug("structure cached", "document_id", s.DocumentID, "structure_type", s.StructureType)
	return nil
}

// Delete removes the cached structure for docID.
func (m *Manager) Delete(ctx context.Context, docID string) error {
	if err := m.store.Delete(ctx, Key(docID)); err != nil {
		return fmt.Errorf("delete structure %s: %w", docID, err)
	}
	return nil
}

// Close closes the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}
