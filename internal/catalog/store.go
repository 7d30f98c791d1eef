package catalog

import (
	"fmt"
	"sync/atomic"

	"launcher/internal/domain"
)

// Store holds the published snapshot. Readers load it once per operation and
// work on that immutable value; publishing replaces it atomically.
type Store struct {
	current atomic.Pointer[domain.Snapshot]
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Current returns the published snapshot, or ErrNotLoaded before the first
// publish.
func (s *Store) Current() (*domain.Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, domain.ErrNotLoaded
	}
	return snap, nil
}

// Loaded reports whether a snapshot has been published.
func (s *Store) Loaded() bool {
	return s.current.Load() != nil
}

// Publish makes snap visible. Publishing a snapshot whose source timestamp
// equals the live one is a no-op and reports false.
func (s *Store) Publish(snap *domain.Snapshot) (bool, error) {
	if snap == nil {
		return false, fmt.Errorf("%w: nil snapshot", domain.ErrBuildInvariant)
	}
	for {
		old := s.current.Load()
		if old != nil && old.SourceTimestamp() == snap.SourceTimestamp() {
			return false, nil
		}
		if s.current.CompareAndSwap(old, snap) {
			return true, nil
		}
	}
}
