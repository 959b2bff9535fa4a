// Package memobjectstore is an in-memory storage.ObjectStore used by tests
// and local bootstrapping, in the same spirit as the teacher's in-memory test
// doubles for its own storage interfaces.
package memobjectstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/iotaledger/didanchor-go/storage"
	"github.com/iotaledger/didanchor-go/storage/cidcodec"
)

// Store is a concurrency-safe, in-memory storage.ObjectStore keyed by CID.
type Store struct {
	mu      sync.Mutex
	objects map[string][]byte
	pinned  map[string]bool
}

var _ storage.ObjectStore = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		objects: make(map[string][]byte),
		pinned:  make(map[string]bool),
	}
}

// AddPinned implements storage.ObjectStore.
func (s *Store) AddPinned(_ context.Context, data []byte, _ storage.AddOptions) (string, error) {
	cid, err := cidcodec.Sum(data)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[cid] = append([]byte(nil), data...)
	s.pinned[cid] = true
	return cid, nil
}

// Unpin implements storage.ObjectStore. It is a no-op, not an error, if cid
// is already unpinned or unknown.
func (s *Store) Unpin(_ context.Context, cid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pinned, cid)
	return nil
}

// Cat implements storage.ObjectStore.
func (s *Store) Cat(_ context.Context, cid string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.objects[cid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, cid)
	}
	return append([]byte(nil), data...), nil
}

// IsPinned reports whether cid is currently pinned. Exposed only for test
// assertions (spec.md §8 scenario 5: unpin exactly once).
func (s *Store) IsPinned(cid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pinned[cid]
}

// Tamper overwrites the bytes stored at cid, simulating a corrupted or
// malicious store response (spec.md §8 scenario 6). It does not change the
// object's key, so the returned bytes will no longer hash to cid.
func (s *Store) Tamper(cid string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[cid] = append([]byte(nil), data...)
}
