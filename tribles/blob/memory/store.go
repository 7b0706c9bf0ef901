// Package memory implements the blob store interface in-process,
// keyed by the blake3 content hash of each stored blob.
package memory

import (
	"errors"
	"sync"

	"lukechampine.com/blake3"

	"github.com/triblespace/tribles-go/tribles"
)

// ErrNotFound is returned by Get when no blob is stored under the
// requested handle.
var ErrNotFound = errors.New("blob/memory: not found")

// Store is an in-memory, content-addressed blob store. The zero value
// is ready to use. Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	data map[tribles.RawValue][]byte
}

// Put stores data and returns its content-hash handle; storing the
// same bytes twice returns the same handle and is otherwise a no-op.
func (s *Store) Put(data []byte) tribles.RawValue {
	h := blake3.Sum256(data)
	handle := tribles.RawValue(h)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = make(map[tribles.RawValue][]byte)
	}
	if _, exists := s.data[handle]; !exists {
		cp := make([]byte, len(data))
		copy(cp, data)
		s.data[handle] = cp
	}
	return handle
}

// Get returns the blob stored under handle.
func (s *Store) Get(handle tribles.RawValue) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.data[handle]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp, nil
}

// List calls f with every handle currently stored, in unspecified
// order.
func (s *Store) List(f func(tribles.RawValue)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for h := range s.data {
		f(h)
	}
}
