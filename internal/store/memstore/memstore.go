// Package memstore is an in-memory store.Store test double, in the style of
// internal/solana/stub: a defensively-copying map guarded by a mutex, with
// no persistence.
package memstore

import (
	"bytes"
	"sort"
	"sync"

	"spinpet-indexer/internal/store"
)

// Store is an in-memory implementation of store.Store for unit tests.
type Store struct {
	mu   sync.Mutex
	data map[string][]byte
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) Get(key []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.data[string(key)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *Store) Put(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (s *Store) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, string(key))
	return nil
}

func (s *Store) Scan(prefix, fromKey []byte, limit int, dir store.Direction) ([]store.KV, error) {
	if limit <= 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	s.mu.Unlock()

	sort.Strings(keys)
	if dir == store.Reverse {
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
		}
	}

	var rows []store.KV
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		if fromKey != nil {
			if dir == store.Forward && k < string(fromKey) {
				continue
			}
			if dir == store.Reverse && k > string(fromKey) {
				continue
			}
		}
		rows = append(rows, store.KV{Key: []byte(k), Value: append([]byte(nil), s.data[k]...)})
		if len(rows) >= limit {
			break
		}
	}
	return rows, nil
}

func (s *Store) BatchApply(ops []store.Op) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, op := range ops {
		switch op.Kind {
		case store.OpPut:
			s.data[string(op.Key)] = append([]byte(nil), op.Value...)
		case store.OpDelete:
			delete(s.data, string(op.Key))
		default:
			return store.ErrInvalidInput
		}
	}
	return nil
}

func (s *Store) Close() error { return nil }
