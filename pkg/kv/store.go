// Package kv provides a generic thread-safe key-value cache.
package kv

import "sync"

// Store is a thread-safe key-value cache. When a capacity is set the oldest
// inserted key is evicted first.
type Store[K comparable, V any] struct {
	mu    sync.RWMutex
	data  map[K]V
	order []K
	max   int
}

// New creates a store holding at most max entries. max <= 0 means unbounded.
func New[K comparable, V any](max int) *Store[K, V] {
	return &Store[K, V]{
		data: make(map[K]V),
		max:  max,
	}
}

// Get retrieves a value by key.
func (s *Store[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	return val, ok
}

// Set stores a value by key.
func (s *Store[K, V]) Set(key K, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(key, value)
}

func (s *Store[K, V]) set(key K, value V) {
	if _, ok := s.data[key]; !ok {
		s.order = append(s.order, key)
	}
	s.data[key] = value

	for s.max > 0 && len(s.order) > s.max {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.data, oldest)
	}
}

// GetOrLoad returns the cached value for key, calling load on a miss. Errors
// from load are returned and not cached.
func (s *Store[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	if val, ok := s.Get(key); ok {
		return val, nil
	}

	val, err := load()
	if err != nil {
		return val, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(key, val)
	return val, nil
}

// Delete removes a key from the store.
func (s *Store[K, V]) Delete(key K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return
	}
	delete(s.data, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of items in the store.
func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
