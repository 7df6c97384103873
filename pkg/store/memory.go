package store

import (
	"context"
	"iter"
	"slices"
	"sync"
)

// Memory is a mutex-guarded in-process Store. Iteration yields keys in
// sorted order so downstream assembly is deterministic.
type Memory[V any] struct {
	mu sync.Mutex
	m  map[string]V
}

func NewMemory[V any]() *Memory[V] {
	return &Memory[V]{m: map[string]V{}}
}

func (s *Memory[V]) Has(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.m[key]
	return ok, nil
}

func (s *Memory[V]) Get(_ context.Context, key string) (V, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.m[key]
	return value, ok, nil
}

func (s *Memory[V]) Set(_ context.Context, key string, value V) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *Memory[V]) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

func (s *Memory[V]) Update(_ context.Context, key string, fn func(V, bool) (V, bool)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.m[key]
	next, keep := fn(value, ok)
	if keep {
		s.m[key] = next
	} else {
		delete(s.m, key)
	}
	return nil
}

func (s *Memory[V]) sortedKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.m))
	for key := range s.m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

func (s *Memory[V]) Entries(_ context.Context) iter.Seq2[Entry[V], error] {
	return func(yield func(Entry[V], error) bool) {
		for _, key := range s.sortedKeys() {
			s.mu.Lock()
			value, ok := s.m[key]
			s.mu.Unlock()
			if !ok {
				continue // deleted while iterating
			}
			if !yield(Entry[V]{Key: key, Value: value}, nil) {
				return
			}
		}
	}
}

func (s *Memory[V]) Keys(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for entry, err := range s.Entries(ctx) {
			if !yield(entry.Key, err) {
				return
			}
		}
	}
}

func (s *Memory[V]) Values(ctx context.Context) iter.Seq2[V, error] {
	return func(yield func(V, error) bool) {
		for entry, err := range s.Entries(ctx) {
			if !yield(entry.Value, err) {
				return
			}
		}
	}
}

func (s *Memory[V]) Close(context.Context) error {
	return nil
}
