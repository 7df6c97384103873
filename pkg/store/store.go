// Package store provides the key-value abstraction shared by the processing
// stages. Backings may be in-process or remote; every operation therefore
// takes a context and may suspend.
package store

import (
	"context"
	"iter"
)

// Entry is one key-value pair yielded during iteration.
type Entry[V any] struct {
	Key   string
	Value V
}

// Store is an associative container. Update is the unit of atomicity: a
// read-modify-write on one key must not be interleaved by a concurrent
// writer on the same key. Concurrent writers to distinct keys never
// interfere.
type Store[V any] interface {
	Has(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) (value V, ok bool, err error)
	Set(ctx context.Context, key string, value V) error
	Delete(ctx context.Context, key string) error

	// Update reads the current value (ok reports whether the key exists),
	// applies fn, and writes the result back as one atomic step. Returning
	// keep=false deletes the key.
	Update(ctx context.Context, key string, fn func(value V, ok bool) (next V, keep bool)) error

	Entries(ctx context.Context) iter.Seq2[Entry[V], error]
	Keys(ctx context.Context) iter.Seq2[string, error]
	Values(ctx context.Context) iter.Seq2[V, error]

	Close(ctx context.Context) error
}
