package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"math/rand/v2"

	"github.com/redis/go-redis/v9"
)

const casRetries = 16

// Redis is a Store backed by a shared redis connection, for
// memory-constrained processing of large feeds. Keys live under a random
// per-store namespace; values are JSON. Close removes the namespace.
type Redis[V any] struct {
	client *redis.Client
	ns     string
}

func NewRedis[V any](client *redis.Client) *Redis[V] {
	return &Redis[V]{
		client: client,
		ns:     fmt.Sprintf("%06x:", rand.Uint32N(1<<24)),
	}
}

func (s *Redis[V]) Has(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.ns+key).Result()
	return n > 0, err
}

func (s *Redis[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var value V
	raw, err := s.client.Get(ctx, s.ns+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return value, false, nil
	}
	if err != nil {
		return value, false, err
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, false, err
	}
	return value, true, nil
}

func (s *Redis[V]) Set(ctx context.Context, key string, value V) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.ns+key, raw, 0).Err()
}

func (s *Redis[V]) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.ns+key).Err()
}

func (s *Redis[V]) Update(ctx context.Context, key string, fn func(V, bool) (V, bool)) error {
	nsKey := s.ns + key
	for range casRetries {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			var value V
			ok := true
			raw, err := tx.Get(ctx, nsKey).Bytes()
			if errors.Is(err, redis.Nil) {
				ok = false
			} else if err != nil {
				return err
			} else if err := json.Unmarshal(raw, &value); err != nil {
				return err
			}

			next, keep := fn(value, ok)
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if !keep {
					pipe.Del(ctx, nsKey)
					return nil
				}
				encoded, err := json.Marshal(next)
				if err != nil {
					return err
				}
				pipe.Set(ctx, nsKey, encoded, 0)
				return nil
			})
			return err
		}, nsKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue // raced with a concurrent writer, retry
		}
		return err
	}
	return fmt.Errorf("updating %q: too much contention", key)
}

func (s *Redis[V]) scan(ctx context.Context) iter.Seq2[[]string, error] {
	return func(yield func([]string, error) bool) {
		cursor := uint64(0)
		for {
			keys, next, err := s.client.Scan(ctx, cursor, s.ns+"*", 50).Result()
			if err != nil {
				yield(nil, err)
				return
			}
			if len(keys) > 0 && !yield(keys, nil) {
				return
			}
			if next == 0 {
				return
			}
			cursor = next
		}
	}
}

func (s *Redis[V]) Entries(ctx context.Context) iter.Seq2[Entry[V], error] {
	return func(yield func(Entry[V], error) bool) {
		for keys, err := range s.scan(ctx) {
			if err != nil {
				yield(Entry[V]{}, err)
				return
			}
			raws, err := s.client.MGet(ctx, keys...).Result()
			if err != nil {
				yield(Entry[V]{}, err)
				return
			}
			for i, raw := range raws {
				encoded, ok := raw.(string)
				if !ok {
					continue // deleted while iterating
				}
				var value V
				if err := json.Unmarshal([]byte(encoded), &value); err != nil {
					yield(Entry[V]{}, err)
					return
				}
				entry := Entry[V]{Key: keys[i][len(s.ns):], Value: value}
				if !yield(entry, nil) {
					return
				}
			}
		}
	}
}

func (s *Redis[V]) Keys(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for keys, err := range s.scan(ctx) {
			if err != nil {
				yield("", err)
				return
			}
			for _, key := range keys {
				if !yield(key[len(s.ns):], nil) {
					return
				}
			}
		}
	}
}

func (s *Redis[V]) Values(ctx context.Context) iter.Seq2[V, error] {
	return func(yield func(V, error) bool) {
		for entry, err := range s.Entries(ctx) {
			if !yield(entry.Value, err) {
				return
			}
		}
	}
}

// Close deletes every key in the store's namespace. The underlying client is
// shared and stays open.
func (s *Redis[V]) Close(ctx context.Context) error {
	for keys, err := range s.scan(ctx) {
		if err != nil {
			return err
		}
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			return err
		}
	}
	return nil
}
