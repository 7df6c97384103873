package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBasics(t *testing.T) {
	ctx := context.Background()
	st := NewMemory[int]()

	ok, err := st.Has(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.Set(ctx, "a", 1))
	require.NoError(t, st.Set(ctx, "b", 2))

	v, ok, err := st.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, v)

	require.NoError(t, st.Delete(ctx, "a"))
	_, ok, err = st.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryIterationIsSorted(t *testing.T) {
	ctx := context.Background()
	st := NewMemory[string]()
	require.NoError(t, st.Set(ctx, "c", "3"))
	require.NoError(t, st.Set(ctx, "a", "1"))
	require.NoError(t, st.Set(ctx, "b", "2"))

	var keys []string
	for k, err := range st.Keys(ctx) {
		require.NoError(t, err)
		keys = append(keys, k)
	}
	assert.Equal(t, []string{"a", "b", "c"}, keys)

	var entries []Entry[string]
	for e, err := range st.Entries(ctx) {
		require.NoError(t, err)
		entries = append(entries, e)
	}
	assert.Equal(t, []Entry[string]{{"a", "1"}, {"b", "2"}, {"c", "3"}}, entries)
}

func TestMemoryUpdate(t *testing.T) {
	ctx := context.Background()
	st := NewMemory[[]string]()

	appendVal := func(s string) func([]string, bool) ([]string, bool) {
		return func(cur []string, ok bool) ([]string, bool) {
			return append(cur, s), true
		}
	}
	require.NoError(t, st.Update(ctx, "k", appendVal("x")))
	require.NoError(t, st.Update(ctx, "k", appendVal("y")))

	v, ok, err := st.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, v)

	// keep=false deletes
	require.NoError(t, st.Update(ctx, "k", func([]string, bool) ([]string, bool) {
		return nil, false
	}))
	ok, err = st.Has(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryUpdateIsAtomic(t *testing.T) {
	ctx := context.Background()
	st := NewMemory[int]()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				err := st.Update(ctx, "counter", func(v int, ok bool) (int, bool) {
					return v + 1, true
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	v, ok, err := st.Get(ctx, "counter")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1000, v)
}
