package stoptimes

import (
	"errors"
	"iter"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqOf(items ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
	}
}

func cmpPrefix(model string, item string) int {
	return strings.Compare(model, item[:1])
}

func TestMatching(t *testing.T) {
	match, stop := Matching(cmpPrefix, seqOf("a1", "a2", "b1", "d1", "d2"))
	defer stop()

	collect := func(model string) []string {
		var out []string
		for item, err := range match(model) {
			require.NoError(t, err)
			out = append(out, item)
		}
		return out
	}

	assert.Equal(t, []string{"a1", "a2"}, collect("a"))
	assert.Equal(t, []string{"b1"}, collect("b"))
	// "c" matches nothing; "d1" must be buffered, not lost
	assert.Empty(t, collect("c"))
	assert.Equal(t, []string{"d1", "d2"}, collect("d"))
	assert.Empty(t, collect("e"))
}

func TestMatchingSkipsUnmatchedItems(t *testing.T) {
	match, stop := Matching(cmpPrefix, seqOf("a1", "b1", "b2", "c1"))
	defer stop()

	var out []string
	for item, err := range match("c") {
		require.NoError(t, err)
		out = append(out, item)
	}
	assert.Equal(t, []string{"c1"}, out)
}

func TestMatchingPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	items := func(yield func(string, error) bool) {
		if !yield("a1", nil) {
			return
		}
		yield("", boom)
	}
	match, stop := Matching(cmpPrefix, iter.Seq2[string, error](items))
	defer stop()

	var got error
	for _, err := range match("b") {
		if err != nil {
			got = err
		}
	}
	assert.ErrorIs(t, got, boom)

	// the stream is over after an error
	for range match("z") {
		t.Fatal("expected no more items")
	}
}
