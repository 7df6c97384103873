package stoptimes

import (
	"iter"
)

// Matching turns a sorted stream of items into a function that, given a
// model record, yields the run of items matching it. Models must be supplied
// in the same sort order as the items; items sorting ahead of the current
// model are discarded, one item may be buffered between calls. The returned
// stop function releases the underlying stream.
func Matching[M, T any](cmp func(M, T) int, items iter.Seq2[T, error]) (match func(M) iter.Seq2[T, error], stop func()) {
	next, stop := iter.Pull2(items)

	var kept T
	hasKept := false
	over := false

	match = func(model M) iter.Seq2[T, error] {
		return func(yield func(T, error) bool) {
			if over {
				return
			}

			if hasKept {
				switch c := cmp(model, kept); {
				case c == 0:
					hasKept = false
					if !yield(kept, nil) {
						return
					}
				case c > 0:
					hasKept = false
				default:
					return // model sorts before the buffered item
				}
			}

			for {
				item, err, ok := next()
				if !ok {
					over = true
					return
				}
				if err != nil {
					over = true
					var zero T
					yield(zero, err)
					return
				}

				switch c := cmp(model, item); {
				case c < 0:
					kept = item
					hasKept = true
					return
				case c == 0:
					if !yield(item, nil) {
						return
					}
				}
				// c > 0: item belongs to no accepted model, drop it
			}
		}
	}
	return match, stop
}
