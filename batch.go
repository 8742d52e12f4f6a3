package rx

import (
	"context"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// BufferWithCount groups values into slices of size n. A non-empty
// remainder is emitted when upstream completes.
//
// Panics if src is nil or n is not positive.
func BufferWithCount[T any](src *Observable[T], n int) *Observable[[]T] {
	if src == nil {
		panic("rx: BufferWithCount requires non-nil source observable")
	}
	if n <= 0 {
		panic("rx: BufferWithCount requires n > 0")
	}
	return derive(src, "buffer-with-count", func(ctx context.Context, emit Observer[[]T]) error {
		d := &downstream[[]T]{emit: emit}
		batch := make([]T, 0, n)
		return src.subscribe(ctx, func(v T) error {
			batch = append(batch, v)
			if len(batch) < n {
				return nil
			}
			full := batch
			batch = make([]T, 0, n)
			return d.next(full)
		}, func() error {
			if len(batch) == 0 {
				return nil
			}
			rest := batch
			batch = nil
			return d.next(rest)
		})
	})
}

// Group is one partition produced by [GroupBy]: its key and a cold
// observable replaying the group's values in arrival order.
type Group[K comparable, T any] struct {
	Key K
	*Observable[T]
}

// GroupBy partitions the whole sequence by keyFn. Groups are only emitted
// once upstream completes, one per distinct key, in the order each key was
// first seen. Grouping is not incremental: a source that never completes
// never yields a group.
//
// Panics if src or keyFn is nil.
func GroupBy[T any, K comparable](src *Observable[T], keyFn func(T) K) *Observable[*Group[K, T]] {
	if src == nil {
		panic("rx: GroupBy requires non-nil source observable")
	}
	if keyFn == nil {
		panic("rx: GroupBy requires non-nil key function")
	}
	return derive(src, "group-by", func(ctx context.Context, emit Observer[*Group[K, T]]) error {
		d := &downstream[*Group[K, T]]{emit: emit}
		groups := orderedmap.New[K, []T]()
		return src.subscribe(ctx, func(v T) error {
			k := keyFn(v)
			items, _ := groups.Get(k)
			groups.Set(k, append(items, v))
			return nil
		}, func() error {
			for pair := groups.Oldest(); pair != nil; pair = pair.Next() {
				g := From(pair.Value)
				g.name = "group"
				g.logger = src.logger
				if err := d.next(&Group[K, T]{Key: pair.Key, Observable: g}); err != nil {
					return err
				}
			}
			return nil
		})
	})
}
