package rx

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Merge subscribes to every source concurrently and forwards their values
// as they arrive. Deliveries downstream are serialised, so downstream
// operators still see one value at a time. The merged stream completes
// when all sources complete.
//
// The first failure cancels the remaining sources and is returned. When
// downstream stops, the remaining sources are cancelled and the merged
// stream completes.
func Merge[T any](sources ...*Observable[T]) *Observable[T] {
	return MergeN(0, sources...)
}

// MergeN is [Merge] with at most n sources subscribed at a time. Sources
// beyond the limit are subscribed, in order, as earlier ones finish.
// n = 0 means no limit.
//
// Panics if n is negative or any source is nil.
func MergeN[T any](n int, sources ...*Observable[T]) *Observable[T] {
	if n < 0 {
		panic("rx: MergeN requires n >= 0")
	}
	for _, src := range sources {
		if src == nil {
			panic("rx: Merge requires non-nil source observables")
		}
	}
	return Create(func(ctx context.Context, emit Observer[T]) error {
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		g, gctx := errgroup.WithContext(runCtx)
		if n > 0 {
			g.SetLimit(n)
		}

		var mu sync.Mutex
		d := &downstream[T]{emit: emit}
		forward := func(v T) error {
			mu.Lock()
			defer mu.Unlock()
			err := d.next(v)
			if IsComplete(err) {
				cancel()
			}
			return err
		}

		for _, src := range sources {
			src := src
			g.Go(func() error {
				if gctx.Err() != nil {
					return nil
				}
				return src.subscribe(gctx, forward, nil)
			})
		}
		err := g.Wait()

		mu.Lock()
		defer mu.Unlock()
		if d.stopped {
			return ErrComplete
		}
		return err
	}, WithName("merge"))
}
