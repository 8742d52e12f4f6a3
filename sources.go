package rx

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/exp/constraints"
)

// From creates an observable that emits every item of the slice in order.
// The slice is read on every subscription, not copied.
func From[T any](items []T) *Observable[T] {
	return Create(func(ctx context.Context, emit Observer[T]) error {
		for _, v := range items {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := emit(v); err != nil {
				return err
			}
		}
		return nil
	}, WithName("from"))
}

// Of creates an observable that emits its arguments in order.
func Of[T any](items ...T) *Observable[T] {
	o := From(items)
	o.name = "of"
	return o
}

// Range emits count consecutive integers starting at start. A range that
// would run past the largest value of T stops there.
//
// Panics if count is negative.
func Range[T constraints.Integer](start, count T) *Observable[T] {
	if count < 0 {
		panic("rx: Range requires count >= 0")
	}
	return Create(func(ctx context.Context, emit Observer[T]) error {
		for n := T(0); n < count; n++ {
			v := start + n
			if n > 0 && v <= start {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := emit(v); err != nil {
				return err
			}
		}
		return nil
	}, WithName("range"))
}

// Repeat emits v count times.
//
// Panics if count is negative.
func Repeat[T any](v T, count int) *Observable[T] {
	if count < 0 {
		panic("rx: Repeat requires count >= 0")
	}
	return Create(func(ctx context.Context, emit Observer[T]) error {
		for i := 0; i < count; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := emit(v); err != nil {
				return err
			}
		}
		return nil
	}, WithName("repeat"))
}

// Start calls fn once per subscription and emits its result.
//
// Panics if fn is nil.
func Start[T any](fn func() T) *Observable[T] {
	if fn == nil {
		panic("rx: Start requires non-nil function")
	}
	return Create(func(ctx context.Context, emit Observer[T]) error {
		return emit(fn())
	}, WithName("start"))
}

// FromFunc pulls values from fn until it returns [io.EOF], which completes
// the stream. Any other error fails it.
//
// Panics if fn is nil.
func FromFunc[T any](fn func(context.Context) (T, error)) *Observable[T] {
	if fn == nil {
		panic("rx: FromFunc requires non-nil function")
	}
	return Create(func(ctx context.Context, emit Observer[T]) error {
		for {
			v, err := fn(ctx)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			if err := emit(v); err != nil {
				return err
			}
		}
	}, WithName("from-func"))
}

// FromChan emits values received from ch until it is closed.
// Cancelling ctx fails the subscription with the context error.
func FromChan[T any](ch <-chan T) *Observable[T] {
	return Create(func(ctx context.Context, emit Observer[T]) error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case v, ok := <-ch:
				if !ok {
					return nil
				}
				if err := emit(v); err != nil {
					return err
				}
			}
		}
	}, WithName("from-chan"))
}

// Defer calls factory on every subscription and subscribes to the
// observable it returns.
//
// Panics if factory is nil.
func Defer[T any](factory func() *Observable[T]) *Observable[T] {
	if factory == nil {
		panic("rx: Defer requires non-nil factory")
	}
	return Create(func(ctx context.Context, emit Observer[T]) error {
		return factory().subscribe(ctx, emit, nil)
	}, WithName("defer"))
}

// Interval emits 0, 1, 2, ... waiting period after each value. It never
// completes on its own: stop it with [Observable.Take], an observer
// returning [ErrComplete], or by cancelling ctx. Honours [WithClock].
//
// Panics if period is not positive.
func Interval(period time.Duration, opts ...Option) *Observable[int] {
	if period <= 0 {
		panic("rx: Interval requires period > 0")
	}
	cfg := newConfig(opts)
	return Create(func(ctx context.Context, emit Observer[int]) error {
		for i := 0; ; i++ {
			if err := emit(i); err != nil {
				return err
			}
			if err := sleep(ctx, cfg.clock, period); err != nil {
				return err
			}
		}
	}, WithName("interval"), WithLogger(cfg.logger))
}

// Empty completes immediately without emitting.
func Empty[T any]() *Observable[T] {
	return Create(func(context.Context, Observer[T]) error {
		return nil
	}, WithName("empty"))
}

// Never emits nothing and only ends when ctx is cancelled.
func Never[T any]() *Observable[T] {
	return Create(func(ctx context.Context, _ Observer[T]) error {
		<-ctx.Done()
		return ctx.Err()
	}, WithName("never"))
}

// Throw fails immediately with err.
//
// Panics if err is nil.
func Throw[T any](err error) *Observable[T] {
	if err == nil {
		panic("rx: Throw requires non-nil error")
	}
	return Create(func(context.Context, Observer[T]) error {
		return err
	}, WithName("throw"))
}

// sleep blocks for d on clock, returning early with the context error if
// ctx is cancelled first.
func sleep(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-clock.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
