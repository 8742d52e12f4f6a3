package rx

import (
	"context"

	"golang.org/x/exp/constraints"
)

// Number is the constraint of the arithmetic aggregates [Average] and [Sum].
type Number interface {
	constraints.Integer | constraints.Float
}

// downstream wraps the observer an operator forwards to and remembers
// whether it asked to stop or failed. Operators that emit from a
// completion handler, or that run inner subscriptions, consult it so they
// never push past a stop request and can re-raise it to their own upstream.
type downstream[T any] struct {
	emit    Observer[T]
	stopped bool
	err     error
}

func (d *downstream[T]) next(v T) error {
	if d.stopped {
		return ErrComplete
	}
	err := d.emit(v)
	switch {
	case err == nil:
	case IsComplete(err):
		d.stopped = true
	default:
		d.err = err
	}
	return err
}

// Filter forwards only the values for which pred returns true.
//
// Panics if pred is nil.
func (o *Observable[T]) Filter(pred func(T) bool) *Observable[T] {
	if pred == nil {
		panic("rx: Filter requires non-nil predicate")
	}
	return derive(o, "filter", func(ctx context.Context, emit Observer[T]) error {
		return o.subscribe(ctx, func(v T) error {
			if pred(v) {
				return emit(v)
			}
			return nil
		}, nil)
	})
}

// Map forwards fn(v) for every value v.
// Note: This is a function and not a method because Go does not support
// generic methods on generic types.
//
// Panics if src or fn is nil.
func Map[A, B any](src *Observable[A], fn func(A) B) *Observable[B] {
	if src == nil {
		panic("rx: Map requires non-nil source observable")
	}
	if fn == nil {
		panic("rx: Map requires non-nil function")
	}
	return derive(src, "map", func(ctx context.Context, emit Observer[B]) error {
		return src.subscribe(ctx, func(v A) error {
			return emit(fn(v))
		}, nil)
	})
}

// To converts every value with fn. It is [Map] under the name used by
// conversion pipelines.
func To[A, B any](src *Observable[A], fn func(A) B) *Observable[B] {
	o := Map(src, fn)
	o.name = "to"
	return o
}

// Peek calls fn with every value before forwarding it unchanged.
//
// Panics if fn is nil.
func (o *Observable[T]) Peek(fn func(T)) *Observable[T] {
	if fn == nil {
		panic("rx: Peek requires non-nil function")
	}
	return derive(o, "peek", func(ctx context.Context, emit Observer[T]) error {
		return o.subscribe(ctx, func(v T) error {
			fn(v)
			return emit(v)
		}, nil)
	})
}

// Skip drops the first n values and forwards the rest.
//
// Panics if n is negative.
func (o *Observable[T]) Skip(n int) *Observable[T] {
	if n < 0 {
		panic("rx: Skip requires n >= 0")
	}
	return derive(o, "skip", func(ctx context.Context, emit Observer[T]) error {
		var seen int
		return o.subscribe(ctx, func(v T) error {
			if seen < n {
				seen++
				return nil
			}
			return emit(v)
		}, nil)
	})
}

// Take forwards the first n values and then raises the completion signal,
// stopping upstream. The n-th value is delivered before the stream ends.
// A source with fewer than n values completes normally. Take(0) completes
// without subscribing upstream.
//
// Panics if n is negative.
func (o *Observable[T]) Take(n int) *Observable[T] {
	if n < 0 {
		panic("rx: Take requires n >= 0")
	}
	return o.take("take", n)
}

// First forwards the first value and then stops upstream.
func (o *Observable[T]) First() *Observable[T] {
	return o.take("first", 1)
}

func (o *Observable[T]) take(name string, n int) *Observable[T] {
	return derive(o, name, func(ctx context.Context, emit Observer[T]) error {
		if n == 0 {
			return nil
		}
		var taken int
		err := o.subscribe(ctx, func(v T) error {
			if taken >= n {
				return ErrComplete
			}
			taken++
			if err := emit(v); err != nil {
				return err
			}
			if taken >= n {
				return ErrComplete
			}
			return nil
		}, nil)
		if err == nil && taken >= n {
			return ErrComplete
		}
		return err
	})
}

// Last emits the final value once upstream completes. An empty source
// completes without emitting.
func (o *Observable[T]) Last() *Observable[T] {
	return derive(o, "last", func(ctx context.Context, emit Observer[T]) error {
		var (
			last T
			seen bool
		)
		return o.subscribe(ctx, func(v T) error {
			last = v
			seen = true
			return nil
		}, func() error {
			if !seen {
				return nil
			}
			return emit(last)
		})
	})
}

// SkipWhile drops leading values while pred holds. From the first value
// for which pred is false on, every value is forwarded.
//
// Panics if pred is nil.
func (o *Observable[T]) SkipWhile(pred func(T) bool) *Observable[T] {
	if pred == nil {
		panic("rx: SkipWhile requires non-nil predicate")
	}
	return derive(o, "skip-while", func(ctx context.Context, emit Observer[T]) error {
		skipping := true
		return o.subscribe(ctx, func(v T) error {
			if skipping && pred(v) {
				return nil
			}
			skipping = false
			return emit(v)
		}, nil)
	})
}

// All emits a single verdict: false as soon as a value fails pred (which
// also stops upstream), true once upstream completes with every value
// passing. An empty source yields true. A source that never completes and
// never fails pred never yields a verdict.
//
// Panics if pred is nil.
func (o *Observable[T]) All(pred func(T) bool) *Observable[bool] {
	if pred == nil {
		panic("rx: All requires non-nil predicate")
	}
	return derive(o, "all", func(ctx context.Context, emit Observer[bool]) error {
		ok := true
		return o.subscribe(ctx, func(v T) error {
			if !pred(v) {
				ok = false
				return ErrComplete
			}
			return nil
		}, func() error {
			return emit(ok)
		})
	})
}

// Count emits the number of values once upstream completes.
func (o *Observable[T]) Count() *Observable[int] {
	return derive(o, "count", func(ctx context.Context, emit Observer[int]) error {
		var n int
		return o.subscribe(ctx, func(T) error {
			n++
			return nil
		}, func() error {
			return emit(n)
		})
	})
}

// Distinct forwards a value only the first time it is seen.
//
// Panics if src is nil.
func Distinct[T comparable](src *Observable[T]) *Observable[T] {
	if src == nil {
		panic("rx: Distinct requires non-nil source observable")
	}
	return derive(src, "distinct", func(ctx context.Context, emit Observer[T]) error {
		seen := make(map[T]struct{})
		return src.subscribe(ctx, func(v T) error {
			if _, ok := seen[v]; ok {
				return nil
			}
			seen[v] = struct{}{}
			return emit(v)
		}, nil)
	})
}

// Scan emits the running fold fn(acc, v) after every value, and emits the
// final accumulation once more when upstream completes. The first emitted
// value is fn(seed, firstValue).
//
// This is the streaming counterpart of [Reduce].
//
// Panics if src is nil or fn is nil.
func Scan[T, R any](src *Observable[T], seed R, fn func(R, T) R) *Observable[R] {
	if src == nil {
		panic("rx: Scan requires non-nil source observable")
	}
	if fn == nil {
		panic("rx: Scan requires non-nil accumulator")
	}
	return derive(src, "scan", func(ctx context.Context, emit Observer[R]) error {
		d := &downstream[R]{emit: emit}
		acc := seed
		return src.subscribe(ctx, func(v T) error {
			acc = fn(acc, v)
			return d.next(acc)
		}, func() error {
			return d.next(acc)
		})
	})
}

// Reduce folds every value into one result, emitted once upstream
// completes. Nothing is emitted if upstream never completes or fails.
//
// Panics if src is nil or fn is nil.
func Reduce[T, R any](src *Observable[T], seed R, fn func(R, T) R) *Observable[R] {
	if src == nil {
		panic("rx: Reduce requires non-nil source observable")
	}
	if fn == nil {
		panic("rx: Reduce requires non-nil accumulator")
	}
	return derive(src, "reduce", func(ctx context.Context, emit Observer[R]) error {
		acc := seed
		return src.subscribe(ctx, func(v T) error {
			acc = fn(acc, v)
			return nil
		}, func() error {
			return emit(acc)
		})
	})
}

// Sum emits the total of all values once upstream completes.
func Sum[T Number](src *Observable[T]) *Observable[T] {
	var zero T
	o := Reduce(src, zero, func(acc, v T) T { return acc + v })
	o.name = "sum"
	return o
}

// Average emits the running mean after every value.
//
// Panics if src is nil.
func Average[T Number](src *Observable[T]) *Observable[float64] {
	if src == nil {
		panic("rx: Average requires non-nil source observable")
	}
	return derive(src, "average", func(ctx context.Context, emit Observer[float64]) error {
		var (
			sum float64
			n   int
		)
		return src.subscribe(ctx, func(v T) error {
			sum += float64(v)
			n++
			return emit(sum / float64(n))
		}, nil)
	})
}

// Collect emits every value as one slice once upstream completes.
// An empty source yields an empty, non-nil slice.
//
// Panics if src is nil.
func Collect[T any](src *Observable[T]) *Observable[[]T] {
	if src == nil {
		panic("rx: Collect requires non-nil source observable")
	}
	return derive(src, "collect", func(ctx context.Context, emit Observer[[]T]) error {
		items := []T{}
		return src.subscribe(ctx, func(v T) error {
			items = append(items, v)
			return nil
		}, func() error {
			return emit(items)
		})
	})
}

// FlatMap subscribes to mapper(v) for every value v, in arrival order, and
// forwards the inner values. Each inner observable runs to completion
// before the next source value is consumed. If downstream stops while an
// inner observable is running, the source is stopped too.
//
// Panics if src or mapper is nil.
func FlatMap[T, R any](src *Observable[T], mapper func(T) *Observable[R]) *Observable[R] {
	if src == nil {
		panic("rx: FlatMap requires non-nil source observable")
	}
	if mapper == nil {
		panic("rx: FlatMap requires non-nil mapper")
	}
	return derive(src, "flat-map", func(ctx context.Context, emit Observer[R]) error {
		d := &downstream[R]{emit: emit}
		return src.subscribe(ctx, func(v T) error {
			if err := mapper(v).subscribe(ctx, d.next, nil); err != nil {
				return err
			}
			if d.stopped {
				return ErrComplete
			}
			return nil
		}, nil)
	})
}

// IfThenElse subscribes, for every value, to then when pred holds and to
// els otherwise, forwarding the branch's values. The branch is chosen and
// subscribed anew per value.
//
// Panics if any argument is nil.
func IfThenElse[T, R any](src *Observable[T], pred func(T) bool, then, els *Observable[R]) *Observable[R] {
	if src == nil || then == nil || els == nil {
		panic("rx: IfThenElse requires non-nil observables")
	}
	if pred == nil {
		panic("rx: IfThenElse requires non-nil predicate")
	}
	return derive(src, "if-then-else", func(ctx context.Context, emit Observer[R]) error {
		d := &downstream[R]{emit: emit}
		return src.subscribe(ctx, func(v T) error {
			branch := els
			if pred(v) {
				branch = then
			}
			if err := branch.subscribe(ctx, d.next, nil); err != nil {
				return err
			}
			if d.stopped {
				return ErrComplete
			}
			return nil
		}, nil)
	})
}

// Retry resubscribes upstream when it fails, up to n more times. Values
// from failed attempts have already been forwarded and are not retracted.
// Failures raised by downstream observers are never retried. Honours
// [WithBackoff], [WithClock] and [WithLogger].
//
// Panics if n is negative.
func (o *Observable[T]) Retry(n int, opts ...Option) *Observable[T] {
	if n < 0 {
		panic("rx: Retry requires n >= 0")
	}
	cfg := newConfig(opts)
	return derive(o, "retry", func(ctx context.Context, emit Observer[T]) error {
		d := &downstream[T]{emit: emit}
		backoff := cfg.backoff
		for attempt := 0; ; attempt++ {
			err := o.subscribe(ctx, d.next, nil)
			if err == nil || IsComplete(err) || d.err != nil {
				return err
			}
			if attempt >= n || ctx.Err() != nil {
				return err
			}
			cfg.logger.WithError(err).WithField("attempt", attempt+1).Warn("rx: retrying failed stage")
			if err := sleep(ctx, cfg.clock, backoff); err != nil {
				return err
			}
			backoff *= 2
		}
	})
}
