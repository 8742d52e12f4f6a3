package rx

import (
	"context"
	"time"
)

// Time-based operators read the clock only when a value arrives; none of
// them starts a timer goroutine. A deadline is therefore checked against
// the arrival time of the next value, and a quiet source produces no
// flushes until it emits again or completes.

// Delay waits d after subscription, then subscribes upstream and forwards
// its values unchanged. The wait blocks the subscribing goroutine and ends
// early with the context error if ctx is cancelled. Honours [WithClock].
//
// Panics if d is negative.
func (o *Observable[T]) Delay(d time.Duration, opts ...Option) *Observable[T] {
	if d < 0 {
		panic("rx: Delay requires d >= 0")
	}
	cfg := newConfig(opts)
	return derive(o, "delay", func(ctx context.Context, emit Observer[T]) error {
		if err := sleep(ctx, cfg.clock, d); err != nil {
			return err
		}
		return o.subscribe(ctx, emit, nil)
	})
}

// Debounce forwards a value only if it arrived less than timeout after the
// previous arrival. The gap is measured between arrivals, not from the
// last forwarded value, and the first value is measured from subscription
// time. Honours [WithClock].
//
// Panics if timeout is not positive.
func (o *Observable[T]) Debounce(timeout time.Duration, opts ...Option) *Observable[T] {
	if timeout <= 0 {
		panic("rx: Debounce requires timeout > 0")
	}
	cfg := newConfig(opts)
	return derive(o, "debounce", func(ctx context.Context, emit Observer[T]) error {
		last := cfg.clock.Now()
		return o.subscribe(ctx, func(v T) error {
			now := cfg.clock.Now()
			quick := now.Sub(last) < timeout
			last = now
			if !quick {
				return nil
			}
			return emit(v)
		}, nil)
	})
}

// Sample forwards a value when the clock has reached the current deadline,
// then moves the deadline forward by exactly one period. The first deadline
// is subscription time plus period, so the cadence is fixed at subscription
// and does not drift with late values. Honours [WithClock].
//
// Panics if period is not positive.
func (o *Observable[T]) Sample(period time.Duration, opts ...Option) *Observable[T] {
	if period <= 0 {
		panic("rx: Sample requires period > 0")
	}
	cfg := newConfig(opts)
	return derive(o, "sample", func(ctx context.Context, emit Observer[T]) error {
		deadline := cfg.clock.Now().Add(period)
		return o.subscribe(ctx, func(v T) error {
			if cfg.clock.Now().Before(deadline) {
				return nil
			}
			deadline = deadline.Add(period)
			return emit(v)
		}, nil)
	})
}

// TimeInterval emits, for every value, the time elapsed since the previous
// value (or since subscription, for the first one). Honours [WithClock].
//
// Panics if src is nil.
func TimeInterval[T any](src *Observable[T], opts ...Option) *Observable[time.Duration] {
	if src == nil {
		panic("rx: TimeInterval requires non-nil source observable")
	}
	cfg := newConfig(opts)
	return derive(src, "time-interval", func(ctx context.Context, emit Observer[time.Duration]) error {
		last := cfg.clock.Now()
		return src.subscribe(ctx, func(T) error {
			now := cfg.clock.Now()
			elapsed := now.Sub(last)
			last = now
			return emit(elapsed)
		}, nil)
	})
}

// BufferWithTime collects values into batches. The batch holding a value
// that arrives at or after the deadline is emitted, and the deadline then
// advances by exactly one period, as in [Observable.Sample]. A non-empty
// remainder is emitted when upstream completes. Honours [WithClock].
//
// Panics if src is nil or period is not positive.
func BufferWithTime[T any](src *Observable[T], period time.Duration, opts ...Option) *Observable[[]T] {
	if src == nil {
		panic("rx: BufferWithTime requires non-nil source observable")
	}
	if period <= 0 {
		panic("rx: BufferWithTime requires period > 0")
	}
	cfg := newConfig(opts)
	return derive(src, "buffer-with-time", func(ctx context.Context, emit Observer[[]T]) error {
		d := &downstream[[]T]{emit: emit}
		b := timedBatch[T]{deadline: cfg.clock.Now().Add(period), period: period}
		return src.subscribe(ctx, func(v T) error {
			if batch, ok := b.add(v, cfg.clock.Now()); ok {
				return d.next(batch)
			}
			return nil
		}, func() error {
			if batch, ok := b.rest(); ok {
				return d.next(batch)
			}
			return nil
		})
	})
}

// Window works like [BufferWithTime] but emits each batch as its own cold
// observable that replays the captured values to every subscriber.
//
// Panics if src is nil or period is not positive.
func Window[T any](src *Observable[T], period time.Duration, opts ...Option) *Observable[*Observable[T]] {
	if src == nil {
		panic("rx: Window requires non-nil source observable")
	}
	if period <= 0 {
		panic("rx: Window requires period > 0")
	}
	cfg := newConfig(opts)
	return derive(src, "window", func(ctx context.Context, emit Observer[*Observable[T]]) error {
		d := &downstream[*Observable[T]]{emit: emit}
		b := timedBatch[T]{deadline: cfg.clock.Now().Add(period), period: period}
		return src.subscribe(ctx, func(v T) error {
			if batch, ok := b.add(v, cfg.clock.Now()); ok {
				return d.next(windowOf(src, batch))
			}
			return nil
		}, func() error {
			if batch, ok := b.rest(); ok {
				return d.next(windowOf(src, batch))
			}
			return nil
		})
	})
}

func windowOf[T any](src *Observable[T], batch []T) *Observable[T] {
	w := From(batch)
	w.name = "window-batch"
	w.logger = src.logger
	return w
}

// timedBatch is the per-subscription state of the time-bucketing operators.
type timedBatch[T any] struct {
	items    []T
	deadline time.Time
	period   time.Duration
}

// add appends v and, if now has reached the deadline, hands back the
// batch and advances the deadline.
func (b *timedBatch[T]) add(v T, now time.Time) ([]T, bool) {
	b.items = append(b.items, v)
	if now.Before(b.deadline) {
		return nil, false
	}
	b.deadline = b.deadline.Add(b.period)
	return b.rest()
}

func (b *timedBatch[T]) rest() ([]T, bool) {
	if len(b.items) == 0 {
		return nil, false
	}
	batch := b.items
	b.items = nil
	return batch, true
}
