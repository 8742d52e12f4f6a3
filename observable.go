package rx

import (
	"context"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Observer receives one value. Returning nil asks for more, returning
// [ErrComplete] asks upstream to stop, and any other error fails the
// subscription.
type Observer[T any] func(T) error

// Producer is the subscribe function of an [Observable]. It pushes values
// into emit and returns nil once the sequence has ended. It returns the
// error emit gave it (or its own) to stop early or to fail.
//
// A Producer is invoked once per subscription. Any state it needs must be
// created inside the invocation so that concurrent or repeated
// subscriptions never share it.
type Producer[T any] func(ctx context.Context, emit Observer[T]) error

// Observable is a cold, push-based sequence of values. Each call to
// [Observable.Subscribe] runs the producer from scratch for that subscriber.
//
// Observables are immutable once built and safe to subscribe from several
// goroutines at once.
type Observable[T any] struct {
	produce   Producer[T]
	name      string
	logger    logrus.FieldLogger
	completed atomic.Bool
}

// Create builds an observable from a producer. Honours [WithName] and
// [WithLogger].
//
// Panics if p is nil.
func Create[T any](p Producer[T], opts ...Option) *Observable[T] {
	if p == nil {
		panic("rx: Create requires non-nil producer")
	}
	cfg := newConfig(opts)
	name := cfg.name
	if name == "" {
		name = "create"
	}
	return &Observable[T]{
		produce: p,
		name:    name,
		logger:  cfg.logger,
	}
}

// derive builds an operator stage that logs through its upstream's logger.
func derive[T, R any](src *Observable[T], name string, p Producer[R]) *Observable[R] {
	return &Observable[R]{
		produce: p,
		name:    name,
		logger:  src.logger,
	}
}

// Name returns the stage name used in errors and logs.
func (o *Observable[T]) Name() string {
	return o.name
}

// IsCompleted reports whether the most recent run of this observable ended
// through the completion signal rather than by running out of values.
// It is a best-effort flag: with concurrent subscriptions the answer
// belongs to whichever run finished last.
func (o *Observable[T]) IsCompleted() bool {
	return o.completed.Load()
}

// subscribe is the subscribe boundary. It runs the producer, absorbs the
// completion signal, attributes failures to this stage, and on completion
// calls onDone. Whatever onDone returns is handed back to the caller.
func (o *Observable[T]) subscribe(ctx context.Context, emit Observer[T], onDone func() error) error {
	if err := ctx.Err(); err != nil {
		return wrapFailure(o.name, err)
	}

	err := o.produce(ctx, emit)
	if err != nil && !IsComplete(err) {
		o.logger.WithFields(logrus.Fields{
			"stage": o.name,
			"error": err,
		}).Debug("rx: stage failed")
		return wrapFailure(o.name, err)
	}
	o.completed.Store(err != nil)

	if onDone == nil {
		return nil
	}
	return wrapFailure(o.name, onDone())
}

// Subscribe runs the observable, calling onNext for every value. It blocks
// until the sequence completes or fails. Completion handlers registered
// with [OnComplete] run once after completion, whether the producer ran out
// of values or was stopped by the completion signal.
//
// Subscribe returns nil on completion and the failure otherwise. Honours
// [OnComplete], [OnError] and [WithLogger].
func (o *Observable[T]) Subscribe(ctx context.Context, onNext func(T), opts ...Option) error {
	if onNext == nil {
		onNext = func(T) {}
	}
	return o.SubscribeWith(ctx, func(v T) error {
		onNext(v)
		return nil
	}, opts...)
}

// SubscribeWith is like [Observable.Subscribe] but takes an [Observer], so
// the subscriber itself can stop the stream by returning [ErrComplete] or
// fail it by returning any other error.
func (o *Observable[T]) SubscribeWith(ctx context.Context, obs Observer[T], opts ...Option) error {
	if obs == nil {
		panic("rx: SubscribeWith requires non-nil observer")
	}
	cfg := newConfig(opts)
	log := cfg.logger.WithField("stage", o.name)
	log.Debug("rx: subscribed")

	err := o.subscribe(ctx, obs, func() error {
		for _, fn := range cfg.onComplete {
			fn()
		}
		return nil
	})
	if err != nil && !IsComplete(err) {
		log.WithError(err).Debug("rx: subscription failed")
		if cfg.onError != nil {
			cfg.onError(err)
		}
		return err
	}

	log.Debug("rx: subscription completed")
	return nil
}

// ForEach subscribes with fn and returns the first error fn returns, or the
// stream's failure. Returning [ErrComplete] from fn stops the stream
// without error.
func (o *Observable[T]) ForEach(ctx context.Context, fn func(T) error) error {
	return o.SubscribeWith(ctx, fn)
}

// ToSlice subscribes and collects every value. On failure it returns the
// values received so far together with the error.
func (o *Observable[T]) ToSlice(ctx context.Context) ([]T, error) {
	var items []T
	err := o.Subscribe(ctx, func(v T) {
		items = append(items, v)
	})
	return items, err
}

// ToChan subscribes on a new goroutine and sends every value to the
// returned channel. The error channel receives the final result (nil on
// completion) and both channels are then closed.
//
// The goroutine exits when the stream ends or ctx is cancelled; the caller
// must either drain the value channel or cancel ctx.
func (o *Observable[T]) ToChan(ctx context.Context) (<-chan T, <-chan error) {
	ch := make(chan T)
	errCh := make(chan error, 1)
	go func() {
		defer close(ch)
		defer close(errCh)
		errCh <- o.SubscribeWith(ctx, func(v T) error {
			select {
			case ch <- v:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()
	return ch, errCh
}
