package rx

import "context"

// Result holds the outcome of a subscription running on its own goroutine.
// Create one via [Async].
type Result[T any] struct {
	done     chan struct{}
	val      T
	err      error
	panicVal *PanicError
}

// Async subscribes to src on a new goroutine and collects its values.
// It is the bridge for hot sources: start the subscription, push into the
// subject, then [Result.Wait] for what arrived.
/* Example:
	r := rx.Async(ctx, subj.AsObservable().Take(3))
	subj.OnNext(1)
	...
	vals, err := r.Wait()
*/
// A panic inside the subscription is captured with its stack. Honours
// [WithPanicAsError], [OnComplete], [OnError] and [WithLogger].
func Async[T any](ctx context.Context, src *Observable[T], opts ...Option) *Result[[]T] {
	if src == nil {
		panic("rx: Async requires non-nil source observable")
	}
	cfg := newConfig(opts)
	r := &Result[[]T]{done: make(chan struct{})}

	go func() {
		defer close(r.done)
		defer func() {
			if v := recover(); v != nil {
				pe := newPanicError(v)
				cfg.logger.WithField("stage", src.name).Error("rx: async subscription panicked")
				if cfg.panicAsErr {
					r.err = pe
				} else {
					r.panicVal = pe
				}
			}
		}()

		var items []T
		err := src.Subscribe(ctx, func(v T) {
			items = append(items, v)
		}, opts...)
		r.val, r.err = items, err
	}()

	return r
}

// Wait blocks until the subscription ends and returns the collected values
// and the failure, if any. If the subscription panicked and
// [WithPanicAsError] was not set, Wait re-panics with the captured
// [*PanicError].
func (r *Result[T]) Wait() (T, error) {
	<-r.done
	if r.panicVal != nil {
		panic(r.panicVal)
	}
	return r.val, r.err
}

// Done returns a channel that is closed when the subscription ends.
func (r *Result[T]) Done() <-chan struct{} {
	return r.done
}
