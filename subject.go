package rx

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	list "github.com/bahlo/generic-list-go"
	"github.com/sirupsen/logrus"
)

// Subject is a hot, multicast stream. Values pushed with [Subject.OnNext]
// reach exactly the observers registered at the time of the push. What a
// late subscriber sees first depends on the constructor:
//
//   - [NewSubject]: nothing; only future pushes.
//   - [NewBehaviorSubject]: the current value, then future pushes.
//   - [NewReplaySubject]: the last n values, then future pushes.
//
// All methods are safe for concurrent use. Deliveries to a single observer
// are serialised and never interleave replayed values with live ones. An
// observer must not push into the subject it is subscribed to.
type Subject[T any] struct {
	mu        sync.Mutex
	observers list.List[*subjectObserver[T]]
	history   list.List[T]
	limit     int
	done      chan struct{}
	err       error
	closed    bool
	logger    logrus.FieldLogger
}

// subjectObserver serialises deliveries to one observer through mu. The
// stopped flag is kept outside mu so a handler can stop its own
// subscription while a delivery is in progress.
type subjectObserver[T any] struct {
	mu       sync.Mutex
	emit     Observer[T]
	element  *list.Element[*subjectObserver[T]]
	stopped  atomic.Bool
	stopOnce sync.Once
	err      error
	stop     chan struct{}
}

// deliver pushes v to the observer unless it has already stopped. The
// first non-nil result from emit stops the observer. It reports whether
// the observer is still live afterwards.
func (so *subjectObserver[T]) deliver(v T) bool {
	so.mu.Lock()
	defer so.mu.Unlock()
	return so.deliverLocked(v)
}

func (so *subjectObserver[T]) deliverLocked(v T) bool {
	if so.stopped.Load() {
		return false
	}
	if err := so.emit(v); err != nil {
		so.err = err
		so.halt()
		return false
	}
	return !so.stopped.Load()
}

// halt marks the observer stopped. It does not wait for a delivery in
// progress, so it is safe to call from inside the observer.
func (so *subjectObserver[T]) halt() {
	so.stopped.Store(true)
	so.stopOnce.Do(func() {
		close(so.stop)
	})
}

// haltAndWait is halt followed by waiting out any in-flight delivery.
// It must not be called from inside the observer.
func (so *subjectObserver[T]) haltAndWait() {
	so.halt()
	so.mu.Lock()
	so.mu.Unlock()
}

// NewSubject creates a subject that keeps no history.
func NewSubject[T any](opts ...Option) *Subject[T] {
	return newSubject[T](0, opts)
}

// NewBehaviorSubject creates a subject holding a current value, initially
// seed. Every new subscriber receives the current value first.
func NewBehaviorSubject[T any](seed T, opts ...Option) *Subject[T] {
	s := newSubject[T](1, opts)
	s.history.PushBack(seed)
	return s
}

// NewReplaySubject creates a subject that replays the last n pushed values
// to every new subscriber, oldest first.
//
// Panics if n is negative.
func NewReplaySubject[T any](n int, opts ...Option) *Subject[T] {
	if n < 0 {
		panic("rx: NewReplaySubject requires n >= 0")
	}
	return newSubject[T](n, opts)
}

func newSubject[T any](limit int, opts []Option) *Subject[T] {
	cfg := newConfig(opts)
	return &Subject[T]{
		limit:  limit,
		done:   make(chan struct{}),
		logger: cfg.logger,
	}
}

// OnNext records v in the history and pushes it to every current observer.
// Observers that return an error from this push are removed. OnNext after
// [Subject.OnCompleted] or [Subject.OnError] is a no-op.
func (s *Subject[T]) OnNext(v T) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.limit > 0 {
		s.history.PushBack(v)
		if s.history.Len() > s.limit {
			s.history.Remove(s.history.Front())
		}
	}
	targets := make([]*subjectObserver[T], 0, s.observers.Len())
	for e := s.observers.Front(); e != nil; e = e.Next() {
		targets = append(targets, e.Value)
	}
	s.mu.Unlock()

	for _, so := range targets {
		if !so.deliver(v) {
			s.remove(so)
		}
	}
}

// OnCompleted ends the subject. Streams obtained from
// [Subject.AsObservable] complete and the roster is cleared.
func (s *Subject[T]) OnCompleted() {
	s.terminate(nil)
}

// OnError ends the subject with err. Streams obtained from
// [Subject.AsObservable] fail with err.
func (s *Subject[T]) OnError(err error) {
	if err == nil {
		panic("rx: Subject.OnError requires non-nil error")
	}
	s.terminate(err)
}

func (s *Subject[T]) terminate(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.err = err
	s.observers.Init()
	close(s.done)
	s.mu.Unlock()
	s.logger.WithError(err).Debug("rx: subject terminated")
}

// Value returns the most recently pushed value (or the seed of a behavior
// subject). It returns false if the subject keeps no history or nothing
// has been pushed yet.
func (s *Subject[T]) Value() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if back := s.history.Back(); back != nil {
		return back.Value, true
	}
	var zero T
	return zero, false
}

// Observers returns the number of registered observers.
func (s *Subject[T]) Observers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.observers.Len()
}

// Subscribe registers next as a hot observer. The returned Closer removes
// it; closing twice is harmless. next may close its own subscription; a
// Close from another goroutine does not wait for a delivery already in
// progress. Subscribing to a terminated subject
// replays the history and registers nothing.
func (s *Subject[T]) Subscribe(next func(T)) io.Closer {
	if next == nil {
		panic("rx: Subject.Subscribe requires non-nil observer")
	}
	so := s.register(func(v T) error {
		next(v)
		return nil
	})
	return &subjectCloser[T]{subject: s, observer: so}
}

// register adds emit to the roster and replays the history to it before
// any live push can reach it.
func (s *Subject[T]) register(emit Observer[T]) *subjectObserver[T] {
	so := &subjectObserver[T]{
		emit: emit,
		stop: make(chan struct{}),
	}

	s.mu.Lock()
	replay := make([]T, 0, s.history.Len())
	for e := s.history.Front(); e != nil; e = e.Next() {
		replay = append(replay, e.Value)
	}
	// The observer's lock is taken before it joins the roster and held
	// until the replay is done, so live pushes queue behind the replay.
	so.mu.Lock()
	if !s.closed {
		so.element = s.observers.PushBack(so)
	}
	s.mu.Unlock()

	ok := true
	for _, v := range replay {
		if ok = so.deliverLocked(v); !ok {
			break
		}
	}
	so.mu.Unlock()
	if !ok {
		s.remove(so)
	}
	return so
}

func (s *Subject[T]) remove(so *subjectObserver[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if so.element != nil && !s.closed {
		s.observers.Remove(so.element)
	}
	so.element = nil
}

// AsObservable returns a stream over the subject. Each subscription
// registers with the subject, receives the history and then live pushes,
// and blocks until the subject terminates, ctx is cancelled, or the
// observer returns an error.
func (s *Subject[T]) AsObservable() *Observable[T] {
	return Create(func(ctx context.Context, emit Observer[T]) error {
		so := s.register(emit)
		defer func() {
			so.haltAndWait()
			s.remove(so)
		}()

		select {
		case <-so.stop:
			so.mu.Lock()
			defer so.mu.Unlock()
			return so.err
		case <-s.done:
			so.halt()
			so.mu.Lock()
			defer so.mu.Unlock()
			if so.err != nil {
				return so.err
			}
			return s.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}, WithName("subject"), WithLogger(s.logger))
}

type subjectCloser[T any] struct {
	subject  *Subject[T]
	observer *subjectObserver[T]
	once     sync.Once
}

func (c *subjectCloser[T]) Close() error {
	c.once.Do(func() {
		c.observer.halt()
		c.subject.remove(c.observer)
	})
	return nil
}
