package rx

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

type config struct {
	clock      clockwork.Clock
	logger     logrus.FieldLogger
	name       string
	onComplete []func()
	onError    func(error)
	panicAsErr bool
	backoff    time.Duration
}

// Option configures an observable, an operator, or a single subscription.
// Each call site documents which options it honours; the rest are ignored.
type Option func(*config)

func defaultConfig() config {
	return config{
		clock:  clockwork.NewRealClock(),
		logger: defaultLogger(),
	}
}

func newConfig(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithClock sets the clock used by time-based operators and sources
// ([Observable.Delay], [Observable.Debounce], [Observable.Sample],
// [BufferWithTime], [Window], [TimeInterval], [Interval] and the
// [Observable.Retry] backoff).
// Tests pass a fake clock to drive deadlines deterministically.
// It panics if c is nil.
func WithClock(c clockwork.Clock) Option {
	if c == nil {
		panic("rx: WithClock requires non-nil clock")
	}
	return func(cfg *config) {
		cfg.clock = c
	}
}

// WithLogger sets the logger used for lifecycle events of an observable or
// subscription. The default is the logrus standard logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(cfg *config) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// WithName names the stage built by [Create]. The name shows up in
// [StreamError] and in log fields.
func WithName(name string) Option {
	return func(cfg *config) {
		cfg.name = name
	}
}

// OnComplete registers a completion handler for a single subscription.
// Handlers run once, in registration order, after the producer ends either
// naturally or by the completion signal. They do not run on failure.
func OnComplete(fn func()) Option {
	return func(cfg *config) {
		if fn != nil {
			cfg.onComplete = append(cfg.onComplete, fn)
		}
	}
}

// OnError registers a failure handler for a single subscription. It runs
// with the failure before Subscribe returns it.
func OnError(fn func(error)) Option {
	return func(cfg *config) {
		cfg.onError = fn
	}
}

// WithPanicAsError makes [Async] return a recovered panic as a
// [*PanicError] from [Result.Wait] instead of re-raising it.
func WithPanicAsError() Option {
	return func(cfg *config) {
		cfg.panicAsErr = true
	}
}

// WithBackoff sets the initial delay between [Observable.Retry] attempts. The delay
// doubles after each failed attempt. Zero (the default) retries immediately.
func WithBackoff(d time.Duration) Option {
	if d < 0 {
		panic("rx: WithBackoff requires d >= 0")
	}
	return func(cfg *config) {
		cfg.backoff = d
	}
}
