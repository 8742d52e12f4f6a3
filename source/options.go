package source

import "github.com/sirupsen/logrus"

type config struct {
	logger   logrus.FieldLogger
	maxConns int
	maxLine  int
}

// Option configures a source.
type Option func(*config)

func newConfig(opts []Option) config {
	cfg := config{
		logger:  logrus.StandardLogger().WithField("component", "rx/source"),
		maxLine: 64 * 1024,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithLogger sets the logger for connection lifecycle events.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxConns bounds how many connections [Serve] reads from at once.
// When the limit is reached, the next connection is accepted but left
// unread until a slot frees; later ones wait in the listener's backlog.
// Zero means no limit.
// WithMaxConns panics if n is negative.
func WithMaxConns(n int) Option {
	if n < 0 {
		panic("source: WithMaxConns requires n >= 0")
	}
	return func(c *config) {
		c.maxConns = n
	}
}

// WithMaxLineSize sets the longest line a source accepts, in bytes.
// The default is 64 KiB. WithMaxLineSize panics if n is not positive.
func WithMaxLineSize(n int) Option {
	if n <= 0 {
		panic("source: WithMaxLineSize requires n > 0")
	}
	return func(c *config) {
		c.maxLine = n
	}
}
