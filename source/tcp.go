package source

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/baxromumarov/rx"
)

// Message is one line received by [Serve] together with the address of
// the peer that sent it.
type Message struct {
	Remote string
	Text   string
}

// Listen is [Serve] on a listener opened per subscription.
// The listen error, if any, fails the subscription.
func Listen(network, address string, opts ...Option) *rx.Observable[Message] {
	return rx.Defer(func() *rx.Observable[Message] {
		ln, err := net.Listen(network, address)
		if err != nil {
			return rx.Throw[Message](err)
		}
		return Serve(ln, opts...)
	})
}

// Serve accepts connections on ln and emits every line each connection
// sends. Connections are read concurrently; emissions are serialised.
// A connection that fails is logged and dropped without failing the
// stream.
//
// Serve owns ln: it is closed when the subscription ends. If ln is closed
// by someone else, the stream completes once open connections finish.
// Serve therefore supports a single subscription. Honours [WithMaxConns],
// [WithMaxLineSize] and [WithLogger].
func Serve(ln net.Listener, opts ...Option) *rx.Observable[Message] {
	cfg := newConfig(opts)
	return rx.Create(func(ctx context.Context, emit rx.Observer[Message]) error {
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		g, gctx := errgroup.WithContext(runCtx)
		if cfg.maxConns > 0 {
			// One extra slot for the accept loop.
			g.SetLimit(cfg.maxConns + 1)
		}

		var (
			mu      sync.Mutex
			stopErr error
		)
		forward := func(m Message) error {
			mu.Lock()
			defer mu.Unlock()
			if stopErr != nil {
				return stopErr
			}
			if err := emit(m); err != nil {
				stopErr = err
				cancel()
				return err
			}
			return nil
		}

		stopClose := context.AfterFunc(gctx, func() {
			ln.Close()
		})
		defer stopClose()
		defer ln.Close()

		log := cfg.logger.WithField("listen", ln.Addr().String())
		log.Debug("source: serving")

		g.Go(func() error {
			for {
				conn, err := ln.Accept()
				if err != nil {
					if gctx.Err() != nil || errors.Is(err, net.ErrClosed) {
						return nil
					}
					return err
				}
				g.Go(func() error {
					readConn(gctx, conn, cfg, log, forward)
					return nil
				})
			}
		})
		err := g.Wait()

		mu.Lock()
		defer mu.Unlock()
		if stopErr != nil {
			return stopErr
		}
		if err != nil {
			return err
		}
		return ctx.Err()
	}, rx.WithName("tcp-serve"), rx.WithLogger(cfg.logger))
}

func readConn(ctx context.Context, conn net.Conn, cfg config, log logrus.FieldLogger, forward func(Message) error) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	remote := conn.RemoteAddr().String()
	log = log.WithField("remote", remote)
	log.Debug("source: connection accepted")

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 4096), cfg.maxLine)
	for sc.Scan() {
		if err := forward(Message{Remote: remote, Text: sc.Text()}); err != nil {
			return
		}
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		log.WithError(err).Warn("source: connection dropped")
		return
	}
	log.Debug("source: connection closed")
}

// Dial connects to address and emits every line the peer sends. The
// stream completes when the peer closes the connection. A new connection
// is made per subscription. Honours [WithMaxLineSize] and [WithLogger].
func Dial(network, address string, opts ...Option) *rx.Observable[string] {
	cfg := newConfig(opts)
	return rx.Create(func(ctx context.Context, emit rx.Observer[string]) error {
		var d net.Dialer
		conn, err := d.DialContext(ctx, network, address)
		if err != nil {
			return err
		}
		defer conn.Close()
		stop := context.AfterFunc(ctx, func() {
			conn.Close()
		})
		defer stop()

		cfg.logger.WithField("remote", address).Debug("source: connected")

		err = scanLines(ctx, conn, cfg, emit)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}, rx.WithName("tcp-dial"), rx.WithLogger(cfg.logger))
}
