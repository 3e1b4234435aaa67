package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/fuergaosi233/tsock/pkg/config"
	"github.com/fuergaosi233/tsock/pkg/log"
	"github.com/fuergaosi233/tsock/pkg/tlsconf"
)

// Handler processes one accepted connection. The connection is
// closed after the handler returns or its time budget expires.
type Handler func(*Conn) error

// Server is a listening transport socket. Listen binds the
// configured endpoint, Serve accepts connections and dispatches each
// to a handler goroutine under the configured client timeout. The
// server owns the listening handle only; each accepted stream is
// owned by its handler's Conn.
type Server struct {
	cfg    *config.Server
	tlsCfg *tls.Config
	logger *log.Logger

	mu     sync.Mutex
	nl     net.Listener
	closed bool
}

// NewServer validates the configuration and builds the server TLS
// context.
func NewServer(cfg *config.Server) (*Server, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid server config: %w", errors.Join(errs...))
	}

	tlsCfg, err := tlsconf.Server(cfg.TLS)
	if err != nil {
		return nil, fmt.Errorf("building TLS config: %w", err)
	}

	return &Server{
		cfg:    cfg,
		tlsCfg: tlsCfg,
		logger: cfg.Logger,
	}, nil
}

// Listen binds and starts listening on the configured endpoint.
// For Unix endpoints a stale socket file left by a dead process is
// removed first; a path in active use is left alone and the bind
// fails. Address and port reuse options are applied best-effort.
func (s *Server) Listen() error {
	ep := s.cfg.Endpoint

	if ep.Kind() == config.EndpointUnix {
		if err := s.removeStaleSocket(ep.Path); err != nil {
			return wrapError(NotOpen, fmt.Sprintf("could not listen on %s", ep), err)
		}
	}

	listen := s.listenFunc()
	nl, err := listen(ep.Network(), ep.Addr())
	if err != nil {
		return wrapError(NotOpen, fmt.Sprintf("could not listen on %s", ep), err)
	}

	s.mu.Lock()
	s.nl = nl
	s.closed = false
	s.mu.Unlock()

	s.logger.InfoMsg("Listening on %s\n", ep)

	return nil
}

// Addr returns the bound listener address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nl == nil {
		return nil
	}
	return s.nl.Addr()
}

// Serve accepts connections until the context is cancelled or the
// listener is closed, then returns nil. Each accepted connection is
// handled concurrently; a handler that exceeds the client timeout
// has its stream forcibly closed and is abandoned without surfacing
// an error here, so one slow client cannot stall the listener.
func (s *Server) Serve(ctx context.Context, handler Handler) error {
	s.mu.Lock()
	nl := s.nl
	s.mu.Unlock()
	if nl == nil {
		return newError(NotOpen, "serve before listen")
	}

	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	for {
		conn, err := nl.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return wrapError(Unknown, "accept failed", err)
		}

		go s.handle(conn, handler)
	}
}

// ListenAndServe binds the endpoint and serves until the context is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context, handler Handler) error {
	if err := s.Listen(); err != nil {
		return err
	}
	defer s.Close()

	return s.Serve(ctx, handler)
}

// Close shuts down the listening handle. It is idempotent and never
// returns an error; failures from an already-closed handle are
// suppressed. Accepted connections are not affected.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nl == nil || s.closed {
		return nil
	}
	s.closed = true
	_ = s.nl.Close()

	return nil
}

// handle runs one accepted connection: optional TLS handshake, then
// the handler bounded by the client timeout.
func (s *Server) handle(nc net.Conn, handler Handler) {
	id := uuid.NewString()[:8]
	s.logger.VerboseMsg("[%s] new connection from %s", id, nc.RemoteAddr())

	budget := s.cfg.ClientTimeoutDuration()

	if s.tlsCfg != nil {
		tc := tls.Server(nc, s.tlsCfg)
		if err := handshake(tc, budget); err != nil {
			s.logger.VerboseMsg("[%s] TLS handshake failed: %s", id, err)
			_ = tc.Close()
			return
		}
		nc = tc
	}

	c := newConn(nc, 0)
	defer c.Close()

	if budget == 0 {
		if err := handler(c); err != nil {
			s.logger.ErrorMsg("[%s] handling connection: %s\n", id, err)
		}
		return
	}

	done := make(chan error, 1)
	go func() {
		done <- handler(c)
	}()

	timer := time.NewTimer(budget)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			s.logger.ErrorMsg("[%s] handling connection: %s\n", id, err)
		}
	case <-timer.C:
		// fire-and-forget cancellation: close the stream, abandon
		// the callback, keep accepting
		c.Close()
		s.logger.VerboseMsg("[%s] handler exceeded %v, connection closed", id, budget)
	}
}

// removeStaleSocket unlinks path if it is a socket file nobody
// listens on anymore. A path that still accepts connections is left
// in place, the subsequent bind then fails with address in use.
func (s *Server) removeStaleSocket(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil // nothing there, bind will create it
	}

	probe, err := net.DialTimeout("unix", path, 250*time.Millisecond)
	if err == nil {
		_ = probe.Close()
		return nil
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		s.logger.VerboseMsg("Removing stale socket file %s", path)
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("removing stale socket %s: %w", path, err)
		}
	}

	return nil
}

func (s *Server) listenFunc() config.ListenFunc {
	if s.cfg.Deps != nil && s.cfg.Deps.Listen != nil {
		return s.cfg.Deps.Listen
	}
	return func(network, address string) (net.Listener, error) {
		lc := net.ListenConfig{Control: reuseControl}
		return lc.Listen(context.Background(), network, address)
	}
}
