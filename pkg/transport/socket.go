// Package transport implements the byte-stream socket layer used by
// the RPC wire transport: outbound client sockets, a listening
// server socket with per-connection handlers, and the normalization
// of all underlying network failures into a small error taxonomy.
// It moves bytes only; framing and serialization live above it.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/fuergaosi233/tsock/pkg/config"
	"github.com/fuergaosi233/tsock/pkg/log"
	"github.com/fuergaosi233/tsock/pkg/tlsconf"
)

// Socket is an outbound transport connection. It is constructed
// unopened; Connect establishes the stream described by the
// configured endpoint, optionally wrapped in TLS. A Socket owns its
// stream exclusively. One reader and one writer may proceed
// concurrently and Close may be called from any goroutine, but
// operations must not be issued from two units of work at once.
type Socket struct {
	cfg      *config.Client
	timeouts config.Timeouts
	tlsCfg   *tls.Config
	logger   *log.Logger

	conn *Conn
}

// NewSocket validates the configuration, resolves the timeout
// policy and builds the TLS context. The socket starts Unopened.
func NewSocket(cfg *config.Client) (*Socket, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid client config: %w", errors.Join(errs...))
	}

	tlsCfg, err := tlsconf.Client(cfg.TLS, cfg.Endpoint.Host)
	if err != nil {
		return nil, fmt.Errorf("building TLS config: %w", err)
	}

	return &Socket{
		cfg:      cfg,
		timeouts: cfg.Timeouts(),
		tlsCfg:   tlsCfg,
		logger:   cfg.Logger,
	}, nil
}

// Connect opens the stream for the configured endpoint, bounded by
// the connect timeout. On success the socket transitions to Open and
// lingering close is disabled and keep-alive enabled on the socket.
// Any failure, including the TLS handshake, is reported as NotOpen
// with the attempted endpoint in the message and releases everything
// opened so far. Connecting an already-open socket is a no-op.
//
// An external endpoint adopts the supplied connection as-is: no
// dial, no TLS wrap, no socket options.
func (s *Socket) Connect(ctx context.Context) error {
	if s.conn != nil && s.conn.IsOpen() {
		return nil
	}

	ep := s.cfg.Endpoint

	if ep.Kind() == config.EndpointExternal {
		s.conn = newConn(ep.Conn, s.timeouts.IO)
		return nil
	}

	s.logger.VerboseMsg("Connecting to %s", ep)

	dial := config.GetDialContextFunc(s.cfg.Deps)
	dctx := ctx
	if s.timeouts.Connect > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, s.timeouts.Connect)
		defer cancel()
	}

	nc, err := dial(dctx, ep.Network(), ep.Addr())
	if err != nil {
		return wrapError(NotOpen, fmt.Sprintf("could not connect to %s", ep), err)
	}

	if err := applyConnOptions(nc); err != nil {
		_ = nc.Close()
		return wrapError(NotOpen, fmt.Sprintf("could not connect to %s", ep), err)
	}

	if s.tlsCfg != nil {
		s.logger.VerboseMsg("Upgrading connection to %s to TLS", ep)
		tc := tls.Client(nc, s.tlsCfg)
		if err := handshake(tc, s.timeouts.Connect); err != nil {
			_ = tc.Close()
			return wrapError(NotOpen, fmt.Sprintf("could not connect to %s", ep), err)
		}
		nc = tc
	}

	s.conn = newConn(nc, s.timeouts.IO)
	s.logger.VerboseMsg("Connected to %s", ep)

	return nil
}

// Read reads up to n bytes from the peer. See Conn.Read.
func (s *Socket) Read(n int) ([]byte, error) {
	if s.conn == nil {
		return nil, newError(NotOpen, "read on unopened transport")
	}
	return s.conn.Read(n)
}

// Write buffers p for transmission. See Conn.Write.
func (s *Socket) Write(p []byte) error {
	if s.conn == nil {
		return newError(NotOpen, "write on unopened transport")
	}
	return s.conn.Write(p)
}

// Flush transmits buffered bytes. See Conn.Flush.
func (s *Socket) Flush() error {
	if s.conn == nil {
		return newError(NotOpen, "flush on unopened transport")
	}
	return s.conn.Flush()
}

// Close releases the stream. Idempotent, never returns an error.
func (s *Socket) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// State returns the socket lifecycle state.
func (s *Socket) State() State {
	if s.conn == nil {
		return Unopened
	}
	return s.conn.State()
}

// IsOpen reports whether the socket is connected and usable.
func (s *Socket) IsOpen() bool {
	return s.State() == Open
}

// SetTimeout rebinds both the connect and the I/O timeout to the
// same value, the backward-compatible single-knob control. ms <= 0
// means no timeout. The change applies immediately to an open
// stream.
func (s *Socket) SetTimeout(ms int) {
	var d time.Duration
	if ms > 0 {
		d = time.Duration(ms) * time.Millisecond
	}

	s.timeouts = config.Timeouts{Connect: d, IO: d}
	if s.conn != nil {
		s.conn.setIOTimeout(d)
	}
}

// handshake runs a TLS handshake bounded by timeout. The deadline is
// cleared again right after, lingering deadlines would kill healthy
// connections later.
func handshake(tc *tls.Conn, timeout time.Duration) error {
	if timeout > 0 {
		_ = tc.SetDeadline(time.Now().Add(timeout))
	}

	err := tc.Handshake()

	if timeout > 0 {
		_ = tc.SetDeadline(time.Time{})
	}

	return err
}
