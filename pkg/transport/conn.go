package transport

import (
	"bufio"
	"errors"
	"net"
	"sync"
	"time"
)

// State describes the lifecycle of a connection. Closed is terminal.
type State int

const (
	// Unopened means the connection was never established.
	Unopened State = iota
	// Open means the connection is usable.
	Open
	// Closed means the connection was shut down or failed.
	Closed
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return "unopened"
	}
}

// Conn is the per-connection I/O facade shared by client sockets and
// server-side handlers. Writes are buffered until Flush. A Conn owns
// its underlying stream exclusively; Close releases it and is safe to
// call from a concurrent goroutine (the server's timeout path does).
type Conn struct {
	mu    sync.Mutex
	nc    net.Conn
	bw    *bufio.Writer
	io    time.Duration // per-operation deadline, 0 = none
	state State
}

// newConn wraps an established stream. ioTimeout bounds each read,
// write and flush; zero blocks indefinitely.
func newConn(nc net.Conn, ioTimeout time.Duration) *Conn {
	return &Conn{
		nc:    nc,
		bw:    bufio.NewWriter(nc),
		io:    ioTimeout,
		state: Open,
	}
}

// Open is a no-op: the stream is already open on construction. It
// exists to satisfy the shared transport contract.
func (c *Conn) Open() error {
	return nil
}

// State returns the connection lifecycle state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsOpen reports whether the connection is usable.
func (c *Conn) IsOpen() bool {
	return c.State() == Open
}

// Read reads up to n bytes, bounded by the I/O timeout. It returns
// a TimedOut error when the deadline elapses and an EndOfFile error
// when the peer closed the stream, also on platforms that report the
// close as a connection reset.
func (c *Conn) Read(n int) ([]byte, error) {
	nc, timeout, err := c.stream("read")
	if err != nil {
		return nil, err
	}

	if timeout > 0 {
		_ = nc.SetReadDeadline(time.Now().Add(timeout))
		defer nc.SetReadDeadline(time.Time{})
	}

	buf := make([]byte, n)
	m, err := nc.Read(buf)
	if m > 0 {
		// data first, the error resurfaces on the next read
		return buf[:m], nil
	}

	if err != nil {
		var nerr net.Error
		switch {
		case errors.As(err, &nerr) && nerr.Timeout():
			return nil, newError(TimedOut, "socket read timed out")
		case peerClosed(err):
			_ = c.Close()
			return nil, newError(EndOfFile, "read 0 bytes")
		case errors.Is(err, net.ErrClosed):
			return nil, newError(NotOpen, "read on closed transport")
		default:
			return nil, wrapError(Unknown, "socket read failed", err)
		}
	}

	return nil, newError(EndOfFile, "read 0 bytes")
}

// Write buffers p for transmission. It does not block on the network
// unless the buffer overflows, and never flushes by itself.
func (c *Conn) Write(p []byte) error {
	nc, timeout, err := c.stream("write")
	if err != nil {
		return err
	}

	// an overflowing buffer writes through to the stream
	if timeout > 0 {
		_ = nc.SetWriteDeadline(time.Now().Add(timeout))
		defer nc.SetWriteDeadline(time.Time{})
	}

	c.mu.Lock()
	_, werr := c.bw.Write(p)
	c.mu.Unlock()
	if werr != nil {
		return c.writeError(werr)
	}
	return nil
}

// Flush transmits all buffered bytes, bounded by the I/O timeout.
func (c *Conn) Flush() error {
	nc, timeout, err := c.stream("flush")
	if err != nil {
		return err
	}

	if timeout > 0 {
		_ = nc.SetWriteDeadline(time.Now().Add(timeout))
		defer nc.SetWriteDeadline(time.Time{})
	}

	c.mu.Lock()
	ferr := c.bw.Flush()
	c.mu.Unlock()
	if ferr != nil {
		return c.writeError(ferr)
	}
	return nil
}

// Close releases the underlying stream. It is idempotent and never
// returns an error; failures during shutdown are discarded.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Closed {
		return nil
	}
	c.state = Closed
	_ = c.nc.Close()

	return nil
}

// setIOTimeout rebinds the per-operation deadline. A zero duration
// clears any deadline already armed on the stream.
func (c *Conn) setIOTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.io = d
	if c.state == Open && d == 0 {
		_ = c.nc.SetDeadline(time.Time{})
	}
}

// stream returns the underlying conn and timeout if the connection
// is open, or a NotOpen error naming the attempted operation.
func (c *Conn) stream(op string) (net.Conn, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Open {
		return nil, 0, newError(NotOpen, op+" on "+c.state.String()+" transport")
	}
	return c.nc, c.io, nil
}

func (c *Conn) writeError(err error) error {
	var nerr net.Error
	switch {
	case errors.As(err, &nerr) && nerr.Timeout():
		return newError(TimedOut, "socket write timed out")
	case errors.Is(err, net.ErrClosed):
		return newError(NotOpen, "write on closed transport")
	default:
		return wrapError(Unknown, "socket write failed", err)
	}
}
