package transport

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fuergaosi233/tsock/pkg/config"
)

// echoHandler reads until the peer closes and echoes everything back.
func echoHandler(c *Conn) error {
	for {
		data, err := c.Read(4096)
		if err != nil {
			if IsKind(err, EndOfFile) {
				return nil
			}
			return err
		}
		if err := c.Write(data); err != nil {
			return err
		}
		if err := c.Flush(); err != nil {
			return err
		}
	}
}

func startServer(t *testing.T, cfg *config.Server, handler Handler) *Server {
	t.Helper()

	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, handler)
	}()

	t.Cleanup(func() {
		cancel()
		srv.Close()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("Serve() did not return after close")
		}
	})

	return srv
}

func connectTo(t *testing.T, srv *Server) *Socket {
	t.Helper()

	var ep config.Endpoint
	switch addr := srv.Addr().(type) {
	case *net.TCPAddr:
		ep = config.TCPEndpoint("127.0.0.1", addr.Port)
	case *net.UnixAddr:
		ep = config.UnixEndpoint(addr.Name)
	default:
		t.Fatalf("unexpected listener address type %T", addr)
	}

	s, err := NewSocket(&config.Client{Endpoint: ep, SocketTimeout: 5000})
	if err != nil {
		t.Fatalf("NewSocket() error = %v", err)
	}
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func TestServerServeBeforeListen(t *testing.T) {
	t.Parallel()

	srv, err := NewServer(&config.Server{Endpoint: config.TCPEndpoint("127.0.0.1", 0)})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	err = srv.Serve(context.Background(), echoHandler)
	if !IsKind(err, NotOpen) {
		t.Errorf("Serve() before Listen() = %v, want NotOpen", err)
	}
}

func TestServerEchoTCP(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}
	t.Parallel()

	srv := startServer(t, &config.Server{Endpoint: config.TCPEndpoint("127.0.0.1", 0)}, echoHandler)
	s := connectTo(t, srv)

	if err := s.Write([]byte("roundtrip")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var got []byte
	for len(got) < 9 {
		data, err := s.Read(9 - len(got))
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		got = append(got, data...)
	}
	if !bytes.Equal(got, []byte("roundtrip")) {
		t.Errorf("echo = %q, want roundtrip", got)
	}
}

func TestServerPingPongUnix(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.sock")

	handler := func(c *Conn) error {
		var req []byte
		for len(req) < 4 {
			data, err := c.Read(4 - len(req))
			if err != nil {
				return err
			}
			req = append(req, data...)
		}
		if !bytes.Equal(req, []byte("ping")) {
			return nil
		}
		if err := c.Write([]byte("pong")); err != nil {
			return err
		}
		return c.Flush()
	}

	srv := startServer(t, &config.Server{Endpoint: config.UnixEndpoint(path)}, handler)
	s := connectTo(t, srv)

	if err := s.Write([]byte("ping")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var got []byte
	for len(got) < 4 {
		data, err := s.Read(4 - len(got))
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		got = append(got, data...)
	}
	if !bytes.Equal(got, []byte("pong")) {
		t.Errorf("reply = %q, want pong", got)
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestServerConcurrentConnections(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}
	t.Parallel()

	started := make(chan struct{}, 8)
	release := make(chan struct{})
	handler := func(c *Conn) error {
		started <- struct{}{}
		<-release
		return nil
	}

	srv := startServer(t, &config.Server{Endpoint: config.TCPEndpoint("127.0.0.1", 0)}, handler)
	defer close(release)

	const numConns = 5
	for i := 0; i < numConns; i++ {
		connectTo(t, srv)
	}

	// all handlers run concurrently, accept never waits for one
	// callback to finish before taking the next connection
	for i := 0; i < numConns; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatalf("handler %d did not start", i)
		}
	}
}

func TestServerSlowHandlerTimedOut(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}
	t.Parallel()

	handler := func(c *Conn) error {
		var req []byte
		for len(req) < 4 {
			data, err := c.Read(4 - len(req))
			if err != nil {
				return err
			}
			req = append(req, data...)
		}

		if bytes.Equal(req, []byte("slow")) {
			time.Sleep(600 * time.Millisecond) // exceeds the budget
		}
		if err := c.Write([]byte("done")); err != nil {
			return err
		}
		return c.Flush()
	}

	srv := startServer(t, &config.Server{
		Endpoint:      config.TCPEndpoint("127.0.0.1", 0),
		ClientTimeout: 150,
	}, handler)

	// slow client: stream is closed when the budget expires, no
	// reply ever arrives
	slow := connectTo(t, srv)
	if err := slow.Write([]byte("slow")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := slow.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	_, err := slow.Read(4)
	if !IsKind(err, EndOfFile) {
		t.Fatalf("slow client Read() = %v, want EndOfFile", err)
	}

	// the listener keeps accepting well-behaved connections
	fast := connectTo(t, srv)
	if err := fast.Write([]byte("fast")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := fast.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var got []byte
	for len(got) < 4 {
		data, err := fast.Read(4 - len(got))
		if err != nil {
			t.Fatalf("fast client Read() error = %v", err)
		}
		got = append(got, data...)
	}
	if !bytes.Equal(got, []byte("done")) {
		t.Errorf("fast client reply = %q, want done", got)
	}
}

func TestServerStaleUnixSocketRemoved(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}
	t.Parallel()

	path := filepath.Join(t.TempDir(), "stale.sock")

	// leave a stale socket file behind
	nl, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("net.Listen(unix): %v", err)
	}
	nl.(*net.UnixListener).SetUnlinkOnClose(false)
	nl.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stale socket file missing: %v", err)
	}

	srv, err := NewServer(&config.Server{Endpoint: config.UnixEndpoint(path)})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen() on stale socket error = %v", err)
	}
	srv.Close()
}

func TestServerActiveUnixSocketNotRemoved(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}
	t.Parallel()

	path := filepath.Join(t.TempDir(), "active.sock")

	nl, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("net.Listen(unix): %v", err)
	}
	defer nl.Close()
	go func() {
		for {
			conn, err := nl.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	srv, err := NewServer(&config.Server{Endpoint: config.UnixEndpoint(path)})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	if err := srv.Listen(); err == nil {
		srv.Close()
		t.Fatal("Listen() should fail while the path is in active use")
	}

	// the active listener is untouched
	if _, err := os.Stat(path); err != nil {
		t.Errorf("active socket file was removed: %v", err)
	}
}

func TestServerCloseIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}
	t.Parallel()

	srv, err := NewServer(&config.Server{Endpoint: config.TCPEndpoint("127.0.0.1", 0)})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	// close before listen is a no-op
	if err := srv.Close(); err != nil {
		t.Errorf("Close() before Listen() = %v, want nil", err)
	}

	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	if err := srv.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
	if err := srv.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
}

func TestServerContextCancellation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}
	t.Parallel()

	srv, err := NewServer(&config.Server{Endpoint: config.TCPEndpoint("127.0.0.1", 0)})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, echoHandler)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() after cancellation = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return after context cancellation")
	}
}
