package transport

import (
	"bytes"
	"context"
	"net"
	"testing"

	"github.com/fuergaosi233/tsock/pkg/config"
	"github.com/fuergaosi233/tsock/pkg/crypto"
)

// tlsFiles generates a CA plus a leaf valid for 127.0.0.1 and writes
// the PEM material into a temp dir.
func tlsFiles(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()

	mat, err := crypto.GenerateCertificates("127.0.0.1")
	if err != nil {
		t.Fatalf("GenerateCertificates() error = %v", err)
	}
	certFile, keyFile, caFile, err = mat.WriteFiles(t.TempDir())
	if err != nil {
		t.Fatalf("WriteFiles() error = %v", err)
	}
	return certFile, keyFile, caFile
}

func startTLSServer(t *testing.T, opts *config.TLSOptions) *Server {
	t.Helper()
	return startServer(t, &config.Server{
		Endpoint: config.TCPEndpoint("127.0.0.1", 0),
		TLS:      opts,
	}, echoHandler)
}

func tlsClient(t *testing.T, srv *Server, opts *config.TLSOptions) (*Socket, error) {
	t.Helper()

	port := srv.Addr().(*net.TCPAddr).Port
	s, err := NewSocket(&config.Client{
		Endpoint:      config.TCPEndpoint("127.0.0.1", port),
		SocketTimeout: 5000,
		TLS:           opts,
	})
	if err != nil {
		t.Fatalf("NewSocket() error = %v", err)
	}

	if err := s.Connect(context.Background()); err != nil {
		return nil, err
	}
	t.Cleanup(func() { s.Close() })
	return s, nil
}

func echoOnce(t *testing.T, s *Socket, msg string) {
	t.Helper()

	if err := s.Write([]byte(msg)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var got []byte
	for len(got) < len(msg) {
		data, err := s.Read(len(msg) - len(got))
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		got = append(got, data...)
	}
	if !bytes.Equal(got, []byte(msg)) {
		t.Errorf("echo = %q, want %q", got, msg)
	}
}

func TestTLSSkipVerify(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}
	t.Parallel()

	certFile, keyFile, _ := tlsFiles(t)

	srv := startTLSServer(t, &config.TLSOptions{CertFile: certFile, KeyFile: keyFile})

	s, err := tlsClient(t, srv, &config.TLSOptions{
		CertFile:   certFile,
		KeyFile:    keyFile,
		SkipVerify: true,
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	echoOnce(t, s, "over tls")
}

func TestTLSVerifyWithoutTrustFails(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}
	t.Parallel()

	certFile, keyFile, _ := tlsFiles(t)

	srv := startTLSServer(t, &config.TLSOptions{CertFile: certFile, KeyFile: keyFile})

	// no CA file and no SkipVerify: the self-signed chain is rejected
	_, err := tlsClient(t, srv, &config.TLSOptions{
		CertFile: certFile,
		KeyFile:  keyFile,
	})
	if !IsKind(err, NotOpen) {
		t.Fatalf("Connect() = %v, want NotOpen", err)
	}
}

func TestTLSMutualVerification(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}
	t.Parallel()

	certFile, keyFile, caFile := tlsFiles(t)

	// CA material on the listening side demands client certificates
	srv := startTLSServer(t, &config.TLSOptions{
		CertFile: certFile,
		KeyFile:  keyFile,
		CAFile:   caFile,
	})

	s, err := tlsClient(t, srv, &config.TLSOptions{
		CertFile: certFile,
		KeyFile:  keyFile,
		CAFile:   caFile,
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	echoOnce(t, s, "mutually verified")
}

func TestTLSServerMissingCertfile(t *testing.T) {
	t.Parallel()

	_, err := NewServer(&config.Server{
		Endpoint: config.TCPEndpoint("127.0.0.1", 0),
		TLS:      &config.TLSOptions{CertFile: "/nonexistent/cert.pem"},
	})
	if err == nil {
		t.Fatal("NewServer() with a missing certfile should fail")
	}
}

func TestTLSInjectedContext(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}
	t.Parallel()

	mat, err := crypto.GenerateCertificates("127.0.0.1")
	if err != nil {
		t.Fatalf("GenerateCertificates() error = %v", err)
	}

	srv := startTLSServer(t, &config.TLSOptions{
		Context: mat.ServerConfig(),
	})

	s, err := tlsClient(t, srv, &config.TLSOptions{
		Context: mat.ClientConfig("127.0.0.1"),
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	echoOnce(t, s, "injected context")
}
