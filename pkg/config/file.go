package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fuergaosi233/tsock/pkg/log"
)

// File is the YAML representation of a tsock configuration. Either
// host/port or unix_socket selects the endpoint; unix_socket wins
// when both are present.
type File struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	UnixSocket string `yaml:"unix_socket"`

	SocketTimeout  int `yaml:"socket_timeout"`  // ms
	ConnectTimeout int `yaml:"connect_timeout"` // ms
	ClientTimeout  int `yaml:"client_timeout"`  // ms
	Backlog        int `yaml:"backlog"`

	SSL *FileSSL `yaml:"ssl"`

	Verbose bool `yaml:"verbose"`
}

// FileSSL is the TLS section of a configuration file.
type FileSSL struct {
	CertFile   string `yaml:"cert_file"`
	KeyFile    string `yaml:"key_file"`
	CAFile     string `yaml:"ca_file"`
	CAPath     string `yaml:"ca_path"`
	SkipVerify bool   `yaml:"skip_verify"`
	ServerName string `yaml:"server_name"`
}

// LoadFile reads and parses a YAML configuration file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return &f, nil
}

func (f *File) endpoint() Endpoint {
	if f.UnixSocket != "" {
		return UnixEndpoint(f.UnixSocket)
	}
	return TCPEndpoint(f.Host, f.Port)
}

func (f *File) tlsOptions() *TLSOptions {
	if f.SSL == nil {
		return nil
	}
	return &TLSOptions{
		CertFile:   f.SSL.CertFile,
		KeyFile:    f.SSL.KeyFile,
		CAFile:     f.SSL.CAFile,
		CAPath:     f.SSL.CAPath,
		SkipVerify: f.SSL.SkipVerify,
		ServerName: f.SSL.ServerName,
	}
}

// ClientConfig converts the file into a client configuration.
func (f *File) ClientConfig(logger *log.Logger) *Client {
	return &Client{
		Endpoint:       f.endpoint(),
		SocketTimeout:  f.SocketTimeout,
		ConnectTimeout: f.ConnectTimeout,
		TLS:            f.tlsOptions(),
		Logger:         logger,
	}
}

// ServerConfig converts the file into a server configuration.
func (f *File) ServerConfig(logger *log.Logger) *Server {
	backlog := f.Backlog
	if backlog == 0 {
		backlog = DefaultBacklog
	}
	return &Server{
		Endpoint:      f.endpoint(),
		Backlog:       backlog,
		ClientTimeout: f.ClientTimeout,
		TLS:           f.tlsOptions(),
		Logger:        logger,
	}
}
