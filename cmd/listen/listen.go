// Package listen implements the listen command: an echo server over
// the transport socket layer, mainly for testing clients against.
package listen

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/fuergaosi233/tsock/cmd/shared"
	"github.com/fuergaosi233/tsock/pkg/config"
	"github.com/fuergaosi233/tsock/pkg/crypto"
	"github.com/fuergaosi233/tsock/pkg/log"
	"github.com/fuergaosi233/tsock/pkg/transport"
)

const categoryListen = "listen"

const clientTimeoutFlag = "client-timeout"

// GetCommand ...
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:  "listen",
		Usage: "Listen for connections and echo everything back",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := buildConfig(cmd)
			if err != nil {
				return err
			}

			srv, err := transport.NewServer(cfg)
			if err != nil {
				return fmt.Errorf("transport.NewServer(): %s", err)
			}

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			shared.SetupSignalHandling(cancel)

			if err := srv.ListenAndServe(ctx, echo); err != nil {
				return fmt.Errorf("serving: %s", err)
			}

			return nil
		},
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:     clientTimeoutFlag,
				Aliases:  []string{"t"},
				Usage:    "Per-connection handler budget in milliseconds, 0 for none",
				Category: categoryListen,
				Value:    0,
				Required: false,
			},
		}, shared.GetCommonFlags()...),
	}
}

// echo copies every received chunk straight back to the peer.
func echo(c *transport.Conn) error {
	for {
		data, err := c.Read(4096)
		if err != nil {
			if transport.IsKind(err, transport.EndOfFile) {
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

// buildConfig assembles the server configuration from the optional
// YAML file and the flags. With --ssl but no certificate file, a
// throwaway self-signed certificate is generated.
func buildConfig(cmd *cli.Command) (*config.Server, error) {
	verbose := cmd.Bool(shared.VerboseFlag)

	var cfg *config.Server
	if path := cmd.String(shared.ConfigFlag); path != "" {
		f, err := config.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.LoadFile(): %s", err)
		}
		cfg = f.ServerConfig(log.NewLogger(verbose || f.Verbose))
	} else {
		cfg = &config.Server{
			Backlog: config.DefaultBacklog,
			Logger:  log.NewLogger(verbose),
		}
	}

	if cmd.IsSet(shared.HostFlag) || cmd.IsSet(shared.PortFlag) || cmd.IsSet(shared.UnixFlag) {
		ep, err := shared.ParseEndpoint(cmd)
		if err != nil {
			return nil, err
		}
		cfg.Endpoint = ep
	}

	if cmd.IsSet(clientTimeoutFlag) {
		cfg.ClientTimeout = int(cmd.Int(clientTimeoutFlag))
	}

	if opts := shared.ParseTLSOptions(cmd); opts != nil {
		cfg.TLS = opts
	}

	if cmd.Bool(shared.SSLFlag) && (cfg.TLS == nil || cfg.TLS.CertFile == "") {
		opts, err := generateTLSOptions(cfg)
		if err != nil {
			return nil, err
		}
		cfg.TLS = opts
	}

	return cfg, nil
}

// generateTLSOptions creates throwaway certificate material so --ssl
// works without any prepared files.
func generateTLSOptions(cfg *config.Server) (*config.TLSOptions, error) {
	host := cfg.Endpoint.Host
	if host == "" {
		host = "localhost"
	}

	mat, err := crypto.GenerateCertificates(host)
	if err != nil {
		return nil, fmt.Errorf("crypto.GenerateCertificates(): %s", err)
	}

	cfg.Logger.InfoMsg("Generated a self-signed certificate for %s\n", host)

	return &config.TLSOptions{Context: mat.ServerConfig()}, nil
}
