// Package connect implements the connect command: open a transport
// socket to a remote endpoint and pipe it to standard I/O.
package connect

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/fuergaosi233/tsock/cmd/shared"
	"github.com/fuergaosi233/tsock/pkg/config"
	"github.com/fuergaosi233/tsock/pkg/log"
	"github.com/fuergaosi233/tsock/pkg/pipeio"
	"github.com/fuergaosi233/tsock/pkg/transport"
)

const categoryConnect = "connect"

const socketTimeoutFlag = "timeout"
const connectTimeoutFlag = "connect-timeout"

// GetCommand ...
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:  "connect",
		Usage: "Connect to a remote endpoint and pipe it to stdio",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := buildConfig(cmd)
			if err != nil {
				return err
			}

			s, err := transport.NewSocket(cfg)
			if err != nil {
				return fmt.Errorf("transport.NewSocket(): %s", err)
			}

			cfg.Logger.InfoMsg("Connecting to %s\n", cfg.Endpoint)

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			shared.SetupSignalHandling(cancel)

			if err := s.Connect(ctx); err != nil {
				return fmt.Errorf("connecting: %s", err)
			}
			defer s.Close()

			pipeio.Pipe(ctx, s.Stream(), pipeio.NewStdio(), func(err error) {
				cfg.Logger.VerboseMsg("piping: %s", err)
			})

			return nil
		},
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:     socketTimeoutFlag,
				Aliases:  []string{"t"},
				Usage:    "Read/write timeout in milliseconds, 0 to block",
				Category: categoryConnect,
				Value:    0,
				Required: false,
			},
			&cli.IntFlag{
				Name:     connectTimeoutFlag,
				Usage:    "Connect timeout in milliseconds, defaults to the read/write timeout",
				Category: categoryConnect,
				Value:    0,
				Required: false,
			},
		}, shared.GetCommonFlags()...),
	}
}

// buildConfig assembles the client configuration from the optional
// YAML file and the flags. Flags that are set override file values.
func buildConfig(cmd *cli.Command) (*config.Client, error) {
	verbose := cmd.Bool(shared.VerboseFlag)

	var cfg *config.Client
	if path := cmd.String(shared.ConfigFlag); path != "" {
		f, err := config.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.LoadFile(): %s", err)
		}
		cfg = f.ClientConfig(log.NewLogger(verbose || f.Verbose))
	} else {
		cfg = &config.Client{Logger: log.NewLogger(verbose)}
	}

	if cmd.IsSet(shared.HostFlag) || cmd.IsSet(shared.PortFlag) || cmd.IsSet(shared.UnixFlag) {
		ep, err := shared.ParseEndpoint(cmd)
		if err != nil {
			return nil, err
		}
		cfg.Endpoint = ep
	}

	if cmd.IsSet(socketTimeoutFlag) {
		cfg.SocketTimeout = int(cmd.Int(socketTimeoutFlag))
	}
	if cmd.IsSet(connectTimeoutFlag) {
		cfg.ConnectTimeout = int(cmd.Int(connectTimeoutFlag))
	}

	if opts := shared.ParseTLSOptions(cmd); opts != nil {
		cfg.TLS = opts
	}

	return cfg, nil
}
