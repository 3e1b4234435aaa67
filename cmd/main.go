package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/fuergaosi233/tsock/cmd/connect"
	"github.com/fuergaosi233/tsock/cmd/listen"
	"github.com/fuergaosi233/tsock/cmd/version"
	"github.com/fuergaosi233/tsock/pkg/log"
)

func main() {
	app := &cli.Command{
		Name:  "tsock",
		Usage: "transport sockets for testing and debugging RPC endpoints",
		Commands: []*cli.Command{
			connect.GetCommand(),
			listen.GetCommand(),
			version.GetCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.ErrorMsg("%s\n", err)
		os.Exit(1)
	}
}
