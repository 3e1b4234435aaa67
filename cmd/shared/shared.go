// Package shared provides the CLI flag definitions and parsing
// helpers used by both the connect and listen commands.
package shared

import (
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/fuergaosi233/tsock/pkg/config"
)

const categoryCommon = "common"
const categoryTLS = "tls"

// HostFlag is the name of the flag for the TCP host.
const HostFlag = "host"

// PortFlag is the name of the flag for the TCP port.
const PortFlag = "port"

// UnixFlag is the name of the flag for a Unix domain socket path.
const UnixFlag = "unix"

// ConfigFlag is the name of the flag for a YAML configuration file.
const ConfigFlag = "config"

// VerboseFlag is the name of the flag to enable verbose logging.
const VerboseFlag = "verbose"

// SSLFlag is the name of the flag to enable TLS.
const SSLFlag = "ssl"

// CertFlag is the name of the flag for the certificate file.
const CertFlag = "cert"

// KeyFlag is the name of the flag for the private key file.
const KeyFlag = "key"

// CAFileFlag is the name of the flag for the CA bundle file.
const CAFileFlag = "ca-file"

// CAPathFlag is the name of the flag for a directory of CA files.
const CAPathFlag = "ca-path"

// SkipVerifyFlag is the name of the flag to disable peer verification.
const SkipVerifyFlag = "skip-verify"

// GetCommonFlags returns the flags shared by connect and listen.
func GetCommonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     HostFlag,
			Usage:    "Host name or IP address",
			Category: categoryCommon,
			Value:    "",
			Required: false,
		},
		&cli.IntFlag{
			Name:     PortFlag,
			Aliases:  []string{"p"},
			Usage:    "TCP port",
			Category: categoryCommon,
			Value:    0,
			Required: false,
		},
		&cli.StringFlag{
			Name:     UnixFlag,
			Aliases:  []string{"u"},
			Usage:    "Unix domain socket path, overrides host/port",
			Category: categoryCommon,
			Value:    "",
			Required: false,
		},
		&cli.StringFlag{
			Name:     ConfigFlag,
			Aliases:  []string{"c"},
			Usage:    "YAML configuration file, flags override its values",
			Category: categoryCommon,
			Value:    "",
			Required: false,
		},
		&cli.BoolFlag{
			Name:     VerboseFlag,
			Aliases:  []string{"v"},
			Usage:    "Verbose logging",
			Category: categoryCommon,
			Value:    false,
			Required: false,
		},
		&cli.BoolFlag{
			Name:     SSLFlag,
			Aliases:  []string{"s"},
			Usage:    "Use TLS encryption",
			Category: categoryTLS,
			Value:    false,
			Required: false,
		},
		&cli.StringFlag{
			Name:     CertFlag,
			Usage:    "Certificate file (PEM). May also hold the key",
			Category: categoryTLS,
			Value:    "",
			Required: false,
		},
		&cli.StringFlag{
			Name:     KeyFlag,
			Usage:    "Private key file (PEM), defaults to the certificate file",
			Category: categoryTLS,
			Value:    "",
			Required: false,
		},
		&cli.StringFlag{
			Name:     CAFileFlag,
			Usage:    "CA bundle for peer verification",
			Category: categoryTLS,
			Value:    "",
			Required: false,
		},
		&cli.StringFlag{
			Name:     CAPathFlag,
			Usage:    "Directory of CA certificates for peer verification",
			Category: categoryTLS,
			Value:    "",
			Required: false,
		},
		&cli.BoolFlag{
			Name:     SkipVerifyFlag,
			Usage:    "Skip peer certificate verification",
			Category: categoryTLS,
			Value:    false,
			Required: false,
		},
	}
}

// ParseEndpoint builds an endpoint from the host/port/unix flags.
// A Unix socket path takes precedence over host and port.
func ParseEndpoint(cmd *cli.Command) (config.Endpoint, error) {
	if path := cmd.String(UnixFlag); path != "" {
		return config.UnixEndpoint(path), nil
	}

	port := int(cmd.Int(PortFlag))
	if port == 0 {
		return config.Endpoint{}, fmt.Errorf("either --%s or --%s is required", PortFlag, UnixFlag)
	}

	return config.TCPEndpoint(cmd.String(HostFlag), port), nil
}

// ParseTLSOptions builds TLS options from the flags, or nil when TLS
// is not requested.
func ParseTLSOptions(cmd *cli.Command) *config.TLSOptions {
	if !cmd.Bool(SSLFlag) && cmd.String(CertFlag) == "" {
		return nil
	}

	return &config.TLSOptions{
		CertFile:   cmd.String(CertFlag),
		KeyFile:    cmd.String(KeyFlag),
		CAFile:     cmd.String(CAFileFlag),
		CAPath:     cmd.String(CAPathFlag),
		SkipVerify: cmd.Bool(SkipVerifyFlag),
	}
}
