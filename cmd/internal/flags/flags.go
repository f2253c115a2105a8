package flags

import (
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"github.com/wetware/primes/prime"
	"github.com/wetware/primes/service"
)

// GlobalFlags are accepted by every command.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Aliases: []string{"l"},
			Usage:   "log level (debug, info, warn, error)",
			Value:   "info",
			EnvVars: []string{"PRIMES_LOG_LEVEL"},
		},
		&cli.PathFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "load flag defaults from a YAML file",
			EnvVars: []string{"PRIMES_CONFIG"},
		},
	}
}

// AlgoFlags select the native prime finder.
func AlgoFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "algo",
			Category: "PRIMES",
			Usage:    fmt.Sprintf("prime finding algorithm (%s)", strings.Join(prime.Algorithms(), ", ")),
			Value:    "sieve",
			EnvVars:  []string{"PRIMES_ALGO"},
		},
	}
}

// GuestFlags control how guests are loaded and run.
func GuestFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "ipfs",
			Category: "GUEST",
			Usage:    "IPFS API multiaddr used to fetch /ipfs/ paths (default: local node)",
			EnvVars:  []string{"PRIMES_IPFS"},
		},
		&cli.StringSliceFlag{
			Name:     "env",
			Category: "GUEST",
			Aliases:  []string{"e"},
			Usage:    "set guest environment variable (KEY=VALUE)",
			EnvVars:  []string{"PRIMES_ENV"},
		},
		&cli.BoolFlag{
			Name:     "debug",
			Category: "GUEST",
			Usage:    "keep guest debug info for stack traces",
			EnvVars:  []string{"PRIMES_DEBUG"},
		},
	}
}

// P2PFlags configure the libp2p host.
func P2PFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:     "listen",
			Category: "P2P",
			Usage:    "libp2p listen multiaddr",
			EnvVars:  []string{"PRIMES_LISTEN"},
		},
		&cli.StringFlag{
			Name:     "privkey",
			Category: "P2P",
			Usage:    "base58-encoded private key, or path to a key file (default: generate)",
			EnvVars:  []string{"PRIMES_PRIVKEY"},
		},
		&cli.BoolFlag{
			Name:     "mdns",
			Category: "P2P",
			Usage:    "advertise on the local network with mDNS",
			EnvVars:  []string{"PRIMES_MDNS"},
		},
	}
}

// ServiceFlags configure the network services.
func ServiceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "http",
			Category: "SERVICE",
			Usage:    "HTTP listen address (empty disables HTTP)",
			Value:    service.DefaultListenAddr,
			EnvVars:  []string{"PRIMES_HTTP"},
		},
		&cli.Uint64Flag{
			Name:     "max-n",
			Category: "SERVICE",
			Usage:    "largest n accepted from the network",
			Value:    service.DefaultMaxN,
			EnvVars:  []string{"PRIMES_MAX_N"},
		},
	}
}

// DialFlags configure outbound calls.
func DialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "peer",
			Category: "P2P",
			Aliases:  []string{"p"},
			Usage:    "serving peer multiaddr, ending in /p2p/<id> (default: discover with mDNS)",
			EnvVars:  []string{"PRIMES_PEER"},
		},
		&cli.StringFlag{
			Name:     "proc",
			Category: "P2P",
			Usage:    "remote process id",
			Value:    service.NativeID,
			EnvVars:  []string{"PRIMES_PROC"},
		},
		&cli.DurationFlag{
			Name:     "timeout",
			Category: "P2P",
			Usage:    "timeout for the whole call",
			Value:    time.Second * 10,
			EnvVars:  []string{"PRIMES_TIMEOUT"},
		},
	}
}
