package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/tetratelabs/wazero"
	"github.com/thejerf/suture/v4"
	"github.com/urfave/cli/v2"
	"github.com/wetware/primes/cmd/internal/config"
	"github.com/wetware/primes/cmd/internal/flags"
	"github.com/wetware/primes/prime"
	"github.com/wetware/primes/proc"
	"github.com/wetware/primes/service"
	"github.com/wetware/primes/system"
	"github.com/wetware/primes/util"
	"go.uber.org/multierr"
)

func Command() *cli.Command {
	return &cli.Command{
		// primes serve [--guest <path>]...
		////
		Name:  "serve",
		Usage: "serve prime finders over HTTP and libp2p",
		Flags: slices.Concat([]cli.Flag{
			&cli.StringSliceFlag{
				Name:     "guest",
				Category: "GUEST",
				Aliases:  []string{"g"},
				Usage:    "load guest from a file or /ipfs/ path",
				EnvVars:  []string{"PRIMES_GUEST"},
			},
		},
			flags.AlgoFlags(),
			flags.GuestFlags(),
			flags.P2PFlags(),
			flags.ServiceFlags()),
		Before: config.Before,
		Action: Main,
	}
}

func Main(c *cli.Context) error {
	find, err := prime.Lookup(c.String("algo"))
	if err != nil {
		return cli.Exit(err, 2)
	}

	r, err := proc.RuntimeConfig{
		Console: system.ConsoleConfig{
			Writer: c.App.ErrWriter,
			Logger: slog.Default(),
		},
		Debug: c.Bool("debug"),
	}.New(c.Context)
	if err != nil {
		return err
	}
	defer r.Close(context.Background())

	reg, err := proc.NewRegistry()
	if err != nil {
		return err
	}
	defer reg.Close(context.Background())

	if err := loadGuests(c, r, reg); err != nil {
		return err
	}

	h, err := util.NewServer(c.StringSlice("listen"),
		util.Identity(c.String("privkey")))
	if err != nil {
		return fmt.Errorf("libp2p: %w", err)
	}
	defer h.Close()

	return serve(c, h, service.Dispatcher{
		Router: service.RegistryRouter{
			Registry: reg,
			Native:   service.Native{Func: find},
		},
		MaxN: c.Uint64("max-n"),
	})
}

func loadGuests(c *cli.Context, r wazero.Runtime, reg *proc.Registry) error {
	loader := &util.Loader{Addr: c.String("ipfs")}
	for _, name := range c.StringSlice("guest") {
		bytecode, err := loader.Load(c.Context, name)
		if err != nil {
			return fmt.Errorf("load %s: %w", name, err)
		}

		p, err := proc.Config{
			Env:    c.StringSlice("env"),
			Stdout: c.App.ErrWriter,
			Stderr: c.App.ErrWriter,
		}.Load(c.Context, r, bytecode)
		if err != nil {
			return fmt.Errorf("instantiate %s: %w", name, err)
		}

		if err := reg.Add(p); err != nil {
			return multierr.Append(err, p.Close(c.Context))
		}

		slog.InfoContext(c.Context, "guest loaded",
			"guest", name,
			"proc", p)
	}

	return nil
}

func serve(c *cli.Context, h host.Host, d service.Dispatcher) error {
	sup := suture.New("primes", suture.Spec{
		EventHook: util.EventHook(slog.Default()),
	})

	sup.Add(&service.P2P{
		Host:       h,
		Dispatcher: d,
	})

	if c.Bool("mdns") {
		sup.Add(&service.MDNS{Host: h})
	}

	if addr := c.String("http"); addr != "" {
		sup.Add(&service.HTTP{
			Dispatcher: d,
			ListenAddr: addr,
		})
	}

	slog.InfoContext(c.Context, "server started",
		"peer", h.ID(),
		"addrs", h.Addrs(),
		"proto", service.Proto)
	defer slog.InfoContext(c.Context, "server stopped",
		"peer", h.ID())

	if err := sup.Serve(c.Context); !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
