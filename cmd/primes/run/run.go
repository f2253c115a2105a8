package run

import (
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"
	"github.com/wetware/primes/cmd/internal/args"
	"github.com/wetware/primes/cmd/internal/config"
	"github.com/wetware/primes/cmd/internal/flags"
	"github.com/wetware/primes/proc"
	"github.com/wetware/primes/system"
	"github.com/wetware/primes/util"
)

func Command() *cli.Command {
	return &cli.Command{
		// primes run <guest> <n>...
		////
		Name:      "run",
		Usage:     "find primes with a WebAssembly guest",
		ArgsUsage: "<guest.wasm|/ipfs/path> <n>...",
		Flags:     flags.GuestFlags(),
		Before:    config.Before,
		Action:    Main,
	}
}

func Main(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return cli.Exit("missing guest", 2)
	}

	ns, err := args.Uints(c.Args().Tail())
	if err != nil {
		return cli.Exit(err, 2)
	}

	loader := &util.Loader{Addr: c.String("ipfs")}
	bytecode, err := loader.Load(c.Context, name)
	if err != nil {
		return err
	}

	// Console output goes to stderr so that stdout carries results only.
	////
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
	defer r.Close(c.Context)

	p, err := proc.Config{
		Args:   c.Args().Slice(),
		Env:    c.StringSlice("env"),
		Stdout: c.App.ErrWriter,
		Stderr: c.App.ErrWriter,
	}.Load(c.Context, r, bytecode)
	if err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}
	defer p.Close(c.Context)

	slog.DebugContext(c.Context, "guest loaded",
		"guest", name,
		"proc", p)

	for _, n := range ns {
		v, err := p.NthPrime(c.Context, n)
		if err != nil {
			return fmt.Errorf("nth_prime(%d): %w", n, err)
		}

		if _, err := fmt.Fprintln(c.App.Writer, v); err != nil {
			return err
		}
	}

	return nil
}
