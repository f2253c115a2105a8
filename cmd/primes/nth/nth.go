package nth

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"github.com/wetware/primes/cmd/internal/args"
	"github.com/wetware/primes/cmd/internal/config"
	"github.com/wetware/primes/cmd/internal/flags"
	"github.com/wetware/primes/prime"
	"golang.org/x/sync/errgroup"
)

func Command() *cli.Command {
	return &cli.Command{
		// primes nth [--algo trial|sieve] <n>...
		////
		Name:      "nth",
		Usage:     "print the n-th prime for each argument",
		ArgsUsage: "<n>...",
		Flags:     flags.AlgoFlags(),
		Before:    config.Before,
		Action:    Main,
	}
}

func Main(c *cli.Context) error {
	find, err := prime.Lookup(c.String("algo"))
	if err != nil {
		return cli.Exit(err, 2)
	}

	ns, err := args.Uints(c.Args().Slice())
	if err != nil {
		return cli.Exit(err, 2)
	}

	results := make([]uint64, len(ns))
	g, ctx := errgroup.WithContext(c.Context)
	for i, n := range ns {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			results[i] = find(n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, p := range results {
		if _, err := fmt.Fprintln(c.App.Writer, p); err != nil {
			return err
		}
	}

	return nil
}
