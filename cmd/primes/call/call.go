package call

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/urfave/cli/v2"
	"github.com/wetware/primes/cmd/internal/args"
	"github.com/wetware/primes/cmd/internal/config"
	"github.com/wetware/primes/cmd/internal/flags"
	"github.com/wetware/primes/service"
	"github.com/wetware/primes/util"
)

func Command() *cli.Command {
	return &cli.Command{
		// primes call --peer <multiaddr> <n>...
		////
		Name:      "call",
		Usage:     "ask a serving peer for the n-th prime",
		ArgsUsage: "<n>...",
		Flags:     flags.DialFlags(),
		Before:    config.Before,
		Action:    Main,
	}
}

func Main(c *cli.Context) error {
	ns, err := args.Uints(c.Args().Slice())
	if err != nil {
		return cli.Exit(err, 2)
	}

	h, err := util.NewClient()
	if err != nil {
		return err
	}
	defer h.Close()

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	info, err := findPeer(ctx, c, h)
	if err != nil {
		return err
	}

	if err := h.Connect(ctx, info); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	slog.DebugContext(ctx, "connected",
		"peer", info.ID,
		"proc", c.String("proc"))

	for _, n := range ns {
		v, err := service.Call(ctx, h, info.ID, c.String("proc"), n)
		if err != nil {
			return fmt.Errorf("call(%d): %w", n, err)
		}

		if _, err := fmt.Fprintln(c.App.Writer, v); err != nil {
			return err
		}
	}

	return nil
}

func findPeer(ctx context.Context, c *cli.Context, h host.Host) (peer.AddrInfo, error) {
	if addr := c.String("peer"); addr != "" {
		info, err := util.AddrInfo(addr)
		if err != nil {
			return peer.AddrInfo{}, cli.Exit(fmt.Errorf("invalid peer: %w", err), 2)
		}

		return *info, nil
	}

	slog.DebugContext(ctx, "discovering peers",
		"service", service.DefaultServiceName)

	info, err := service.Discover(ctx, h, service.DefaultServiceName)
	if err != nil {
		return info, fmt.Errorf("mdns: %w", err)
	}

	return info, nil
}
