package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v2"
	"github.com/wetware/primes/cmd/internal/config"
	"github.com/wetware/primes/cmd/internal/flags"
	"github.com/wetware/primes/cmd/primes/call"
	"github.com/wetware/primes/cmd/primes/nth"
	"github.com/wetware/primes/cmd/primes/run"
	"github.com/wetware/primes/cmd/primes/serve"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt,
		syscall.SIGTERM)
	defer cancel()

	app := &cli.App{
		Name:      "primes",
		Usage:     "find prime numbers natively, in WebAssembly, and over the network",
		Copyright: "2020 The Wetware Project",
		Flags:     flags.GlobalFlags(),
		Before:    setup,
		Commands: []*cli.Command{
			nth.Command(),
			run.Command(),
			serve.Command(),
			call.Command(),
		},
	}

	err := app.RunContext(ctx, os.Args)
	if err != nil {
		slog.ErrorContext(ctx, err.Error())
		os.Exit(1)
	}
}

func setup(c *cli.Context) error {
	level, err := logLevel(c)
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(tint.NewHandler(c.App.ErrWriter, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})))

	return nil
}

// logLevel prefers --log-level, then the config file.
func logLevel(c *cli.Context) (slog.Level, error) {
	var level slog.Level
	if c.IsSet("log-level") {
		err := level.UnmarshalText([]byte(c.String("log-level")))
		return level, err
	}

	cfg, err := config.Load(c.Path("config"))
	if err != nil {
		return level, err
	}

	if err := level.UnmarshalText([]byte(c.String("log-level"))); err != nil {
		return level, err
	}

	return cfg.Level(level)
}
