package proc

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/wetware/primes/system"
	"go.uber.org/multierr"
)

// RuntimeConfig builds a wazero runtime with the host modules that
// guests import: WASI and the console.
type RuntimeConfig struct {
	Console system.ConsoleConfig
	Debug   bool // keep DWARF for guest stack traces
}

func (c RuntimeConfig) New(ctx context.Context) (wazero.Runtime, error) {
	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().
		WithDebugInfoEnabled(c.Debug).
		WithCloseOnContextDone(true))

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		return nil, multierr.Append(err, r.Close(ctx))
	}

	if _, err := c.Console.Instantiate(ctx, r); err != nil {
		return nil, multierr.Append(err, r.Close(ctx))
	}

	return r, nil
}

// Load compiles bytecode and instantiates it.  The compiled module is
// released when r is closed.
func (cfg Config) Load(ctx context.Context, r wazero.Runtime, bytecode []byte) (*P, error) {
	cm, err := r.CompileModule(ctx, bytecode)
	if err != nil {
		return nil, err
	}

	return cfg.Instantiate(ctx, r, cm)
}
