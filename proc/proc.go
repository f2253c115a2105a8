package proc

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/multierr"
	"golang.org/x/sync/semaphore"
)

// Guest exports.
const (
	// ReactorInit is emitted by TinyGo and Go for reactor modules
	// (-buildmode=c-shared).  It initializes the language runtime and
	// must run before any other export.
	ReactorInit = "_initialize"

	// Init installs the guest's start-up state and logs its greeting.
	Init = "initialize"

	// NthPrime is the exported prime finder: (i64) -> i64.
	NthPrime = "nth_prime"
)

var ErrMissingExport = errors.New("missing export")

type Config struct {
	PID            PID // random if zero
	Args, Env      []string
	Stdout, Stderr io.Writer
}

// Instantiate the compiled guest in r and run its start-up hooks.  The
// console host module must already be instantiated in r.
func (cfg Config) Instantiate(ctx context.Context, r wazero.Runtime, cm wazero.CompiledModule) (*P, error) {
	if cfg.PID.IsZero() {
		cfg.PID = NewPID()
	}

	mod, err := r.InstantiateModule(ctx, cm, cfg.WithEnv(wazero.NewModuleConfig().
		WithName(cfg.PID.String()).
		WithArgs(cfg.Args...).
		WithStdout(orDiscard(cfg.Stdout)).
		WithStderr(orDiscard(cfg.Stderr)).
		WithEnv("PRIMES_PID", cfg.PID.String()).
		WithRandSource(rand.Reader).
		WithOsyield(runtime.Gosched).
		WithSysNanosleep().
		WithSysNanotime().
		WithSysWalltime().
		WithStartFunctions())) // reactor; never run _start
	if err != nil {
		return nil, err
	}

	p := New(cfg.PID, mod)
	if err = p.Start(ctx); err != nil {
		return nil, multierr.Append(err, mod.Close(ctx))
	}

	return p, nil
}

func (cfg Config) WithEnv(mc wazero.ModuleConfig) wazero.ModuleConfig {
	for _, s := range cfg.Env {
		k, v, ok := strings.Cut(s, "=")
		if !ok {
			slog.Warn("ignored unparsable environment variable",
				"var", s)
			continue
		}

		mc = mc.WithEnv(k, v)
	}

	return mc
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}

	return w
}

// P is a running guest instance.  Wasm instances are not safe for
// concurrent use, so calls into the guest are serialized.
type P struct {
	pid   PID
	mod   api.Module
	sem   *semaphore.Weighted
	ready bool // guarded by sem
}

func New(pid PID, mod api.Module) *P {
	return &P{
		pid: pid,
		mod: mod,
		sem: semaphore.NewWeighted(1),
	}
}

func (p *P) PID() PID {
	return p.pid
}

func (p *P) String() string {
	return p.pid.String()
}

func (p *P) Close(ctx context.Context) error {
	return p.mod.Close(ctx)
}

// Start runs the language runtime's reactor initializer, if the guest
// has one, followed by Init.
func (p *P) Start(ctx context.Context) error {
	if p.mod.ExportedFunction(ReactorInit) != nil {
		if err := p.call(ctx, Call{Method: ReactorInit}, nil); err != nil {
			return err
		}
	}

	return p.Init(ctx)
}

// Init calls the guest's initialize export.  It is safe to call more
// than once; calls after the first successful one are no-ops.  Guests
// that do not export initialize are treated as already initialized.
func (p *P) Init(ctx context.Context) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)

	if p.ready {
		return nil
	}

	_, err := Call{Method: Init}.Eval(ctx, p.mod)
	if errors.Is(err, ErrMissingExport) {
		slog.DebugContext(ctx, "guest has no initializer",
			"proc", p.String())
	} else if err != nil {
		return err
	}

	p.ready = true
	return nil
}

// NthPrime returns the n-th prime as computed by the guest, or 0 if n
// is 0.
func (p *P) NthPrime(ctx context.Context, n uint64) (uint64, error) {
	if err := p.Init(ctx); err != nil {
		return 0, err
	}

	var res []uint64
	if err := p.call(ctx, Call{Method: NthPrime, Params: []uint64{n}}, &res); err != nil {
		return 0, err
	} else if len(res) != 1 {
		return 0, fmt.Errorf("%s: expected 1 result, got %d", NthPrime, len(res))
	}

	return res[0], nil
}

func (p *P) call(ctx context.Context, call Call, res *[]uint64) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)

	out, err := call.Eval(ctx, p.mod)
	if res != nil {
		*res = out
	}

	return err
}

type Call struct {
	Method string
	Params []uint64
}

func (call Call) Eval(ctx context.Context, mod api.Module) ([]uint64, error) {
	fn := mod.ExportedFunction(call.Method)
	if fn == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingExport, call.Method)
	}

	res, err := fn.Call(ctx, call.Params...)
	if errors.Is(err, context.Canceled) {
		return nil, context.Canceled
	} else if errors.Is(err, context.DeadlineExceeded) {
		return nil, context.DeadlineExceeded
	}

	return res, err
}
