package system

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

const (
	// ModuleName is the import module under which the console is
	// exposed to guests.
	ModuleName = "console"

	// LogFunc takes a single MemorySegment and writes the string it
	// addresses to the console, followed by a newline.
	LogFunc = "log"
)

// ConsoleConfig is the host side of the guest's logging sink.
type ConsoleConfig struct {
	Writer io.Writer    // defaults to io.Discard
	Logger *slog.Logger // reports malformed calls; defaults to slog.Default()
}

// Instantiate the console host module in r.  Guests importing
// console.log must be instantiated after this returns.
func (c ConsoleConfig) Instantiate(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	return r.NewHostModuleBuilder(ModuleName).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(c.Log),
			[]api.ValueType{MemorySegment(0).ValueType()}, // params
			[]api.ValueType{}). // return values
		Export(LogFunc).
		Instantiate(ctx)
}

func (c ConsoleConfig) Log(ctx context.Context, mod api.Module, stack []uint64) {
	if len(stack) != MemorySegment(0).NumWords() {
		c.log().ErrorContext(ctx, "unable to write to console",
			"reason", "unexpected number of parameters to host function console::log",
			"stack", stack)
		return
	}

	seg := MemorySegment(stack[0])
	msg, ok := seg.Load(mod.Memory())
	if !ok {
		c.log().ErrorContext(ctx, "out-of-bounds memory access",
			"module", mod.Name(),
			"offset", seg.Offset(),
			"length", seg.Length())
		return
	}

	if _, err := fmt.Fprintln(c.writer(), string(msg)); err != nil {
		c.log().ErrorContext(ctx, "failed to write to console",
			"module", mod.Name(),
			"reason", err)
	}
}

func (c ConsoleConfig) writer() io.Writer {
	if c.Writer == nil {
		return io.Discard
	}

	return c.Writer
}

func (c ConsoleConfig) log() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}

	return c.Logger
}
