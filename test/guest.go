// Package test provides wazero fixtures shared by the host-side tests.
package test

import (
	"context"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/wetware/primes/prime"
)

// Greeting logged by GreeterWasm.
const Greeting = "Hello, world!"

// GreeterWasm is a minimal guest that imports console.log and exports
// memory and initialize.  Each call to initialize logs Greeting, which is
// stored at offset 0 of the guest's memory.
//
//	(module
//	  (import "console" "log" (func $log (param i64)))
//	  (memory (export "memory") 1)
//	  (func (export "initialize") (call $log (i64.const 13)))
//	  (data (i32.const 0) "Hello, world!"))
var GreeterWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, // magic, version

	// type section: (i64) -> (), () -> ()
	0x01, 0x08, 0x02,
	0x60, 0x01, 0x7e, 0x00,
	0x60, 0x00, 0x00,

	// import section: console.log, type 0
	0x02, 0x0f, 0x01,
	0x07, 'c', 'o', 'n', 's', 'o', 'l', 'e',
	0x03, 'l', 'o', 'g',
	0x00, 0x00,

	// function section: one function of type 1
	0x03, 0x02, 0x01, 0x01,

	// memory section: one page
	0x05, 0x03, 0x01, 0x00, 0x01,

	// export section
	0x07, 0x17, 0x02,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x0a, 'i', 'n', 'i', 't', 'i', 'a', 'l', 'i', 'z', 'e', 0x00, 0x01,

	// code section: i64.const 13; call 0; end
	0x0a, 0x08, 0x01,
	0x06, 0x00, 0x42, 0x0d, 0x10, 0x00, 0x0b,

	// data section: "Hello, world!" at offset 0
	0x0b, 0x13, 0x01,
	0x00, 0x41, 0x00, 0x0b,
	0x0d, 'H', 'e', 'l', 'l', 'o', ',', ' ', 'w', 'o', 'r', 'l', 'd', '!',
}

// FakeModule is the host module imported by FakeGuestWasm.
const FakeModule = "fake"

// FakeGuestWasm forwards its exports to FakeModule, which the test
// supplies from Go.
//
//	(module
//	  (import "fake" "initialize" (func $init))
//	  (import "fake" "nth_prime" (func $nth (param i64) (result i64)))
//	  (func (export "initialize") (call $init))
//	  (func (export "nth_prime") (param i64) (result i64)
//	    (call $nth (local.get 0))))
var FakeGuestWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, // magic, version

	// type section: () -> (), (i64) -> (i64)
	0x01, 0x09, 0x02,
	0x60, 0x00, 0x00,
	0x60, 0x01, 0x7e, 0x01, 0x7e,

	// import section: fake.initialize (type 0), fake.nth_prime (type 1)
	0x02, 0x24, 0x02,
	0x04, 'f', 'a', 'k', 'e',
	0x0a, 'i', 'n', 'i', 't', 'i', 'a', 'l', 'i', 'z', 'e',
	0x00, 0x00,
	0x04, 'f', 'a', 'k', 'e',
	0x09, 'n', 't', 'h', '_', 'p', 'r', 'i', 'm', 'e',
	0x00, 0x01,

	// function section: two functions, types 0 and 1
	0x03, 0x03, 0x02, 0x00, 0x01,

	// export section: initialize (func 2), nth_prime (func 3)
	0x07, 0x1a, 0x02,
	0x0a, 'i', 'n', 'i', 't', 'i', 'a', 'l', 'i', 'z', 'e', 0x00, 0x02,
	0x09, 'n', 't', 'h', '_', 'p', 'r', 'i', 'm', 'e', 0x00, 0x03,

	// code section
	0x0a, 0x0d, 0x02,
	0x04, 0x00, 0x10, 0x00, 0x0b, // call 0; end
	0x06, 0x00, 0x20, 0x00, 0x10, 0x01, 0x0b, // local.get 0; call 1; end
}

// FakeGuest stands in for the compiled guest.  FakeGuestWasm runs as a
// regular guest module, while the work is done by Go functions that
// count how often they are called.
type FakeGuest struct {
	Func  prime.Func // defaults to prime.Nth
	Inits atomic.Int32
	Calls atomic.Int32
}

// Instantiate the FakeModule host module and a FakeGuestWasm instance
// named name.  FakeModule is bound to g, so a runtime holds at most one
// FakeGuest.
func (g *FakeGuest) Instantiate(ctx context.Context, r wazero.Runtime, name string) (api.Module, error) {
	if _, err := r.NewHostModuleBuilder(FakeModule).
		NewFunctionBuilder().
		WithFunc(func(context.Context) {
			g.Inits.Add(1)
		}).
		Export("initialize").
		NewFunctionBuilder().
		WithFunc(func(_ context.Context, n uint64) uint64 {
			g.Calls.Add(1)
			return g.nth(n)
		}).
		Export("nth_prime").
		Instantiate(ctx); err != nil {
		return nil, err
	}

	return r.InstantiateWithConfig(ctx, FakeGuestWasm, wazero.NewModuleConfig().
		WithName(name).
		WithStartFunctions())
}

func (g *FakeGuest) nth(n uint64) uint64 {
	if g.Func == nil {
		return prime.Nth(n)
	}

	return g.Func(n)
}

// Memory is an api.Memory backed by a byte slice.  Only Read is
// implemented.
type Memory struct {
	api.Memory
	Data []byte
}

func (m Memory) Read(offset, byteCount uint32) ([]byte, bool) {
	end := uint64(offset) + uint64(byteCount)
	if end > uint64(len(m.Data)) {
		return nil, false
	}

	return m.Data[offset:end], true
}

// Module is an api.Module exposing Mem as its memory.  Only Name and
// Memory are implemented.
type Module struct {
	api.Module
	ModuleName string
	Mem        api.Memory
}

func (m Module) Name() string {
	return m.ModuleName
}

func (m Module) Memory() api.Memory {
	return m.Mem
}
