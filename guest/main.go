//go:generate tinygo build -o main.wasm -target=wasi -buildmode=c-shared -scheduler=none -no-debug .

// Command guest is a WebAssembly reactor exporting a prime finder.  On
// initialization it greets the host through the console import.
package main

import (
	"sync"

	"github.com/wetware/primes/prime"
)

// Greeting is logged to the host console when the guest is initialized.
const Greeting = "Hello, world!"

var once sync.Once

// initialize is idempotent.  Only the first call logs the greeting.
func initialize() {
	once.Do(func() {
		writeConsole(Greeting)
	})
}

func nthPrime(n uint64) uint64 {
	return prime.Nth(n)
}

// main is required by the wasi target, but is never called in a reactor.
func main() {}
