//go:build wasm

package main

import (
	"runtime"
	"unsafe"
)

//go:wasmexport initialize
func exportInitialize() {
	initialize()
}

//go:wasmexport nth_prime
func exportNthPrime(n uint64) uint64 {
	return nthPrime(n)
}

// Writes the string addressed by seg to the host console.  The upper 32
// bits of seg hold the offset, the lower 32 bits hold the length.
//
//go:wasmimport console log
func importLog(seg uint64)

func writeConsole(msg string) {
	if msg == "" {
		return
	}

	buf := []byte(msg)
	ptr := uint32(uintptr(unsafe.Pointer(&buf[0])))
	importLog(uint64(ptr)<<32 | uint64(len(buf)))
	runtime.KeepAlive(buf)
}
