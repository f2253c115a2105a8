//go:build !wasm

package main

import (
	"fmt"
	"io"
	"os"
)

// console stands in for the host's console.log import outside of wasm.
var console io.Writer = os.Stderr

func writeConsole(msg string) {
	fmt.Fprintln(console, msg)
}
