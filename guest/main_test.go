//go:build !wasm

package main

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// Not parallel: the tests below swap package-level state.

func TestInitialize(t *testing.T) {
	var buf bytes.Buffer
	console, once = &buf, sync.Once{}

	for i := 0; i < 3; i++ {
		initialize()
	}

	require.Equal(t, Greeting+"\n", buf.String(),
		"greeting should be logged exactly once")
}

func TestNthPrime(t *testing.T) {
	var buf bytes.Buffer
	console, once = &buf, sync.Once{}

	for n, want := range map[uint64]uint64{
		0:  0,
		1:  2,
		2:  3,
		5:  11,
		10: 29,
	} {
		require.Equal(t, want, nthPrime(n), "n=%d", n)
	}

	require.Empty(t, buf.String(), "nth_prime should have no side effects")
}
