package prime

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSieve_fallback(t *testing.T) {
	t.Parallel()

	const maxLimit = 100 // Bound(n) > 100 for n >= 22

	for n := uint64(0); n <= 60; n++ {
		require.Equal(t, Nth(n), sieve(n, maxLimit, Nth), "n=%d", n)
	}

	var called []uint64
	stub := func(n uint64) uint64 {
		called = append(called, n)
		return 1
	}

	require.NotPanics(t, func() {
		require.Equal(t, uint64(1), sieve(math.MaxUint64, MaxSieveLimit, stub))
	})
	require.Equal(t, []uint64{math.MaxUint64}, called,
		"should fall back instead of allocating")

	called = nil
	require.Equal(t, uint64(29), sieve(10, maxLimit, stub))
	require.Empty(t, called, "should sieve small inputs")
}
