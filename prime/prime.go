// Package prime finds prime numbers.
//
// Every algorithm in this package satisfies the same contract: given a
// count n, return the n-th prime (1-indexed), or 0 when n is 0.  Results
// are pure functions of n, so all of them are safe for concurrent use.
package prime

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
)

var ErrUnknownAlgorithm = errors.New("unknown algorithm")

// Func returns the n-th prime, or 0 if n == 0.
type Func func(n uint64) uint64

// List of discovered primes.  Lists are sorted in ascending order and
// only ever grow by appending a prime larger than the last element.
type List []uint64

// Divides reports whether any prime in l divides x.
func (l List) Divides(x uint64) bool {
	for _, p := range l {
		if x%p == 0 {
			return true
		}
	}

	return false
}

// Last returns the largest prime in l, or 0 if l is empty.
func (l List) Last() uint64 {
	if len(l) == 0 {
		return 0
	}

	return l[len(l)-1]
}

// Nth returns the n-th prime by trial division.  Each candidate, starting
// at 2, is tested against every prime found so far and appended when none
// of them divides it.  The loop ends once n primes have been found.
func Nth(n uint64) uint64 {
	primes := make(List, 0, min(n, 1<<16))
	for candidate := uint64(2); uint64(len(primes)) < n; candidate++ {
		if !primes.Divides(candidate) {
			primes = append(primes, candidate)
		}
	}

	return primes.Last()
}

// MaxSieveLimit caps the sieve's table at 64 MiB.
const MaxSieveLimit = 1 << 26

// Sieve returns the n-th prime using a Sieve of Eratosthenes over
// [2, Bound(n)].  Inputs whose bound exceeds MaxSieveLimit fall back to
// Nth.
func Sieve(n uint64) uint64 {
	return sieve(n, MaxSieveLimit, Nth)
}

func sieve(n, maxLimit uint64, fallback Func) uint64 {
	if n == 0 {
		return 0
	}

	limit := Bound(n)
	if limit > maxLimit {
		return fallback(n)
	}

	composite := make([]bool, limit+1)

	var count uint64
	for i := uint64(2); i <= limit; i++ {
		if composite[i] {
			continue
		}

		if count++; count == n {
			return i
		}

		if i > limit/i {
			continue // i*i is past the limit (and might overflow)
		}
		for j := i * i; j <= limit; j += i {
			composite[j] = true
		}
	}

	// Bound(n) is an upper bound on the n-th prime, so the sieve always
	// returns from inside the loop.
	panic(fmt.Sprintf("prime: sieve bound %d too small for n=%d", limit, n))
}

// Bound returns an upper bound on the n-th prime.  For n >= 6, Rosser's
// theorem gives p(n) < n(ln n + ln ln n).  Bounds that do not fit in a
// uint64 saturate at math.MaxUint64.
func Bound(n uint64) uint64 {
	if n < 6 {
		return 15
	}

	f := float64(n)
	b := math.Ceil(f * (math.Log(f) + math.Log(math.Log(f))))
	if b >= math.MaxUint64 { // float64(math.MaxUint64) rounds up to 2^64
		return math.MaxUint64
	}

	return uint64(b)
}

// IsPrime reports whether x is prime.
func IsPrime(x uint64) bool {
	if x < 2 {
		return false
	}

	for d := uint64(2); d <= x/d; d++ {
		if x%d == 0 {
			return false
		}
	}

	return true
}

var algorithms = map[string]Func{
	"trial": Nth,
	"sieve": Sieve,
}

// Lookup returns the algorithm registered under name.
func Lookup(name string) (Func, error) {
	if f, ok := algorithms[name]; ok {
		return f, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
}

// Algorithms returns the names accepted by Lookup, sorted.
func Algorithms() []string {
	return slices.Sorted(maps.Keys(algorithms))
}
