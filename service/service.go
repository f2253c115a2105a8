//go:generate mockgen -source=service.go -destination=mock_test.go -package=service_test

// Package service exposes prime finders over the network.  The same
// contract is served over HTTP and over libp2p streams: an unsigned
// integer n goes in, the n-th prime comes out.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/wetware/primes/prime"
	"github.com/wetware/primes/proc"
)

// NativeID routes to the in-process finder rather than a guest.
const NativeID = "native"

// DefaultMaxN bounds the inputs accepted from the network.
const DefaultMaxN = 1 << 16

var (
	ErrNotFound = errors.New("not found")
	ErrTooLarge = errors.New("n too large")
)

type Finder interface {
	NthPrime(ctx context.Context, n uint64) (uint64, error)
}

type Router interface {
	Finder(id string) (Finder, error)
	List() ([]string, error)
}

// Native finds primes in the host process.
type Native struct {
	Func prime.Func // defaults to prime.Sieve
}

func (f Native) NthPrime(_ context.Context, n uint64) (uint64, error) {
	if f.Func == nil {
		return prime.Sieve(n), nil
	}

	return f.Func(n), nil
}

// RegistryRouter resolves process ids against a registry of running
// guests.  NativeID and the empty string resolve to Native.
type RegistryRouter struct {
	Registry *proc.Registry
	Native   Finder
}

func (r RegistryRouter) Finder(id string) (Finder, error) {
	if id == "" || id == NativeID {
		return r.native(), nil
	}

	if r.Registry == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	p, err := r.Registry.Get(id)
	if errors.Is(err, proc.ErrNotFound) || errors.Is(err, proc.ErrInvalidPID) {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	} else if err != nil {
		return nil, err
	}

	return p, nil
}

func (r RegistryRouter) List() ([]string, error) {
	ids := []string{NativeID}
	if r.Registry == nil {
		return ids, nil
	}

	ps, err := r.Registry.List()
	if err != nil {
		return nil, err
	}

	for _, p := range ps {
		ids = append(ids, p.String())
	}

	return ids, nil
}

func (r RegistryRouter) native() Finder {
	if r.Native == nil {
		return Native{}
	}

	return r.Native
}

// Dispatcher applies the input bound and routes a call to its finder.
// Both transports go through it.
type Dispatcher struct {
	Router Router
	MaxN   uint64 // defaults to DefaultMaxN
}

func (d Dispatcher) NthPrime(ctx context.Context, id string, n uint64) (uint64, error) {
	if limit := d.maxN(); n > limit {
		return 0, fmt.Errorf("%w: %d exceeds %d", ErrTooLarge, n, limit)
	}

	f, err := d.Router.Finder(id)
	if err != nil {
		return 0, err
	}

	return f.NthPrime(ctx, n)
}

func (d Dispatcher) maxN() uint64 {
	if d.MaxN == 0 {
		return DefaultMaxN
	}

	return d.MaxN
}
