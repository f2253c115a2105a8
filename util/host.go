package util

import (
	"crypto/rand"
	"fmt"
	"os"
	"time"

	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/mr-tron/base58"
	ma "github.com/multiformats/go-multiaddr"
	"go.uber.org/multierr"
)

// DefaultListenAddrs are used by NewServer when none are given.
var DefaultListenAddrs = []string{
	"/ip4/0.0.0.0/tcp/2020",
	"/ip6/::/tcp/2020",
}

// NewClient returns a host that dials out but does not listen.
func NewClient(opts ...libp2p.Option) (host.Host, error) {
	return libp2p.New(append(DefaultClientOptions(), opts...)...)
}

func DefaultClientOptions() []libp2p.Option {
	return []libp2p.Option{
		libp2p.NoListenAddrs,
		libp2p.WithDialTimeout(time.Second * 15),
	}
}

// NewServer returns a host listening on the given multiaddrs.
func NewServer(listen []string, opts ...libp2p.Option) (host.Host, error) {
	addrs, err := ListenAddrs(listen)
	if err != nil {
		return nil, err
	}

	return libp2p.New(append(DefaultServerOptions(addrs), opts...)...)
}

func DefaultServerOptions(addrs []ma.Multiaddr) []libp2p.Option {
	return []libp2p.Option{
		libp2p.ListenAddrs(addrs...),
		libp2p.WithDialTimeout(time.Second * 15),
	}
}

// ListenAddrs parses addrs, falling back to DefaultListenAddrs if
// addrs is empty.  All parse errors are reported.
func ListenAddrs(addrs []string) ([]ma.Multiaddr, error) {
	if len(addrs) == 0 {
		addrs = DefaultListenAddrs
	}

	var ms []ma.Multiaddr
	var errs []error
	for _, a := range addrs {
		if m, err := ma.NewMultiaddr(a); err != nil {
			errs = append(errs, err)
		} else {
			ms = append(ms, m)
		}
	}

	return ms, multierr.Combine(errs...)
}

// AddrInfo parses a multiaddr ending in /p2p/<peer id>.
func AddrInfo(addr string) (*peer.AddrInfo, error) {
	m, err := ma.NewMultiaddr(addr)
	if err != nil {
		return nil, err
	}

	return peer.AddrInfoFromP2pAddr(m)
}

// Identity configures the host's private key.  The key is either a
// base58-encoded private key or the path to a file holding one.  If
// key is empty, a new Ed25519 key is generated.
func Identity(key string) libp2p.Option {
	if key == "" {
		priv, _, err := crypto.GenerateEd25519Key(rand.Reader)
		if err != nil {
			return erroptf("failed to generate Ed25519 key: %w", err)
		}

		return libp2p.Identity(priv)
	}

	b, err := base58.Decode(key)
	if err != nil {
		if b, err = os.ReadFile(key); err != nil {
			return erroptf("failed to read private key file: %w", err)
		}
	}

	priv, err := crypto.UnmarshalPrivateKey(b)
	if err != nil {
		return erroptf("failed to unmarshal private key: %w", err)
	}

	return libp2p.Identity(priv)
}

// erroptf returns a libp2p.Option that fails with the formatted error
// when applied.
func erroptf(format string, args ...any) libp2p.Option {
	err := fmt.Errorf(format, args...)
	return func(*libp2p.Config) error {
		return err
	}
}
