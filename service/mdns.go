package service

import (
	"context"
	"log/slog"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/peerstore"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
)

// DefaultServiceName is advertised over mDNS by serving peers.
const DefaultServiceName = "primes.local"

// MDNS advertises the host on the local network, and reports peers
// that advertise the same service name to Handler.
type MDNS struct {
	Host        host.Host
	ServiceName string       // defaults to DefaultServiceName
	Handler     mdns.Notifee // defaults to StorePeer
	Logger      *slog.Logger
}

func (m *MDNS) String() string {
	return "mdns"
}

func (m *MDNS) Log() *slog.Logger {
	log := m.Logger
	if log == nil {
		log = slog.Default()
	}

	return log.With(
		"service", m.String(),
		"name", m.serviceName())
}

func (m *MDNS) Serve(ctx context.Context) error {
	d, err := m.New()
	if err != nil {
		return err
	}
	defer d.Close()
	m.Log().DebugContext(ctx, "service started")

	<-ctx.Done()
	return ctx.Err()
}

func (m *MDNS) New() (mdns.Service, error) {
	handler := m.Handler
	if handler == nil {
		handler = StorePeer{Peerstore: m.Host.Peerstore()}
	}

	d := mdns.NewMdnsService(m.Host, m.serviceName(), handler)
	return d, d.Start()
}

func (m *MDNS) serviceName() string {
	if m.ServiceName == "" {
		return DefaultServiceName
	}

	return m.ServiceName
}

// StorePeer is a peer handler that inserts the peer in the
// supplied Peerstore.
type StorePeer struct {
	peerstore.Peerstore
}

func (s StorePeer) HandlePeerFound(info peer.AddrInfo) {
	s.AddAddrs(info.ID, info.Addrs, peerstore.AddressTTL) // assume a dynamic environment
}

// PeerChan delivers discovered peers without blocking discovery.  Peers
// found while the channel is full are dropped.
type PeerChan chan peer.AddrInfo

func (ch PeerChan) HandlePeerFound(info peer.AddrInfo) {
	select {
	case ch <- info:
	default:
	}
}

// Discover blocks until mDNS finds a peer other than h, or ctx expires.
func Discover(ctx context.Context, h host.Host, name string) (peer.AddrInfo, error) {
	found := make(PeerChan, 1)
	d, err := (&MDNS{
		Host:        h,
		ServiceName: name,
		Handler:     found,
	}).New()
	if err != nil {
		return peer.AddrInfo{}, err
	}
	defer d.Close()

	for {
		select {
		case info := <-found:
			if info.ID != h.ID() {
				return info, nil
			}

		case <-ctx.Done():
			return peer.AddrInfo{}, ctx.Err()
		}
	}
}
