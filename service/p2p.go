package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
)

// Stream is the subset of network.Stream used to serve a call.
type Stream interface {
	io.ReadWriter
	Protocol() protocol.ID
	CloseWrite() error
}

// P2P serves finders to libp2p peers.  Each stream carries exactly one
// round trip: a request frame holding n, and a response frame holding
// the result.
type P2P struct {
	Host       host.Host
	Dispatcher Dispatcher
	Logger     *slog.Logger
}

func (p2p *P2P) String() string {
	return "p2p"
}

func (p2p *P2P) Log() *slog.Logger {
	log := p2p.Logger
	if log == nil {
		log = slog.Default()
	}

	log = log.With("service", p2p.String())
	if p2p.Host != nil {
		log = log.With("peer", p2p.Host.ID())
	}

	return log
}

func (p2p *P2P) Serve(ctx context.Context) error {
	proto := Proto.Unwrap()
	p2p.Host.SetStreamHandlerMatch(proto, Proto.Match, func(s network.Stream) {
		defer s.Close()

		if dl, ok := ctx.Deadline(); ok {
			if err := s.SetDeadline(dl); err != nil {
				p2p.Log().WarnContext(ctx, "failed to set deadline",
					"reason", err)
				// non-fatal; continue along...
			}
		}

		if err := p2p.ServeStream(ctx, s); err != nil {
			p2p.Log().ErrorContext(ctx, "failed to serve stream",
				"reason", err,
				"stream", s.ID())
		}
	})
	defer p2p.Host.RemoveStreamHandler(proto)
	p2p.Log().DebugContext(ctx, "service started",
		"proto", proto)

	<-ctx.Done()
	return ctx.Err()
}

func (p2p *P2P) ServeStream(ctx context.Context, s Stream) error {
	n, err := ReadRequest(bufio.NewReader(s))
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}

	id := Proto.ProcID(s.Protocol())
	prime, failure := p2p.Dispatcher.NthPrime(ctx, id, n)
	if failure != nil {
		p2p.Log().DebugContext(ctx, "call failed",
			"proc", id,
			"n", n,
			"reason", failure)
	}

	if err := WriteResponse(s, prime, failure); err != nil {
		return fmt.Errorf("response: %w", err)
	}

	return s.CloseWrite()
}

// Call asks the remote peer for the n-th prime, computed by the named
// process.  An empty id selects the peer's native finder.
func Call(ctx context.Context, h host.Host, id peer.ID, proc string, n uint64) (uint64, error) {
	if proc == "" {
		proc = NativeID
	}

	s, err := h.NewStream(ctx, id, Proto.Child(proc))
	if err != nil {
		return 0, err
	}
	defer s.Close()

	if dl, ok := ctx.Deadline(); ok {
		if err := s.SetDeadline(dl); err != nil {
			return 0, err
		}
	}

	if err := WriteRequest(s, n); err != nil {
		return 0, fmt.Errorf("request: %w", err)
	}
	if err := s.CloseWrite(); err != nil {
		return 0, err
	}

	return ReadResponse(bufio.NewReader(s))
}
