package service_test

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	inproc "github.com/lthibault/go-libp2p-inproc-transport"
	"github.com/stretchr/testify/require"
	"github.com/wetware/primes/service"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// stream is an in-memory service.Stream.
type stream struct {
	proto  protocol.ID
	in     io.Reader
	out    bytes.Buffer
	closed bool
}

func (s *stream) Protocol() protocol.ID       { return s.proto }
func (s *stream) Read(p []byte) (int, error)  { return s.in.Read(p) }
func (s *stream) Write(p []byte) (int, error) { return s.out.Write(p) }
func (s *stream) CloseWrite() error {
	s.closed = true
	return nil
}

func newStream(t *testing.T, proto protocol.ID, n uint64) *stream {
	t.Helper()

	var req bytes.Buffer
	require.NoError(t, service.WriteRequest(&req, n))
	return &stream{proto: proto, in: &req}
}

func TestP2P_ServeStream(t *testing.T) {
	t.Parallel()

	p2p := &service.P2P{
		Dispatcher: service.Dispatcher{Router: service.RegistryRouter{}, MaxN: 100},
		Logger:     discard,
	}

	t.Run("Native", func(t *testing.T) {
		s := newStream(t, service.Proto.Child(service.NativeID), 10)
		require.NoError(t, p2p.ServeStream(context.TODO(), s))
		require.True(t, s.closed, "should close the write side")

		got, err := service.ReadResponse(bufio.NewReader(&s.out))
		require.NoError(t, err)
		require.Equal(t, uint64(29), got)
	})

	t.Run("Root", func(t *testing.T) {
		s := newStream(t, service.Proto.Unwrap(), 1)
		require.NoError(t, p2p.ServeStream(context.TODO(), s))

		got, err := service.ReadResponse(bufio.NewReader(&s.out))
		require.NoError(t, err)
		require.Equal(t, uint64(2), got)
	})

	t.Run("TooLarge", func(t *testing.T) {
		s := newStream(t, service.Proto.Unwrap(), 101)
		require.NoError(t, p2p.ServeStream(context.TODO(), s),
			"call failures are reported to the caller, not the server")

		_, err := service.ReadResponse(bufio.NewReader(&s.out))
		var remote service.RemoteError
		require.ErrorAs(t, err, &remote)
		require.Contains(t, remote.Error(), "too large")
	})

	t.Run("UnknownProc", func(t *testing.T) {
		s := newStream(t, service.Proto.Child("nope"), 1)
		require.NoError(t, p2p.ServeStream(context.TODO(), s))

		_, err := service.ReadResponse(bufio.NewReader(&s.out))
		require.ErrorAs(t, err, new(service.RemoteError))
	})

	t.Run("BadRequest", func(t *testing.T) {
		s := &stream{proto: service.Proto.Unwrap(), in: bytes.NewReader(nil)}
		require.Error(t, p2p.ServeStream(context.TODO(), s))
		require.Zero(t, s.out.Len(), "should not respond to a malformed request")
	})
}

func TestP2P_Log_noHost(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p2p := &service.P2P{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	require.NotPanics(t, func() {
		p2p.Log().Info("hello")
	}, "should not require a host")
	require.Contains(t, buf.String(), "service=p2p")
	require.NotContains(t, buf.String(), "peer=")
}

func TestP2P_Serve(t *testing.T) {
	t.Parallel()

	h, err := libp2p.New(libp2p.NoTransports,
		libp2p.NoListenAddrs,
		libp2p.Transport(inproc.New()),
		libp2p.ListenAddrStrings("/inproc/~"))
	require.NoError(t, err)
	defer h.Close()

	p2p := &service.P2P{
		Host:       h,
		Dispatcher: service.Dispatcher{Router: service.RegistryRouter{}},
		Logger:     discard,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cherr := make(chan error, 1)
	go func() {
		cherr <- p2p.Serve(ctx)
	}()

	require.Eventually(t, func() bool {
		return slices.Contains(h.Mux().Protocols(), service.Proto.Unwrap())
	}, time.Second, 10*time.Millisecond, "should register stream handler")

	cancel()
	require.ErrorIs(t, <-cherr, context.Canceled)
	require.NotContains(t, h.Mux().Protocols(), service.Proto.Unwrap(),
		"should remove stream handler on shutdown")
}

func TestCall(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	server := newLoopbackHost(t)
	client := newLoopbackHost(t)

	p2p := &service.P2P{
		Host:       server,
		Dispatcher: service.Dispatcher{Router: service.RegistryRouter{}, MaxN: 1000},
		Logger:     discard,
	}
	go p2p.Serve(ctx)
	require.Eventually(t, func() bool {
		return slices.Contains(server.Mux().Protocols(), service.Proto.Unwrap())
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, client.Connect(ctx, peer.AddrInfo{
		ID:    server.ID(),
		Addrs: server.Addrs(),
	}))

	for n, want := range map[uint64]uint64{0: 0, 1: 2, 10: 29, 1000: 7919} {
		got, err := service.Call(ctx, client, server.ID(), "", n)
		require.NoError(t, err, "n=%d", n)
		require.Equal(t, want, got, "n=%d", n)
	}

	_, err := service.Call(ctx, client, server.ID(), service.NativeID, 1001)
	require.ErrorAs(t, err, new(service.RemoteError))

	_, err = service.Call(ctx, client, server.ID(), "nope", 1)
	require.ErrorAs(t, err, new(service.RemoteError))
}

func newLoopbackHost(t *testing.T) host.Host {
	t.Helper()

	h, err := libp2p.New(libp2p.ListenAddrStrings("/ip4/127.0.0.1/tcp/0"))
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })

	return h
}
