package util_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ipfs/boxo/files"
	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thejerf/suture/v4"
	"github.com/wetware/primes/util"
)

func TestLoadByteCode(t *testing.T) {
	t.Parallel()

	ctx := context.TODO()
	want := []byte("\x00asm\x01\x00\x00\x00")

	t.Run("File", func(t *testing.T) {
		got, err := util.LoadByteCode(ctx, files.NewBytesFile(want))
		require.NoError(t, err)
		require.Equal(t, want, got)
	})

	t.Run("Directory", func(t *testing.T) {
		dir := files.NewMapDirectory(map[string]files.Node{
			"README.md": files.NewBytesFile([]byte("# guest")),
			"bin": files.NewMapDirectory(map[string]files.Node{
				util.GuestFile: files.NewBytesFile(want),
			}),
		})

		got, err := util.LoadByteCode(ctx, dir)
		require.NoError(t, err)
		require.Equal(t, want, got)
	})

	t.Run("Missing", func(t *testing.T) {
		dir := files.NewMapDirectory(map[string]files.Node{
			"other.wasm": files.NewBytesFile(want),
		})

		_, err := util.LoadByteCode(ctx, dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), util.GuestFile)
	})
}

func TestLoadGuest(t *testing.T) {
	t.Parallel()

	ctx := context.TODO()

	t.Run("Local", func(t *testing.T) {
		name := filepath.Join(t.TempDir(), "guest.wasm")
		require.NoError(t, os.WriteFile(name, []byte("bytecode"), 0644))

		got, err := util.LoadGuest(ctx, nil, name)
		require.NoError(t, err)
		require.Equal(t, []byte("bytecode"), got)
	})

	t.Run("LocalMissing", func(t *testing.T) {
		_, err := util.LoadGuest(ctx, nil, filepath.Join(t.TempDir(), "nope.wasm"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("IPFSWithoutClient", func(t *testing.T) {
		const name = "/ipfs/QmRecDLNaESeNY3oUFYZKK9ftdANBB8kuLaMdAXMD43yon"
		require.True(t, util.IsIPFSPath(name))

		_, err := util.LoadGuest(ctx, nil, name)
		require.ErrorIs(t, err, util.ErrNoIPFS)
	})
}

func TestLoader(t *testing.T) {
	t.Parallel()

	ctx := context.TODO()
	name := filepath.Join(t.TempDir(), "guest.wasm")
	require.NoError(t, os.WriteFile(name, []byte("bytecode"), 0644))

	loader := &util.Loader{Addr: "invalid-endpoint"}
	got, err := loader.Load(ctx, name)
	require.NoError(t, err, "local files should not need IPFS")
	require.Equal(t, []byte("bytecode"), got)
	require.Nil(t, loader.IPFS)

	_, err = loader.Load(ctx, "/ipfs/QmRecDLNaESeNY3oUFYZKK9ftdANBB8kuLaMdAXMD43yon")
	require.Error(t, err, "should fail to connect to an invalid endpoint")
}

func TestIsIPFSPath(t *testing.T) {
	t.Parallel()

	assert.False(t, util.IsIPFSPath("guest/main.wasm"))
	assert.False(t, util.IsIPFSPath("/tmp/main.wasm"))
	assert.True(t, util.IsIPFSPath("/ipfs/QmRecDLNaESeNY3oUFYZKK9ftdANBB8kuLaMdAXMD43yon/main.wasm"))
}

func TestNewIPFSClient_invalid(t *testing.T) {
	t.Parallel()

	_, err := util.NewIPFSClient("invalid-endpoint")
	assert.Error(t, err, "should fail with invalid multiaddr")
}

func TestListenAddrs(t *testing.T) {
	t.Parallel()

	ms, err := util.ListenAddrs(nil)
	require.NoError(t, err)
	require.Len(t, ms, len(util.DefaultListenAddrs))

	ms, err = util.ListenAddrs([]string{"/ip4/127.0.0.1/tcp/0"})
	require.NoError(t, err)
	require.Len(t, ms, 1)
	require.Equal(t, "/ip4/127.0.0.1/tcp/0", ms[0].String())

	_, err = util.ListenAddrs([]string{"/ip4/127.0.0.1/tcp/0", "bogus", "/nope"})
	require.Error(t, err)
}

func TestAddrInfo(t *testing.T) {
	t.Parallel()

	priv, _, err := crypto.GenerateEd25519Key(rand.Reader)
	require.NoError(t, err)
	id, err := peer.IDFromPrivateKey(priv)
	require.NoError(t, err)

	info, err := util.AddrInfo("/ip4/127.0.0.1/tcp/2020/p2p/" + id.String())
	require.NoError(t, err)
	require.Equal(t, id, info.ID)
	require.Len(t, info.Addrs, 1)

	_, err = util.AddrInfo("/ip4/127.0.0.1/tcp/2020")
	require.Error(t, err, "should require a peer id")
}

func TestIdentity(t *testing.T) {
	t.Parallel()

	priv, _, err := crypto.GenerateEd25519Key(rand.Reader)
	require.NoError(t, err)
	want, err := peer.IDFromPrivateKey(priv)
	require.NoError(t, err)

	raw, err := crypto.MarshalPrivateKey(priv)
	require.NoError(t, err)

	t.Run("Base58", func(t *testing.T) {
		h, err := libp2p.New(libp2p.NoListenAddrs, util.Identity(base58.Encode(raw)))
		require.NoError(t, err)
		defer h.Close()

		require.Equal(t, want, h.ID())
	})

	t.Run("File", func(t *testing.T) {
		name := filepath.Join(t.TempDir(), "0identity")
		require.NoError(t, os.WriteFile(name, raw, 0600))

		h, err := libp2p.New(libp2p.NoListenAddrs, util.Identity(name))
		require.NoError(t, err)
		defer h.Close()

		require.Equal(t, want, h.ID())
	})

	t.Run("Generated", func(t *testing.T) {
		h, err := libp2p.New(libp2p.NoListenAddrs, util.Identity(""))
		require.NoError(t, err)
		defer h.Close()

		require.NotEqual(t, want, h.ID())
	})

	t.Run("Invalid", func(t *testing.T) {
		_, err := libp2p.New(libp2p.NoListenAddrs, util.Identity(filepath.Join(t.TempDir(), "missing")))
		require.Error(t, err)
	})
}

func TestEventHook(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	hook := util.EventHook(slog.New(slog.NewTextHandler(&buf, nil)))

	hook(suture.EventServiceTerminate{
		SupervisorName: "primes",
		ServiceName:    "http",
		Err:            errors.New("boom"),
	})
	require.Contains(t, buf.String(), "level=WARN")
	require.Contains(t, buf.String(), "http")

	buf.Reset()
	hook(suture.EventStopTimeout{
		SupervisorName: "primes",
		ServiceName:    "p2p",
	})
	require.Contains(t, buf.String(), "level=ERROR")
}
