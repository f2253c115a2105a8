package util

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/ipfs/boxo/files"
	"github.com/ipfs/boxo/path"
	"github.com/ipfs/kubo/client/rpc"
	iface "github.com/ipfs/kubo/core/coreiface"
	ma "github.com/multiformats/go-multiaddr"
	pkgerrors "github.com/pkg/errors"
)

// GuestFile is the name LoadByteCodeFromDir looks for.
const GuestFile = "main.wasm"

var ErrNoIPFS = errors.New("IPFS client not initialized")

// NewIPFSClient returns a client for the IPFS node's RPC API.  An empty
// addr selects the local node, as configured in $IPFS_PATH.
func NewIPFSClient(addr string) (iface.CoreAPI, error) {
	if addr == "" {
		return rpc.NewLocalApi()
	}

	a, err := ma.NewMultiaddr(addr)
	if err != nil {
		return nil, err
	}

	return rpc.NewApiWithClient(a, http.DefaultClient)
}

// IsIPFSPath reports whether name is a content path, such as
// /ipfs/<cid>/main.wasm, rather than a local file.
func IsIPFSPath(name string) bool {
	_, err := path.NewPath(name)
	return err == nil
}

// Loader resolves guests by name, connecting to IPFS on first use.
type Loader struct {
	IPFS iface.CoreAPI
	Addr string // IPFS API multiaddr; empty selects the local node
}

func (l *Loader) Load(ctx context.Context, name string) ([]byte, error) {
	if l.IPFS == nil && IsIPFSPath(name) {
		ipfs, err := NewIPFSClient(l.Addr)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "ipfs")
		}

		l.IPFS = ipfs
	}

	return LoadGuest(ctx, l.IPFS, name)
}

// LoadGuest returns the bytecode named by name.  Content paths are
// fetched through ipfs; anything else is read from the local
// filesystem.
func LoadGuest(ctx context.Context, ipfs iface.CoreAPI, name string) ([]byte, error) {
	p, err := path.NewPath(name)
	if err != nil {
		return os.ReadFile(name)
	}

	if ipfs == nil {
		return nil, pkgerrors.Wrap(ErrNoIPFS, name)
	}

	node, err := ipfs.Unixfs().Get(ctx, p)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "get %s", p)
	}
	defer node.Close()

	b, err := LoadByteCode(ctx, node)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "load %s", p)
	}

	return b, nil
}

// LoadByteCode loads the bytecode from the provided IPFS node.
// If the node is a directory, it will walk the directory and
// load the bytecode from the first file named "main.wasm". If
// the node is a file, it will attempt to load the bytecode from
// the file.
func LoadByteCode(ctx context.Context, node files.Node) ([]byte, error) {
	switch node := node.(type) {
	case files.File:
		return io.ReadAll(node)

	case files.Directory:
		return LoadByteCodeFromDir(ctx, node)

	default:
		return nil, pkgerrors.Errorf("unsupported node type %T", node)
	}
}

func LoadByteCodeFromDir(ctx context.Context, d files.Directory) (b []byte, err error) {
	if err = files.Walk(d, func(fpath string, node files.Node) error {
		// Early returns short-circuit the walk via errAbortWalk.
		if b != nil {
			return errAbortWalk
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if filepath.Base(fpath) == GuestFile {
			if b, err = LoadByteCode(ctx, node); err != nil {
				return err
			}

			return errAbortWalk
		}

		return nil
	}); err == errAbortWalk { // no error; we've just bottomed out
		err = nil
	}

	if err == nil && b == nil {
		err = pkgerrors.Errorf("%s not found", GuestFile)
	}

	return
}

var errAbortWalk = errors.New("abort walk")
