package service

import (
	"path"
	"strings"

	"github.com/blang/semver/v4"
	"github.com/libp2p/go-libp2p/core/protocol"
)

var Version = semver.MustParse("0.1.0")

var Proto = VersionedID{
	ID:      "/primes",
	Version: Version,
}

type VersionedID struct {
	ID      protocol.ID
	Version semver.Version
}

func (v VersionedID) Path() string {
	return path.Clean(path.Join("/", v.String()))
}

func (v VersionedID) String() string {
	proto := string(v.ID)
	version := v.Version.String()
	return path.Join(proto, version)
}

func (v VersionedID) Unwrap() protocol.ID {
	proto := v.String()
	return protocol.ID(proto)
}

// Child returns the protocol addressing the named process.
func (v VersionedID) Child(name string) protocol.ID {
	proto := path.Join(v.String(), name)
	return protocol.ID(proto)
}

// Match reports whether id is v itself or one of its children.
func (v VersionedID) Match(id protocol.ID) bool {
	root := v.String()
	return string(id) == root || strings.HasPrefix(string(id), root+"/")
}

// ProcID returns the process addressed by id, or the empty string if
// id addresses v itself.
func (v VersionedID) ProcID(id protocol.ID) string {
	child := strings.TrimPrefix(string(id), v.String())
	return strings.TrimPrefix(child, "/")
}
