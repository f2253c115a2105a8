package proc

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/mr-tron/base58"
)

var ErrInvalidPID = errors.New("invalid pid")

type PID [20]byte // 160bit opaque identifier

func NewPID() (pid PID) {
	var err error
	if pid, err = ReadPID(rand.Reader); err != nil {
		panic(err)
	}

	return
}

func ReadPID(r io.Reader) (pid PID, err error) {
	_, err = io.ReadFull(r, pid[:])
	return
}

func ParsePID(s string) (pid PID, err error) {
	var buf []byte
	if buf, err = base58.FastBase58Decoding(s); err != nil {
		return pid, fmt.Errorf("%w: %w", ErrInvalidPID, err)
	} else if len(buf) != len(pid) {
		return pid, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPID, len(pid), len(buf))
	}

	copy(pid[:], buf)
	return
}

func (pid PID) String() string {
	return base58.FastBase58Encoding(pid[:])
}

func (pid PID) IsZero() bool {
	return pid == PID{}
}
