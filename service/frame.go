package service

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxFrameSize bounds the frames accepted by ReadFrame.
const DefaultMaxFrameSize = 1 << 16

var ErrFrameTooLarge = errors.New("frame too large")

const (
	statusOK byte = iota
	statusError
)

func ReadFrame(r *bufio.Reader) ([]byte, error) {
	size, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	} else if size > DefaultMaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}
	buf := make([]byte, size)

	_, err = io.ReadFull(r, buf)
	return buf, err
}

func WriteFrame(w io.Writer, body []byte) error {
	// Write uvarint header
	////
	var buf [binary.MaxVarintLen64]byte
	size := uint64(len(body))
	n := binary.PutUvarint(buf[:], size)
	if _, err := io.Copy(w, bytes.NewReader(buf[:n])); err != nil {
		return err
	}

	// Write body
	////
	_, err := io.Copy(w, bytes.NewReader(body))
	return err
}

// WriteRequest writes n as a uvarint frame.
func WriteRequest(w io.Writer, n uint64) error {
	return WriteFrame(w, binary.AppendUvarint(nil, n))
}

func ReadRequest(r *bufio.Reader) (uint64, error) {
	body, err := ReadFrame(r)
	if err != nil {
		return 0, err
	}

	n, size := binary.Uvarint(body)
	if size <= 0 || size != len(body) {
		return 0, errors.New("malformed request")
	}

	return n, nil
}

// WriteResponse writes a status byte followed by either the uvarint
// result or, on failure, the error message.
func WriteResponse(w io.Writer, prime uint64, failure error) error {
	if failure != nil {
		body := append([]byte{statusError}, failure.Error()...)
		return WriteFrame(w, body)
	}

	body := binary.AppendUvarint([]byte{statusOK}, prime)
	return WriteFrame(w, body)
}

// ReadResponse returns the result, or a RemoteError if the server
// reported a failure.
func ReadResponse(r *bufio.Reader) (uint64, error) {
	body, err := ReadFrame(r)
	if err != nil {
		return 0, err
	} else if len(body) == 0 {
		return 0, errors.New("empty response")
	}

	switch body[0] {
	case statusOK:
		prime, size := binary.Uvarint(body[1:])
		if size <= 0 || size != len(body)-1 {
			return 0, errors.New("malformed response")
		}
		return prime, nil

	case statusError:
		return 0, RemoteError(body[1:])

	default:
		return 0, fmt.Errorf("unknown response status %d", body[0])
	}
}

// RemoteError is a failure reported by the serving peer.
type RemoteError string

func (err RemoteError) Error() string {
	return "remote: " + string(err)
}
