// Package connector implements the paired endpoints blocks use to exchange
// halo data. A pair fixes the buffer size of each direction at creation;
// the bytes travel over a pluggable Transport.
package connector

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrClosed is returned by operations on a closed link.
	ErrClosed = errors.New("connector: link closed")
	// ErrSizeMismatch is returned when a frame does not match the buffer size
	// fixed at pairing time.
	ErrSizeMismatch = errors.New("connector: buffer size mismatch")
	// ErrAlreadyAttached is returned when an endpoint is attached twice.
	ErrAlreadyAttached = errors.New("connector: endpoint already attached")
	// ErrForeignOwner is returned when a block attaches an endpoint that was
	// created for another block.
	ErrForeignOwner = errors.New("connector: endpoint belongs to another block")
	// ErrInvalidSize is returned by MakePair for non-positive buffer sizes.
	ErrInvalidSize = errors.New("connector: buffer sizes must be positive")
)

// Link is one side of a bidirectional byte channel with fixed frame sizes.
type Link interface {
	Send(frame []byte) error
	Recv() ([]byte, error)
	Close() error
}

// Transport creates linked pairs of Links.
type Transport interface {
	Name() string
	// Pipe returns two connected links. Frames sent by a are abBytes long,
	// frames sent by b are baBytes long.
	Pipe(abBytes, baBytes int) (a, b Link, err error)
}

var transports = map[string]Transport{
	"chan": ChanTransport{Depth: 1},
	"tcp":  TCPTransport{},
}

// TransportByName returns the transport registered under name.
func TransportByName(name string) (Transport, error) {
	t, ok := transports[name]
	if !ok {
		return nil, fmt.Errorf("unknown connector transport %q; valid: %v", name, TransportNames())
	}
	return t, nil
}

// TransportNames returns the names of all transports in sorted order.
func TransportNames() []string {
	names := make([]string, 0, len(transports))
	for name := range transports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
