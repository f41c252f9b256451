package connector

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/halo-sim/halo-sim/sim"
)

// Endpoint is one side of a connector pair. It sends SendElements()
// elements per frame and receives RecvElements(); both are fixed for the
// lifetime of the pair.
type Endpoint struct {
	self, peer int
	precision  sim.Precision
	sendElems  int
	recvElems  int
	link       Link

	mu       sync.Mutex
	attached bool
}

var _ sim.Connector = (*Endpoint)(nil)

// MakePair creates two linked endpoints for blocks ids[0] and ids[1].
// The first endpoint sends sizes[0] elements and receives sizes[1]; the
// second the reverse. Element width follows precision.
func MakePair(t Transport, precision sim.Precision, sizes [2]int, ids [2]int) (*Endpoint, *Endpoint, error) {
	if sizes[0] < 1 || sizes[1] < 1 {
		return nil, nil, fmt.Errorf("%w: got %d/%d", ErrInvalidSize, sizes[0], sizes[1])
	}
	if ids[0] == ids[1] {
		return nil, nil, fmt.Errorf("connector: cannot pair block %d with itself", ids[0])
	}
	width := precision.Width()
	la, lb, err := t.Pipe(sizes[0]*width, sizes[1]*width)
	if err != nil {
		return nil, nil, err
	}
	a := &Endpoint{self: ids[0], peer: ids[1], precision: precision, sendElems: sizes[0], recvElems: sizes[1], link: la}
	b := &Endpoint{self: ids[1], peer: ids[0], precision: precision, sendElems: sizes[1], recvElems: sizes[0], link: lb}
	return a, b, nil
}

// Attach claims the endpoint for block owner. Only the block it was created
// for may attach it, and only once.
func (e *Endpoint) Attach(owner int) error {
	if owner != e.self {
		return fmt.Errorf("%w: endpoint of %d, attaching block %d", ErrForeignOwner, e.self, owner)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.attached {
		return fmt.Errorf("%w: block %d <-> %d", ErrAlreadyAttached, e.self, e.peer)
	}
	e.attached = true
	return nil
}

// Self returns the id of the block owning this endpoint.
func (e *Endpoint) Self() int { return e.self }

// Peer returns the id of the block on the other side.
func (e *Endpoint) Peer() int { return e.peer }

func (e *Endpoint) SendElements() int { return e.sendElems }
func (e *Endpoint) RecvElements() int { return e.recvElems }

// Send transmits one frame of exactly SendElements() elements.
func (e *Endpoint) Send(buf []byte) error {
	if want := e.sendElems * e.precision.Width(); len(buf) != want {
		return fmt.Errorf("%w: sending %d bytes, pair expects %d", ErrSizeMismatch, len(buf), want)
	}
	return e.link.Send(buf)
}

// Recv blocks until the peer's next frame arrives. Returns io.EOF once the
// peer has closed its side and all frames in flight are consumed, and
// ErrClosed after this side was closed.
func (e *Endpoint) Recv() ([]byte, error) {
	buf, err := e.link.Recv()
	if err != nil {
		return nil, err
	}
	if want := e.recvElems * e.precision.Width(); len(buf) != want {
		return nil, fmt.Errorf("%w: received %d bytes, pair expects %d", ErrSizeMismatch, len(buf), want)
	}
	return buf, nil
}

// SendFloats encodes values at the pair's precision and sends them.
func (e *Endpoint) SendFloats(values []float64) error {
	if len(values) != e.sendElems {
		return fmt.Errorf("%w: sending %d elements, pair expects %d", ErrSizeMismatch, len(values), e.sendElems)
	}
	return e.Send(encode(e.precision, values))
}

// RecvFloats receives one frame and decodes it to float64.
func (e *Endpoint) RecvFloats() ([]float64, error) {
	buf, err := e.Recv()
	if err != nil {
		return nil, err
	}
	return decode(e.precision, buf), nil
}

// Close closes this side of the pair.
func (e *Endpoint) Close() error {
	return e.link.Close()
}

func encode(p sim.Precision, values []float64) []byte {
	width := p.Width()
	buf := make([]byte, len(values)*width)
	for i, v := range values {
		if width == 8 {
			binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
		} else {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(v)))
		}
	}
	return buf
}

func decode(p sim.Precision, buf []byte) []float64 {
	width := p.Width()
	values := make([]float64, len(buf)/width)
	for i := range values {
		if width == 8 {
			values[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
		} else {
			values[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])))
		}
	}
	return values
}
