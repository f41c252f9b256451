package connector

import (
	"io"
	"sync"
)

// ChanTransport links endpoints of the same process with buffered Go
// channels. Depth is the number of frames that may be in flight per
// direction before Send blocks.
type ChanTransport struct {
	Depth int
}

func (ChanTransport) Name() string { return "chan" }

func (t ChanTransport) Pipe(abBytes, baBytes int) (Link, Link, error) {
	depth := max(t.Depth, 1)
	ab := make(chan []byte, depth)
	ba := make(chan []byte, depth)
	a, b := newChanLink(ab, ba), newChanLink(ba, ab)
	a.peerDone, b.peerDone = b.done, a.done
	return a, b, nil
}

// chanLink sends on out, which only it closes, and receives on in. done is
// closed by Close; peerDone is the peer's done channel, so a Send blocked on
// a full buffer fails once the peer is gone.
type chanLink struct {
	mu       sync.Mutex
	out      chan<- []byte
	in       <-chan []byte
	done     chan struct{}
	peerDone <-chan struct{}
	closing  sync.Once
	closed   bool
}

func newChanLink(out chan<- []byte, in <-chan []byte) *chanLink {
	return &chanLink{out: out, in: in, done: make(chan struct{})}
}

func (l *chanLink) Send(frame []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	select {
	case l.out <- append([]byte(nil), frame...):
		return nil
	case <-l.done:
		return ErrClosed
	case <-l.peerDone:
		return io.EOF
	}
}

func (l *chanLink) Recv() ([]byte, error) {
	select {
	case <-l.done:
		return nil, ErrClosed
	default:
	}
	select {
	case frame, ok := <-l.in:
		if !ok {
			return nil, io.EOF
		}
		return frame, nil
	case <-l.done:
		return nil, ErrClosed
	}
}

// Close wakes a blocked Send before closing the outgoing channel, so the
// peer observes io.EOF after draining frames already in flight.
func (l *chanLink) Close() error {
	l.closing.Do(func() { close(l.done) })
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.out)
	}
	return nil
}
