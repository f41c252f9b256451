package connector

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"syscall"
)

// TCPTransport links endpoints over a loopback TCP connection. Frame sizes
// are fixed per direction, so frames are written without a length prefix.
type TCPTransport struct{}

func (TCPTransport) Name() string { return "tcp" }

func (TCPTransport) Pipe(abBytes, baBytes int) (Link, Link, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, nil, fmt.Errorf("connector: listening on loopback: %w", err)
	}
	defer ln.Close()

	type accepted struct {
		conn net.Conn
		err  error
	}
	ch := make(chan accepted, 1)
	go func() {
		conn, err := ln.Accept()
		ch <- accepted{conn, err}
	}()

	dialed, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		return nil, nil, fmt.Errorf("connector: dialing loopback: %w", err)
	}
	acc := <-ch
	if acc.err != nil {
		dialed.Close()
		return nil, nil, fmt.Errorf("connector: accepting loopback: %w", acc.err)
	}
	return &tcpLink{conn: dialed, recvBytes: baBytes}, &tcpLink{conn: acc.conn, recvBytes: abBytes}, nil
}

type tcpLink struct {
	conn      net.Conn
	recvBytes int
	closed    atomic.Bool
}

func (l *tcpLink) Send(frame []byte) error {
	if l.closed.Load() {
		return ErrClosed
	}
	if _, err := l.conn.Write(frame); err != nil {
		return fmt.Errorf("connector: tcp send: %w", l.mapErr(err))
	}
	return nil
}

func (l *tcpLink) Recv() ([]byte, error) {
	if l.closed.Load() {
		return nil, ErrClosed
	}
	frame := make([]byte, l.recvBytes)
	if _, err := io.ReadFull(l.conn, frame); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, l.mapErr(err)
	}
	return frame, nil
}

// mapErr translates socket errors into the link contract: our own close
// is ErrClosed, a peer that went away is io.EOF.
func (l *tcpLink) mapErr(err error) error {
	switch {
	case errors.Is(err, net.ErrClosed):
		return ErrClosed
	case errors.Is(err, syscall.EPIPE), errors.Is(err, syscall.ECONNRESET):
		return io.EOF
	}
	return err
}

func (l *tcpLink) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	return l.conn.Close()
}
