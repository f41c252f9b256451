// Package rendezvous implements the request/reply socket workers use to
// hand their timing summaries to the controller. Each report is one TCP
// connection carrying a JSON summary, answered with the token "ack".
package rendezvous

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/halo-sim/halo-sim/sim"
)

const ackToken = "ack"

var (
	// ErrDuplicateSummary is returned when a block reports twice.
	ErrDuplicateSummary = errors.New("rendezvous: duplicate summary")
	// ErrUnknownBlock is returned for a summary of a block not in the run.
	ErrUnknownBlock = errors.New("rendezvous: summary from unknown block")
	// ErrBadReply is returned by Report when the server does not acknowledge.
	ErrBadReply = errors.New("rendezvous: unexpected reply")
)

// Server is the reply side of the rendezvous. It is used by a single
// goroutine.
type Server struct {
	ln  *net.TCPListener
	log logrus.FieldLogger
}

// Listen binds the reply socket on 127.0.0.1:port. Port 0 picks a free port;
// Port reports the one bound.
func Listen(port int, log logrus.FieldLogger) (*Server, error) {
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("rendezvous: binding %s: %w", addr, err)
	}
	return &Server{ln: ln.(*net.TCPListener), log: log}, nil
}

// Addr returns the host:port workers should report to.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Port returns the bound TCP port.
func (s *Server) Port() int { return s.ln.Addr().(*net.TCPAddr).Port }

// Close releases the socket.
func (s *Server) Close() error { return s.ln.Close() }

// Receive waits for the next summary and acknowledges it.
func (s *Server) Receive(ctx context.Context) (sim.TimingSummary, error) {
	conn, err := s.accept(ctx)
	if err != nil {
		return sim.TimingSummary{}, err
	}
	defer conn.Close()
	defer watchConn(ctx, conn)()

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return sim.TimingSummary{}, connErr(ctx, "reading request", err)
	}
	var summary sim.TimingSummary
	if err := json.Unmarshal(line, &summary); err != nil {
		return sim.TimingSummary{}, fmt.Errorf("rendezvous: decoding request: %w", err)
	}
	if _, err := conn.Write([]byte(ackToken + "\n")); err != nil {
		return sim.TimingSummary{}, connErr(ctx, "writing reply", err)
	}
	return summary, nil
}

// watchConn expires conn's deadline once ctx is done, unblocking any read
// or write in progress. The returned func stops the watch.
func watchConn(ctx context.Context, conn net.Conn) func() bool {
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	return context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
}

// connErr reports ctx's error when ctx ended the I/O, else wraps err.
func connErr(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("rendezvous: %s: %w", op, err)
}

// accept blocks for one connection, giving up when ctx is done.
func (s *Server) accept(ctx context.Context) (net.Conn, error) {
	stop := context.AfterFunc(ctx, func() {
		s.ln.SetDeadline(time.Now())
	})
	defer stop()

	conn, err := s.ln.Accept()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			s.ln.SetDeadline(time.Time{})
			return nil, ctxErr
		}
		return nil, fmt.Errorf("rendezvous: accept: %w", err)
	}
	return conn, nil
}

// Collect receives exactly one summary per id in ids and returns them in
// arrival order. A repeated or unexpected block id is a protocol error.
func (s *Server) Collect(ctx context.Context, ids []int) ([]sim.TimingSummary, error) {
	pending := make(map[int]bool, len(ids))
	for _, id := range ids {
		pending[id] = true
	}
	seen := make(map[int]bool, len(ids))
	summaries := make([]sim.TimingSummary, 0, len(ids))

	for len(summaries) < len(ids) {
		summary, err := s.Receive(ctx)
		if err != nil {
			return summaries, err
		}
		switch {
		case seen[summary.BlockID]:
			return summaries, fmt.Errorf("%w: block %d", ErrDuplicateSummary, summary.BlockID)
		case !pending[summary.BlockID]:
			return summaries, fmt.Errorf("%w: block %d", ErrUnknownBlock, summary.BlockID)
		}
		seen[summary.BlockID] = true
		summaries = append(summaries, summary)
		s.log.WithFields(logrus.Fields{
			"block":    summary.BlockID,
			"received": len(summaries),
			"expected": len(ids),
		}).Debug("Timing summary received")
	}
	return summaries, nil
}

// Report sends summary to the server at addr and waits for the ack.
func Report(ctx context.Context, addr string, summary sim.TimingSummary) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("rendezvous: dialing %s: %w", addr, err)
	}
	defer conn.Close()
	defer watchConn(ctx, conn)()

	payload, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return connErr(ctx, "sending summary", err)
	}
	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return connErr(ctx, "reading reply", err)
	}
	if strings.TrimSpace(reply) != ackToken {
		return fmt.Errorf("%w: %q", ErrBadReply, reply)
	}
	return nil
}
