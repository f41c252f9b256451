package sim

import (
	"context"
	"sync"
)

// Signal is a one-shot event shared between tasks. Once set it stays set.
// It is the only cancellation primitive handed to block workers.
type Signal struct {
	once sync.Once
	ch   chan struct{}
}

// NewSignal creates an unset Signal.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Set marks the signal. Calling Set more than once is a no-op.
func (s *Signal) Set() {
	s.once.Do(func() { close(s.ch) })
}

// IsSet reports whether Set has been called.
func (s *Signal) IsSet() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the signal is set.
func (s *Signal) Done() <-chan struct{} {
	return s.ch
}

// Wait blocks until the signal is set or ctx is done. A set signal wins
// over a done context.
func (s *Signal) Wait(ctx context.Context) error {
	select {
	case <-s.ch:
		return nil
	case <-ctx.Done():
		if s.IsSet() {
			return nil
		}
		return ctx.Err()
	}
}
