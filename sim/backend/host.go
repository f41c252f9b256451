// Package backend provides the compute backends selectable with --backends.
// Only the host backend ships; accelerator backends register under their
// own names from separate packages.
package backend

import (
	"errors"
	"sync"

	"github.com/halo-sim/halo-sim/sim"
)

// ErrClosed is returned by Launch after Close.
var ErrClosed = errors.New("backend: closed")

// Host runs kernels synchronously on the calling goroutine.
type Host struct {
	device int

	mu      sync.Mutex
	closed  bool
	kernels int
}

// NewHost creates a host backend. The accelerator id is recorded but has
// no effect.
func NewHost(_ *sim.Config, device int) (sim.Backend, error) {
	return &Host{device: device}, nil
}

func (h *Host) Name() string { return "host" }
func (h *Host) Device() int  { return h.device }

// Launch runs k and returns its error.
func (h *Host) Launch(k sim.Kernel) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	h.kernels++
	h.mu.Unlock()
	return k()
}

// Launched returns the number of kernels run so far.
func (h *Host) Launched() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.kernels
}

func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}
