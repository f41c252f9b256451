// Package runner is the reference block worker. It keeps one value per node
// and field, exchanges boundary means with every neighbor each iteration
// and relaxes toward them on the block's backend. The numbers are not
// physics; they exercise the wiring, timing and output paths.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/halo-sim/halo-sim/sim"
	"github.com/halo-sim/halo-sim/sim/rendezvous"
)

// relaxation is the fraction of the distance to the halo mean covered per
// iteration.
const relaxation = 0.1

// quitGrace bounds how long a worker whose neighbor vanished waits for the
// shutdown signal before treating the loss as its own failure.
const quitGrace = time.Second

// ErrNeighborGone is returned when a neighbor closes its connector while
// the run is not shutting down.
var ErrNeighborGone = errors.New("runner: neighbor closed its connector")

// worker holds the state of one block's loop.
type worker struct {
	p         sim.WorkerParams
	log       logrus.FieldLogger
	backend   sim.Backend
	fields    map[string][]float64
	primary   string
	neighbors []int
}

// Run executes the block loop until MaxIters iterations are done (or, with
// MaxIters 0, until the shutdown signal is set). In benchmark mode a worker
// that was not interrupted then reports its timing summary to the
// rendezvous address.
func Run(ctx context.Context, p sim.WorkerParams) error {
	w := &worker{
		p:         p,
		log:       p.Log.WithField("block", p.Block.ID),
		neighbors: p.Block.NeighborIDs(),
	}
	defer w.closeConnectors()

	backend, err := p.NewBackend(p.Config, p.Device)
	if err != nil {
		return fmt.Errorf("block %d: creating %s backend on device %d: %w", p.Block.ID, p.BackendName, p.Device, err)
	}
	w.backend = backend
	defer backend.Close()

	w.initFields()
	if gs, ok := p.Output.(sim.GeometrySink); ok {
		tags := make([]uint8, p.Block.NumNodes())
		for i := range tags {
			tags[i] = 1
		}
		if err := gs.SaveGeometry(tags); err != nil {
			return fmt.Errorf("block %d: saving geometry: %w", p.Block.ID, err)
		}
	}
	w.log.WithFields(logrus.Fields{
		"backend":   p.BackendName,
		"device":    p.Device,
		"neighbors": w.neighbors,
		"nodes":     p.Block.NumNodes(),
	}).Debug("Worker started")

	summary, err := w.loop()
	if err != nil {
		return err
	}
	w.log.WithFields(logrus.Fields{
		"iterations": summary.Iterations,
		"total":      summary.Total,
		"comp":       summary.Comp,
	}).Debug("Worker finished")

	// An interrupted run has nothing meaningful to report.
	if p.Config.Mode == sim.ModeBenchmark && !p.Quit.IsSet() {
		if err := rendezvous.Report(ctx, p.RendezvousAddr, summary); err != nil {
			return fmt.Errorf("block %d: reporting timing summary: %w", p.Block.ID, err)
		}
	}
	return nil
}

func (w *worker) initFields() {
	names := w.p.Model.Fields()
	w.primary = names[0]
	n := w.p.Block.NumNodes()
	w.fields = make(map[string][]float64, len(names))
	for _, name := range names {
		values := make([]float64, n)
		for i := range values {
			values[i] = 1 + 0.01*float64(w.p.Block.ID)
		}
		w.fields[name] = values
	}
}

func (w *worker) loop() (sim.TimingSummary, error) {
	cfg := w.p.Config
	summary := sim.TimingSummary{BlockID: w.p.Block.ID, NodeCount: w.p.Block.NumNodes()}
	start := time.Now()
	var comp time.Duration

	for it := 1; cfg.MaxIters == 0 || it <= cfg.MaxIters; it++ {
		if w.p.Quit.IsSet() {
			break
		}
		target, err := w.exchange()
		if err != nil {
			// A neighbor that stopped on shutdown is not a failure.
			if w.quitting() {
				break
			}
			if errors.Is(err, io.EOF) {
				return summary, fmt.Errorf("block %d, iteration %d: %w", w.p.Block.ID, it, ErrNeighborGone)
			}
			return summary, fmt.Errorf("block %d, iteration %d: halo exchange: %w", w.p.Block.ID, it, err)
		}

		t0 := time.Now()
		if err := w.backend.Launch(func() error { return w.relax(target) }); err != nil {
			return summary, fmt.Errorf("block %d, iteration %d: kernel: %w", w.p.Block.ID, it, err)
		}
		comp += time.Since(t0)
		summary.Iterations = it

		if it%cfg.Every == 0 && w.p.Output != nil {
			if err := w.p.Output.Save(it, w.fields); err != nil {
				return summary, fmt.Errorf("block %d, iteration %d: saving output: %w", w.p.Block.ID, it, err)
			}
		}
	}
	if summary.Iterations > 0 {
		n := float64(summary.Iterations)
		summary.Total = time.Since(start).Seconds() / n
		summary.Comp = comp.Seconds() / n
	}
	return summary, nil
}

// exchange sends the block's primary field mean to every neighbor and
// returns the mean of everything received, or the block's own mean when it
// has no neighbors. Sends and receives run concurrently so that a full
// transport buffer never stalls a pair of blocks waiting on each other.
func (w *worker) exchange() (float64, error) {
	own := mean(w.fields[w.primary])
	if len(w.neighbors) == 0 {
		return own, nil
	}

	received := make([]float64, len(w.neighbors))
	var g errgroup.Group
	for i, id := range w.neighbors {
		conn := w.p.Block.Connector(id)
		g.Go(func() error {
			out := make([]float64, conn.SendElements())
			for j := range out {
				out[j] = own
			}
			return conn.SendFloats(out)
		})
		g.Go(func() error {
			in, err := conn.RecvFloats()
			if err != nil {
				return err
			}
			received[i] = mean(in)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return mean(received), nil
}

// relax moves every value of every field a step toward target.
func (w *worker) relax(target float64) error {
	for _, values := range w.fields {
		for i, v := range values {
			values[i] = v + relaxation*(target-v)
		}
	}
	return nil
}

// quitting reports whether the shutdown signal is set now or within
// quitGrace.
func (w *worker) quitting() bool {
	select {
	case <-w.p.Quit.Done():
		return true
	case <-time.After(quitGrace):
		return false
	}
}

func (w *worker) closeConnectors() {
	for _, id := range w.neighbors {
		if err := w.p.Block.Connector(id).Close(); err != nil {
			w.log.WithError(err).WithField("neighbor", id).Debug("closing connector")
		}
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
