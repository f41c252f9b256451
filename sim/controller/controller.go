// Package controller is the entry point of a run: it builds and connects
// the block topology, launches the machine master and, in benchmark mode,
// collects the per-block timing summaries.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/halo-sim/halo-sim/sim"
	"github.com/halo-sim/halo-sim/sim/geometry"
	"github.com/halo-sim/halo-sim/sim/machine"
	"github.com/halo-sim/halo-sim/sim/rendezvous"
)

// ErrNoBlocks is returned when the domain geometry yields no blocks.
var ErrNoBlocks = errors.New("domain geometry produced no blocks")

// BenchmarkResult is what a run returns. Summaries and the MLUPS figures
// are only filled in benchmark mode.
type BenchmarkResult struct {
	Blocks         []*sim.Block
	Summaries      []sim.TimingSummary
	EffectiveMLUPS float64
	ComputeMLUPS   float64
}

// Controller runs one simulation.
type Controller struct {
	// Out receives the benchmark report line. Defaults to os.Stdout.
	Out io.Writer
	// Quit stops the run when set. Run also sets it when ctx is done.
	Quit *sim.Signal
	// NewMaster builds the machine master; replaceable for tests.
	NewMaster func(cfg *sim.Config, blocks []*sim.Block, quit *sim.Signal, log logrus.FieldLogger) *machine.Master

	cfg    *sim.Config
	log    logrus.FieldLogger
	hasRun bool
}

// New creates a controller. The configuration is validated by Run.
func New(cfg *sim.Config, log logrus.FieldLogger) *Controller {
	return &Controller{
		Out:       os.Stdout,
		Quit:      sim.NewSignal(),
		NewMaster: machine.NewMaster,
		cfg:       cfg,
		log:       log,
	}
}

// Run executes the simulation and returns once the master has exited.
// Panics if called more than once.
func (c *Controller) Run(ctx context.Context) (*BenchmarkResult, error) {
	if c.hasRun {
		panic("Controller.Run() called more than once")
	}
	c.hasRun = true
	if err := c.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	stop := context.AfterFunc(ctx, c.Quit.Set)
	defer stop()

	geo, err := geometry.FromConfig(c.cfg)
	if err != nil {
		return nil, fmt.Errorf("building domain geometry: %w", err)
	}

	srv, err := rendezvous.Listen(c.cfg.RendezvousPort, c.log)
	if err != nil {
		return nil, err
	}
	defer srv.Close()
	c.cfg.RendezvousPort = srv.Port()

	blocks := geo.Blocks()
	if len(blocks) == 0 {
		return nil, ErrNoBlocks
	}

	model, err := c.model()
	if err != nil {
		return nil, err
	}
	envelope := EnvelopeWidth(model)
	for _, b := range blocks {
		b.SetEnvelope(envelope)
	}
	c.log.WithFields(logrus.Fields{
		"model":    model.Name(),
		"blocks":   len(blocks),
		"envelope": envelope,
	}).Info("Domain decomposed")

	blocks, err = geometry.NewProcessor(blocks, geo.Dim(), geo, c.log).Transform(model.Grid())
	if err != nil {
		return nil, err
	}

	master := c.NewMaster(c.cfg, blocks, c.Quit, c.log)
	master.RendezvousAddr = srv.Addr()
	tasks := machine.NewTaskGroup(ctx, c.Quit, c.log)
	tasks.Go("master", master.Run)

	result := &BenchmarkResult{Blocks: blocks}
	var collectErr error
	if c.cfg.Mode == sim.ModeBenchmark {
		result.Summaries, collectErr = c.collect(tasks.Context(), srv, blocks)
		if collectErr != nil {
			// Workers still reporting must not wait for an ack forever.
			c.Quit.Set()
			srv.Close()
		}
	}

	masterErr := tasks.Wait()
	switch {
	case masterErr != nil && (collectErr == nil || errors.Is(collectErr, context.Canceled)):
		return nil, masterErr
	case collectErr != nil:
		return nil, errors.Join(fmt.Errorf("collecting timing summaries: %w", collectErr), masterErr)
	}

	if c.cfg.Mode == sim.ModeBenchmark {
		result.EffectiveMLUPS, result.ComputeMLUPS = AggregateMLUPS(result.Summaries)
		if !c.cfg.Quiet {
			fmt.Fprintf(c.Out, "Total MLUPS: eff:%.2f  comp:%.2f\n", result.EffectiveMLUPS, result.ComputeMLUPS)
		}
		if c.cfg.BenchmarkDB != "" {
			if err := saveBenchmark(c.cfg, result, c.log); err != nil {
				return result, err
			}
		}
	}
	return result, nil
}

func (c *Controller) model() (sim.Model, error) {
	newModel, ok := sim.Models.Lookup(c.cfg.Model)
	if !ok {
		return nil, fmt.Errorf("unknown model %q; valid: %v", c.cfg.Model, sim.Models.Names())
	}
	return newModel(c.cfg)
}

// collect receives one summary per block. It gives up when ctx is done
// (the master failed) or the shutdown signal is set, since interrupted
// workers do not report.
func (c *Controller) collect(ctx context.Context, srv *rendezvous.Server, blocks []*sim.Block) ([]sim.TimingSummary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.Quit.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	ids := make([]int, len(blocks))
	for i, b := range blocks {
		ids[i] = b.ID
	}
	return srv.Collect(ctx, ids)
}

// EnvelopeWidth is the ghost layer a model needs: its non-locality or the
// longest basis vector component, whichever is larger.
func EnvelopeWidth(m sim.Model) int {
	return max(m.Nonlocality(), m.Grid().MaxComponent())
}

// AggregateMLUPS sums the update rates of all blocks in million lattice
// updates per second. Summaries with a zero time contribute nothing to the
// corresponding figure.
func AggregateMLUPS(summaries []sim.TimingSummary) (effective, compute float64) {
	for _, s := range summaries {
		nodes := float64(s.NodeCount)
		if s.Total > 0 {
			effective += nodes / s.Total * 1e-6
		}
		if s.Comp > 0 {
			compute += nodes / s.Comp * 1e-6
		}
	}
	return effective, compute
}
