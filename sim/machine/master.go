// Package machine runs all blocks of a simulation on one host: it assigns
// blocks to accelerators, wires connector pairs between adjacent blocks,
// optionally starts a visualization engine, and supervises one worker task
// per block.
package machine

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/halo-sim/halo-sim/sim"
	"github.com/halo-sim/halo-sim/sim/connector"
	"github.com/halo-sim/halo-sim/sim/output"
	"github.com/halo-sim/halo-sim/sim/runner"
)

// OutputFactory creates the sink handed to the worker of one block.
type OutputFactory func(blockID int) (sim.OutputSink, error)

// Master orchestrates the workers of one host. Blocks must come from a
// geometry processor: ids equal positions and connections are final.
type Master struct {
	// Worker runs one block. Defaults to runner.Run.
	Worker sim.WorkerFunc
	// Quit is the shutdown signal shared with every worker.
	Quit *sim.Signal
	// RendezvousAddr is passed to workers for benchmark reports.
	RendezvousAddr string

	cfg    *sim.Config
	blocks []*sim.Block
	log    logrus.FieldLogger

	model      sim.Model
	assignment map[int]int
	endpoints  []*connector.Endpoint

	visQuit *sim.Signal
	shared  *sim.VisConfig
	workers *TaskGroup
	hasRun  bool
}

// NewMaster creates a master for blocks. quit is shared with the caller so
// that it can stop the run.
func NewMaster(cfg *sim.Config, blocks []*sim.Block, quit *sim.Signal, log logrus.FieldLogger) *Master {
	for i, b := range blocks {
		if b.ID != i {
			panic(fmt.Sprintf("NewMaster: block at position %d has id %d", i, b.ID))
		}
	}
	return &Master{
		Worker:  runner.Run,
		Quit:    quit,
		cfg:     cfg,
		blocks:  blocks,
		log:     log.WithField("component", "master"),
		visQuit: sim.NewSignal(),
	}
}

// AssignRoundRobin maps block ids to accelerators: ids[i] goes to
// accelerators[i mod len(accelerators)], or to 0 when the list is empty.
func AssignRoundRobin(ids []int, accelerators []int) map[int]int {
	assignment := make(map[int]int, len(ids))
	for i, id := range ids {
		if len(accelerators) == 0 {
			assignment[id] = 0
			continue
		}
		assignment[id] = accelerators[i%len(accelerators)]
	}
	return assignment
}

// AssignBlocksToAccelerators distributes the blocks over cfg.GPUs.
func (m *Master) AssignBlocksToAccelerators() map[int]int {
	ids := make([]int, len(m.blocks))
	for i, b := range m.blocks {
		ids[i] = b.ID
	}
	m.assignment = AssignRoundRobin(ids, m.cfg.GPUs)
	return m.assignment
}

// InitConnectors creates one connector pair per pair of adjacent blocks
// and attaches the endpoints. A neighbor adjacent through both faces of an
// axis shares a single pair sized for both faces.
func (m *Master) InitConnectors() error {
	transport, err := connector.TransportByName(m.cfg.Transport)
	if err != nil {
		return err
	}

	seen := make(map[[2]int]bool)
	for _, b := range m.blocks {
		for _, fn := range b.ConnectingBlocks() {
			key := [2]int{min(b.ID, fn.Neighbor), max(b.ID, fn.Neighbor)}
			if seen[key] {
				continue
			}
			seen[key] = true

			conn := b.Connection(fn.Face, fn.Neighbor)
			src, dst := conn.SrcElements, conn.DstElements
			if b.DoubleFace(fn.Face, fn.Neighbor) {
				opp := b.Connection(fn.Face.Opposite(), fn.Neighbor)
				src += opp.SrcElements
				dst += opp.DstElements
			}

			ea, eb, err := connector.MakePair(transport, m.cfg.Precision, [2]int{src, dst}, [2]int{b.ID, fn.Neighbor})
			if err != nil {
				return fmt.Errorf("connecting blocks %d and %d: %w", b.ID, fn.Neighbor, err)
			}
			m.endpoints = append(m.endpoints, ea, eb)
			if err := ea.Attach(b.ID); err != nil {
				return err
			}
			if err := eb.Attach(fn.Neighbor); err != nil {
				return err
			}
			b.AddConnector(fn.Neighbor, ea)
			m.blocks[fn.Neighbor].AddConnector(b.ID, eb)

			m.log.Debugf("Block connection: %d <-> %d: %d/%d-element buffer (face %s)",
				b.ID, fn.Neighbor, src, dst, fn.Face)
		}
	}
	return nil
}

// InitVisualizationAndIO prepares per-block output. In visualization mode
// it allocates the shared regions, starts the engine in engineTasks and
// wraps every sink so that it feeds the engine.
func (m *Master) InitVisualizationAndIO(engineTasks *TaskGroup) (OutputFactory, error) {
	sinkName := "none"
	if m.cfg.Output != "" {
		sinkName = m.cfg.OutputFormat
	}
	newSink, ok := sim.Outputs.Lookup(sinkName)
	if !ok {
		return nil, fmt.Errorf("unknown output format %q; valid: %v", sinkName, sim.Outputs.Names())
	}
	if m.cfg.Mode != sim.ModeVisualization {
		return func(id int) (sim.OutputSink, error) { return newSink(m.cfg, id) }, nil
	}

	newEngine, ok := sim.VisEngines.Lookup(m.cfg.Visualize)
	if !ok {
		return nil, fmt.Errorf("unknown visualization engine %q; valid: %v", m.cfg.Visualize, sim.VisEngines.Names())
	}
	m.shared = sim.NewVisConfig()
	if m.model != nil {
		m.shared.SetField(m.model.Fields()[0])
	}
	for _, b := range m.blocks {
		b.SetVisRegion(sim.NewVisRegion(int(b.NumNodes())))
	}

	engine := newEngine(m.log)
	engineTasks.Go("vis-"+engine.Name(), func(ctx context.Context) error {
		return engine.Run(ctx, m.cfg, m.blocks, m.visQuit, m.Quit, m.shared)
	})

	return func(id int) (sim.OutputSink, error) {
		inner, err := newSink(m.cfg, id)
		if err != nil {
			return nil, err
		}
		return output.NewVisualizationWrapper(inner, id, m.blocks[id].VisRegion(), m.shared), nil
	}, nil
}

// Run executes the whole machine and returns once every worker has exited.
// It may be called once.
func (m *Master) Run(ctx context.Context) error {
	if m.hasRun {
		panic("Master.Run() called more than once")
	}
	m.hasRun = true

	newModel, ok := sim.Models.Lookup(m.cfg.Model)
	if !ok {
		return fmt.Errorf("unknown model %q", m.cfg.Model)
	}
	model, err := newModel(m.cfg)
	if err != nil {
		return err
	}
	m.model = model

	logHostInfo(m.log)
	m.AssignBlocksToAccelerators()
	if err := m.InitConnectors(); err != nil {
		m.closeEndpoints()
		return err
	}

	backendName, newBackend, err := SelectBackend(m.cfg.Backends, m.log)
	if err != nil {
		m.log.WithError(err).Error("Cannot start workers")
		m.closeEndpoints()
		return err
	}

	engineTasks := NewTaskGroup(ctx, m.Quit, m.log)
	newOutput, err := m.InitVisualizationAndIO(engineTasks)
	if err != nil {
		m.closeEndpoints()
		return err
	}

	sinks := make([]sim.OutputSink, len(m.blocks))
	for i, b := range m.blocks {
		if sinks[i], err = newOutput(b.ID); err != nil {
			err = fmt.Errorf("creating output for block %d: %w", b.ID, err)
			break
		}
	}
	if err != nil {
		for _, s := range sinks {
			if s != nil {
				s.Close()
			}
		}
		m.closeEndpoints()
		m.visQuit.Set()
		return errors.Join(err, engineTasks.Wait())
	}

	m.workers = NewTaskGroup(ctx, m.Quit, m.log)
	for i, b := range m.blocks {
		p := sim.WorkerParams{
			Block:          b,
			Config:         m.cfg,
			Model:          model,
			BackendName:    backendName,
			NewBackend:     newBackend,
			Device:         m.assignment[b.ID],
			Output:         sinks[i],
			Quit:           m.Quit,
			RendezvousAddr: m.RendezvousAddr,
			Log:            m.log.WithField("component", "worker"),
		}
		m.workers.Go(fmt.Sprintf("block-%d", b.ID), func(ctx context.Context) error {
			defer p.Output.Close()
			return m.Worker(ctx, p)
		})
	}
	m.log.WithField("blocks", len(m.blocks)).Info("Workers started")

	workerErr := m.workers.Wait()
	m.visQuit.Set()
	engineErr := engineTasks.Wait()
	logProcessStats(m.log)

	if workerErr != nil {
		return workerErr
	}
	return engineErr
}

// Status reports the state of every worker task, or nil before Run has
// spawned them.
func (m *Master) Status() map[string]TaskStatus {
	if m.workers == nil {
		return nil
	}
	return m.workers.Status()
}

func (m *Master) closeEndpoints() {
	for _, e := range m.endpoints {
		e.Close()
	}
}
